package target

import "testing"

func TestConnectionString(t *testing.T) {
	cases := []struct {
		name string
		tgt  Target
		want string
	}{
		{
			name: "postgres",
			tgt: Target{
				Driver: DriverPostgres, Host: "db", Port: 5432,
				Database: "app", Username: "app", Password: "secret",
			},
			want: "host=db port=5432 dbname=app user=app password=secret sslmode=disable",
		},
		{
			name: "mysql",
			tgt: Target{
				Driver: DriverMySQL, Host: "db", Port: 3306,
				Database: "app", Username: "app", Password: "secret",
			},
			want: "app:secret@tcp(db:3306)/app?parseTime=true",
		},
		{
			name: "mssql",
			tgt: Target{
				Driver: DriverMSSQL, Host: "db", Port: 1433,
				Database: "app", Username: "app", Password: "secret",
			},
			want: "sqlserver://app:secret@db:1433?database=app",
		},
		{
			name: "sqlite",
			tgt:  Target{Driver: DriverSQLite, Database: "file::memory:?cache=shared"},
			want: "file::memory:?cache=shared",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.tgt.ConnectionString(); got != tc.want {
				t.Fatalf("ConnectionString() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSQLDriverName(t *testing.T) {
	tgt := Target{Driver: DriverMySQL}
	if got := tgt.SQLDriverName(); got != "mysql" {
		t.Fatalf("SQLDriverName() = %q, want mysql", got)
	}
}

func TestAddr(t *testing.T) {
	sqlite := Target{Driver: DriverSQLite, Database: "file::memory:?cache=shared"}
	if got := sqlite.Addr(); got != "file::memory:?cache=shared" {
		t.Fatalf("Addr() = %q, want the sqlite DSN", got)
	}

	pg := Target{Driver: DriverPostgres, Host: "db", Port: 5432}
	if got := pg.Addr(); got != "db:5432" {
		t.Fatalf("Addr() = %q, want db:5432", got)
	}
}
