package registry

import (
	"context"
	"fmt"
	"log"
)

// cleanupDeadInstances drops any instance whose heartbeat key has expired
// from the active set and clears its published pool counters. Unlike the
// teacher's coordinator, there is no connection count to "recover" here —
// the registry never held admission state, so cleanup is pure bookkeeping
// hygiene.
func (r *Registry) cleanupDeadInstances(ctx context.Context) {
	instances, err := r.client.SMembers(ctx, keyInstanceList).Result()
	if err != nil {
		log.Printf("[registry] %s: listing instances failed: %v", r.instanceID, err)
		return
	}

	for _, instID := range instances {
		if instID == r.instanceID {
			continue
		}

		hbKey := fmt.Sprintf(keyInstanceHB, instID)
		exists, err := r.client.Exists(ctx, hbKey).Result()
		if err != nil || exists > 0 {
			continue
		}

		log.Printf("[registry] instance %s appears dead, removing", instID)
		r.client.SRem(ctx, keyInstanceList, instID)
		r.client.Del(ctx, fmt.Sprintf(keyInstancePools, instID))
	}
}
