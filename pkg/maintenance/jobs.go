package maintenance

import (
	"context"

	"mercator-hq/lifecycle/pkg/audit/retention"
	"mercator-hq/lifecycle/pkg/pool"
)

// Job names, used as the job label in metrics.
const (
	JobPoolPrune      = "pool_prune"
	JobAuditRetention = "audit_retention"
)

// PoolPruneJob discards idle pool instances past their idle timeout.
func PoolPruneJob(schedule string, pools *pool.Manager) Job {
	return Job{
		Name:     JobPoolPrune,
		Schedule: schedule,
		Run: func(ctx context.Context) (int, error) {
			return pools.PruneAll(), nil
		},
	}
}

// RetentionJob deletes audit records outside the retention window.
func RetentionJob(schedule string, pruner *retention.Pruner) Job {
	return Job{
		Name:     JobAuditRetention,
		Schedule: schedule,
		Run: func(ctx context.Context) (int, error) {
			deleted, err := pruner.Prune(ctx)
			return int(deleted), err
		},
	}
}
