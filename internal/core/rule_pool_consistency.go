package core

import (
	"context"

	"cg/pkg/domain"
	"cg/pkg/orderapi"
)

// PoolConsistencyRule requires all samples of a pool to share one application
// and one priority; a pool is one physical library prep.
func PoolConsistencyRule() OrderRule {
	return poolConsistencyRule{}
}

type poolConsistencyRule struct{}

func (poolConsistencyRule) Name() string { return "pool_consistency" }

func (poolConsistencyRule) Evaluate(_ context.Context, _ domain.TransactionView, order *orderapi.Order) []domain.Violation {
	var out []domain.Violation
	type poolRef struct {
		application string
		priority    domain.Priority
	}
	pools := make(map[string]poolRef)
	for _, s := range order.Samples {
		ref, ok := pools[s.Pool]
		if !ok {
			pools[s.Pool] = poolRef{application: s.Application, priority: s.Priority}
			continue
		}
		if ref.application != s.Application {
			out = append(out, orderErrorf("pool_consistency", domain.EntityPool, s.Pool,
				"pool %q mixes applications %q and %q", s.Pool, ref.application, s.Application))
		}
		if ref.priority != s.Priority {
			out = append(out, orderErrorf("pool_consistency", domain.EntityPool, s.Pool,
				"pool %q mixes priorities %q and %q", s.Pool, ref.priority, s.Priority))
		}
	}
	return out
}
