package core

import (
	"context"

	"cg/pkg/domain"
	"cg/pkg/orderapi"
)

// ApplicationValidRule requires every submitted application tag to resolve to
// a current application version.
func ApplicationValidRule() OrderRule {
	return applicationValidRule{}
}

type applicationValidRule struct{}

func (applicationValidRule) Name() string { return "application_valid" }

func (applicationValidRule) Evaluate(_ context.Context, view domain.TransactionView, order *orderapi.Order) []domain.Violation {
	var out []domain.Violation
	seen := make(map[string]bool)
	for _, s := range order.Samples {
		if s.Application == "" || seen[s.Application] {
			continue
		}
		seen[s.Application] = true
		if _, ok := view.CurrentApplicationVersion(s.Application); !ok {
			out = append(out, orderErrorf("application_valid", domain.EntityApplication, s.Application,
				"invalid application %q for sample %q", s.Application, s.Name))
		}
	}
	return out
}
