package core

import (
	"context"

	"cg/pkg/domain"
	"cg/pkg/orderapi"
)

// CaseNameCollisionRule rejects brand-new cases whose (customer, name) pair is
// already taken. Reruns referencing a case internal id bypass the check, but
// the referenced case must exist and belong to a visible customer.
func CaseNameCollisionRule() OrderRule {
	return caseNameCollisionRule{}
}

type caseNameCollisionRule struct{}

func (caseNameCollisionRule) Name() string { return "case_name_collision" }

func (caseNameCollisionRule) Evaluate(_ context.Context, view domain.TransactionView, order *orderapi.Order) []domain.Violation {
	var out []domain.Violation
	for _, group := range caseGroups(order) {
		if group.RerunID != "" {
			if _, ok := view.FindCase(group.RerunID); !ok {
				out = append(out, orderErrorf("case_name_collision", domain.EntityCase, group.RerunID,
					"case %q not found for rerun", group.RerunID))
			}
			continue
		}
		if group.Name == "" {
			out = append(out, orderErrorf("case_name_collision", domain.EntityCase, "",
				"case name missing for sample group"))
			continue
		}
		if existing, ok := view.FindCaseByName(order.Customer, group.Name); ok {
			out = append(out, orderErrorf("case_name_collision", domain.EntityCase, existing.InternalID,
				"case name %q already used by customer %q", group.Name, order.Customer))
		}
	}
	return out
}
