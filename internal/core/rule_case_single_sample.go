package core

import (
	"context"

	"cg/pkg/domain"
	"cg/pkg/orderapi"
)

// SingleSamplePerCaseRule enforces exactly one sample per case name; required
// by the RNAFUSION workflow.
func SingleSamplePerCaseRule() OrderRule {
	return singleSamplePerCaseRule{}
}

type singleSamplePerCaseRule struct{}

func (singleSamplePerCaseRule) Name() string { return "single_sample_per_case" }

func (singleSamplePerCaseRule) Evaluate(_ context.Context, _ domain.TransactionView, order *orderapi.Order) []domain.Violation {
	var out []domain.Violation
	for _, group := range caseGroups(order) {
		if len(group.Samples) != 1 {
			out = append(out, orderErrorf("single_sample_per_case", domain.EntityCase, group.Name,
				"case %q must contain exactly one sample, got %d", group.Name, len(group.Samples)))
		}
	}
	return out
}
