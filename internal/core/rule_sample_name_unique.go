package core

import (
	"context"

	"cg/pkg/domain"
	"cg/pkg/orderapi"
)

// SampleNameUniqueRule enforces sample-name uniqueness inside a customer's
// namespace for workflows that demand it. Microbial SARS-CoV-2 orders exempt
// control samples; PacBio orders exempt nothing.
func SampleNameUniqueRule(exemptControls bool) OrderRule {
	return sampleNameUniqueRule{exemptControls: exemptControls}
}

type sampleNameUniqueRule struct {
	exemptControls bool
}

func (sampleNameUniqueRule) Name() string { return "sample_name_unique" }

func (r sampleNameUniqueRule) Evaluate(_ context.Context, view domain.TransactionView, order *orderapi.Order) []domain.Violation {
	var out []domain.Violation
	seen := make(map[string]bool)
	for _, s := range order.Samples {
		if !s.IsNew() {
			continue
		}
		if r.exemptControls && s.Control != domain.ControlNone {
			continue
		}
		if seen[s.Name] {
			out = append(out, orderErrorf("sample_name_unique", domain.EntitySample, s.Name,
				"sample name %q repeated within order", s.Name))
			continue
		}
		seen[s.Name] = true
		if len(view.SamplesByCustomerName(order.Customer, s.Name)) > 0 {
			out = append(out, orderErrorf("sample_name_unique", domain.EntitySample, s.Name,
				"sample name %q already used by customer %q", s.Name, order.Customer))
		}
	}
	return out
}
