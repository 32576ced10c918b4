package core

import (
	"context"
	"fmt"

	"cg/pkg/domain"
)

// PedigreeIntegrityRule is a store-level rule: mother/father references on a
// case/sample link must point at samples linked into the same case, and a
// sample can never be its own parent.
func PedigreeIntegrityRule() domain.Rule {
	return pedigreeIntegrityRule{}
}

type pedigreeIntegrityRule struct{}

func (pedigreeIntegrityRule) Name() string { return "pedigree_integrity" }

func (pedigreeIntegrityRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}

	linked := make(map[string]map[string]bool) // caseID -> sampleID set
	links := view.ListCaseSamples()
	for _, l := range links {
		if linked[l.CaseID] == nil {
			linked[l.CaseID] = make(map[string]bool)
		}
		linked[l.CaseID][l.SampleID] = true
	}

	check := func(link domain.CaseSample, role string, parentID *string) {
		if parentID == nil || *parentID == "" {
			return
		}
		if *parentID == link.SampleID {
			res.Violations = append(res.Violations, pedigreeViolation(link,
				fmt.Sprintf("sample %s references itself as %s", link.SampleID, role)))
			return
		}
		if !linked[link.CaseID][*parentID] {
			res.Violations = append(res.Violations, pedigreeViolation(link,
				fmt.Sprintf("sample %s references %s %s outside case %s", link.SampleID, role, *parentID, link.CaseID)))
		}
	}

	for _, l := range links {
		check(l, "mother", l.MotherID)
		check(l, "father", l.FatherID)
	}
	return res, nil
}

func pedigreeViolation(link domain.CaseSample, message string) domain.Violation {
	return domain.Violation{
		Rule:     "pedigree_integrity",
		Severity: domain.SeverityBlock,
		Message:  message,
		Entity:   domain.EntityCaseSample,
		EntityID: link.ID,
	}
}
