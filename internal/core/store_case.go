package core

import (
	"context"
	"fmt"

	"cg/pkg/domain"
	"cg/pkg/orderapi"
)

// storeCaseOrder persists a case-family order. Each case group commits in its
// own transaction: a failing group never rolls back groups committed before
// it, and the audit row records exactly the cases that made it in.
func (s *Service) storeCaseOrder(ctx context.Context, order *orderapi.Order, ids map[string]string, res *SubmissionResult) error {
	var committed []string
	for _, group := range caseGroups(order) {
		kase, samples, warnings, err := s.storeCaseGroup(ctx, order, group, ids)
		if err != nil {
			if recErr := s.recordOrder(ctx, order, committed); recErr != nil {
				return fmt.Errorf("store case %q: %v (and %w)", group.Name, err, recErr)
			}
			return fmt.Errorf("store case %q: %w", group.Name, err)
		}
		committed = append(committed, kase.InternalID)
		res.Cases = append(res.Cases, kase)
		res.Samples = append(res.Samples, samples...)
		res.Warnings = append(res.Warnings, warnings...)
	}
	return s.recordOrder(ctx, order, committed)
}

// storeCaseGroup commits one case and its samples atomically. Reruns append
// the new ticket, reset the action to analyze and replace the panel set; new
// cases get a fresh pronounceable internal id.
func (s *Service) storeCaseGroup(ctx context.Context, order *orderapi.Order, group caseGroup, ids map[string]string) (domain.Case, []domain.Sample, []domain.Violation, error) {
	var (
		kase     domain.Case
		created  []domain.Sample
		warnings []domain.Violation
	)
	_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		view := tx.Snapshot()
		var err error

		panels := panelsOf(group.Samples)
		cohorts := cohortsOf(group.Samples)
		synopsis := synopsisOf(group.Samples)

		if group.RerunID != "" {
			kase, err = tx.UpdateCase(group.RerunID, func(c *domain.Case) error {
				c.AppendTicket(order.Ticket)
				c.Action = domain.ActionAnalyze
				if len(panels) > 0 {
					c.Panels = panels
				}
				if len(cohorts) > 0 {
					c.Cohorts = collectStrings(c.Cohorts, cohorts)
				}
				if synopsis != "" {
					c.Synopsis = synopsis
				}
				return nil
			})
			if err != nil {
				return err
			}
		} else {
			kase, err = tx.CreateCase(domain.Case{
				InternalID:   newInternalID(internalIDTaken(view)),
				Name:         group.Name,
				CustomerID:   order.Customer,
				Workflow:     order.Type.Workflow(),
				DataDelivery: order.DataDelivery,
				Priority:     caseGroupPriority(group.Samples),
				Panels:       panels,
				Cohorts:      cohorts,
				Synopsis:     synopsis,
				Tickets:      order.Ticket,
				Action:       domain.ActionAnalyze,
			})
			if err != nil {
				return err
			}
		}

		nameToID, samples, err := s.materializeSamples(tx, view, order, group.Samples, ids)
		if err != nil {
			return err
		}
		created = samples

		for _, os := range group.Samples {
			link := domain.CaseSample{
				CaseID:   kase.InternalID,
				SampleID: nameToID[os.Name],
				Status:   os.Status,
			}
			if os.Mother != "" {
				if motherID, ok := nameToID[os.Mother]; ok {
					link.MotherID = &motherID
				} else {
					warnings = append(warnings, domain.Violation{
						Rule:     "pedigree-reference",
						Severity: domain.SeverityWarn,
						Message:  fmt.Sprintf("sample %q references unknown mother %q; link left unset", os.Name, os.Mother),
						Entity:   domain.EntityCaseSample,
						EntityID: os.Name,
					})
				}
			}
			if os.Father != "" {
				if fatherID, ok := nameToID[os.Father]; ok {
					link.FatherID = &fatherID
				} else {
					warnings = append(warnings, domain.Violation{
						Rule:     "pedigree-reference",
						Severity: domain.SeverityWarn,
						Message:  fmt.Sprintf("sample %q references unknown father %q; link left unset", os.Name, os.Father),
						Entity:   domain.EntityCaseSample,
						EntityID: os.Name,
					})
				}
			}
			if err := upsertLink(tx, view, link); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Case{}, nil, nil, err
	}
	return kase, created, warnings, nil
}

// materializeSamples resolves every order sample of one group to a stored
// sample, creating the new ones. LIMS-allocated ids win for new samples; a
// caller-supplied internal id is never overwritten.
func (s *Service) materializeSamples(tx domain.Transaction, view domain.TransactionView, order *orderapi.Order, samples []orderapi.Sample, ids map[string]string) (map[string]string, []domain.Sample, error) {
	nameToID := make(map[string]string, len(samples))
	var created []domain.Sample
	for _, os := range samples {
		if !os.IsNew() {
			if _, ok := view.FindSample(os.InternalID); !ok {
				return nil, nil, fmt.Errorf("sample %q not found", os.InternalID)
			}
			nameToID[os.Name] = os.InternalID
			continue
		}
		internalID := ids[os.Name]
		if internalID == "" {
			internalID = newInternalID(internalIDTaken(view))
		}
		sample, err := s.buildSample(view, order, os, internalID)
		if err != nil {
			return nil, nil, err
		}
		stored, err := tx.CreateSample(sample)
		if err != nil {
			return nil, nil, err
		}
		created = append(created, stored)
		nameToID[os.Name] = internalID
	}
	return nameToID, created, nil
}

// buildSample maps one new order sample onto the stored shape, resolving the
// application tag to its current version. The tag was validated before the
// write; the lookup here is the in-transaction re-check.
func (s *Service) buildSample(view domain.TransactionView, order *orderapi.Order, os orderapi.Sample, internalID string) (domain.Sample, error) {
	ver, ok := view.CurrentApplicationVersion(os.Application)
	if !ok {
		return domain.Sample{}, fmt.Errorf("application %q has no active version", os.Application)
	}
	return domain.Sample{
		InternalID:           internalID,
		Name:                 os.Name,
		CustomerID:           order.Customer,
		ApplicationVersionID: ver.ID,
		Sex:                  os.Sex,
		Priority:             os.Priority,
		IsTumour:             os.Tumour,
		Control:              os.Control,
		SubjectID:            os.SubjectID,
		OriginalTicket:       order.Ticket,
		OrderedAt:            s.now(),
		Container:            os.Container,
		ContainerName:        os.ContainerName,
		WellPosition:         os.WellPosition,
		Source:               os.Source,
		Comment:              os.Comment,
	}, nil
}

// upsertLink creates the case/sample link, or refreshes it on a repeat
// submission. Updates are incremental: fields the new submission leaves out
// keep their stored values, so a rerun without pedigree does not orphan it.
func upsertLink(tx domain.Transaction, view domain.TransactionView, link domain.CaseSample) error {
	for _, existing := range view.CaseSamplesForCase(link.CaseID) {
		if existing.SampleID != link.SampleID {
			continue
		}
		_, err := tx.UpdateCaseSample(link.CaseID, link.SampleID, func(cs *domain.CaseSample) error {
			if link.Status != "" && link.Status != domain.StatusUnknown {
				cs.Status = link.Status
			}
			if link.MotherID != nil {
				cs.MotherID = link.MotherID
			}
			if link.FatherID != nil {
				cs.FatherID = link.FatherID
			}
			return nil
		})
		return err
	}
	_, err := tx.CreateCaseSample(link)
	return err
}

// internalIDTaken reports id collisions against every entity sharing the
// internal id namespace.
func internalIDTaken(view domain.TransactionView) func(string) bool {
	return func(id string) bool {
		if _, ok := view.FindSample(id); ok {
			return true
		}
		if _, ok := view.FindCase(id); ok {
			return true
		}
		_, ok := view.FindOrganism(id)
		return ok
	}
}

func panelsOf(samples []orderapi.Sample) []string {
	lists := make([][]string, 0, len(samples))
	for _, s := range samples {
		lists = append(lists, s.Panels)
	}
	return collectStrings(lists...)
}

func cohortsOf(samples []orderapi.Sample) []string {
	lists := make([][]string, 0, len(samples))
	for _, s := range samples {
		lists = append(lists, s.Cohorts)
	}
	return collectStrings(lists...)
}

func synopsisOf(samples []orderapi.Sample) string {
	for _, s := range samples {
		if s.Synopsis != "" {
			return s.Synopsis
		}
	}
	return ""
}
