package core

import (
	"context"
	"fmt"

	"cg/pkg/domain"
)

// SetCaseAction updates the scheduling action on a stored case.
func (s *Service) SetCaseAction(ctx context.Context, caseID string, action domain.CaseAction) (domain.Case, error) {
	switch action {
	case domain.ActionNone, domain.ActionAnalyze, domain.ActionHold:
	default:
		return domain.Case{}, fmt.Errorf("unknown case action %q", action)
	}
	var kase domain.Case
	_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		kase, err = tx.UpdateCase(caseID, func(c *domain.Case) error {
			c.Action = action
			return nil
		})
		return err
	})
	return kase, err
}

// StartAnalysis records a pipeline run starting on a case and clears its
// pending action: the case is no longer waiting once the pipeline has it.
func (s *Service) StartAnalysis(ctx context.Context, caseID, pipelineVersion string) (domain.Analysis, error) {
	var analysis domain.Analysis
	_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		view := tx.Snapshot()
		kase, ok := view.FindCase(caseID)
		if !ok {
			return fmt.Errorf("case %q not found", caseID)
		}
		started := s.now()
		var err error
		analysis, err = tx.CreateAnalysis(domain.Analysis{
			CaseID:    caseID,
			Workflow:  kase.Workflow,
			Version:   pipelineVersion,
			StartedAt: &started,
		})
		if err != nil {
			return err
		}
		_, err = tx.UpdateCase(caseID, func(c *domain.Case) error {
			c.Action = domain.ActionNone
			return nil
		})
		return err
	})
	return analysis, err
}

// SetSampleTargetReads pushes an adjusted sequencing target to the LIMS for
// one sample. The store is not touched: target reads live on the application
// version, and per-sample overrides are a lab concern.
func (s *Service) SetSampleTargetReads(ctx context.Context, sampleID string, targetReads int64) error {
	if _, ok := s.store.GetSample(sampleID); !ok {
		return fmt.Errorf("sample %q not found", sampleID)
	}
	if err := s.lims.UpdateSample(ctx, sampleID, targetReads); err != nil {
		return fmt.Errorf("lims sample update: %w", err)
	}
	return nil
}

// TicketOrders returns the audit rows recorded for a ticket, newest last.
func (s *Service) TicketOrders(ticket string) []domain.Order {
	var out []domain.Order
	for _, o := range s.store.ListOrders() {
		if o.Ticket == ticket {
			out = append(out, o)
		}
	}
	return out
}
