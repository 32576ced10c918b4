package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"cg/pkg/domain"
)

func seedCustomer(t *testing.T, store *Store, id string) {
	t.Helper()
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateCustomer(domain.Customer{InternalID: id, Name: "Test " + id})
		return err
	})
	if err != nil {
		t.Fatalf("seed customer: %v", err)
	}
}

func TestTransactionCommitAndRollback(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	seedCustomer(t, store, "cust001")
	if _, ok := store.GetCustomer("cust001"); !ok {
		t.Fatalf("customer not committed")
	}

	boom := errors.New("boom")
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.CreateCase(domain.Case{InternalID: "calmowl", Name: "f1", CustomerID: "cust001"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if _, ok := store.GetCase("calmowl"); ok {
		t.Fatalf("case survived a failed transaction")
	}
}

func TestCreateCaseEnforcesCustomerScopedName(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	seedCustomer(t, store, "cust001")
	seedCustomer(t, store, "cust002")

	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreateCase(domain.Case{InternalID: "calmowl", Name: "f1", CustomerID: "cust001"})
		return err
	})
	if err != nil {
		t.Fatalf("create case: %v", err)
	}

	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreateCase(domain.Case{InternalID: "boldfox", Name: "f1", CustomerID: "cust001"})
		return err
	})
	if err == nil {
		t.Fatalf("duplicate (customer, name) should fail")
	}

	// a different customer may reuse the name
	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreateCase(domain.Case{InternalID: "boldfox", Name: "f1", CustomerID: "cust002"})
		return err
	})
	if err != nil {
		t.Fatalf("cross-customer name reuse: %v", err)
	}
}

type blockAllRule struct{}

func (blockAllRule) Name() string { return "block_all" }

func (blockAllRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	if len(changes) == 0 {
		return domain.Result{}, nil
	}
	return domain.Result{Violations: []domain.Violation{{
		Rule:     "block_all",
		Severity: domain.SeverityBlock,
		Message:  "no writes allowed",
	}}}, nil
}

func TestBlockingRuleAbortsCommit(t *testing.T) {
	engine := domain.NewRulesEngine()
	engine.Register(blockAllRule{})
	store := NewStore(engine)

	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateCustomer(domain.Customer{InternalID: "cust001"})
		return err
	})
	var rve domain.RuleViolationError
	if !errors.As(err, &rve) {
		t.Fatalf("err = %v, want RuleViolationError", err)
	}
	if _, ok := store.GetCustomer("cust001"); ok {
		t.Fatalf("blocked transaction was committed")
	}
}

func TestCurrentApplicationVersionPicksLatest(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		app, err := tx.CreateApplication(domain.Application{Tag: "WGSPCFC030", PrepCategory: domain.PrepWholeGenome})
		if err != nil {
			return err
		}
		for i, from := range []time.Time{now.Add(-48 * time.Hour), now.Add(-24 * time.Hour), now.Add(24 * time.Hour)} {
			if _, err := tx.CreateApplicationVersion(domain.ApplicationVersion{
				ApplicationID: app.ID,
				Version:       i + 1,
				ValidFrom:     from,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed application: %v", err)
	}

	err = store.View(ctx, func(view domain.TransactionView) error {
		ver, ok := view.CurrentApplicationVersion("WGSPCFC030")
		if !ok {
			return fmt.Errorf("no current version resolved")
		}
		// version 3 is in the future and must not win
		if ver.Version != 2 {
			return fmt.Errorf("version = %d, want 2", ver.Version)
		}
		if _, ok := view.CurrentApplicationVersion("NOPE"); ok {
			return fmt.Errorf("unknown tag resolved a version")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestCaseSampleLinkLifecycle(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	seedCustomer(t, store, "cust001")

	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.CreateCase(domain.Case{InternalID: "calmowl", Name: "f1", CustomerID: "cust001"}); err != nil {
			return err
		}
		if _, err := tx.CreateSample(domain.Sample{InternalID: "boldeagle", Name: "s1", CustomerID: "cust001"}); err != nil {
			return err
		}
		if _, err := tx.CreateCaseSample(domain.CaseSample{CaseID: "calmowl", SampleID: "boldeagle"}); err != nil {
			return err
		}
		// duplicate link is rejected
		if _, err := tx.CreateCaseSample(domain.CaseSample{CaseID: "calmowl", SampleID: "boldeagle"}); err == nil {
			return fmt.Errorf("duplicate link accepted")
		}
		_, err := tx.UpdateCaseSample("calmowl", "boldeagle", func(cs *domain.CaseSample) error {
			cs.Status = domain.StatusAffected
			return nil
		})
		return err
	})
	if err != nil {
		t.Fatalf("link lifecycle: %v", err)
	}

	links := store.ListCaseSamples()
	if len(links) != 1 {
		t.Fatalf("links = %d, want 1", len(links))
	}
	if links[0].Status != domain.StatusAffected {
		t.Fatalf("status = %q", links[0].Status)
	}
	if links[0].CreatedAt.IsZero() || links[0].UpdatedAt.IsZero() {
		t.Fatalf("timestamps not set")
	}
}

func TestExportImportRoundtrip(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	seedCustomer(t, store, "cust001")
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.CreateCase(domain.Case{InternalID: "calmowl", Name: "f1", CustomerID: "cust001", Panels: []string{"OMIM-AUTO"}}); err != nil {
			return err
		}
		if _, err := tx.CreateSample(domain.Sample{InternalID: "boldeagle", Name: "s1", CustomerID: "cust001"}); err != nil {
			return err
		}
		if _, err := tx.CreateOrganism(domain.Organism{InternalID: "c-jejuni", Name: "C. jejuni"}); err != nil {
			return err
		}
		_, err := tx.CreateCaseSample(domain.CaseSample{CaseID: "calmowl", SampleID: "boldeagle"})
		return err
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	snap := store.ExportState()
	restored := NewStore(nil)
	restored.ImportState(snap)

	if _, ok := restored.GetCase("calmowl"); !ok {
		t.Fatalf("case missing after import")
	}
	if _, ok := restored.GetSample("boldeagle"); !ok {
		t.Fatalf("sample missing after import")
	}
	if _, ok := restored.GetOrganism("c-jejuni"); !ok {
		t.Fatalf("organism missing after import")
	}
	if got := len(restored.ListCaseSamples()); got != 1 {
		t.Fatalf("links = %d, want 1", got)
	}
}

func TestHasInternalID(t *testing.T) {
	store := NewStore(nil)
	seedCustomer(t, store, "cust001")
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateSample(domain.Sample{InternalID: "boldeagle", Name: "s1", CustomerID: "cust001"}); err != nil {
			return err
		}
		_, err := tx.CreateCase(domain.Case{InternalID: "calmowl", Name: "f1", CustomerID: "cust001"})
		return err
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	for _, id := range []string{"boldeagle", "calmowl"} {
		if !store.HasInternalID(id) {
			t.Errorf("HasInternalID(%q) = false", id)
		}
	}
	if store.HasInternalID("freshnewt") {
		t.Errorf("unexpected internal id hit")
	}
}

func TestTicketCases(t *testing.T) {
	store := NewStore(nil)
	seedCustomer(t, store, "cust001")
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateCase(domain.Case{InternalID: "calmowl", Name: "f1", CustomerID: "cust001", Tickets: "100001,100002"}); err != nil {
			return err
		}
		_, err := tx.CreateCase(domain.Case{InternalID: "boldfox", Name: "f2", CustomerID: "cust001", Tickets: "100003"})
		return err
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if got := store.TicketCases("100002"); len(got) != 1 || got[0].InternalID != "calmowl" {
		t.Fatalf("ticket 100002 cases = %v", got)
	}
	if got := store.TicketCases("999999"); len(got) != 0 {
		t.Fatalf("unexpected cases for unknown ticket")
	}
}
