package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"cg/pkg/domain"
)

func TestReopenRestoresState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cg.db")
	ctx := context.Background()

	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.CreateCustomer(domain.Customer{InternalID: "cust001", Name: "Clinic"}); err != nil {
			return err
		}
		if _, err := tx.CreateCase(domain.Case{InternalID: "calmowl", Name: "f1", CustomerID: "cust001", Tickets: "100001"}); err != nil {
			return err
		}
		if _, err := tx.CreateSample(domain.Sample{InternalID: "boldeagle", Name: "s1", CustomerID: "cust001"}); err != nil {
			return err
		}
		_, err := tx.CreateCaseSample(domain.CaseSample{CaseID: "calmowl", SampleID: "boldeagle", Status: domain.StatusAffected})
		return err
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	kase, ok := reopened.GetCase("calmowl")
	if !ok {
		t.Fatalf("case missing after reopen")
	}
	if kase.Tickets != "100001" {
		t.Fatalf("tickets = %q", kase.Tickets)
	}
	if _, ok := reopened.GetSample("boldeagle"); !ok {
		t.Fatalf("sample missing after reopen")
	}
	links := reopened.ListCaseSamples()
	if len(links) != 1 || links[0].Status != domain.StatusAffected {
		t.Fatalf("links = %+v", links)
	}
}

func TestFailedTransactionNotPersisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cg.db")
	ctx := context.Background()

	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		// case without a customer id still writes; failure comes from the dup
		if _, err := tx.CreateCustomer(domain.Customer{InternalID: "cust001"}); err != nil {
			return err
		}
		_, err := tx.CreateCustomer(domain.Customer{InternalID: "cust001"})
		return err
	})
	if err == nil {
		t.Fatalf("expected duplicate customer error")
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	if got := len(reopened.ListCustomers()); got != 0 {
		t.Fatalf("customers = %d, want 0", got)
	}
}
