package core

import (
	"context"
	"strings"
	"testing"

	"cg/pkg/domain"
	"cg/pkg/orderapi"
)

func TestSetCaseAction(t *testing.T) {
	svc, store, _ := submitFixture(t)
	res := mustSubmit(t, svc, orderapi.OrderMIPDNA, trioOrder("cust001", "100900", "smith"))
	caseID := res.Cases[0].InternalID

	kase, err := svc.SetCaseAction(context.Background(), caseID, domain.ActionHold)
	if err != nil {
		t.Fatalf("set action: %v", err)
	}
	if kase.Action != domain.ActionHold {
		t.Fatalf("action: got %q, want hold", kase.Action)
	}
	stored, _ := store.GetCase(caseID)
	if stored.Action != domain.ActionHold {
		t.Fatalf("stored action: got %q", stored.Action)
	}

	if _, err := svc.SetCaseAction(context.Background(), caseID, domain.CaseAction("reanalyze")); err == nil {
		t.Fatal("unknown action accepted")
	}
	if _, err := svc.SetCaseAction(context.Background(), "nope", domain.ActionHold); err == nil {
		t.Fatal("unknown case accepted")
	}
}

func TestStartAnalysisClearsAction(t *testing.T) {
	svc, store, _ := submitFixture(t)
	res := mustSubmit(t, svc, orderapi.OrderMIPDNA, trioOrder("cust001", "100901", "smith"))
	caseID := res.Cases[0].InternalID

	analysis, err := svc.StartAnalysis(context.Background(), caseID, "v12.1.0")
	if err != nil {
		t.Fatalf("start analysis: %v", err)
	}
	if analysis.CaseID != caseID || analysis.Workflow != domain.WorkflowMIPDNA {
		t.Fatalf("analysis: %+v", analysis)
	}
	if analysis.Version != "v12.1.0" {
		t.Fatalf("version: got %q", analysis.Version)
	}
	if analysis.StartedAt == nil {
		t.Fatal("started_at not set")
	}

	stored, _ := store.GetCase(caseID)
	if stored.Action != domain.ActionNone {
		t.Fatalf("pending action not cleared: %q", stored.Action)
	}
	if got := len(store.ListAnalyses()); got != 1 {
		t.Fatalf("analyses: got %d, want 1", got)
	}

	if _, err := svc.StartAnalysis(context.Background(), "missing", "v1"); err == nil {
		t.Fatal("analysis started on unknown case")
	}
}

func TestSetSampleTargetReads(t *testing.T) {
	svc, store, gw := submitFixture(t)
	mustSubmit(t, svc, orderapi.OrderMIPDNA, trioOrder("cust001", "100902", "smith"))
	childID := samplesByName(t, store)["child"].InternalID

	if err := svc.SetSampleTargetReads(context.Background(), childID, 45_000_000); err != nil {
		t.Fatalf("set target reads: %v", err)
	}
	if got := gw.Updates[childID]; got != 45_000_000 {
		t.Fatalf("lims update: got %d", got)
	}

	err := svc.SetSampleTargetReads(context.Background(), "missing", 1)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("unknown sample: got %v", err)
	}
}

func TestTicketOrders(t *testing.T) {
	svc, _, _ := submitFixture(t)
	mustSubmit(t, svc, orderapi.OrderMIPDNA, trioOrder("cust001", "100903", "smith"))
	mustSubmit(t, svc, orderapi.OrderMIPDNA, trioOrder("cust001", "100904", "jones"))

	orders := svc.TicketOrders("100903")
	if len(orders) != 1 {
		t.Fatalf("orders for ticket: got %d, want 1", len(orders))
	}
	if orders[0].CustomerID != "cust001" {
		t.Fatalf("order customer: got %q", orders[0].CustomerID)
	}
	if got := svc.TicketOrders("999999"); len(got) != 0 {
		t.Fatalf("orders for unknown ticket: %v", got)
	}
}
