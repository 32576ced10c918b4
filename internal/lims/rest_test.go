package lims

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"cg/pkg/orderapi"
)

func newSample(name string) orderapi.Sample {
	return orderapi.Sample{
		Name:        name,
		Application: "WGSPCFC030",
		Container:   "Tube",
		Source:      "blood",
	}
}

func TestRESTGatewayProcess(t *testing.T) {
	var gotProject submitProjectRequest
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/projects":
			gotAuth = r.Header.Get("Authorization")
			if err := json.NewDecoder(r.Body).Decode(&gotProject); err != nil {
				t.Errorf("decode project: %v", err)
			}
			_ = json.NewEncoder(w).Encode(ProjectInfo{ID: "P123", Date: "2026-08-31"})
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/projects/P123/samples":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"samples": []map[string]string{
					{"name": "s1", "lims_id": "ACC0001"},
					{"name": "s2", "lims_id": "ACC0002"},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	g := NewRESTGateway(server.URL, "secret", server.Client())
	info, ids, err := g.Process(context.Background(), []orderapi.Sample{newSample("s1"), newSample("s2")}, "cust001", "100001")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if info.ID != "P123" {
		t.Fatalf("project id = %q", info.ID)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("auth = %q", gotAuth)
	}
	if gotProject.Customer != "cust001" || gotProject.Name != "100001" {
		t.Fatalf("project request = %+v", gotProject)
	}
	if len(gotProject.Samples) != 2 {
		t.Fatalf("project samples = %d", len(gotProject.Samples))
	}
	if ids["s1"] != "ACC0001" || ids["s2"] != "ACC0002" {
		t.Fatalf("ids = %v", ids)
	}
}

func TestRESTGatewaySkipsWhenNoNewSamples(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected LIMS call %s %s", r.Method, r.URL.Path)
	}))
	defer server.Close()

	g := NewRESTGateway(server.URL, "", server.Client())
	existing := newSample("s1")
	existing.InternalID = "ACC0001"
	info, ids, err := g.Process(context.Background(), []orderapi.Sample{existing}, "cust001", "100001")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if info.ID != "" || ids != nil {
		t.Fatalf("expected empty result, got %+v / %v", info, ids)
	}
}

func TestRESTGatewayErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	g := NewRESTGateway(server.URL, "", server.Client())
	if _, _, err := g.Process(context.Background(), []orderapi.Sample{newSample("s1")}, "cust001", "100001"); err == nil {
		t.Fatalf("expected error from 502 response")
	}
}

func TestRESTGatewayUpdateSample(t *testing.T) {
	var gotPath string
	var gotBody map[string]int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s", r.Method)
		}
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	g := NewRESTGateway(server.URL, "", server.Client())
	if err := g.UpdateSample(context.Background(), "ACC0001", 30_000_000); err != nil {
		t.Fatalf("update sample: %v", err)
	}
	if gotPath != "/api/v1/samples/ACC0001" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotBody["target_reads"] != 30_000_000 {
		t.Fatalf("body = %v", gotBody)
	}
}

func TestProjectExcludesExistingSamples(t *testing.T) {
	fresh := newSample("s1")
	fresh.Organism = "C. jejuni"
	fresh.Pool = "pool-1"
	existing := newSample("s2")
	existing.InternalID = "ACC0002"

	out := Project([]orderapi.Sample{fresh, existing})
	if len(out) != 1 {
		t.Fatalf("projected samples = %d, want 1", len(out))
	}
	ps := out[0]
	if ps.Name != "s1" {
		t.Fatalf("name = %q", ps.Name)
	}
	if ps.UDFs["application"] != "WGSPCFC030" || ps.UDFs["organism"] != "C. jejuni" || ps.UDFs["pool"] != "pool-1" {
		t.Fatalf("udfs = %v", ps.UDFs)
	}
}

func TestMemoryGatewayAllocatesIDs(t *testing.T) {
	g := NewMemoryGateway()
	info, ids, err := g.Process(context.Background(), []orderapi.Sample{newSample("s1"), newSample("s2")}, "cust001", "100001")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if info.ID == "" {
		t.Fatalf("missing project id")
	}
	if len(ids) != 2 || ids["s1"] == "" || ids["s2"] == "" || ids["s1"] == ids["s2"] {
		t.Fatalf("ids = %v", ids)
	}
	if len(g.Projects) != 1 {
		t.Fatalf("projects = %d", len(g.Projects))
	}

	g.FailNext = context.DeadlineExceeded
	if _, _, err := g.Process(context.Background(), []orderapi.Sample{newSample("s3")}, "cust001", "100002"); err == nil {
		t.Fatalf("expected injected failure")
	}
	// failure is one-shot
	if _, _, err := g.Process(context.Background(), []orderapi.Sample{newSample("s3")}, "cust001", "100002"); err != nil {
		t.Fatalf("process after injected failure: %v", err)
	}
}
