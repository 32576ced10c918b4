package orderapi

import (
	"errors"
	"testing"

	"cg/pkg/domain"
)

func TestParseCaseOrder(t *testing.T) {
	payload := []byte(`{
		"customer": " cust001 ",
		"ticket": "100001",
		"name": "order-1",
		"data_delivery": "scout",
		"samples": [
			{
				"name": "child",
				"case_name": "family-1",
				"application": "WGSPCFC030",
				"sex": "M",
				"status": "affected",
				"container": "96 well plate",
				"container_name": "plate-7",
				"well_position": "A1",
				"source": "blood",
				"subject_id": "subj-1",
				"mother": "mum",
				"father": "dad",
				"panels": "OMIM-AUTO"
			},
			{
				"name": "mum",
				"case_name": "family-1",
				"application": "WGSPCFC030",
				"sex": "female",
				"status": "unaffected",
				"container": "Tube",
				"source": "blood",
				"subject_id": "subj-2",
				"priority": "priority"
			}
		]
	}`)

	order, err := Parse(payload, OrderMIPDNA)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if order.Customer != "cust001" {
		t.Fatalf("customer = %q", order.Customer)
	}
	if order.Ticket != "100001" {
		t.Fatalf("ticket = %q", order.Ticket)
	}
	if order.DataDelivery != domain.DeliveryScout {
		t.Fatalf("delivery = %q", order.DataDelivery)
	}
	if len(order.Samples) != 2 {
		t.Fatalf("samples = %d", len(order.Samples))
	}

	child := order.Samples[0]
	if child.Sex != domain.SexMale {
		t.Fatalf("child sex = %q", child.Sex)
	}
	if child.WellPosition != "A:1" {
		t.Fatalf("well = %q, want canonical A:1", child.WellPosition)
	}
	if child.Priority != domain.PriorityStandard {
		t.Fatalf("priority = %q, want default standard", child.Priority)
	}
	if len(child.Panels) != 1 || child.Panels[0] != "OMIM-AUTO" {
		t.Fatalf("panels = %v", child.Panels)
	}
	if child.Mother != "mum" || child.Father != "dad" {
		t.Fatalf("pedigree = %q/%q", child.Mother, child.Father)
	}

	mum := order.Samples[1]
	if mum.Priority != domain.PriorityPriority {
		t.Fatalf("mum priority = %q", mum.Priority)
	}
	if !mum.IsNew() {
		t.Fatalf("mum should be new")
	}
}

func TestParseRejectsMissingRequiredFields(t *testing.T) {
	cases := map[string]string{
		"missing customer": `{"ticket":"1","samples":[{"name":"s","case_name":"c","application":"A","container":"Tube","source":"blood","subject_id":"x"}]}`,
		"missing ticket":   `{"customer":"cust001","samples":[{"name":"s","case_name":"c","application":"A","container":"Tube","source":"blood","subject_id":"x"}]}`,
		"no samples":       `{"customer":"cust001","ticket":"1","samples":[]}`,
		"bad json":         `{"customer":`,
		"bad sex":          `{"customer":"cust001","ticket":"1","samples":[{"name":"s","case_name":"c","application":"A","sex":"both","container":"Tube","source":"blood","subject_id":"x"}]}`,
		"bad well":         `{"customer":"cust001","ticket":"1","samples":[{"name":"s","case_name":"c","application":"A","well_position":"Z99","container":"96 well plate","source":"blood","subject_id":"x"}]}`,
		"no container":     `{"customer":"cust001","ticket":"1","samples":[{"name":"s","case_name":"c","application":"A","source":"blood","subject_id":"x"}]}`,
		"no subject":       `{"customer":"cust001","ticket":"1","samples":[{"name":"s","case_name":"c","application":"A","container":"Tube","source":"blood"}]}`,
		"no case name":     `{"customer":"cust001","ticket":"1","samples":[{"name":"s","application":"A","container":"Tube","source":"blood","subject_id":"x"}]}`,
	}
	for name, payload := range cases {
		if _, err := Parse([]byte(payload), OrderMIPDNA); err == nil {
			t.Errorf("%s: expected error", name)
		} else {
			var malformed MalformedOrderError
			if !errors.As(err, &malformed) {
				t.Errorf("%s: error %T is not MalformedOrderError", name, err)
			}
		}
	}
}

func TestParseExistingSampleSkipsIntakeFields(t *testing.T) {
	// a rerun sample referencing an internal id needs no lab intake fields
	payload := []byte(`{
		"customer": "cust001",
		"ticket": "100002",
		"samples": [{"name": "child", "internal_id": "boldeagle", "case_internal_id": "calmowl"}]
	}`)
	order, err := Parse(payload, OrderMIPDNA)
	if err != nil {
		t.Fatalf("parse rerun: %v", err)
	}
	s := order.Samples[0]
	if s.IsNew() {
		t.Fatalf("sample with internal id should not be new")
	}
	if s.CaseInternalID != "calmowl" {
		t.Fatalf("case internal id = %q", s.CaseInternalID)
	}
}

func TestParsePoolOrderRequiresPool(t *testing.T) {
	payload := []byte(`{"customer":"cust001","ticket":"1","samples":[{"name":"s1","application":"RMLP15R500"}]}`)
	if _, err := Parse(payload, OrderRML); err == nil {
		t.Fatalf("expected pool requirement error")
	}
	payload = []byte(`{"customer":"cust001","ticket":"1","samples":[{"name":"s1","application":"RMLP15R500","pool":"pool-1"}]}`)
	if _, err := Parse(payload, OrderRML); err != nil {
		t.Fatalf("parse pool order: %v", err)
	}
}

func TestParseMicrobialOrganismRequirement(t *testing.T) {
	// ordinary microbial samples need an organism
	payload := []byte(`{"customer":"cust001","ticket":"1","samples":[{"name":"s1","application":"VWGDPTR001"}]}`)
	if _, err := Parse(payload, OrderMutant); err == nil {
		t.Fatalf("expected organism requirement error")
	}
	// controls are exempt
	payload = []byte(`{"customer":"cust001","ticket":"1","samples":[{"name":"neg1","application":"VWGDPTR001","control":"negative"}]}`)
	if _, err := Parse(payload, OrderMutant); err != nil {
		t.Fatalf("parse control sample: %v", err)
	}
}

func TestParseUnknownOrderType(t *testing.T) {
	if _, err := Parse([]byte(`{}`), OrderType("nanopore")); err == nil {
		t.Fatalf("expected unknown order type error")
	}
}

func TestOrderTypeFamilies(t *testing.T) {
	for _, typ := range AllOrderTypes() {
		if typ.Family() == "" {
			t.Errorf("order type %q has no family", typ)
		}
		if typ.Workflow() == "" {
			t.Errorf("order type %q has no workflow", typ)
		}
	}
}

func TestCanonicalWell(t *testing.T) {
	cases := []struct {
		in, want string
		wantErr  bool
	}{
		{"A1", "A:1", false},
		{"a1", "A:1", false},
		{"H12", "H:12", false},
		{"A:1", "A:1", false},
		{"", "", false},
		{"I1", "", true},
		{"A13", "", true},
		{"A0", "", true},
		{"A", "", true},
		{"Ax", "", true},
	}
	for _, tc := range cases {
		got, err := canonicalWell(tc.in, "s")
		if tc.wantErr {
			if err == nil {
				t.Errorf("well %q: expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("well %q: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("well %q = %q, want %q", tc.in, got, tc.want)
		}
	}
}
