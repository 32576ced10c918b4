// Package domain defines the persistent entities, value types, and rule
// evaluation primitives used by cg's order-intake and status store.
package domain

import (
	"strings"
	"time"
)

// EntityType identifies the type of record stored in the status database.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityCustomer identifies a customer record.
	EntityCustomer EntityType = "customer"
	// EntityApplication identifies an application (prep/pricing product) record.
	EntityApplication EntityType = "application"
	// EntityApplicationVersion identifies a versioned application snapshot.
	EntityApplicationVersion EntityType = "application_version"
	// EntitySample identifies a sample record.
	EntitySample EntityType = "sample"
	// EntityCase identifies a case (family) record.
	EntityCase EntityType = "case"
	// EntityCaseSample identifies a case/sample link record.
	EntityCaseSample EntityType = "case_sample"
	// EntityPool identifies a pooled-library record.
	EntityPool EntityType = "pool"
	// EntityOrder identifies an order audit record.
	EntityOrder EntityType = "order"
	// EntityOrganism identifies a microbial organism record.
	EntityOrganism EntityType = "organism"
	// EntityAnalysis identifies a pipeline analysis record.
	EntityAnalysis EntityType = "analysis"
)

// Sex enumerates phenotypic sex values carried on samples.
type Sex string

// Canonical sex values; SexUnknown never conflicts with a known value.
const (
	SexFemale  Sex = "female"
	SexMale    Sex = "male"
	SexUnknown Sex = "unknown"
)

// Priority enumerates processing priorities for samples and cases.
type Priority string

// Priorities ordered from cheapest to most urgent.
const (
	PriorityResearch Priority = "research"
	PriorityStandard Priority = "standard"
	PriorityPriority Priority = "priority"
	PriorityExpress  Priority = "express"
)

// ControlKind distinguishes control samples from ordinary ones.
type ControlKind string

// Control kinds recognised by microbial workflows.
const (
	ControlNone     ControlKind = ""
	ControlNegative ControlKind = "negative"
	ControlPositive ControlKind = "positive"
)

// PrepCategory classifies an application's laboratory preparation method.
type PrepCategory string

// Prep categories referenced by order-intake policy (MAF auto-case keys on WGS).
const (
	PrepWholeGenome PrepCategory = "wgs"
	PrepWholeExome  PrepCategory = "wes"
	PrepTargeted    PrepCategory = "tgs"
	PrepRML         PrepCategory = "rml"
	PrepMetagenome  PrepCategory = "met"
	PrepMicrobial   PrepCategory = "mic"
	PrepCoverage    PrepCategory = "cov"
)

// Workflow names the bioinformatics pipeline a case is analyzed with.
type Workflow string

// Workflows accepted by the order-intake registry.
const (
	WorkflowMIPDNA    Workflow = "mip-dna"
	WorkflowBalsamic  Workflow = "balsamic"
	WorkflowRNAFusion Workflow = "rnafusion"
	WorkflowTomte     Workflow = "tomte"
	WorkflowRaw       Workflow = "raw-data"
	WorkflowRML       Workflow = "rml"
	WorkflowFluffy    Workflow = "fluffy"
	WorkflowMutant    Workflow = "mutant"
	WorkflowMicrosalt Workflow = "microsalt"
	WorkflowPacBio    Workflow = "pacbio"
)

// DataDelivery names the delivery mechanism requested for a case.
type DataDelivery string

// Delivery types carried through from order payloads.
const (
	DeliveryAnalysis   DataDelivery = "analysis"
	DeliveryFastq      DataDelivery = "fastq"
	DeliveryScout      DataDelivery = "scout"
	DeliveryNoDelivery DataDelivery = "no-delivery"
)

// CaseAction drives downstream pipeline scheduling for a case.
type CaseAction string

// Case actions; an empty action means the case is idle.
const (
	ActionNone    CaseAction = ""
	ActionAnalyze CaseAction = "analyze"
	ActionHold    CaseAction = "hold"
)

// PhenotypeStatus captures the affected status of a sample within a case.
type PhenotypeStatus string

// Phenotype statuses stored on case/sample links.
const (
	StatusAffected   PhenotypeStatus = "affected"
	StatusUnaffected PhenotypeStatus = "unaffected"
	StatusUnknown    PhenotypeStatus = "unknown"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Customer represents an ordering party.
type Customer struct {
	Base
	InternalID      string   `json:"internal_id"`
	Name            string   `json:"name"`
	IsTrusted       bool     `json:"is_trusted"`
	CollaboratorIDs []string `json:"collaborator_ids"`
}

// Collaborates reports whether a customer may see samples owned by other.
// A customer always collaborates with itself.
func (c Customer) Collaborates(other string) bool {
	if c.InternalID == other {
		return true
	}
	for _, id := range c.CollaboratorIDs {
		if id == other {
			return true
		}
	}
	return false
}

// Application describes an orderable sequencing product.
type Application struct {
	Base
	Tag          string       `json:"tag"`
	PrepCategory PrepCategory `json:"prep_category"`
	Description  string       `json:"description"`
	IsArchived   bool         `json:"is_archived"`
	TargetReads  int64        `json:"target_reads"`
}

// ApplicationVersion is a time-sliced pricing/config snapshot of an application.
type ApplicationVersion struct {
	Base
	ApplicationID string             `json:"application_id"`
	Version       int                `json:"version"`
	ValidFrom     time.Time          `json:"valid_from"`
	Prices        map[Priority]int64 `json:"prices"`
}

// Sample represents one physical specimen owned by a customer.
type Sample struct {
	Base
	InternalID           string      `json:"internal_id"`
	Name                 string      `json:"name"`
	CustomerID           string      `json:"customer_id"`
	ApplicationVersionID string      `json:"application_version_id"`
	Sex                  Sex         `json:"sex"`
	Priority             Priority    `json:"priority"`
	IsTumour             bool        `json:"is_tumour"`
	Control              ControlKind `json:"control"`
	SubjectID            string      `json:"subject_id"`
	OriginalTicket       string      `json:"original_ticket"`
	OrderedAt            time.Time   `json:"ordered_at"`
	Container            string      `json:"container,omitempty"`
	ContainerName        string      `json:"container_name,omitempty"`
	WellPosition         string      `json:"well_position,omitempty"`
	Source               string      `json:"source,omitempty"`
	OrganismID           *string     `json:"organism_id,omitempty"`
	PoolID               *string     `json:"pool_id,omitempty"`
	NoInvoice            bool        `json:"no_invoice"`
	Comment              string      `json:"comment,omitempty"`
}

// Case is a named grouping of samples analyzed jointly (a.k.a. family).
type Case struct {
	Base
	InternalID   string       `json:"internal_id"`
	Name         string       `json:"name"`
	CustomerID   string       `json:"customer_id"`
	Workflow     Workflow     `json:"workflow"`
	DataDelivery DataDelivery `json:"data_delivery"`
	Priority     Priority     `json:"priority"`
	Panels       []string     `json:"panels"`
	Cohorts      []string     `json:"cohorts"`
	Synopsis     string       `json:"synopsis,omitempty"`
	Tickets      string       `json:"tickets"`
	Action       CaseAction   `json:"action"`
}

// AppendTicket adds a ticket id to the case's comma-joined ticket history.
func (c *Case) AppendTicket(ticket string) {
	if ticket == "" {
		return
	}
	if c.Tickets == "" {
		c.Tickets = ticket
		return
	}
	for _, existing := range strings.Split(c.Tickets, ",") {
		if existing == ticket {
			return
		}
	}
	c.Tickets = c.Tickets + "," + ticket
}

// LatestTicket returns the most recently appended ticket id.
func (c Case) LatestTicket() string {
	if c.Tickets == "" {
		return ""
	}
	parts := strings.Split(c.Tickets, ",")
	return parts[len(parts)-1]
}

// CaseSample links one sample into one case with pedigree references.
type CaseSample struct {
	Base
	CaseID   string          `json:"case_id"`
	SampleID string          `json:"sample_id"`
	Status   PhenotypeStatus `json:"status"`
	MotherID *string         `json:"mother_id,omitempty"`
	FatherID *string         `json:"father_id,omitempty"`
}

// Pool groups samples sharing one library prep, billed jointly.
type Pool struct {
	Base
	Name                 string    `json:"name"`
	CustomerID           string    `json:"customer_id"`
	ApplicationVersionID string    `json:"application_version_id"`
	Ticket               string    `json:"ticket"`
	OrderedAt            time.Time `json:"ordered_at"`
	NoInvoice            bool      `json:"no_invoice"`
}

// Order is the audit record linking a ticket to the cases it touched.
type Order struct {
	Base
	CustomerID string    `json:"customer_id"`
	Ticket     string    `json:"ticket"`
	OrderedAt  time.Time `json:"ordered_at"`
	CaseIDs    []string  `json:"case_ids"`
}

// Organism identifies a microbial reference organism.
type Organism struct {
	Base
	InternalID      string `json:"internal_id"`
	Name            string `json:"name"`
	ReferenceGenome string `json:"reference_genome"`
	Verified        bool   `json:"verified"`
}

// Analysis records one pipeline run over a case.
type Analysis struct {
	Base
	CaseID      string     `json:"case_id"`
	Workflow    Workflow   `json:"workflow"`
	Version     string     `json:"version,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UploadedAt  *time.Time `json:"uploaded_at,omitempty"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in the audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
