package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	CreateCustomer(Customer) (Customer, error)
	UpdateCustomer(internalID string, mutator func(*Customer) error) (Customer, error)
	CreateApplication(Application) (Application, error)
	CreateApplicationVersion(ApplicationVersion) (ApplicationVersion, error)
	CreateSample(Sample) (Sample, error)
	UpdateSample(internalID string, mutator func(*Sample) error) (Sample, error)
	CreateCase(Case) (Case, error)
	UpdateCase(internalID string, mutator func(*Case) error) (Case, error)
	CreateCaseSample(CaseSample) (CaseSample, error)
	UpdateCaseSample(caseID, sampleID string, mutator func(*CaseSample) error) (CaseSample, error)
	CreatePool(Pool) (Pool, error)
	CreateOrder(Order) (Order, error)
	UpdateOrder(id string, mutator func(*Order) error) (Order, error)
	CreateOrganism(Organism) (Organism, error)
	UpdateOrganism(internalID string, mutator func(*Organism) error) (Organism, error)
	CreateAnalysis(Analysis) (Analysis, error)
}

// TransactionView provides read-only access to snapshot data for rules and
// pre-write validation.
type TransactionView = RuleView

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetCustomer(internalID string) (Customer, bool)
	GetSample(internalID string) (Sample, bool)
	GetCase(internalID string) (Case, bool)
	GetCaseByName(customerID, name string) (Case, bool)
	GetOrganism(internalID string) (Organism, bool)
	HasInternalID(id string) bool
	ListCustomers() []Customer
	ListSamples() []Sample
	ListCases() []Case
	ListCaseSamples() []CaseSample
	ListPools() []Pool
	ListOrders() []Order
	ListOrganisms() []Organism
	ListAnalyses() []Analysis
}
