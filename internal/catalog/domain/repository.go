package domain

import "context"

// Catalog is the persisted pair of plan lists.
type Catalog struct {
	Active   []Plan
	Archived []Plan
	// Stored is false while the catalog has never been written; Active then
	// holds DefaultPlans.
	Stored bool
}

// Repository persists the plan catalog as a whole.
type Repository interface {
	// Load returns the catalog, falling back to the defaults when the
	// catalog was never written.
	Load(ctx context.Context) (Catalog, error)

	// Save writes both lists in one atomic step.
	Save(ctx context.Context, active, archived []Plan) error
}
