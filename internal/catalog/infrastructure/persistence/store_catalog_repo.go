package persistence

import (
	"context"
	"fmt"

	"github.com/foodthrift/paysmallsmall/internal/catalog/domain"
	"github.com/foodthrift/paysmallsmall/internal/storage"
)

// StoreCatalogRepository keeps the catalog as two JSON lists in the global
// namespace of a storage.Store.
type StoreCatalogRepository struct {
	store storage.Store
}

// NewStoreCatalogRepository creates a new repository.
func NewStoreCatalogRepository(store storage.Store) *StoreCatalogRepository {
	return &StoreCatalogRepository{store: store}
}

// Load reads both lists. A missing plans key yields the built-in defaults.
func (r *StoreCatalogRepository) Load(ctx context.Context) (domain.Catalog, error) {
	active, found, err := storage.GetJSON[[]domain.Plan](ctx, r.store, storage.GlobalNamespace, storage.KeyPlans)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("load plans: %w", err)
	}
	archived, _, err := storage.GetJSON[[]domain.Plan](ctx, r.store, storage.GlobalNamespace, storage.KeyArchivedPlans)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("load archived plans: %w", err)
	}

	if !found {
		active = domain.DefaultPlans()
	}
	if active == nil {
		active = []domain.Plan{}
	}
	if archived == nil {
		archived = []domain.Plan{}
	}
	return domain.Catalog{Active: active, Archived: archived, Stored: found}, nil
}

// Save writes both lists in one batch.
func (r *StoreCatalogRepository) Save(ctx context.Context, active, archived []domain.Plan) error {
	if active == nil {
		active = []domain.Plan{}
	}
	if archived == nil {
		archived = []domain.Plan{}
	}
	plans, err := storage.JSONEntry(storage.KeyPlans, active)
	if err != nil {
		return err
	}
	archivedPlans, err := storage.JSONEntry(storage.KeyArchivedPlans, archived)
	if err != nil {
		return err
	}
	if err := r.store.PutAll(ctx, storage.GlobalNamespace, plans, archivedPlans); err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}
	return nil
}
