package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/foodthrift/paysmallsmall/internal/catalog/domain"
	"github.com/foodthrift/paysmallsmall/internal/storage"
	"github.com/foodthrift/paysmallsmall/internal/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreCatalogRepository_DefaultsWhenNeverWritten(t *testing.T) {
	repo := NewStoreCatalogRepository(storage.NewMemoryStore())

	catalog, err := repo.Load(context.Background())
	require.NoError(t, err)

	assert.False(t, catalog.Stored)
	assert.Equal(t, domain.DefaultPlans(), catalog.Active)
	assert.Empty(t, catalog.Archived)
}

func TestStoreCatalogRepository_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	store, err := storage.Open(ctx, storage.Options{SQLitePath: filepath.Join(t.TempDir(), "catalog.db")})
	require.NoError(t, err)
	defer store.Close()

	repo := NewStoreCatalogRepository(store)
	defaults := domain.DefaultPlans()
	archived := []domain.Plan{defaults[0].Archived("Rotation")}

	require.NoError(t, repo.Save(ctx, defaults[1:], archived))

	catalog, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.True(t, catalog.Stored)
	assert.Equal(t, defaults[1:], catalog.Active)
	assert.Equal(t, archived, catalog.Archived)
}

func TestStoreCatalogRepository_EmptyCatalogStaysEmpty(t *testing.T) {
	ctx := context.Background()
	repo := NewStoreCatalogRepository(storage.NewMemoryStore())

	require.NoError(t, repo.Save(ctx, nil, nil))

	catalog, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.True(t, catalog.Stored)
	assert.Empty(t, catalog.Active)
}

func TestStoreCatalogRepository_ReadFailure(t *testing.T) {
	store := storagetest.NewFaultyStore(nil)
	store.FailReads(storagetest.ErrInjected)

	_, err := NewStoreCatalogRepository(store).Load(context.Background())
	assert.ErrorIs(t, err, storagetest.ErrInjected)
}
