package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodthrift/paysmallsmall/internal/catalog/domain"
	"github.com/foodthrift/paysmallsmall/internal/catalog/infrastructure/persistence"
	sharedApplication "github.com/foodthrift/paysmallsmall/internal/shared/application"
	"github.com/foodthrift/paysmallsmall/internal/shared/infrastructure/eventbus/eventbustest"
	"github.com/foodthrift/paysmallsmall/internal/storage"
	"github.com/foodthrift/paysmallsmall/internal/storage/storagetest"
	"github.com/foodthrift/paysmallsmall/pkg/observability"
)

var addedAt = time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)

type fixture struct {
	service *Service
	store   *storagetest.FaultyStore
	events  *eventbustest.Recorder
	metrics *observability.InMemoryMetrics
	repo    *persistence.StoreCatalogRepository
}

func newFixture() *fixture {
	store := storagetest.NewFaultyStore(storage.NewMemoryStore())
	repo := persistence.NewStoreCatalogRepository(store)
	events := eventbustest.NewRecorder()
	metrics := observability.NewInMemoryMetrics()
	svc := NewService(repo, ServiceConfig{
		Publisher: events,
		Metrics:   metrics,
		Logger:    observability.DiscardLogger(),
		Clock:     sharedApplication.FixedClock(addedAt),
	})
	return &fixture{service: svc, store: store, events: events, metrics: metrics, repo: repo}
}

func validCommand() AddPlanCommand {
	return AddPlanCommand{
		Name:            "Palm Oil Drum",
		Category:        domain.CategoryOilsAndSpices,
		Amount:          4000,
		Frequency:       domain.FrequencyWeekly,
		DurationInWeeks: 8,
	}
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	t.Run("known plan from defaults", func(t *testing.T) {
		p := f.service.Resolve(ctx, "plan_3")
		assert.Equal(t, "Festive Chicken Pack", p.Name)
	})

	t.Run("unknown plan falls back to first default", func(t *testing.T) {
		p := f.service.Resolve(ctx, "plan_999")
		assert.Equal(t, "plan_1", p.ID)
		assert.Equal(t, "Rice & Grains Bundle", p.Name)
	})

	t.Run("added plan resolves", func(t *testing.T) {
		added, err := f.service.AddPlan(ctx, validCommand())
		require.NoError(t, err)
		assert.Equal(t, added, f.service.Resolve(ctx, added.ID))
	})

	t.Run("archived plan falls back", func(t *testing.T) {
		_, found, err := f.service.ArchivePlan(ctx, "plan_3", "")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "plan_1", f.service.Resolve(ctx, "plan_3").ID)
	})

	t.Run("storage failure uses defaults", func(t *testing.T) {
		f.store.FailReads(storagetest.ErrInjected)
		defer f.store.FailReads(nil)

		assert.Equal(t, "Festive Chicken Pack", f.service.Resolve(ctx, "plan_3").Name)
		assert.Equal(t, "plan_1", f.service.Resolve(ctx, "nope").ID)
	})
}

func TestResolve_EmptyStoredCatalogFallsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	require.NoError(t, f.repo.Save(ctx, []domain.Plan{}, nil))

	p := f.service.Resolve(ctx, "plan_2")
	assert.Equal(t, domain.DefaultPlan(), p)
}

func TestLookup(t *testing.T) {
	f := newFixture()

	p, err := f.service.Lookup(context.Background(), "plan_2")
	require.NoError(t, err)
	assert.Equal(t, "Organic Cow Share", p.Name)

	_, err = f.service.Lookup(context.Background(), "plan_x")
	assert.ErrorIs(t, err, domain.ErrPlanNotFound)
}

func TestAddPlan(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	plan, err := f.service.AddPlan(ctx, validCommand())
	require.NoError(t, err)

	assert.Equal(t, "plan_1714989600000", plan.ID)
	assert.Equal(t, "Palm Oil Drum", plan.Name)

	plans, err := f.service.List(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 5)
	assert.Equal(t, plan.ID, plans[0].ID, "new plans are prepended")
	assert.Equal(t, "plan_1", plans[1].ID)

	assert.Equal(t, []string{domain.RoutingKeyPlanAdded}, f.events.RoutingKeys())
	assert.Equal(t, int64(1), f.metrics.GetCounter(observability.MetricPlansAdded, observability.T("category", "Oils & Spices")))
}

func TestAddPlan_GeneratedIDsStayUnique(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	first, err := f.service.AddPlan(ctx, validCommand())
	require.NoError(t, err)
	second, err := f.service.AddPlan(ctx, validCommand())
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.True(t, strings.HasPrefix(second.ID, "plan_"))
}

func TestAddPlan_DuplicateID(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	cmd := validCommand()
	cmd.ID = "plan_2"
	_, err := f.service.AddPlan(ctx, cmd)
	assert.ErrorIs(t, err, domain.ErrPlanExists)

	_, _, err = f.service.ArchivePlan(ctx, "plan_4", "Seasonal")
	require.NoError(t, err)
	cmd.ID = "plan_4"
	_, err = f.service.AddPlan(ctx, cmd)
	assert.ErrorIs(t, err, domain.ErrPlanExists, "archived ids stay reserved")
}

func TestAddPlan_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AddPlanCommand)
	}{
		{"missing name", func(c *AddPlanCommand) { c.Name = "" }},
		{"zero amount", func(c *AddPlanCommand) { c.Amount = 0 }},
		{"negative amount", func(c *AddPlanCommand) { c.Amount = -10 }},
		{"unknown category", func(c *AddPlanCommand) { c.Category = "Vegetables" }},
		{"unknown frequency", func(c *AddPlanCommand) { c.Frequency = "DAILY" }},
		{"zero duration", func(c *AddPlanCommand) { c.DurationInWeeks = 0 }},
		{"bad image url", func(c *AddPlanCommand) { c.ImageURL = "not a url" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			cmd := validCommand()
			tt.mutate(&cmd)

			_, err := f.service.AddPlan(context.Background(), cmd)
			assert.ErrorIs(t, err, domain.ErrInvalidPlan)
			assert.Zero(t, f.store.Writes(), "no partial record")
			assert.Empty(t, f.events.Envelopes())
		})
	}
}

func TestArchivePlan(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	archived, found, err := f.service.ArchivePlan(ctx, "plan_2", "")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, DefaultArchiveReason, archived.DeactivationReason)

	active, err := f.service.List(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 3)
	for _, p := range active {
		assert.NotEqual(t, "plan_2", p.ID)
	}

	list, err := f.service.ListArchived(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "plan_2", list[0].ID)
	assert.Equal(t, "Rotation", list[0].DeactivationReason)

	t.Run("second archive is a no-op", func(t *testing.T) {
		writes := f.store.Writes()
		_, found, err := f.service.ArchivePlan(ctx, "plan_2", "Again")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Equal(t, writes, f.store.Writes())

		list, err := f.service.ListArchived(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("most recent archive first", func(t *testing.T) {
		_, _, err := f.service.ArchivePlan(ctx, "plan_1", "Out of season")
		require.NoError(t, err)

		list, err := f.service.ListArchived(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "plan_1", list[0].ID)
		assert.Equal(t, "Out of season", list[0].DeactivationReason)
	})

	assert.Equal(t, []string{domain.RoutingKeyPlanArchived, domain.RoutingKeyPlanArchived}, f.events.RoutingKeys())
}

func TestArchivePlan_WriteFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.store.FailWrites(storagetest.ErrInjected)

	_, _, err := f.service.ArchivePlan(ctx, "plan_1", "")
	assert.ErrorIs(t, err, storagetest.ErrInjected)
	assert.Empty(t, f.events.Envelopes())

	f.store.FailWrites(nil)
	plans, err := f.service.List(ctx)
	require.NoError(t, err)
	assert.Len(t, plans, 4)
}

func TestService_PublishFailureDoesNotFailCommand(t *testing.T) {
	f := newFixture()
	f.events.FailWith(errors.New("broker down"))

	_, err := f.service.AddPlan(context.Background(), validCommand())
	assert.NoError(t, err)
}
