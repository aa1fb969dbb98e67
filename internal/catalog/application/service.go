// Package application implements the catalog use cases: resolving plans for
// the ledger and the admin list/add/archive operations.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/foodthrift/paysmallsmall/internal/catalog/domain"
	sharedApplication "github.com/foodthrift/paysmallsmall/internal/shared/application"
	sharedDomain "github.com/foodthrift/paysmallsmall/internal/shared/domain"
	"github.com/foodthrift/paysmallsmall/internal/shared/infrastructure/eventbus"
	"github.com/foodthrift/paysmallsmall/pkg/observability"
)

// DefaultArchiveReason is recorded when ArchivePlan is given no reason.
const DefaultArchiveReason = "Rotation"

// ServiceConfig holds the optional collaborators of a Service.
type ServiceConfig struct {
	Publisher eventbus.Publisher
	Metrics   observability.Metrics
	Logger    *slog.Logger
	Clock     sharedApplication.Clock
}

// Service resolves and administers the plan catalog.
type Service struct {
	repo      domain.Repository
	publisher eventbus.Publisher
	metrics   observability.Metrics
	logger    *slog.Logger
	clock     sharedApplication.Clock
	validate  *validator.Validate

	// mu serializes read-modify-write cycles on the catalog.
	mu sync.Mutex
}

// NewService creates a new catalog service.
func NewService(repo domain.Repository, cfg ServiceConfig) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NoopMetrics{}
	}
	if cfg.Publisher == nil {
		cfg.Publisher = eventbus.NewNoopPublisher(cfg.Logger)
	}
	return &Service{
		repo:      repo,
		publisher: cfg.Publisher,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		clock:     cfg.Clock,
		validate:  validator.New(),
	}
}

// Resolve returns the active plan with the given id, or the first default
// plan when there is no such plan. It never fails: unreadable storage is
// treated as a catalog that was never written.
func (s *Service) Resolve(ctx context.Context, planID string) domain.Plan {
	plans := s.activeOrDefaults(ctx)
	for _, p := range plans {
		if p.ID == planID {
			return p
		}
	}
	s.logger.DebugContext(ctx, "plan not in catalog, using default", "plan_id", planID)
	return domain.DefaultPlan()
}

// Lookup returns the active plan with the given id.
func (s *Service) Lookup(ctx context.Context, planID string) (domain.Plan, error) {
	catalog, err := s.repo.Load(ctx)
	if err != nil {
		return domain.Plan{}, err
	}
	for _, p := range catalog.Active {
		if p.ID == planID {
			return p, nil
		}
	}
	return domain.Plan{}, fmt.Errorf("%w: %s", domain.ErrPlanNotFound, planID)
}

// List returns the active plans, newest first.
func (s *Service) List(ctx context.Context) ([]domain.Plan, error) {
	catalog, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Active, nil
}

// ListArchived returns the archived plans, most recently archived first.
func (s *Service) ListArchived(ctx context.Context) ([]domain.Plan, error) {
	catalog, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Archived, nil
}

// AddPlanCommand contains the data needed to add a plan. ID is optional and
// generated when empty.
type AddPlanCommand struct {
	ID              string           `validate:"omitempty,max=64"`
	Name            string           `validate:"required,max=120"`
	Description     string           `validate:"max=500"`
	Category        domain.Category  `validate:"required"`
	Subcategory     string           `validate:"max=120"`
	NumberOfSlots   int              `validate:"gte=0"`
	Amount          int64            `validate:"gt=0"`
	Frequency       domain.Frequency `validate:"required"`
	DurationInWeeks int              `validate:"gt=0"`
	ImageURL        string           `validate:"omitempty,url"`
}

// AddPlan validates cmd and prepends the new plan to the active catalog.
func (s *Service) AddPlan(ctx context.Context, cmd AddPlanCommand) (domain.Plan, error) {
	if err := s.validate.Struct(cmd); err != nil {
		return domain.Plan{}, fmt.Errorf("%w: %s", domain.ErrInvalidPlan, err.Error())
	}
	if !cmd.Category.IsValid() {
		return domain.Plan{}, fmt.Errorf("%w: unknown category %q", domain.ErrInvalidPlan, cmd.Category)
	}
	if !cmd.Frequency.IsValid() {
		return domain.Plan{}, fmt.Errorf("%w: unknown frequency %q", domain.ErrInvalidPlan, cmd.Frequency)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	catalog, err := s.repo.Load(ctx)
	if err != nil {
		return domain.Plan{}, err
	}

	now := s.clock.Now()
	id := cmd.ID
	if id == "" {
		// Generated ids step past collisions from adds within the same millisecond.
		for n := now.UnixMilli(); id == "" || taken(catalog, id); n++ {
			id = "plan_" + strconv.FormatInt(n, 10)
		}
	} else if taken(catalog, id) {
		return domain.Plan{}, fmt.Errorf("%w: %s", domain.ErrPlanExists, id)
	}

	plan := domain.Plan{
		ID:              id,
		Name:            cmd.Name,
		Description:     cmd.Description,
		Category:        cmd.Category,
		Subcategory:     cmd.Subcategory,
		NumberOfSlots:   cmd.NumberOfSlots,
		Amount:          cmd.Amount,
		Frequency:       cmd.Frequency,
		DurationInWeeks: cmd.DurationInWeeks,
		ImageURL:        cmd.ImageURL,
	}

	active := append([]domain.Plan{plan}, catalog.Active...)
	if err := s.repo.Save(ctx, active, catalog.Archived); err != nil {
		return domain.Plan{}, err
	}

	s.metrics.Counter(observability.MetricPlansAdded, 1, observability.T("category", string(plan.Category)))
	s.logger.InfoContext(ctx, "plan added", "plan_id", plan.ID, "name", plan.Name)
	s.publish(ctx, domain.NewPlanAdded(plan, now))
	return plan, nil
}

// ArchivePlan moves an active plan to the archived list with reason. Plans
// that are not active are left alone and reported with found=false.
func (s *Service) ArchivePlan(ctx context.Context, planID, reason string) (archived domain.Plan, found bool, err error) {
	if reason == "" {
		reason = DefaultArchiveReason
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	catalog, err := s.repo.Load(ctx)
	if err != nil {
		return domain.Plan{}, false, err
	}

	active := make([]domain.Plan, 0, len(catalog.Active))
	for _, p := range catalog.Active {
		if p.ID == planID && !found {
			archived = p.Archived(reason)
			found = true
			continue
		}
		active = append(active, p)
	}
	if !found {
		return domain.Plan{}, false, nil
	}

	archivedList := append([]domain.Plan{archived}, catalog.Archived...)
	if err := s.repo.Save(ctx, active, archivedList); err != nil {
		return domain.Plan{}, false, err
	}

	s.metrics.Counter(observability.MetricPlansArchived, 1)
	s.logger.InfoContext(ctx, "plan archived", "plan_id", planID, "reason", reason)
	s.publish(ctx, domain.NewPlanArchived(archived, s.clock.Now()))
	return archived, true, nil
}

func (s *Service) activeOrDefaults(ctx context.Context) []domain.Plan {
	catalog, err := s.repo.Load(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "catalog unreadable, using defaults", "error", err)
		return domain.DefaultPlans()
	}
	return catalog.Active
}

func (s *Service) publish(ctx context.Context, event sharedDomain.DomainEvent) {
	events := []sharedDomain.DomainEvent{event}
	sharedApplication.ApplyEventMetadata(events, sharedApplication.EventMetadataFromContext(ctx, observability.UserIDFromContext(ctx)))
	if err := eventbus.PublishEvents(ctx, s.publisher, events...); err != nil {
		s.logger.WarnContext(ctx, "failed to publish catalog event", "routing_key", event.RoutingKey(), "error", err)
		return
	}
	s.metrics.Counter(observability.MetricEventsPublished, 1, observability.T("routing_key", event.RoutingKey()))
}

func taken(catalog domain.Catalog, id string) bool {
	for _, p := range catalog.Active {
		if p.ID == id {
			return true
		}
	}
	for _, p := range catalog.Archived {
		if p.ID == id {
			return true
		}
	}
	return false
}
