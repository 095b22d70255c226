package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/eventpass/eventpass-api/internal/domain"
	"github.com/eventpass/eventpass-api/internal/repository"
)

const defaultRelatedLimit = 4

var (
	ErrEventNotFound    = repository.ErrEventNotFound
	ErrEventSlugExists  = repository.ErrEventSlugExists
	ErrPermissionDenied = errors.New("permission denied")
)

type EventRepository interface {
	Create(ctx context.Context, event domain.Event) (domain.Event, error)
	Find(ctx context.Context, filter domain.EventFilter) ([]domain.Event, error)
	FindByID(ctx context.Context, id uuid.UUID) (domain.Event, error)
	FindBySlug(ctx context.Context, slug string) (domain.Event, error)
	FindRelated(ctx context.Context, event domain.Event, now time.Time, limit int) ([]domain.Event, error)
}

// EventCache is optional. Implementations treat their own failures as misses.
type EventCache interface {
	Lookup(ctx context.Context, kind string, f domain.EventFilter) (string, []domain.Event, bool)
	Store(ctx context.Context, key string, events []domain.Event) error
	Invalidate(ctx context.Context) error
}

type EventService struct {
	repo  EventRepository
	cache EventCache
	now   func() time.Time
}

// NewEventService accepts a nil cache.
func NewEventService(repo EventRepository, cache EventCache) *EventService {
	return &EventService{
		repo:  repo,
		cache: cache,
		now:   time.Now,
	}
}

func (s *EventService) List(ctx context.Context, f domain.EventFilter) ([]domain.Event, error) {
	f.MatchDescription = false

	return s.find(ctx, "list", f)
}

// Search is List with the keyword also matched against descriptions and an
// optional start time window.
func (s *EventService) Search(ctx context.Context, f domain.EventFilter) ([]domain.Event, error) {
	f.MatchDescription = true

	return s.find(ctx, "search", f)
}

func (s *EventService) find(ctx context.Context, kind string, f domain.EventFilter) ([]domain.Event, error) {
	var key string
	if s.cache != nil {
		var (
			events []domain.Event
			hit    bool
		)
		key, events, hit = s.cache.Lookup(ctx, kind, f)
		if hit {
			return events, nil
		}
	}

	events, err := s.repo.Find(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("s.repo.Find -> %w", err)
	}

	if s.cache != nil {
		if err = s.cache.Store(ctx, key, events); err != nil {
			zap.L().Warn("failed to cache event listing", zap.String("kind", kind), zap.Error(err))
		}
	}

	return events, nil
}

// Related lists upcoming events near the given one. An unknown event has no
// related events.
func (s *EventService) Related(ctx context.Context, eventID uuid.UUID, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = defaultRelatedLimit
	}

	event, err := s.repo.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			return []domain.Event{}, nil
		}

		return nil, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	related, err := s.repo.FindRelated(ctx, event, s.now(), limit)
	if err != nil {
		return nil, fmt.Errorf("s.repo.FindRelated -> %w", err)
	}

	return related, nil
}

func (s *EventService) GetBySlug(ctx context.Context, slug string) (domain.Event, error) {
	event, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return domain.Event{}, fmt.Errorf("s.repo.FindBySlug -> %w", err)
	}

	return event, nil
}

func (s *EventService) Create(ctx context.Context, author domain.User, event domain.Event) (domain.Event, error) {
	if !author.CanManageEvents() {
		return domain.Event{}, fmt.Errorf("%w: user %s is not an organizer", ErrPermissionDenied, author.ID)
	}

	if event.Slug == "" {
		event.Slug = fmt.Sprintf("%s-%d", slug.Make(event.Title), s.now().UnixMilli())
	} else {
		event.Slug = slug.Make(event.Slug)
	}

	for i := range event.TicketTypes {
		event.TicketTypes[i].RemainingQuantity = event.TicketTypes[i].InitialQuantity
	}

	created, err := s.repo.Create(ctx, event)
	if err != nil {
		return domain.Event{}, fmt.Errorf("s.repo.Create -> %w", err)
	}

	if s.cache != nil {
		if err = s.cache.Invalidate(ctx); err != nil {
			zap.L().Warn("failed to invalidate event cache", zap.Error(err))
		}
	}

	return created, nil
}
