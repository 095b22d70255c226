package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eventpass/eventpass-api/internal/domain"
)

var fixedNow = time.Date(2025, 11, 20, 9, 0, 0, 0, time.UTC)

func newEventService(repo *mockEventRepo, cache EventCache) *EventService {
	svc := NewEventService(repo, cache)
	svc.now = func() time.Time { return fixedNow }

	return svc
}

func TestEventService_ListWithoutCache(t *testing.T) {
	repo := &mockEventRepo{}
	svc := newEventService(repo, nil)

	events := []domain.Event{{ID: uuid.New(), Title: "GopherCon"}}
	repo.On("Find", mock.Anything, domain.EventFilter{Q: "go"}).Return(events, nil).Once()

	got, err := svc.List(context.Background(), domain.EventFilter{Q: "go", MatchDescription: true})
	require.NoError(t, err)
	assert.Equal(t, events, got)
	repo.AssertExpectations(t)
}

func TestEventService_SearchMatchesDescription(t *testing.T) {
	repo := &mockEventRepo{}
	svc := newEventService(repo, nil)

	repo.On("Find", mock.Anything, domain.EventFilter{Q: "ai", MatchDescription: true}).Return([]domain.Event{}, nil).Once()

	_, err := svc.Search(context.Background(), domain.EventFilter{Q: "ai"})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestEventService_ListCacheHit(t *testing.T) {
	repo := &mockEventRepo{}
	cache := &mockEventCache{}
	svc := newEventService(repo, cache)

	cached := []domain.Event{{ID: uuid.New(), Title: "cached"}}
	cache.On("Lookup", mock.Anything, "list", domain.EventFilter{}).Return("k", cached, true).Once()

	got, err := svc.List(context.Background(), domain.EventFilter{})
	require.NoError(t, err)
	assert.Equal(t, cached, got)
	repo.AssertNotCalled(t, "Find", mock.Anything, mock.Anything)
	cache.AssertExpectations(t)
}

func TestEventService_ListCacheMissStores(t *testing.T) {
	repo := &mockEventRepo{}
	cache := &mockEventCache{}
	svc := newEventService(repo, cache)

	events := []domain.Event{{ID: uuid.New()}}
	cache.On("Lookup", mock.Anything, "search", domain.EventFilter{Q: "x", MatchDescription: true}).Return("events:search:abc", nil, false).Once()
	repo.On("Find", mock.Anything, mock.Anything).Return(events, nil).Once()
	cache.On("Store", mock.Anything, "events:search:abc", events).Return(errors.New("redis down")).Once()

	// A failing cache write does not fail the listing.
	got, err := svc.Search(context.Background(), domain.EventFilter{Q: "x"})
	require.NoError(t, err)
	assert.Equal(t, events, got)
	cache.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestEventService_Related(t *testing.T) {
	repo := &mockEventRepo{}
	svc := newEventService(repo, nil)

	event := domain.Event{ID: uuid.New(), Location: "Hà Nội"}
	related := []domain.Event{{ID: uuid.New()}}
	repo.On("FindByID", mock.Anything, event.ID).Return(event, nil).Once()
	repo.On("FindRelated", mock.Anything, event, fixedNow, defaultRelatedLimit).Return(related, nil).Once()

	got, err := svc.Related(context.Background(), event.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, related, got)
	repo.AssertExpectations(t)
}

func TestEventService_RelatedUnknownEvent(t *testing.T) {
	repo := &mockEventRepo{}
	svc := newEventService(repo, nil)

	id := uuid.New()
	repo.On("FindByID", mock.Anything, id).Return(domain.Event{}, ErrEventNotFound).Once()

	got, err := svc.Related(context.Background(), id, 3)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestEventService_GetBySlugNotFound(t *testing.T) {
	repo := &mockEventRepo{}
	svc := newEventService(repo, nil)

	repo.On("FindBySlug", mock.Anything, "nope").Return(domain.Event{}, ErrEventNotFound).Once()

	_, err := svc.GetBySlug(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestEventService_Create(t *testing.T) {
	organizer := domain.User{ID: uuid.New(), Role: domain.RoleOrganizer}

	t.Run("generated slug and stock", func(t *testing.T) {
		repo := &mockEventRepo{}
		cache := &mockEventCache{}
		svc := newEventService(repo, cache)

		in := domain.Event{
			Title:       "Tech Summit 2025",
			TicketTypes: []domain.TicketType{{Name: "VIP", Price: decimal.NewFromInt(500000), InitialQuantity: 50}},
		}
		repo.On("Create", mock.Anything, mock.MatchedBy(func(e domain.Event) bool {
			return e.Slug == "tech-summit-2025-1763629200000" && e.TicketTypes[0].RemainingQuantity == 50
		})).Return(domain.Event{ID: uuid.New(), Slug: "tech-summit-2025-1763629200000"}, nil).Once()
		cache.On("Invalidate", mock.Anything).Return(nil).Once()

		created, err := svc.Create(context.Background(), organizer, in)
		require.NoError(t, err)
		assert.Equal(t, "tech-summit-2025-1763629200000", created.Slug)
		repo.AssertExpectations(t)
		cache.AssertExpectations(t)
	})

	t.Run("explicit slug is normalized", func(t *testing.T) {
		repo := &mockEventRepo{}
		svc := newEventService(repo, nil)

		repo.On("Create", mock.Anything, mock.MatchedBy(func(e domain.Event) bool {
			return e.Slug == "go-meetup"
		})).Return(domain.Event{Slug: "go-meetup"}, nil).Once()

		_, err := svc.Create(context.Background(), organizer, domain.Event{Title: "x", Slug: "Go Meetup"})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("plain user", func(t *testing.T) {
		repo := &mockEventRepo{}
		svc := newEventService(repo, nil)

		_, err := svc.Create(context.Background(), domain.User{ID: uuid.New(), Role: domain.RoleUser}, domain.Event{Title: "x"})
		assert.ErrorIs(t, err, ErrPermissionDenied)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("slug taken", func(t *testing.T) {
		repo := &mockEventRepo{}
		svc := newEventService(repo, nil)

		repo.On("Create", mock.Anything, mock.Anything).Return(domain.Event{}, ErrEventSlugExists).Once()

		_, err := svc.Create(context.Background(), organizer, domain.Event{Title: "x", Slug: "dup"})
		assert.ErrorIs(t, err, ErrEventSlugExists)
	})
}
