package v1

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eventpass/eventpass-api/internal/domain"
	"github.com/eventpass/eventpass-api/internal/service"
)

func newEventRouter(svc EventService, users UserFinder, userID uuid.UUID) *gin.Engine {
	h := NewEventHandler(svc, users)

	r := gin.New()
	r.GET("/events", h.HandleListEvents)
	r.GET("/events/search", h.HandleSearchEvents)
	r.GET("/events/related/:id", h.HandleRelatedEvents)
	r.GET("/events/:slug", h.HandleGetEvent)
	r.POST("/events", withUser(userID, domain.RoleOrganizer), h.HandleCreateEvent)

	return r
}

func TestHandleListEvents(t *testing.T) {
	svc := &mockEventService{}
	online := true
	svc.On("List", mock.Anything, domain.EventFilter{Q: "go", IsOnline: &online}).Return([]domain.Event{{Slug: "gophercon"}}, nil).Once()

	rec := doJSON(t, newEventRouter(svc, nil, uuid.Nil), http.MethodGet, "/events?q=go&is_online=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gophercon")
	svc.AssertExpectations(t)
}

func TestHandleSearchEvents_BadDate(t *testing.T) {
	rec := doJSON(t, newEventRouter(&mockEventService{}, nil, uuid.Nil), http.MethodGet, "/events/search?start_date=tomorrow", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRelatedEvents(t *testing.T) {
	id := uuid.New()

	t.Run("default limit", func(t *testing.T) {
		svc := &mockEventService{}
		svc.On("Related", mock.Anything, id, 0).Return([]domain.Event{}, nil).Once()

		rec := doJSON(t, newEventRouter(svc, nil, uuid.Nil), http.MethodGet, "/events/related/"+id.String(), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	for _, limit := range []string{"0", "21", "many"} {
		t.Run("limit "+limit, func(t *testing.T) {
			rec := doJSON(t, newEventRouter(&mockEventService{}, nil, uuid.Nil), http.MethodGet, "/events/related/"+id.String()+"?limit="+limit, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandleGetEvent(t *testing.T) {
	svc := &mockEventService{}
	svc.On("GetBySlug", mock.Anything, "gophercon").Return(domain.Event{Slug: "gophercon", Title: "GopherCon"}, nil).Once()
	svc.On("GetBySlug", mock.Anything, "missing").Return(domain.Event{}, service.ErrEventNotFound).Once()

	r := newEventRouter(svc, nil, uuid.Nil)

	rec := doJSON(t, r, http.MethodGet, "/events/gophercon", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/events/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func createEventBody() map[string]any {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	return map[string]any{
		"title":      "Go Meetup",
		"start_time": start,
		"end_time":   start.Add(2 * time.Hour),
		"ticket_types": []map[string]any{
			{"name": "Standard", "price": "150000", "quantity": 50},
		},
	}
}

func TestHandleCreateEvent(t *testing.T) {
	userID := uuid.New()
	organizer := domain.User{ID: userID, Role: domain.RoleOrganizer}

	t.Run("created", func(t *testing.T) {
		svc := &mockEventService{}
		users := &mockUserFinder{}
		users.On("GetUser", mock.Anything, userID).Return(organizer, nil).Once()
		svc.On("Create", mock.Anything, organizer, mock.MatchedBy(func(e domain.Event) bool {
			return e.Title == "Go Meetup" && len(e.TicketTypes) == 1 && e.TicketTypes[0].InitialQuantity == 50
		})).Return(domain.Event{ID: uuid.New(), Slug: "go-meetup-1"}, nil).Once()

		rec := doJSON(t, newEventRouter(svc, users, userID), http.MethodPost, "/events", createEventBody())
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), "go-meetup-1")
		svc.AssertExpectations(t)
	})

	t.Run("not an organizer", func(t *testing.T) {
		svc := &mockEventService{}
		users := &mockUserFinder{}
		users.On("GetUser", mock.Anything, userID).Return(domain.User{ID: userID, Role: domain.RoleUser}, nil).Once()
		svc.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(domain.Event{}, service.ErrPermissionDenied).Once()

		rec := doJSON(t, newEventRouter(svc, users, userID), http.MethodPost, "/events", createEventBody())
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("slug taken", func(t *testing.T) {
		svc := &mockEventService{}
		users := &mockUserFinder{}
		users.On("GetUser", mock.Anything, userID).Return(organizer, nil).Once()
		svc.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(domain.Event{}, service.ErrEventSlugExists).Once()

		rec := doJSON(t, newEventRouter(svc, users, userID), http.MethodPost, "/events", createEventBody())
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("deleted account", func(t *testing.T) {
		users := &mockUserFinder{}
		users.On("GetUser", mock.Anything, userID).Return(domain.User{}, service.ErrUserNotFound).Once()

		rec := doJSON(t, newEventRouter(&mockEventService{}, users, userID), http.MethodPost, "/events", createEventBody())
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid body", func(t *testing.T) {
		users := &mockUserFinder{}
		users.On("GetUser", mock.Anything, userID).Return(organizer, nil).Once()

		body := createEventBody()
		delete(body, "ticket_types")
		rec := doJSON(t, newEventRouter(&mockEventService{}, users, userID), http.MethodPost, "/events", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
