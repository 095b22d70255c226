package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eventpass/eventpass-api/internal/api/middleware"
	"github.com/eventpass/eventpass-api/internal/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// withUser stands in for VerifyJWT.
func withUser(id uuid.UUID, role string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Set(middleware.ContextKeyUserID, id)
		ctx.Set(middleware.ContextKeyRole, role)
		ctx.Next()
	}
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	return rec
}

type mockAuthService struct {
	mock.Mock
}

func (m *mockAuthService) Register(ctx context.Context, email, password, userType string) (domain.User, error) {
	args := m.Called(ctx, email, password, userType)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (domain.User, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(domain.User), args.Error(1)
}

type mockBookingService struct {
	mock.Mock
}

func (m *mockBookingService) Reserve(ctx context.Context, req domain.ReservationRequest) (domain.Reservation, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.Reservation), args.Error(1)
}

func (m *mockBookingService) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *mockBookingService) RequestTicketEmail(ctx context.Context, bookingID, userID uuid.UUID) error {
	return m.Called(ctx, bookingID, userID).Error(0)
}

func (m *mockBookingService) Stats(ctx context.Context) (domain.DashboardStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.DashboardStats), args.Error(1)
}

type mockEventService struct {
	mock.Mock
}

func (m *mockEventService) List(ctx context.Context, f domain.EventFilter) ([]domain.Event, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]domain.Event), args.Error(1)
}

func (m *mockEventService) Search(ctx context.Context, f domain.EventFilter) ([]domain.Event, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]domain.Event), args.Error(1)
}

func (m *mockEventService) Related(ctx context.Context, eventID uuid.UUID, limit int) ([]domain.Event, error) {
	args := m.Called(ctx, eventID, limit)
	return args.Get(0).([]domain.Event), args.Error(1)
}

func (m *mockEventService) GetBySlug(ctx context.Context, slug string) (domain.Event, error) {
	args := m.Called(ctx, slug)
	return args.Get(0).(domain.Event), args.Error(1)
}

func (m *mockEventService) Create(ctx context.Context, author domain.User, event domain.Event) (domain.Event, error) {
	args := m.Called(ctx, author, event)
	return args.Get(0).(domain.Event), args.Error(1)
}

type mockUserFinder struct {
	mock.Mock
}

func (m *mockUserFinder) GetUser(ctx context.Context, id uuid.UUID) (domain.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.User), args.Error(1)
}
