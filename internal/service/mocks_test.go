package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/eventpass/eventpass-api/internal/domain"
	"github.com/eventpass/eventpass-api/internal/queue"
)

type mockBookingRepo struct {
	mock.Mock
}

func (m *mockBookingRepo) Reserve(ctx context.Context, req domain.ReservationRequest, gateway string) (domain.Reservation, error) {
	args := m.Called(ctx, req, gateway)
	return args.Get(0).(domain.Reservation), args.Error(1)
}

func (m *mockBookingRepo) FindByID(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Booking), args.Error(1)
}

func (m *mockBookingRepo) FindByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *mockBookingRepo) Stats(ctx context.Context, recent int) (domain.DashboardStats, error) {
	args := m.Called(ctx, recent)
	return args.Get(0).(domain.DashboardStats), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, task queue.Task) error {
	return m.Called(ctx, task).Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(a domain.Availability) {
	m.Called(a)
}

type mockAuthRepo struct {
	mock.Mock
}

func (m *mockAuthRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(domain.User), args.Error(1)
}

type mockEventRepo struct {
	mock.Mock
}

func (m *mockEventRepo) Create(ctx context.Context, event domain.Event) (domain.Event, error) {
	args := m.Called(ctx, event)
	return args.Get(0).(domain.Event), args.Error(1)
}

func (m *mockEventRepo) Find(ctx context.Context, filter domain.EventFilter) ([]domain.Event, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Event), args.Error(1)
}

func (m *mockEventRepo) FindByID(ctx context.Context, id uuid.UUID) (domain.Event, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Event), args.Error(1)
}

func (m *mockEventRepo) FindBySlug(ctx context.Context, slug string) (domain.Event, error) {
	args := m.Called(ctx, slug)
	return args.Get(0).(domain.Event), args.Error(1)
}

func (m *mockEventRepo) FindRelated(ctx context.Context, event domain.Event, now time.Time, limit int) ([]domain.Event, error) {
	args := m.Called(ctx, event, now, limit)
	return args.Get(0).([]domain.Event), args.Error(1)
}

type mockEventCache struct {
	mock.Mock
}

func (m *mockEventCache) Lookup(ctx context.Context, kind string, f domain.EventFilter) (string, []domain.Event, bool) {
	args := m.Called(ctx, kind, f)
	events, _ := args.Get(1).([]domain.Event)
	return args.String(0), events, args.Bool(2)
}

func (m *mockEventCache) Store(ctx context.Context, key string, events []domain.Event) error {
	return m.Called(ctx, key, events).Error(0)
}

func (m *mockEventCache) Invalidate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) FindByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *mockUserRepo) UpdateInterests(ctx context.Context, id uuid.UUID, interests []string) error {
	return m.Called(ctx, id, interests).Error(0)
}

func (m *mockUserRepo) SaveProfile(ctx context.Context, profile domain.UserProfile) (domain.UserProfile, error) {
	args := m.Called(ctx, profile)
	return args.Get(0).(domain.UserProfile), args.Error(1)
}

type mockInvoiceRepo struct {
	mock.Mock
}

func (m *mockInvoiceRepo) Create(ctx context.Context, invoice domain.Invoice) (domain.Invoice, error) {
	args := m.Called(ctx, invoice)
	return args.Get(0).(domain.Invoice), args.Error(1)
}

func (m *mockInvoiceRepo) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (domain.Invoice, error) {
	args := m.Called(ctx, bookingID)
	return args.Get(0).(domain.Invoice), args.Error(1)
}

func (m *mockInvoiceRepo) Update(ctx context.Context, invoice domain.Invoice) error {
	return m.Called(ctx, invoice).Error(0)
}

func (m *mockInvoiceRepo) FindStale(ctx context.Context, before time.Time, maxAttempts, limit int) ([]domain.Invoice, error) {
	args := m.Called(ctx, before, maxAttempts, limit)
	return args.Get(0).([]domain.Invoice), args.Error(1)
}

type mockProfileFinder struct {
	mock.Mock
}

func (m *mockProfileFinder) FindProfile(ctx context.Context, userID uuid.UUID) (domain.UserProfile, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(domain.UserProfile), args.Error(1)
}

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Issue(ctx context.Context, invoice domain.Invoice) (domain.IssueResult, error) {
	args := m.Called(ctx, invoice)
	return args.Get(0).(domain.IssueResult), args.Error(1)
}

type mockTicketSender struct {
	mock.Mock
}

func (m *mockTicketSender) SendTicket(ctx context.Context, booking domain.Booking) error {
	return m.Called(ctx, booking).Error(0)
}
