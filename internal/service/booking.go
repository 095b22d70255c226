package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventpass/eventpass-api/internal/config"
	"github.com/eventpass/eventpass-api/internal/domain"
	"github.com/eventpass/eventpass-api/internal/metrics"
	"github.com/eventpass/eventpass-api/internal/queue"
	"github.com/eventpass/eventpass-api/internal/repository"
)

const (
	recentBookingsLimit = 5
	enqueueTimeout      = 5 * time.Second
)

var (
	ErrTicketTypeNotFound = repository.ErrTicketTypeNotFound
	ErrOutOfStock         = repository.ErrOutOfStock
	ErrBookingNotFound    = repository.ErrBookingNotFound

	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
	ErrReservationFailed = errors.New("reservation transaction failed")
	ErrBookingForbidden  = errors.New("booking belongs to another user")
	ErrEnqueueFailed     = errors.New("could not schedule the task")
)

type BookingRepository interface {
	Reserve(ctx context.Context, req domain.ReservationRequest, gateway string) (domain.Reservation, error)
	FindByID(ctx context.Context, id uuid.UUID) (domain.Booking, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error)
	Stats(ctx context.Context, recent int) (domain.DashboardStats, error)
}

// AvailabilityNotifier receives the remaining stock of a ticket type after
// each committed reservation. Notify must not block.
type AvailabilityNotifier interface {
	Notify(a domain.Availability)
}

// ListingInvalidator drops cached event listings, whose ticket types carry
// the remaining stock.
type ListingInvalidator interface {
	Invalidate(ctx context.Context) error
}

type BookingService struct {
	repo      BookingRepository
	publisher queue.Publisher
	notifier  AvailabilityNotifier
	listings  ListingInvalidator
	conf      *config.BookingConfig
}

// NewBookingService accepts a nil notifier and a nil listings cache.
func NewBookingService(repo BookingRepository, publisher queue.Publisher, notifier AvailabilityNotifier, listings ListingInvalidator, conf *config.BookingConfig) *BookingService {
	return &BookingService{
		repo:      repo,
		publisher: publisher,
		notifier:  notifier,
		listings:  listings,
		conf:      conf,
	}
}

// Reserve books req.Quantity tickets of req.TicketTypeID for req.UserID.
//
// Errors: ErrInvalidQuantity, ErrUserNotFound and ErrTicketTypeNotFound,
// ErrOutOfStock, or ErrReservationFailed wrapping the cause of any other
// failure. Nothing is persisted when an error is returned.
func (s *BookingService) Reserve(ctx context.Context, req domain.ReservationRequest) (domain.Reservation, error) {
	start := time.Now()

	if req.Quantity < 1 {
		metrics.ObserveReservation(metrics.OutcomeInvalid, time.Since(start))
		return domain.Reservation{}, ErrInvalidQuantity
	}

	res, err := s.repo.Reserve(ctx, req, s.conf.PaymentGateway)
	if err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrTicketTypeNotFound):
			metrics.ObserveReservation(metrics.OutcomeNotFound, time.Since(start))
			return domain.Reservation{}, fmt.Errorf("s.repo.Reserve -> %w", err)
		case errors.Is(err, ErrOutOfStock):
			metrics.ObserveReservation(metrics.OutcomeOutOfStock, time.Since(start))
			return domain.Reservation{}, fmt.Errorf("s.repo.Reserve -> %w", err)
		default:
			metrics.ObserveReservation(metrics.OutcomeFailure, time.Since(start))
			return domain.Reservation{}, fmt.Errorf("%w: s.repo.Reserve -> %w", ErrReservationFailed, err)
		}
	}
	metrics.ObserveReservation(metrics.OutcomeSuccess, time.Since(start))

	s.afterCommit(ctx, req, res)

	return res, nil
}

// afterCommit schedules the follow-up work of a reservation. Failures are
// only logged: the booking is already committed.
func (s *BookingService) afterCommit(ctx context.Context, req domain.ReservationRequest, res domain.Reservation) {
	if s.notifier != nil {
		s.notifier.Notify(domain.Availability{
			EventID:           res.EventID,
			TicketTypeID:      res.TicketTypeID,
			RemainingQuantity: res.RemainingQuantity,
			SoldOut:           res.RemainingQuantity == 0,
		})
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), enqueueTimeout)
	defer cancel()

	if s.listings != nil {
		if err := s.listings.Invalidate(ctx); err != nil {
			zap.L().Warn("failed to invalidate event cache", zap.Error(err))
		}
	}

	if s.conf.SendTicketEmail {
		s.enqueue(ctx, queue.NewTask(queue.TaskTicketEmail, res.BookingID, req.UserID))
	}
	if req.RequestVAT {
		s.enqueue(ctx, queue.NewTask(queue.TaskInvoiceRequest, res.BookingID, req.UserID))
	}
}

func (s *BookingService) enqueue(ctx context.Context, task queue.Task) {
	if err := s.publisher.Publish(ctx, task); err != nil {
		zap.L().Error("failed to enqueue post-booking task",
			zap.String("type", string(task.Type)),
			zap.String("booking_id", task.BookingID.String()),
			zap.Error(err),
		)
	}
}

// ListForUser returns the bookings of a user, newest first.
func (s *BookingService) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	bookings, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("s.repo.FindByUserID -> %w", err)
	}

	return bookings, nil
}

// RequestTicketEmail checks that the booking belongs to userID and queues
// the ticket e-mail.
func (s *BookingService) RequestTicketEmail(ctx context.Context, bookingID, userID uuid.UUID) error {
	booking, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("s.repo.FindByID -> %w", err)
	}
	if booking.UserID != userID {
		return ErrBookingForbidden
	}

	if err = s.publisher.Publish(ctx, queue.NewTask(queue.TaskTicketEmail, bookingID, userID)); err != nil {
		return fmt.Errorf("%w: s.publisher.Publish -> %w", ErrEnqueueFailed, err)
	}

	return nil
}

func (s *BookingService) Stats(ctx context.Context) (domain.DashboardStats, error) {
	stats, err := s.repo.Stats(ctx, recentBookingsLimit)
	if err != nil {
		return domain.DashboardStats{}, fmt.Errorf("s.repo.Stats -> %w", err)
	}

	return stats, nil
}
