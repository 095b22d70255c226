package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eventpass/eventpass-api/internal/domain"
	"github.com/eventpass/eventpass-api/internal/repository/dao"
)

var (
	ErrBookingNotFound = dao.ErrBookingNotFound
	ErrOutOfStock      = dao.ErrOutOfStock
)

type BookingDAO interface {
	Reserve(ctx context.Context, p dao.ReserveParams) (dao.Booking, dao.TicketType, error)
	FindByID(ctx context.Context, id uuid.UUID) (dao.Booking, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]dao.Booking, error)
	SumPaidRevenue(ctx context.Context) (decimal.Decimal, error)
	SumPaidTickets(ctx context.Context) (int64, error)
	FindRecent(ctx context.Context, limit int) ([]dao.Booking, error)
}

type BookingRepository struct {
	dao BookingDAO
}

func NewBookingRepository(dao BookingDAO) *BookingRepository {
	return &BookingRepository{
		dao: dao,
	}
}

// Reserve passes the sentinel errors of the DAO through untouched so callers
// can tell a missing user or ticket type and a sold out type apart.
func (r *BookingRepository) Reserve(ctx context.Context, req domain.ReservationRequest, gateway string) (domain.Reservation, error) {
	booking, ticketType, err := r.dao.Reserve(ctx, dao.ReserveParams{
		UserID:         req.UserID,
		TicketTypeID:   req.TicketTypeID,
		Quantity:       req.Quantity,
		PaymentGateway: gateway,
	})
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("r.dao.Reserve -> %w", err)
	}

	return domain.Reservation{
		BookingID:         booking.ID,
		EventID:           ticketType.EventID,
		TicketTypeID:      ticketType.ID,
		Quantity:          req.Quantity,
		UnitPrice:         ticketType.Price,
		TotalAmount:       booking.TotalAmount,
		RemainingQuantity: ticketType.RemainingQuantity,
		CreatedAt:         booking.CreatedAt,
	}, nil
}

func (r *BookingRepository) FindByID(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return bookingDAOToDomain(found), nil
}

func (r *BookingRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	found, err := r.dao.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindByUserID -> %w", err)
	}

	return bookingsDAOToDomain(found), nil
}

func (r *BookingRepository) Stats(ctx context.Context, recent int) (domain.DashboardStats, error) {
	revenue, err := r.dao.SumPaidRevenue(ctx)
	if err != nil {
		return domain.DashboardStats{}, fmt.Errorf("r.dao.SumPaidRevenue -> %w", err)
	}

	tickets, err := r.dao.SumPaidTickets(ctx)
	if err != nil {
		return domain.DashboardStats{}, fmt.Errorf("r.dao.SumPaidTickets -> %w", err)
	}

	bookings, err := r.dao.FindRecent(ctx, recent)
	if err != nil {
		return domain.DashboardStats{}, fmt.Errorf("r.dao.FindRecent -> %w", err)
	}

	return domain.DashboardStats{
		TotalRevenue:   revenue.InexactFloat64(),
		TotalTickets:   tickets,
		RecentBookings: bookingsDAOToDomain(bookings),
	}, nil
}

func bookingDAOToDomain(b dao.Booking) domain.Booking {
	items := make([]domain.BookingItem, 0, len(b.Items))
	for _, i := range b.Items {
		item := domain.BookingItem{
			ID:           i.ID,
			BookingID:    i.BookingID,
			TicketTypeID: i.TicketTypeID,
			Quantity:     i.Quantity,
			Price:        i.Price,
		}
		if i.TicketType != nil {
			tt := ticketTypeDAOToDomain(*i.TicketType)
			item.TicketType = &tt
		}
		items = append(items, item)
	}

	booking := domain.Booking{
		ID:             b.ID,
		UserID:         b.UserID,
		TotalAmount:    b.TotalAmount,
		Status:         domain.BookingStatus(b.Status),
		PaymentGateway: b.PaymentGateway,
		Items:          items,
		CreatedAt:      b.CreatedAt,
	}
	if b.User != nil {
		user := userDAOToDomain(*b.User)
		booking.User = &user
	}

	return booking
}

func bookingsDAOToDomain(bookings []dao.Booking) []domain.Booking {
	out := make([]domain.Booking, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, bookingDAOToDomain(b))
	}

	return out
}
