package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending BookingStatus = "PENDING"
	BookingStatusPaid    BookingStatus = "PAID"
)

type Booking struct {
	ID             uuid.UUID       `json:"id"`
	UserID         uuid.UUID       `json:"user_id"`
	User           *User           `json:"user,omitempty"`
	TotalAmount    decimal.Decimal `json:"total_amount" swaggertype:"string"`
	Status         BookingStatus   `json:"status"`
	PaymentGateway string          `json:"payment_gateway"`
	Items          []BookingItem   `json:"items"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ShortCode is the human friendly booking reference printed on tickets.
func (b Booking) ShortCode() string {
	return strings.ToUpper(b.ID.String()[:8])
}

// EventTitle returns the title of the event of the first item, if loaded.
func (b Booking) EventTitle() string {
	if len(b.Items) == 0 || b.Items[0].TicketType == nil || b.Items[0].TicketType.Event == nil {
		return ""
	}

	return b.Items[0].TicketType.Event.Title
}

type BookingItem struct {
	ID           uuid.UUID       `json:"id"`
	BookingID    uuid.UUID       `json:"booking_id"`
	TicketTypeID uuid.UUID       `json:"ticket_type_id"`
	TicketType   *TicketType     `json:"ticket_type,omitempty"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price" swaggertype:"string"`
}

type ReservationRequest struct {
	UserID       uuid.UUID
	TicketTypeID uuid.UUID
	Quantity     int
	RequestVAT   bool
}

// Reservation is the outcome of a committed reservation.
type Reservation struct {
	BookingID         uuid.UUID
	EventID           uuid.UUID
	TicketTypeID      uuid.UUID
	Quantity          int
	UnitPrice         decimal.Decimal
	TotalAmount       decimal.Decimal
	RemainingQuantity int
	CreatedAt         time.Time
}

type DashboardStats struct {
	TotalRevenue   float64   `json:"totalRevenue"`
	TotalTickets   int64     `json:"totalTickets"`
	RecentBookings []Booking `json:"recentBookings"`
}
