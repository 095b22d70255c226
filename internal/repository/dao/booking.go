package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrOutOfStock      = errors.New("ticket type is sold out")
)

type BookingStatus string

const (
	BookingPending BookingStatus = "PENDING"
	BookingPaid    BookingStatus = "PAID"
)

type Booking struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index"`

	TotalAmount    decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Status         BookingStatus   `gorm:"not null"`
	PaymentGateway string

	User  *User         `gorm:"foreignKey:UserID"`
	Items []BookingItem `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"type:timestamptz;not null;index"`
}

func (b *Booking) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}

	return nil
}

type BookingItem struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	BookingID    uuid.UUID `gorm:"type:uuid;not null;index"`
	TicketTypeID uuid.UUID `gorm:"type:uuid;not null;index"`

	Quantity int `gorm:"not null;check:chk_booking_items_quantity,quantity > 0"`
	// Price is the unit price at purchase time.
	Price decimal.Decimal `gorm:"type:numeric(12,2);not null"`

	TicketType *TicketType `gorm:"foreignKey:TicketTypeID"`
}

func (i *BookingItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}

	return nil
}

// ReserveParams describes one reservation attempt.
type ReserveParams struct {
	UserID         uuid.UUID
	TicketTypeID   uuid.UUID
	Quantity       int
	PaymentGateway string
}

type BookingDAO struct {
	db *gorm.DB
}

func NewBookingDAO(db *gorm.DB) *BookingDAO {
	return &BookingDAO{
		db: db,
	}
}

// Reserve decrements the stock of a ticket type and records a paid booking
// with a single item, all in one transaction. The ticket type row stays
// locked from the stock check until commit, so concurrent reservations of
// the same type are serialized. Any error rolls the whole unit back.
//
// It returns the booking (items included) and the ticket type as left by
// the decrement.
func (d *BookingDAO) Reserve(ctx context.Context, p ReserveParams) (Booking, TicketType, error) {
	var (
		booking    Booking
		ticketType TicketType
	)

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user User
		if err := tx.Select("id").Take(&user, "id = ?", p.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}

			return fmt.Errorf("select user -> %w", err)
		}

		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&ticketType, "id = ?", p.TicketTypeID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTicketTypeNotFound
			}

			return fmt.Errorf("lock ticket type -> %w", err)
		}

		if ticketType.RemainingQuantity < p.Quantity {
			return ErrOutOfStock
		}

		remaining := ticketType.RemainingQuantity - p.Quantity
		if err = tx.Model(&ticketType).Update("remaining_quantity", remaining).Error; err != nil {
			return fmt.Errorf("decrement stock -> %w", err)
		}
		ticketType.RemainingQuantity = remaining

		unitPrice := ticketType.Price
		booking = Booking{
			UserID:         p.UserID,
			TotalAmount:    unitPrice.Mul(decimal.NewFromInt(int64(p.Quantity))),
			Status:         BookingPaid,
			PaymentGateway: p.PaymentGateway,
		}
		if err = tx.Omit(clause.Associations).Create(&booking).Error; err != nil {
			return fmt.Errorf("insert booking -> %w", err)
		}

		item := BookingItem{
			BookingID:    booking.ID,
			TicketTypeID: ticketType.ID,
			Quantity:     p.Quantity,
			Price:        unitPrice,
		}
		if err = tx.Omit(clause.Associations).Create(&item).Error; err != nil {
			return fmt.Errorf("insert booking item -> %w", err)
		}
		booking.Items = []BookingItem{item}

		return nil
	})
	if err != nil {
		return Booking{}, TicketType{}, err
	}

	return booking, ticketType, nil
}

// FindByID loads the booking with its user and items down to the event.
func (d *BookingDAO) FindByID(ctx context.Context, id uuid.UUID) (Booking, error) {
	var booking Booking

	result := d.db.WithContext(ctx).
		Preload("User").
		Preload("Items.TicketType.Event").
		Take(&booking, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Booking{}, ErrBookingNotFound
		}

		return Booking{}, result.Error
	}

	return booking, nil
}

func (d *BookingDAO) FindByUserID(ctx context.Context, userID uuid.UUID) ([]Booking, error) {
	var bookings []Booking

	result := d.db.WithContext(ctx).
		Preload("Items.TicketType.Event").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&bookings)
	if result.Error != nil {
		return nil, result.Error
	}

	return bookings, nil
}

func (d *BookingDAO) SumPaidRevenue(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal

	err := d.db.WithContext(ctx).Model(&Booking{}).
		Select("COALESCE(SUM(total_amount), 0)").
		Where("status = ?", BookingPaid).
		Row().Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}

	return total, nil
}

func (d *BookingDAO) SumPaidTickets(ctx context.Context) (int64, error) {
	var total int64

	err := d.db.WithContext(ctx).Model(&BookingItem{}).
		Select("COALESCE(SUM(booking_items.quantity), 0)").
		Joins("JOIN bookings ON bookings.id = booking_items.booking_id").
		Where("bookings.status = ?", BookingPaid).
		Row().Scan(&total)
	if err != nil {
		return 0, err
	}

	return total, nil
}

func (d *BookingDAO) FindRecent(ctx context.Context, limit int) ([]Booking, error) {
	var bookings []Booking

	result := d.db.WithContext(ctx).
		Preload("User").
		Preload("Items.TicketType.Event").
		Order("created_at DESC").
		Limit(limit).
		Find(&bookings)
	if result.Error != nil {
		return nil, result.Error
	}

	return bookings, nil
}
