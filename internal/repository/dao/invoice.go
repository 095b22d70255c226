package dao

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrInvoiceNotFound = errors.New("invoice not found")
	ErrInvoiceExists   = errors.New("invoice already exists for booking")
)

type Invoice struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	BookingID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`

	InvoiceCode string          `gorm:"not null"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null"`

	// Snapshots of the VAT profile at request time.
	TaxCode        string `gorm:"not null"`
	CompanyName    string
	CompanyAddress string

	Status   string `gorm:"not null;index"`
	PDFURL   string `gorm:"column:pdf_url"`
	Attempts int    `gorm:"not null"`

	Booking *Booking `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null;index"`
}

func (i *Invoice) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}

	return nil
}

type InvoiceDAO struct {
	db *gorm.DB
}

func NewInvoiceDAO(db *gorm.DB) *InvoiceDAO {
	return &InvoiceDAO{
		db: db,
	}
}

func (d *InvoiceDAO) Insert(ctx context.Context, invoice Invoice) (Invoice, error) {
	result := d.db.WithContext(ctx).Omit("Booking").Create(&invoice)
	if result.Error != nil {
		var err *pgconn.PgError
		if errors.As(result.Error, &err) && err.Code == pgerrcode.UniqueViolation {
			return Invoice{}, ErrInvoiceExists
		}

		return Invoice{}, result.Error
	}

	return invoice, nil
}

func (d *InvoiceDAO) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (Invoice, error) {
	var invoice Invoice

	result := d.db.WithContext(ctx).Take(&invoice, "booking_id = ?", bookingID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Invoice{}, ErrInvoiceNotFound
		}

		return Invoice{}, result.Error
	}

	return invoice, nil
}

// UpdateOutcome persists the result of a provider submission.
func (d *InvoiceDAO) UpdateOutcome(ctx context.Context, invoice Invoice) error {
	result := d.db.WithContext(ctx).Model(&Invoice{}).Where("id = ?", invoice.ID).Updates(map[string]any{
		"invoice_code": invoice.InvoiceCode,
		"status":       invoice.Status,
		"pdf_url":      invoice.PDFURL,
		"attempts":     invoice.Attempts,
		"updated_at":   time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInvoiceNotFound
	}

	return nil
}

// FindStale returns PENDING invoices not touched since before, still under
// the attempts budget, oldest first.
func (d *InvoiceDAO) FindStale(ctx context.Context, before time.Time, maxAttempts, limit int) ([]Invoice, error) {
	var invoices []Invoice

	result := d.db.WithContext(ctx).
		Where("status = ? AND updated_at < ? AND attempts < ?", "PENDING", before, maxAttempts).
		Order("updated_at ASC").
		Limit(limit).
		Find(&invoices)
	if result.Error != nil {
		return nil, result.Error
	}

	return invoices, nil
}
