package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/eventpass/eventpass-api/internal/domain"
	"github.com/eventpass/eventpass-api/internal/repository/dao"
)

var (
	ErrInvoiceNotFound = dao.ErrInvoiceNotFound
	ErrInvoiceExists   = dao.ErrInvoiceExists
)

type InvoiceDAO interface {
	Insert(ctx context.Context, invoice dao.Invoice) (dao.Invoice, error)
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) (dao.Invoice, error)
	UpdateOutcome(ctx context.Context, invoice dao.Invoice) error
	FindStale(ctx context.Context, before time.Time, maxAttempts, limit int) ([]dao.Invoice, error)
}

type InvoiceRepository struct {
	dao InvoiceDAO
}

func NewInvoiceRepository(dao InvoiceDAO) *InvoiceRepository {
	return &InvoiceRepository{
		dao: dao,
	}
}

func (r *InvoiceRepository) Create(ctx context.Context, invoice domain.Invoice) (domain.Invoice, error) {
	created, err := r.dao.Insert(ctx, invoiceDomainToDAO(invoice))
	if err != nil {
		return domain.Invoice{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return invoiceDAOToDomain(created), nil
}

func (r *InvoiceRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (domain.Invoice, error) {
	found, err := r.dao.FindByBookingID(ctx, bookingID)
	if err != nil {
		return domain.Invoice{}, fmt.Errorf("r.dao.FindByBookingID -> %w", err)
	}

	return invoiceDAOToDomain(found), nil
}

func (r *InvoiceRepository) Update(ctx context.Context, invoice domain.Invoice) error {
	if err := r.dao.UpdateOutcome(ctx, invoiceDomainToDAO(invoice)); err != nil {
		return fmt.Errorf("r.dao.UpdateOutcome -> %w", err)
	}

	return nil
}

func (r *InvoiceRepository) FindStale(ctx context.Context, before time.Time, maxAttempts, limit int) ([]domain.Invoice, error) {
	found, err := r.dao.FindStale(ctx, before, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindStale -> %w", err)
	}

	out := make([]domain.Invoice, 0, len(found))
	for _, i := range found {
		out = append(out, invoiceDAOToDomain(i))
	}

	return out, nil
}

func invoiceDomainToDAO(i domain.Invoice) dao.Invoice {
	return dao.Invoice{
		ID:             i.ID,
		BookingID:      i.BookingID,
		InvoiceCode:    i.InvoiceCode,
		Amount:         i.Amount,
		TaxCode:        i.TaxCode,
		CompanyName:    i.CompanyName,
		CompanyAddress: i.CompanyAddress,
		Status:         string(i.Status),
		PDFURL:         i.PDFURL,
		Attempts:       i.Attempts,
	}
}

func invoiceDAOToDomain(i dao.Invoice) domain.Invoice {
	return domain.Invoice{
		ID:             i.ID,
		BookingID:      i.BookingID,
		InvoiceCode:    i.InvoiceCode,
		Amount:         i.Amount,
		TaxCode:        i.TaxCode,
		CompanyName:    i.CompanyName,
		CompanyAddress: i.CompanyAddress,
		Status:         domain.InvoiceStatus(i.Status),
		PDFURL:         i.PDFURL,
		Attempts:       i.Attempts,
		CreatedAt:      i.CreatedAt,
		UpdatedAt:      i.UpdatedAt,
	}
}
