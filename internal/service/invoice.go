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
	"github.com/eventpass/eventpass-api/internal/repository"
)

const staleBatchSize = 50

var ErrVATInfoMissing = errors.New("user has no tax code on file")

type InvoiceRepository interface {
	Create(ctx context.Context, invoice domain.Invoice) (domain.Invoice, error)
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) (domain.Invoice, error)
	Update(ctx context.Context, invoice domain.Invoice) error
	FindStale(ctx context.Context, before time.Time, maxAttempts, limit int) ([]domain.Invoice, error)
}

type BookingFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (domain.Booking, error)
}

type ProfileFinder interface {
	FindProfile(ctx context.Context, userID uuid.UUID) (domain.UserProfile, error)
}

type InvoiceProvider interface {
	Issue(ctx context.Context, invoice domain.Invoice) (domain.IssueResult, error)
}

type InvoiceService struct {
	invoices InvoiceRepository
	bookings BookingFinder
	profiles ProfileFinder
	provider InvoiceProvider
	conf     *config.InvoiceConfig
	now      func() time.Time
}

func NewInvoiceService(invoices InvoiceRepository, bookings BookingFinder, profiles ProfileFinder, provider InvoiceProvider, conf *config.InvoiceConfig) *InvoiceService {
	return &InvoiceService{
		invoices: invoices,
		bookings: bookings,
		profiles: profiles,
		provider: provider,
		conf:     conf,
		now:      time.Now,
	}
}

// RequestInvoice issues the VAT invoice of a booking from the user's
// profile. Calling it again for the same booking returns the existing
// invoice.
func (s *InvoiceService) RequestInvoice(ctx context.Context, bookingID, userID uuid.UUID) (domain.Invoice, error) {
	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return domain.Invoice{}, fmt.Errorf("s.bookings.FindByID -> %w", err)
	}
	if booking.UserID != userID {
		return domain.Invoice{}, ErrBookingForbidden
	}

	profile, err := s.profiles.FindProfile(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrProfileNotFound) {
		return domain.Invoice{}, fmt.Errorf("s.profiles.FindProfile -> %w", err)
	}
	if err != nil || !profile.HasVATInfo() {
		zap.L().Warn("VAT invoice requested without tax code",
			zap.String("user_id", userID.String()),
			zap.String("booking_id", bookingID.String()),
		)
		return domain.Invoice{}, ErrVATInfoMissing
	}

	existing, err := s.invoices.FindByBookingID(ctx, bookingID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrInvoiceNotFound) {
		return domain.Invoice{}, fmt.Errorf("s.invoices.FindByBookingID -> %w", err)
	}

	created, err := s.invoices.Create(ctx, domain.Invoice{
		BookingID:      bookingID,
		InvoiceCode:    fmt.Sprintf("TEMP-%d", s.now().UnixMilli()),
		Amount:         booking.TotalAmount,
		TaxCode:        profile.TaxCode,
		CompanyName:    profile.CompanyName,
		CompanyAddress: profile.CompanyAddress,
		Status:         domain.InvoiceStatusPending,
	})
	if err != nil {
		if errors.Is(err, repository.ErrInvoiceExists) {
			return s.invoices.FindByBookingID(ctx, bookingID)
		}

		return domain.Invoice{}, fmt.Errorf("s.invoices.Create -> %w", err)
	}

	return s.submit(ctx, created)
}

// submit sends the invoice to the provider and records the outcome. A
// provider error leaves the invoice PENDING for the stale sweep.
func (s *InvoiceService) submit(ctx context.Context, invoice domain.Invoice) (domain.Invoice, error) {
	invoice.Attempts++

	res, err := s.provider.Issue(ctx, invoice)
	if err != nil {
		if uerr := s.invoices.Update(ctx, invoice); uerr != nil {
			zap.L().Error("failed to record invoice attempt", zap.String("invoice_id", invoice.ID.String()), zap.Error(uerr))
		}

		return invoice, fmt.Errorf("s.provider.Issue -> %w", err)
	}

	if res.Success {
		invoice.Status = domain.InvoiceStatusSuccess
		invoice.InvoiceCode = res.InvoiceCode
		invoice.PDFURL = res.PDFURL
	} else {
		invoice.Status = domain.InvoiceStatusFailed
	}

	if err = s.invoices.Update(ctx, invoice); err != nil {
		return invoice, fmt.Errorf("s.invoices.Update -> %w", err)
	}

	zap.L().Info("invoice processed",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("status", string(invoice.Status)),
		zap.Int("attempts", invoice.Attempts),
	)

	return invoice, nil
}

// ResubmitStale retries PENDING invoices that have not moved for
// conf.StaleAfter. It returns how many were resubmitted.
func (s *InvoiceService) ResubmitStale(ctx context.Context) (int, error) {
	stale, err := s.invoices.FindStale(ctx, s.now().Add(-s.conf.StaleAfter), s.conf.MaxAttempts, staleBatchSize)
	if err != nil {
		return 0, fmt.Errorf("s.invoices.FindStale -> %w", err)
	}

	n := 0
	for _, invoice := range stale {
		if ctx.Err() != nil {
			break
		}
		if _, err = s.submit(ctx, invoice); err != nil {
			zap.L().Warn("invoice resubmission failed", zap.String("invoice_id", invoice.ID.String()), zap.Error(err))
			continue
		}
		n++
	}

	return n, nil
}
