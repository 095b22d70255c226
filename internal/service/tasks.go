package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/eventpass/eventpass-api/internal/queue"
)

// RegisterTaskHandlers binds the post-booking task types to their services.
func RegisterTaskHandlers(r *queue.Router, notifications *NotificationService, invoices *InvoiceService) {
	r.Handle(queue.TaskTicketEmail, func(ctx context.Context, t queue.Task) error {
		return notifications.SendTicketEmail(ctx, t.BookingID, t.UserID)
	})

	r.Handle(queue.TaskInvoiceRequest, func(ctx context.Context, t queue.Task) error {
		_, err := invoices.RequestInvoice(ctx, t.BookingID, t.UserID)
		if errors.Is(err, ErrVATInfoMissing) {
			// Nothing to retry until the user fills in a tax code.
			zap.L().Info("skipping invoice request", zap.String("booking_id", t.BookingID.String()))
			return nil
		}

		return err
	})
}
