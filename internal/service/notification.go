package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/eventpass/eventpass-api/internal/domain"
)

type TicketSender interface {
	SendTicket(ctx context.Context, booking domain.Booking) error
}

type NotificationService struct {
	bookings BookingFinder
	sender   TicketSender
}

func NewNotificationService(bookings BookingFinder, sender TicketSender) *NotificationService {
	return &NotificationService{
		bookings: bookings,
		sender:   sender,
	}
}

// SendTicketEmail mails the e-ticket of a booking to its owner.
func (s *NotificationService) SendTicketEmail(ctx context.Context, bookingID, userID uuid.UUID) error {
	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("s.bookings.FindByID -> %w", err)
	}
	if booking.UserID != userID {
		return ErrBookingForbidden
	}

	if err = s.sender.SendTicket(ctx, booking); err != nil {
		return fmt.Errorf("s.sender.SendTicket -> %w", err)
	}

	return nil
}
