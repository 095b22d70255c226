// Package queue carries the work that follows a committed reservation:
// ticket e-mails and e-invoice requests. Tasks never run inside the
// reservation's database transaction.
package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TaskType string

const (
	TaskTicketEmail    TaskType = "ticket.email"
	TaskInvoiceRequest TaskType = "invoice.request"
)

type Task struct {
	ID         uuid.UUID `json:"id"`
	Type       TaskType  `json:"type"`
	BookingID  uuid.UUID `json:"booking_id"`
	UserID     uuid.UUID `json:"user_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

func NewTask(t TaskType, bookingID, userID uuid.UUID) Task {
	return Task{
		ID:         uuid.New(),
		Type:       t,
		BookingID:  bookingID,
		UserID:     userID,
		EnqueuedAt: time.Now().UTC(),
	}
}

// Publisher hands a task over to the workers. Implementations must not block
// for long: they are called on the request path.
type Publisher interface {
	Publish(ctx context.Context, task Task) error
}
