package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/shopspring/decimal"

	"github.com/eventpass/eventpass-api/internal/domain"
)

const dateLayout = "2006-01-02"

var (
	errEndBeforeStart = errors.New("end_time must be after start_time")
	errNegativePrice  = errors.New("must not be negative")
)

// EventQuery is shared by the listing and search endpoints.
type EventQuery struct {
	Q         string `form:"q"`
	Location  string `form:"location"`
	IsOnline  string `form:"is_online" enums:"true,false"`
	StartDate string `form:"start_date" example:"2026-01-31"`
	EndDate   string `form:"end_date" example:"2026-12-31"`
}

func (q *EventQuery) ToFilter() (domain.EventFilter, error) {
	f := domain.EventFilter{
		Q:        strings.TrimSpace(q.Q),
		Location: strings.TrimSpace(q.Location),
	}

	switch q.IsOnline {
	case "true":
		v := true
		f.IsOnline = &v
	case "false":
		v := false
		f.IsOnline = &v
	}

	var err error
	if f.StartDate, err = parseDate(q.StartDate); err != nil {
		return domain.EventFilter{}, fmt.Errorf("start_date: %w", err)
	}
	if f.EndDate, err = parseDate(q.EndDate); err != nil {
		return domain.EventFilter{}, fmt.Errorf("end_date: %w", err)
	}

	return f, nil
}

// parseDate accepts RFC 3339 timestamps and plain dates. Empty and the
// catch-all value mean no bound.
func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == domain.AnyValue {
		return nil, nil
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}

	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("expected YYYY-MM-DD or RFC 3339, got %q", s)
	}

	return &t, nil
}

type TicketTypeRequest struct {
	Name     string          `json:"name" example:"Early Bird"`
	Price    decimal.Decimal `json:"price" swaggertype:"string" example:"150000"`
	Quantity int             `json:"quantity" example:"100"`
}

func (req TicketTypeRequest) Validate() error {
	return validation.ValidateStruct(
		&req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&req.Price, validation.By(nonNegativePrice)),
		validation.Field(&req.Quantity, validation.Required, validation.Min(1)),
	)
}

func nonNegativePrice(value any) error {
	if d, ok := value.(decimal.Decimal); ok && d.IsNegative() {
		return errNegativePrice
	}

	return nil
}

type CreateEventRequest struct {
	Title       string              `json:"title" example:"Go Meetup Hà Nội"`
	Slug        string              `json:"slug,omitempty"`
	Description string              `json:"description"`
	IsOnline    bool                `json:"is_online"`
	Location    string              `json:"location" example:"Hà Nội"`
	StartTime   time.Time           `json:"start_time"`
	EndTime     time.Time           `json:"end_time"`
	Speakers    json.RawMessage     `json:"speakers,omitempty" swaggertype:"object"`
	Agenda      json.RawMessage     `json:"agenda,omitempty" swaggertype:"object"`
	TicketTypes []TicketTypeRequest `json:"ticket_types"`
}

func (req *CreateEventRequest) Validate() error {
	err := validation.ValidateStruct(
		req,
		validation.Field(&req.Title, validation.Required, validation.Length(2, 200)),
		validation.Field(&req.Slug, validation.Length(0, 200)),
		validation.Field(&req.Location, validation.Length(0, 255)),
		validation.Field(&req.StartTime, validation.Required),
		validation.Field(&req.EndTime, validation.Required),
		validation.Field(&req.TicketTypes, validation.Required),
	)
	if err != nil {
		return err
	}

	if !req.EndTime.After(req.StartTime) {
		return errEndBeforeStart
	}

	return nil
}

func (req *CreateEventRequest) ToDomain() domain.Event {
	ticketTypes := make([]domain.TicketType, 0, len(req.TicketTypes))
	for _, t := range req.TicketTypes {
		ticketTypes = append(ticketTypes, domain.TicketType{
			Name:            t.Name,
			Price:           t.Price,
			InitialQuantity: t.Quantity,
		})
	}

	return domain.Event{
		Slug:        req.Slug,
		Title:       req.Title,
		Description: req.Description,
		IsOnline:    req.IsOnline,
		Location:    req.Location,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Speakers:    req.Speakers,
		Agenda:      req.Agenda,
		TicketTypes: ticketTypes,
	}
}
