package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Event struct {
	ID          uuid.UUID       `json:"id"`
	Slug        string          `json:"slug"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	IsOnline    bool            `json:"is_online"`
	Location    string          `json:"location"`
	StartTime   time.Time       `json:"start_time"`
	EndTime     time.Time       `json:"end_time"`
	Speakers    json.RawMessage `json:"speakers,omitempty" swaggertype:"object"`
	Agenda      json.RawMessage `json:"agenda,omitempty" swaggertype:"object"`
	TicketTypes []TicketType    `json:"ticket_types"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type TicketType struct {
	ID                uuid.UUID       `json:"id"`
	EventID           uuid.UUID       `json:"event_id"`
	Name              string          `json:"name"`
	Price             decimal.Decimal `json:"price" swaggertype:"string"`
	InitialQuantity   int             `json:"initial_quantity"`
	RemainingQuantity int             `json:"remaining_quantity"`
	Event             *Event          `json:"event,omitempty"`
}

func (t TicketType) SoldOut() bool {
	return t.RemainingQuantity <= 0
}

// AnyValue is the "all" option the web client sends for any listing filter
// field (location, dates). A field holding it is not filtered on.
const AnyValue = "Tất cả"

// EventFilter narrows event listings. Zero values disable the matching condition.
type EventFilter struct {
	Q         string
	Location  string
	IsOnline  *bool
	StartDate *time.Time
	EndDate   *time.Time
	// MatchDescription makes Q match the description as well as the title.
	MatchDescription bool
}

// Availability is broadcast to live feed subscribers after a reservation commits.
type Availability struct {
	EventID           uuid.UUID `json:"event_id"`
	TicketTypeID      uuid.UUID `json:"ticket_type_id"`
	RemainingQuantity int       `json:"remaining_quantity"`
	SoldOut           bool      `json:"sold_out"`
}
