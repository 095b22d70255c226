package dao

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrEventNotFound      = errors.New("event not found")
	ErrEventSlugExists    = errors.New("event slug already exists")
	ErrTicketTypeNotFound = errors.New("ticket type not found")
)

type Event struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	Slug        string `gorm:"unique;not null"`
	Title       string `gorm:"not null"`
	Description string `gorm:"type:text"`
	IsOnline    bool   `gorm:"not null"`
	Location    string

	StartTime time.Time `gorm:"type:timestamptz;not null;index"`
	EndTime   time.Time `gorm:"type:timestamptz;not null"`

	Speakers JSON `gorm:"type:jsonb"`
	Agenda   JSON `gorm:"type:jsonb"`

	TicketTypes []TicketType `gorm:"foreignKey:EventID"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (e *Event) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	return nil
}

// TicketType rows are created with their event. Afterwards only
// RemainingQuantity changes, and only through BookingDAO.Reserve.
type TicketType struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	EventID uuid.UUID `gorm:"type:uuid;not null;index"`

	Name              string          `gorm:"not null"`
	Price             decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	InitialQuantity   int             `gorm:"not null;check:chk_ticket_types_initial_quantity,initial_quantity >= 0"`
	RemainingQuantity int             `gorm:"not null;check:chk_ticket_types_remaining_quantity,remaining_quantity >= 0 AND remaining_quantity <= initial_quantity"`

	Event *Event `gorm:"foreignKey:EventID"`
}

func (t *TicketType) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	return nil
}

// EventQuery holds the optional listing conditions.
type EventQuery struct {
	Q                string
	MatchDescription bool
	Location         string
	IsOnline         *bool
	StartFrom        *time.Time
	StartUntil       *time.Time
}

type EventDAO struct {
	db *gorm.DB
}

func NewEventDAO(db *gorm.DB) *EventDAO {
	return &EventDAO{
		db: db,
	}
}

// Insert stores the event together with its ticket types.
func (d *EventDAO) Insert(ctx context.Context, event Event) (Event, error) {
	result := d.db.WithContext(ctx).Create(&event)
	if result.Error != nil {
		var err *pgconn.PgError
		if errors.As(result.Error, &err) &&
			err.Code == pgerrcode.UniqueViolation &&
			strings.Contains(err.Message, `unique constraint "uni_events_slug"`) {
			return Event{}, ErrEventSlugExists
		}

		return Event{}, result.Error
	}

	return event, nil
}

func (d *EventDAO) Find(ctx context.Context, q EventQuery) ([]Event, error) {
	tx := d.db.WithContext(ctx).Model(&Event{}).Preload("TicketTypes")

	if q.Q != "" {
		like := "%" + q.Q + "%"
		if q.MatchDescription {
			tx = tx.Where("title ILIKE ? OR description ILIKE ?", like, like)
		} else {
			tx = tx.Where("title ILIKE ?", like)
		}
	}
	if q.Location != "" {
		tx = tx.Where("location ILIKE ?", "%"+q.Location+"%")
	}
	if q.IsOnline != nil {
		tx = tx.Where("is_online = ?", *q.IsOnline)
	}
	if q.StartFrom != nil {
		tx = tx.Where("start_time >= ?", *q.StartFrom)
	}
	if q.StartUntil != nil {
		tx = tx.Where("start_time <= ?", *q.StartUntil)
	}

	var events []Event
	if err := tx.Order("start_time ASC").Find(&events).Error; err != nil {
		return nil, err
	}

	return events, nil
}

func (d *EventDAO) FindByID(ctx context.Context, id uuid.UUID) (Event, error) {
	var event Event

	result := d.db.WithContext(ctx).Preload("TicketTypes").Take(&event, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Event{}, ErrEventNotFound
		}

		return Event{}, result.Error
	}

	return event, nil
}

func (d *EventDAO) FindBySlug(ctx context.Context, slug string) (Event, error) {
	var event Event

	result := d.db.WithContext(ctx).Preload("TicketTypes").Take(&event, "slug = ?", slug)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Event{}, ErrEventNotFound
		}

		return Event{}, result.Error
	}

	return event, nil
}

// FindRelated returns upcoming events other than the given one, restricted
// to its location when it has one.
func (d *EventDAO) FindRelated(ctx context.Context, event Event, now time.Time, limit int) ([]Event, error) {
	tx := d.db.WithContext(ctx).Model(&Event{}).Preload("TicketTypes").
		Where("id <> ?", event.ID).
		Where("start_time > ?", now)
	if event.Location != "" {
		tx = tx.Where("location ILIKE ?", "%"+event.Location+"%")
	}

	var events []Event
	if err := tx.Order("start_time ASC").Limit(limit).Find(&events).Error; err != nil {
		return nil, err
	}

	return events, nil
}

func (d *EventDAO) FindTicketType(ctx context.Context, id uuid.UUID) (TicketType, error) {
	var tt TicketType

	result := d.db.WithContext(ctx).Take(&tt, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return TicketType{}, ErrTicketTypeNotFound
		}

		return TicketType{}, result.Error
	}

	return tt, nil
}
