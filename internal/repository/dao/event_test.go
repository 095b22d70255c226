package dao

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var eventColumns = []string{"id", "slug", "title", "description", "is_online", "location", "start_time", "end_time"}

func TestEventDAO_Insert(t *testing.T) {
	db, mock := newMockDB(t)
	d := NewEventDAO(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "events"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "ticket_types"`).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	event, err := d.Insert(context.Background(), Event{
		Slug:      "go-meetup",
		Title:     "Go Meetup",
		StartTime: time.Now().Add(24 * time.Hour),
		EndTime:   time.Now().Add(26 * time.Hour),
		TicketTypes: []TicketType{
			{Name: "Standard", Price: decimal.NewFromInt(100000), InitialQuantity: 50, RemainingQuantity: 50},
			{Name: "VIP", Price: decimal.NewFromInt(500000), InitialQuantity: 5, RemainingQuantity: 5},
		},
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, event.ID)
	for _, tt := range event.TicketTypes {
		assert.Equal(t, event.ID, tt.EventID)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventDAO_Insert_DuplicateSlug(t *testing.T) {
	db, mock := newMockDB(t)
	d := NewEventDAO(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "events"`).WillReturnError(&pgconn.PgError{
		Code:    pgerrcode.UniqueViolation,
		Message: `duplicate key value violates unique constraint "uni_events_slug"`,
	})
	mock.ExpectRollback()

	_, err := d.Insert(context.Background(), Event{Slug: "go-meetup", Title: "Go Meetup"})
	assert.ErrorIs(t, err, ErrEventSlugExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventDAO_Find(t *testing.T) {
	db, mock := newMockDB(t)
	d := NewEventDAO(db)

	eventID := uuid.New()
	online := false
	start := time.Date(2026, 11, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT \* FROM "events" WHERE \(title ILIKE \$1 OR description ILIKE \$2\) AND location ILIKE \$3 AND is_online = \$4 ORDER BY start_time ASC`).
		WithArgs("%go%", "%go%", "%Hà Nội%", false).
		WillReturnRows(sqlmock.NewRows(eventColumns).
			AddRow(eventID.String(), "go-meetup", "Go Meetup", "", false, "Hà Nội", start, start.Add(2*time.Hour)))
	mock.ExpectQuery(`SELECT \* FROM "ticket_types" WHERE "ticket_types"."event_id" = \$1`).
		WithArgs(eventID).
		WillReturnRows(sqlmock.NewRows(ticketTypeColumns).
			AddRow(uuid.NewString(), eventID.String(), "Standard", "100000.00", 50, 12).
			AddRow(uuid.NewString(), eventID.String(), "VIP", "500000.00", 5, 0))

	events, err := d.Find(context.Background(), EventQuery{
		Q:                "go",
		MatchDescription: true,
		Location:         "Hà Nội",
		IsOnline:         &online,
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "go-meetup", events[0].Slug)
	require.Len(t, events[0].TicketTypes, 2)
	assert.Equal(t, 0, events[0].TicketTypes[1].RemainingQuantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventDAO_Find_SearchOnly(t *testing.T) {
	db, mock := newMockDB(t)
	d := NewEventDAO(db)

	mock.ExpectQuery(`SELECT \* FROM "events" WHERE title ILIKE \$1 OR description ILIKE \$2 ORDER BY start_time ASC`).
		WithArgs("%gopher%", "%gopher%").
		WillReturnRows(sqlmock.NewRows(eventColumns))

	events, err := d.Find(context.Background(), EventQuery{Q: "gopher", MatchDescription: true})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventDAO_FindBySlug_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	d := NewEventDAO(db)

	mock.ExpectQuery(`SELECT \* FROM "events" WHERE slug = \$1`).
		WillReturnRows(sqlmock.NewRows(eventColumns))

	_, err := d.FindBySlug(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrEventNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
