package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/eventpass/eventpass-api/internal/domain"
	"github.com/eventpass/eventpass-api/internal/repository/dao"
)

var (
	ErrEventNotFound      = dao.ErrEventNotFound
	ErrEventSlugExists    = dao.ErrEventSlugExists
	ErrTicketTypeNotFound = dao.ErrTicketTypeNotFound
)

type EventDAO interface {
	Insert(ctx context.Context, event dao.Event) (dao.Event, error)
	Find(ctx context.Context, q dao.EventQuery) ([]dao.Event, error)
	FindByID(ctx context.Context, id uuid.UUID) (dao.Event, error)
	FindBySlug(ctx context.Context, slug string) (dao.Event, error)
	FindRelated(ctx context.Context, event dao.Event, now time.Time, limit int) ([]dao.Event, error)
	FindTicketType(ctx context.Context, id uuid.UUID) (dao.TicketType, error)
}

type EventRepository struct {
	dao EventDAO
}

func NewEventRepository(dao EventDAO) *EventRepository {
	return &EventRepository{
		dao: dao,
	}
}

func (r *EventRepository) Create(ctx context.Context, event domain.Event) (domain.Event, error) {
	created, err := r.dao.Insert(ctx, eventDomainToDAO(event))
	if err != nil {
		return domain.Event{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return eventDAOToDomain(created), nil
}

func (r *EventRepository) Find(ctx context.Context, filter domain.EventFilter) ([]domain.Event, error) {
	q := dao.EventQuery{
		Q:                filter.Q,
		MatchDescription: filter.MatchDescription,
		IsOnline:         filter.IsOnline,
		StartFrom:        filter.StartDate,
		StartUntil:       filter.EndDate,
	}
	if filter.Location != domain.AnyValue {
		q.Location = filter.Location
	}

	found, err := r.dao.Find(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("r.dao.Find -> %w", err)
	}

	return eventsDAOToDomain(found), nil
}

func (r *EventRepository) FindBySlug(ctx context.Context, slug string) (domain.Event, error) {
	found, err := r.dao.FindBySlug(ctx, slug)
	if err != nil {
		return domain.Event{}, fmt.Errorf("r.dao.FindBySlug -> %w", err)
	}

	return eventDAOToDomain(found), nil
}

func (r *EventRepository) FindByID(ctx context.Context, id uuid.UUID) (domain.Event, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.Event{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return eventDAOToDomain(found), nil
}

func (r *EventRepository) FindRelated(ctx context.Context, event domain.Event, now time.Time, limit int) ([]domain.Event, error) {
	found, err := r.dao.FindRelated(ctx, dao.Event{ID: event.ID, Location: event.Location}, now, limit)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindRelated -> %w", err)
	}

	return eventsDAOToDomain(found), nil
}

func (r *EventRepository) FindTicketType(ctx context.Context, id uuid.UUID) (domain.TicketType, error) {
	found, err := r.dao.FindTicketType(ctx, id)
	if err != nil {
		return domain.TicketType{}, fmt.Errorf("r.dao.FindTicketType -> %w", err)
	}

	return ticketTypeDAOToDomain(found), nil
}

func eventDomainToDAO(e domain.Event) dao.Event {
	ticketTypes := make([]dao.TicketType, 0, len(e.TicketTypes))
	for _, t := range e.TicketTypes {
		ticketTypes = append(ticketTypes, dao.TicketType{
			ID:                t.ID,
			Name:              t.Name,
			Price:             t.Price,
			InitialQuantity:   t.InitialQuantity,
			RemainingQuantity: t.RemainingQuantity,
		})
	}

	return dao.Event{
		ID:          e.ID,
		Slug:        e.Slug,
		Title:       e.Title,
		Description: e.Description,
		IsOnline:    e.IsOnline,
		Location:    e.Location,
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		Speakers:    dao.JSON(e.Speakers),
		Agenda:      dao.JSON(e.Agenda),
		TicketTypes: ticketTypes,
	}
}

func eventDAOToDomain(e dao.Event) domain.Event {
	ticketTypes := make([]domain.TicketType, 0, len(e.TicketTypes))
	for _, t := range e.TicketTypes {
		ticketTypes = append(ticketTypes, ticketTypeDAOToDomain(t))
	}

	return domain.Event{
		ID:          e.ID,
		Slug:        e.Slug,
		Title:       e.Title,
		Description: e.Description,
		IsOnline:    e.IsOnline,
		Location:    e.Location,
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		Speakers:    json.RawMessage(e.Speakers),
		Agenda:      json.RawMessage(e.Agenda),
		TicketTypes: ticketTypes,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func eventsDAOToDomain(events []dao.Event) []domain.Event {
	out := make([]domain.Event, 0, len(events))
	for _, e := range events {
		out = append(out, eventDAOToDomain(e))
	}

	return out
}

func ticketTypeDAOToDomain(t dao.TicketType) domain.TicketType {
	tt := domain.TicketType{
		ID:                t.ID,
		EventID:           t.EventID,
		Name:              t.Name,
		Price:             t.Price,
		InitialQuantity:   t.InitialQuantity,
		RemainingQuantity: t.RemainingQuantity,
	}
	if t.Event != nil {
		event := eventDAOToDomain(*t.Event)
		tt.Event = &event
	}

	return tt
}
