package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eventpass/eventpass-api/internal/api/handler/v1/request"
	"github.com/eventpass/eventpass-api/internal/api/handler/v1/response"
	"github.com/eventpass/eventpass-api/internal/domain"
	"github.com/eventpass/eventpass-api/internal/service"
)

const maxRelatedLimit = 20

type EventService interface {
	List(ctx context.Context, f domain.EventFilter) ([]domain.Event, error)
	Search(ctx context.Context, f domain.EventFilter) ([]domain.Event, error)
	Related(ctx context.Context, eventID uuid.UUID, limit int) ([]domain.Event, error)
	GetBySlug(ctx context.Context, slug string) (domain.Event, error)
	Create(ctx context.Context, author domain.User, event domain.Event) (domain.Event, error)
}

type EventHandler struct {
	svc   EventService
	users UserFinder
}

func NewEventHandler(svc EventService, users UserFinder) *EventHandler {
	return &EventHandler{
		svc:   svc,
		users: users,
	}
}

// HandleListEvents godoc
// @Summary      List events
// @Description  Events ordered by start time, filtered by title, location and format.
// @Tags         events
// @Produce      json
// @Param        q          query  string  false  "title contains"
// @Param        location   query  string  false  "location contains, \"Tất cả\" disables the filter"
// @Param        is_online  query  bool    false  "online events only"
// @Success      200  {array}   domain.Event
// @Failure      400  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /events [get]
func (h *EventHandler) HandleListEvents(ctx *gin.Context) {
	h.find(ctx, h.svc.List)
}

// HandleSearchEvents godoc
// @Summary      Search events
// @Description  Like the listing, q also matches the description and the start date can be bounded.
// @Tags         events
// @Produce      json
// @Param        q           query  string  false  "title or description contains"
// @Param        location    query  string  false  "location contains"
// @Param        is_online   query  bool    false  "online events only"
// @Param        start_date  query  string  false  "earliest start, YYYY-MM-DD or RFC 3339"
// @Param        end_date    query  string  false  "latest start, YYYY-MM-DD or RFC 3339"
// @Success      200  {array}   domain.Event
// @Failure      400  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /events/search [get]
func (h *EventHandler) HandleSearchEvents(ctx *gin.Context) {
	h.find(ctx, h.svc.Search)
}

func (h *EventHandler) find(ctx *gin.Context, finder func(context.Context, domain.EventFilter) ([]domain.Event, error)) {
	var query request.EventQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	filter, err := query.ToFilter()
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	events, err := finder(ctx.Request.Context(), filter)
	if err != nil {
		err = fmt.Errorf("v1.EventHandler.find -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, events)
}

// HandleRelatedEvents godoc
// @Summary      Upcoming events related to an event
// @Tags         events
// @Produce      json
// @Param        id     path   string  true   "event ID"
// @Param        limit  query  int     false  "maximum number of events, default 4"
// @Success      200  {array}   domain.Event
// @Failure      400  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /events/related/{id} [get]
func (h *EventHandler) HandleRelatedEvents(ctx *gin.Context) {
	eventID, respErr := parseUUIDParam(ctx, "id")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	limit := 0
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxRelatedLimit {
			response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("limit: must be between 1 and %d", maxRelatedLimit)))
			return
		}
		limit = n
	}

	events, err := h.svc.Related(ctx.Request.Context(), eventID, limit)
	if err != nil {
		err = fmt.Errorf("v1.HandleRelatedEvents -> h.svc.Related -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, events)
}

// HandleGetEvent godoc
// @Summary      Get an event with its ticket types
// @Tags         events
// @Produce      json
// @Param        slug  path  string  true  "event slug"
// @Success      200  {object}  domain.Event
// @Failure      404  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /events/{slug} [get]
func (h *EventHandler) HandleGetEvent(ctx *gin.Context) {
	slug := ctx.Param("slug")

	event, err := h.svc.GetBySlug(ctx.Request.Context(), slug)
	if err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("event", "slug", slug))
			return
		}

		err = fmt.Errorf("v1.HandleGetEvent -> h.svc.GetBySlug -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, event)
}

// HandleCreateEvent godoc
// @Summary      Create an event with its ticket types
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        request  body      request.CreateEventRequest  true  "request body"
// @Success      201      {object}  domain.Event
// @Failure      400      {object}  response.Err
// @Failure      401      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      409      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /events [post]
// @Security     BearerAuth
func (h *EventHandler) HandleCreateEvent(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.users)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.CreateEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	event, err := h.svc.Create(ctx.Request.Context(), user, req.ToDomain())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPermissionDenied):
			response.RenderErr(ctx, response.ErrPermissionDenied(err))
		case errors.Is(err, service.ErrEventSlugExists):
			response.RenderErr(ctx, response.ErrConflict("an event with this slug already exists", service.ErrEventSlugExists))
		default:
			err = fmt.Errorf("v1.HandleCreateEvent -> h.svc.Create -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
		}
		return
	}

	ctx.JSON(http.StatusCreated, event)
}
