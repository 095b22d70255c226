package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eventpass/eventpass-api/internal/api/handler/v1/request"
	"github.com/eventpass/eventpass-api/internal/api/handler/v1/response"
	"github.com/eventpass/eventpass-api/internal/config"
	"github.com/eventpass/eventpass-api/internal/domain"
	"github.com/eventpass/eventpass-api/internal/service"
)

const (
	statusTextSoldOut           = "ticket type is sold out"
	statusTextReservationFailed = "could not complete the booking, please try again"
)

type BookingService interface {
	Reserve(ctx context.Context, req domain.ReservationRequest) (domain.Reservation, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error)
	RequestTicketEmail(ctx context.Context, bookingID, userID uuid.UUID) error
	Stats(ctx context.Context) (domain.DashboardStats, error)
}

type BookingHandler struct {
	conf *config.APIConfig
	svc  BookingService
}

func NewBookingHandler(conf *config.APIConfig, svc BookingService) *BookingHandler {
	return &BookingHandler{
		conf: conf,
		svc:  svc,
	}
}

// HandleCreateBooking godoc
// @Summary      Reserve tickets
// @Description  Locks the ticket type, checks and decrements its stock and records a paid booking in one transaction.
// @Tags         booking
// @Accept       json
// @Produce      json
// @Param        request  body      request.CreateBookingRequest  true  "request body"
// @Success      201      {object}  response.CreateBookingResponse
// @Failure      400      {object}  response.Err
// @Failure      401      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      409      {object}  response.Err
// @Failure      429      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /booking/create [post]
// @Security     BearerAuth
func (h *BookingHandler) HandleCreateBooking(ctx *gin.Context) {
	userID, respErr := getUserIDFromContext(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.CreateBookingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	ticketTypeID := uuid.MustParse(req.TicketTypeID)

	res, err := h.svc.Reserve(ctx.Request.Context(), domain.ReservationRequest{
		UserID:       userID,
		TicketTypeID: ticketTypeID,
		Quantity:     req.QuantityOrDefault(),
		RequestVAT:   req.RequestVAT,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidQuantity):
			response.RenderErr(ctx, response.ErrBadRequest(err))
		case errors.Is(err, service.ErrTicketTypeNotFound):
			response.RenderErr(ctx, response.ErrNotFound("ticket type", "id", ticketTypeID))
		case errors.Is(err, service.ErrUserNotFound):
			response.RenderErr(ctx, response.ErrNotFound("user", "id", userID))
		case errors.Is(err, service.ErrOutOfStock):
			response.RenderErr(ctx, response.ErrConflict(statusTextSoldOut, service.ErrOutOfStock))
		default:
			err = fmt.Errorf("v1.HandleCreateBooking -> h.svc.Reserve -> %w", err)
			response.RenderErr(ctx, response.ErrInternal(statusTextReservationFailed, err))
		}
		return
	}

	ctx.JSON(http.StatusCreated, response.CreateBookingResponse{
		Status:     "success",
		BookingID:  res.BookingID.String(),
		PaymentURL: h.conf.PaymentReturnURL,
	})
}

// HandleListMyBookings godoc
// @Summary      Bookings of the authenticated user, newest first
// @Tags         booking
// @Produce      json
// @Success      200  {array}   domain.Booking
// @Failure      401  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /booking/me [get]
// @Security     BearerAuth
func (h *BookingHandler) HandleListMyBookings(ctx *gin.Context) {
	userID, respErr := getUserIDFromContext(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	bookings, err := h.svc.ListForUser(ctx.Request.Context(), userID)
	if err != nil {
		err = fmt.Errorf("v1.HandleListMyBookings -> h.svc.ListForUser -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, bookings)
}

// HandleSendTicketEmail godoc
// @Summary      Send the e-ticket of a booking again
// @Tags         booking
// @Produce      json
// @Param        id   path      string  true  "booking ID"
// @Success      202  {object}  response.MessageResponse
// @Failure      400  {object}  response.Err
// @Failure      401  {object}  response.Err
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      503  {object}  response.Err
// @Router       /booking/send-email/{id} [post]
// @Security     BearerAuth
func (h *BookingHandler) HandleSendTicketEmail(ctx *gin.Context) {
	userID, respErr := getUserIDFromContext(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	bookingID, respErr := parseUUIDParam(ctx, "id")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	err := h.svc.RequestTicketEmail(ctx.Request.Context(), bookingID, userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBookingNotFound):
			response.RenderErr(ctx, response.ErrNotFound("booking", "id", bookingID))
		case errors.Is(err, service.ErrBookingForbidden):
			response.RenderErr(ctx, response.ErrPermissionDenied(err))
		case errors.Is(err, service.ErrEnqueueFailed):
			response.RenderErr(ctx, response.ErrServiceUnavailable(err))
		default:
			err = fmt.Errorf("v1.HandleSendTicketEmail -> h.svc.RequestTicketEmail -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
		}
		return
	}

	ctx.JSON(http.StatusAccepted, response.MessageResponse{
		Success: true,
		Message: "the ticket e-mail will be sent shortly",
	})
}

// HandleDashboardStats godoc
// @Summary      Revenue and ticket totals with the latest bookings
// @Tags         booking
// @Produce      json
// @Success      200  {object}  domain.DashboardStats
// @Failure      401  {object}  response.Err
// @Failure      403  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /booking/stats [get]
// @Security     BearerAuth
func (h *BookingHandler) HandleDashboardStats(ctx *gin.Context) {
	stats, err := h.svc.Stats(ctx.Request.Context())
	if err != nil {
		err = fmt.Errorf("v1.HandleDashboardStats -> h.svc.Stats -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, stats)
}
