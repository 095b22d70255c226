package request

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

var errQuantityTooLow = errors.New("must be at least 1")

type CreateBookingRequest struct {
	TicketTypeID string `json:"ticketTypeId" example:"4d3c1a8e-5b7f-4a2e-9c1d-2f6b8e0a7c31"`
	// Quantity defaults to 1 when omitted.
	Quantity   *int `json:"quantity" example:"2"`
	RequestVAT bool `json:"request_vat"`
}

func (req *CreateBookingRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.TicketTypeID, validation.Required, is.UUID),
		validation.Field(&req.Quantity, validation.By(positive)),
	)
}

func (req *CreateBookingRequest) QuantityOrDefault() int {
	if req.Quantity == nil {
		return 1
	}

	return *req.Quantity
}

// positive rejects explicit values below 1, which ozzo's Min lets through
// as empty.
func positive(value any) error {
	switch v := value.(type) {
	case *int:
		if v != nil && *v < 1 {
			return errQuantityTooLow
		}
	case int:
		if v < 1 {
			return errQuantityTooLow
		}
	}

	return nil
}
