package response

type CreateBookingResponse struct {
	Status     string `json:"status"`
	BookingID  string `json:"booking_id"`
	PaymentURL string `json:"payment_url"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
