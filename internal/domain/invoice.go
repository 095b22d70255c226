package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "PENDING"
	InvoiceStatusSuccess InvoiceStatus = "SUCCESS"
	InvoiceStatusFailed  InvoiceStatus = "FAILED"
)

type Invoice struct {
	ID             uuid.UUID       `json:"id"`
	BookingID      uuid.UUID       `json:"booking_id"`
	InvoiceCode    string          `json:"invoice_code"`
	Amount         decimal.Decimal `json:"amount" swaggertype:"string"`
	TaxCode        string          `json:"tax_code"`
	CompanyName    string          `json:"company_name"`
	CompanyAddress string          `json:"company_address"`
	Status         InvoiceStatus   `json:"status"`
	PDFURL         string          `json:"pdf_url,omitempty"`
	Attempts       int             `json:"attempts"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// IssueResult is what an e-invoice provider returns for a submitted invoice.
type IssueResult struct {
	Success     bool
	InvoiceCode string
	PDFURL      string
}
