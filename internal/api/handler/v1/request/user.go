package request

import (
	"errors"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

var (
	taxCodeExp = regexp.MustCompile(`^\d{10}(-\d{3})?$`)
	phoneExp   = regexp.MustCompile(`^\+?[0-9]{8,15}$`)

	errCompanyRequired = errors.New("company_name and address are required with a tax_code")
)

type UpdateInterestsRequest struct {
	Interests []string `json:"interests"`
}

func (req *UpdateInterestsRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Interests, validation.Length(0, 20)),
	)
}

type UpdateProfileRequest struct {
	FullName    string `json:"full_name"`
	Phone       string `json:"phone"`
	Gender      string `json:"gender" enums:"male,female,other"`
	BirthYear   int    `json:"birth_year"`
	TaxCode     string `json:"tax_code" example:"0101234567"`
	CompanyName string `json:"company_name"`
	Address     string `json:"address"`
}

func (req *UpdateProfileRequest) Validate() error {
	err := validation.ValidateStruct(
		req,
		validation.Field(&req.FullName, validation.Length(0, 100)),
		validation.Field(&req.Phone, validation.Match(phoneExp)),
		validation.Field(&req.Gender, validation.In("male", "female", "other")),
		validation.Field(&req.BirthYear, validation.Min(1900), validation.Max(time.Now().Year())),
		validation.Field(&req.TaxCode, validation.Match(taxCodeExp)),
		validation.Field(&req.CompanyName, validation.Length(0, 255)),
		validation.Field(&req.Address, validation.Length(0, 255)),
	)
	if err != nil {
		return err
	}

	if req.TaxCode != "" && (req.CompanyName == "" || req.Address == "") {
		return errCompanyRequired
	}

	return nil
}
