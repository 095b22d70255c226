package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleOrganizer = "organizer"
	RoleAdmin     = "admin"

	ProviderLocal = "local"
)

type User struct {
	ID        uuid.UUID    `json:"id"`
	Email     string       `json:"email"`
	Username  string       `json:"username,omitempty"`
	Password  string       `json:"-"`
	Role      string       `json:"role"`
	Interests []string     `json:"interests"`
	Provider  string       `json:"provider"`
	Profile   *UserProfile `json:"profile,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// CanManageEvents reports whether the user may create events and read the dashboard.
func (u User) CanManageEvents() bool {
	return u.Role == RoleOrganizer || u.Role == RoleAdmin
}

// UserProfile carries the personal and VAT invoicing details of a user.
type UserProfile struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	FullName       string    `json:"full_name"`
	Phone          string    `json:"phone"`
	Gender         string    `json:"gender"`
	BirthYear      int       `json:"birth_year,omitempty"`
	TaxCode        string    `json:"tax_code"`
	CompanyName    string    `json:"company_name"`
	CompanyAddress string    `json:"address"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (p UserProfile) HasVATInfo() bool {
	return p.TaxCode != ""
}
