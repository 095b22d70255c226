package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/eventpass/eventpass-api/internal/domain"
	"github.com/eventpass/eventpass-api/internal/repository/dao"
)

var (
	ErrUserEmailExists = dao.ErrUserEmailExists
	ErrUserNotFound    = dao.ErrUserNotFound
	ErrProfileNotFound = dao.ErrProfileNotFound
)

type UserDAO interface {
	Insert(ctx context.Context, user dao.User) (dao.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (dao.User, error)
	FindByEmail(ctx context.Context, email string) (dao.User, error)
	UpdateInterests(ctx context.Context, id uuid.UUID, interests dao.StringList) error
	FindProfileByUserID(ctx context.Context, userID uuid.UUID) (dao.UserProfile, error)
	UpsertProfile(ctx context.Context, profile dao.UserProfile) (dao.UserProfile, error)
}

type UserRepository struct {
	dao UserDAO
}

func NewUserRepository(dao UserDAO) *UserRepository {
	return &UserRepository{
		dao: dao,
	}
}

func (r *UserRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	var username *string
	if user.Username != "" {
		username = &user.Username
	}

	created, err := r.dao.Insert(ctx, dao.User{
		Email:        user.Email,
		Username:     username,
		PasswordHash: user.Password,
		Role:         user.Role,
		Interests:    dao.StringList(user.Interests),
		Provider:     user.Provider,
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return userDAOToDomain(created), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return userDAOToDomain(found), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	found, err := r.dao.FindByEmail(ctx, email)
	if err != nil {
		return domain.User{}, fmt.Errorf("r.dao.FindByEmail -> %w", err)
	}

	return userDAOToDomain(found), nil
}

func (r *UserRepository) UpdateInterests(ctx context.Context, id uuid.UUID, interests []string) error {
	if err := r.dao.UpdateInterests(ctx, id, dao.StringList(interests)); err != nil {
		return fmt.Errorf("r.dao.UpdateInterests -> %w", err)
	}

	return nil
}

func (r *UserRepository) FindProfile(ctx context.Context, userID uuid.UUID) (domain.UserProfile, error) {
	found, err := r.dao.FindProfileByUserID(ctx, userID)
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("r.dao.FindProfileByUserID -> %w", err)
	}

	return profileDAOToDomain(found), nil
}

func (r *UserRepository) SaveProfile(ctx context.Context, profile domain.UserProfile) (domain.UserProfile, error) {
	var birthYear *int
	if profile.BirthYear != 0 {
		birthYear = &profile.BirthYear
	}

	saved, err := r.dao.UpsertProfile(ctx, dao.UserProfile{
		UserID:      profile.UserID,
		FullName:    profile.FullName,
		Phone:       profile.Phone,
		Gender:      profile.Gender,
		BirthYear:   birthYear,
		TaxCode:     profile.TaxCode,
		CompanyName: profile.CompanyName,
		Address:     profile.CompanyAddress,
	})
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("r.dao.UpsertProfile -> %w", err)
	}

	return profileDAOToDomain(saved), nil
}

func userDAOToDomain(u dao.User) domain.User {
	user := domain.User{
		ID:        u.ID,
		Email:     u.Email,
		Password:  u.PasswordHash,
		Role:      u.Role,
		Interests: []string(u.Interests),
		Provider:  u.Provider,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if u.Username != nil {
		user.Username = *u.Username
	}
	if user.Interests == nil {
		user.Interests = []string{}
	}
	if u.Profile != nil {
		profile := profileDAOToDomain(*u.Profile)
		user.Profile = &profile
	}

	return user
}

func profileDAOToDomain(p dao.UserProfile) domain.UserProfile {
	profile := domain.UserProfile{
		ID:             p.ID,
		UserID:         p.UserID,
		FullName:       p.FullName,
		Phone:          p.Phone,
		Gender:         p.Gender,
		TaxCode:        p.TaxCode,
		CompanyName:    p.CompanyName,
		CompanyAddress: p.Address,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if p.BirthYear != nil {
		profile.BirthYear = *p.BirthYear
	}

	return profile
}
