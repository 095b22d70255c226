package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/eventpass/eventpass-api/internal/domain"
	"github.com/eventpass/eventpass-api/internal/repository"
)

var (
	ErrUserNotFound    = repository.ErrUserNotFound
	ErrProfileNotFound = repository.ErrProfileNotFound
)

type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (domain.User, error)
	UpdateInterests(ctx context.Context, id uuid.UUID, interests []string) error
	SaveProfile(ctx context.Context, profile domain.UserProfile) (domain.UserProfile, error)
}

type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{
		repo: repo,
	}
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (domain.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	return user, nil
}

func (s *UserService) UpdateInterests(ctx context.Context, id uuid.UUID, interests []string) (domain.User, error) {
	if interests == nil {
		interests = []string{}
	}

	if err := s.repo.UpdateInterests(ctx, id, interests); err != nil {
		return domain.User{}, fmt.Errorf("s.repo.UpdateInterests -> %w", err)
	}

	return s.GetUser(ctx, id)
}

func (s *UserService) UpdateProfile(ctx context.Context, profile domain.UserProfile) (domain.UserProfile, error) {
	saved, err := s.repo.SaveProfile(ctx, profile)
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("s.repo.SaveProfile -> %w", err)
	}

	return saved, nil
}
