package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/trash2cash/backend/internal/model"
	"github.com/trash2cash/backend/internal/repository"
	"github.com/trash2cash/backend/internal/storage"
	"gorm.io/gorm"
)

const maxAvatarBytes = 5 << 20

type UserService interface {
	Ensure(ctx context.Context, id, name, email string) (*model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
	UpdateName(ctx context.Context, id, name string) (*model.User, error)
	UpdateAvatar(ctx context.Context, id string, image []byte, contentType string) (*model.User, error)
}

type userService struct {
	users   repository.UserRepository
	avatars storage.AvatarStore
}

func NewUserService(users repository.UserRepository, avatars storage.AvatarStore) UserService {
	return &userService{users: users, avatars: avatars}
}

func (s *userService) Ensure(ctx context.Context, id, name, email string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: user is required", ErrValidation)
	}
	return s.users.Ensure(ctx, id, name, email)
}

func (s *userService) Get(ctx context.Context, id string) (*model.User, error) {
	u, err := s.users.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *userService) UpdateName(ctx context.Context, id, name string) (*model.User, error) {
	if name == "" || len(name) > 120 {
		return nil, fmt.Errorf("%w: name must be 1-120 characters", ErrValidation)
	}
	if err := s.users.UpdateProfile(ctx, id, &name, nil); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *userService) UpdateAvatar(ctx context.Context, id string, image []byte, contentType string) (*model.User, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: image is required", ErrValidation)
	}
	if len(image) > maxAvatarBytes {
		return nil, fmt.Errorf("%w: image exceeds 5MB", ErrValidation)
	}
	if s.avatars == nil {
		return nil, errors.New("avatar storage is not configured")
	}
	url, err := s.avatars.Upload(ctx, id, image, contentType)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateProfile(ctx, id, nil, &url); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}
