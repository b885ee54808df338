package services

import (
	"context"
	"time"

	"github.com/userhub/apiserver/types"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	FindByID(ctx context.Context, id bson.ObjectID) (types.User, error)
	FindByEmail(ctx context.Context, email string) (types.User, error)
	FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Save(ctx context.Context, user types.User) (types.User, error)
	Delete(ctx context.Context, id bson.ObjectID) error
	List(ctx context.Context, offset, limit int) ([]types.User, int, error)
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetByID(ctx context.Context, id bson.ObjectID) (types.User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return s.repo.FindByEmail(ctx, email)
}

// GetByResetToken resolves the user holding a still-valid reset token hash.
func (s *UserService) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (types.User, error) {
	return s.repo.FindByResetToken(ctx, tokenHash, now)
}

func (s *UserService) Create(ctx context.Context, user types.User) (types.User, error) {
	return s.repo.Create(ctx, user)
}

func (s *UserService) Save(ctx context.Context, user types.User) (types.User, error) {
	return s.repo.Save(ctx, user)
}

func (s *UserService) Delete(ctx context.Context, id bson.ObjectID) error {
	return s.repo.Delete(ctx, id)
}

func (s *UserService) List(ctx context.Context, offset, limit int) ([]types.User, int, error) {
	return s.repo.List(ctx, offset, limit)
}
