package service

import (
	"context"
	"errors"
	"scholarstream/internal/common"
	"scholarstream/internal/domain/model"
	"scholarstream/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type UserService struct {
	userRepo repository.UserRepository
	policy   *AccessPolicy
	log      logrus.FieldLogger
}

func NewUserService(userRepo repository.UserRepository, policy *AccessPolicy, log logrus.FieldLogger) *UserService {
	return &UserService{userRepo: userRepo, policy: policy, log: log}
}

// RegisterUserRequest is the profile sent on first sign-in. Email and role are
// never taken from the body.
type RegisterUserRequest struct {
	Name     string `json:"name"`
	PhotoURL string `json:"photoURL"`
}

// Register records the caller on first sign-in as a student. It reports
// created=false when the user already exists, including when a concurrent
// sign-in won the insert.
func (s *UserService) Register(ctx context.Context, caller *model.Identity, req RegisterUserRequest) (*model.User, bool, error) {
	if caller == nil {
		return nil, false, common.Errorf("authentication required: %w", common.ErrUnauthorized)
	}

	existing, err := s.userRepo.FindByEmail(ctx, caller.Email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, false, err
	}

	name := req.Name
	if name == "" {
		name = caller.Name
	}
	photo := req.PhotoURL
	if photo == "" {
		photo = caller.Picture
	}
	user := &model.User{
		ID:       uuid.NewString(),
		Email:    caller.Email,
		Name:     name,
		PhotoURL: photo,
		Role:     model.RoleStudent,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, common.ErrConflict) {
			existing, findErr := s.userRepo.FindByEmail(ctx, caller.Email)
			if findErr != nil {
				return nil, false, findErr
			}
			return existing, false, nil
		}
		return nil, false, err
	}

	s.log.WithField("email", user.Email).Info("user registered")
	return user, true, nil
}

func (s *UserService) List(ctx context.Context, caller *model.Identity) ([]model.User, error) {
	if err := s.policy.RequireAdmin(ctx, caller); err != nil {
		return nil, err
	}
	return s.userRepo.List(ctx)
}

// RoleFor is public; unknown or empty emails resolve to student.
func (s *UserService) RoleFor(ctx context.Context, email string) (model.Role, error) {
	return s.policy.RoleOf(ctx, email)
}

func (s *UserService) UpdateRole(ctx context.Context, caller *model.Identity, id, role string) (*model.User, error) {
	if err := s.policy.RequireAdmin(ctx, caller); err != nil {
		return nil, err
	}
	parsed, err := model.ParseRole(role)
	if err != nil {
		return nil, common.Errorf("%v: %w", err, common.ErrValidation)
	}

	user, err := s.userRepo.UpdateRole(ctx, id, parsed)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"user_id": id, "role": parsed, "by": caller.Email}).Info("user role changed")
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, caller *model.Identity, id string) error {
	if err := s.policy.RequireAdmin(ctx, caller); err != nil {
		return err
	}
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"user_id": id, "by": caller.Email}).Info("user deleted")
	return nil
}
