package service

import (
	"context"
	"errors"
	"scholarstream/internal/common"
	"scholarstream/internal/domain/model"
	"scholarstream/internal/domain/repository"
)

// AccessPolicy answers every authorization question in one place. Roles are
// read from the user store on each call, so a role change applies to the
// caller's next request.
type AccessPolicy struct {
	users repository.UserRepository
}

func NewAccessPolicy(users repository.UserRepository) *AccessPolicy {
	return &AccessPolicy{users: users}
}

// RoleOf returns the stored role for email. An unknown user is a student; a
// storage failure is returned as is.
func (p *AccessPolicy) RoleOf(ctx context.Context, email string) (model.Role, error) {
	email = model.NormalizeEmail(email)
	if email == "" {
		return model.RoleStudent, nil
	}
	user, err := p.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return model.RoleStudent, nil
		}
		return "", err
	}
	return user.Role, nil
}

func (p *AccessPolicy) RequireAdmin(ctx context.Context, caller *model.Identity) error {
	if caller == nil {
		return common.Errorf("authentication required: %w", common.ErrUnauthorized)
	}
	role, err := p.RoleOf(ctx, caller.Email)
	if err != nil {
		return err
	}
	if !role.IsAdmin() {
		return common.Errorf("admin access required: %w", common.ErrForbidden)
	}
	return nil
}

func (p *AccessPolicy) RequireStaff(ctx context.Context, caller *model.Identity) error {
	if caller == nil {
		return common.Errorf("authentication required: %w", common.ErrUnauthorized)
	}
	role, err := p.RoleOf(ctx, caller.Email)
	if err != nil {
		return err
	}
	if !role.IsStaff() {
		return common.Errorf("moderator or admin access required: %w", common.ErrForbidden)
	}
	return nil
}

// IsStaff is RequireStaff as a predicate; only storage failures are errors.
func (p *AccessPolicy) IsStaff(ctx context.Context, caller *model.Identity) (bool, error) {
	if caller == nil {
		return false, nil
	}
	role, err := p.RoleOf(ctx, caller.Email)
	if err != nil {
		return false, err
	}
	return role.IsStaff(), nil
}

// RequireOwnerOrStaff passes the owner without a role lookup.
func (p *AccessPolicy) RequireOwnerOrStaff(ctx context.Context, caller *model.Identity, ownerEmail string) error {
	if caller == nil {
		return common.Errorf("authentication required: %w", common.ErrUnauthorized)
	}
	if caller.Email == model.NormalizeEmail(ownerEmail) {
		return nil
	}
	staff, err := p.IsStaff(ctx, caller)
	if err != nil {
		return err
	}
	if !staff {
		return common.Errorf("only the owner or staff may do this: %w", common.ErrForbidden)
	}
	return nil
}

// RequireSelf allows a caller to act only on resources keyed by their own email.
func RequireSelf(caller *model.Identity, email string) error {
	if caller == nil {
		return common.Errorf("authentication required: %w", common.ErrUnauthorized)
	}
	if caller.Email != model.NormalizeEmail(email) {
		return common.Errorf("cannot access another user's records: %w", common.ErrForbidden)
	}
	return nil
}
