package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"scholarstream/internal/common"
	"scholarstream/internal/domain/model"
	"scholarstream/internal/domain/repository"
	"scholarstream/internal/platform/metrics"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Application lifecycle operations, as reported to metrics.
const (
	OpCreate      = "create"
	OpStaffUpdate = "staff_update"
	OpOwnerUpdate = "owner_update"
	OpOwnerDelete = "owner_delete"
	OpFinalize    = "finalize_checkout"
)

// ApplicationService owns the Application state machine:
//
//	pending -> pending (owner edit) | deleted (owner) | any staff-assigned status
//	paid    -> deleted (owner) | any staff-assigned status
//
// Owner edits are a single conditional write on status, never read-then-write.
type ApplicationService struct {
	appRepo repository.ApplicationRepository
	policy  *AccessPolicy
	metrics *metrics.Metrics
	log     logrus.FieldLogger
}

func NewApplicationService(
	appRepo repository.ApplicationRepository,
	policy *AccessPolicy,
	m *metrics.Metrics,
	log logrus.FieldLogger,
) *ApplicationService {
	return &ApplicationService{appRepo: appRepo, policy: policy, metrics: m, log: log}
}

// CreateApplicationRequest has no status, timestamp or owner fields; those
// are always stamped by the service.
type CreateApplicationRequest struct {
	ScholarshipID     string  `json:"scholarshipId"`
	ScholarshipName   string  `json:"scholarshipName"`
	UniversityName    string  `json:"universityName"`
	UniversityCity    string  `json:"universityCity"`
	UniversityCountry string  `json:"universityCountry"`
	SubjectCategory   string  `json:"subjectCategory"`
	Degree            string  `json:"degree"`
	UserName          string  `json:"userName"`
	UserPhone         string  `json:"userPhone"`
	UserAddress       string  `json:"userAddress"`
	ApplicationFees   float64 `json:"applicationFees"`
	ServiceCharge     float64 `json:"serviceCharge"`
}

// Create persists a pending, unpaid application owned by the caller. Repeated
// applications to the same scholarship are allowed.
func (s *ApplicationService) Create(ctx context.Context, caller *model.Identity, req CreateApplicationRequest) (*model.Application, error) {
	if caller == nil {
		return nil, common.Errorf("authentication required: %w", common.ErrUnauthorized)
	}
	if strings.TrimSpace(req.ScholarshipID) == "" {
		return nil, common.Errorf("scholarshipId is required: %w", common.ErrMissingParameter)
	}
	if req.ApplicationFees < 0 || req.ServiceCharge < 0 {
		return nil, common.Errorf("fees cannot be negative: %w", common.ErrValidation)
	}

	userName := req.UserName
	if userName == "" {
		userName = caller.Name
	}
	app := &model.Application{
		ID:                uuid.NewString(),
		ScholarshipID:     req.ScholarshipID,
		ScholarshipName:   req.ScholarshipName,
		UniversityName:    req.UniversityName,
		UniversityCity:    req.UniversityCity,
		UniversityCountry: req.UniversityCountry,
		SubjectCategory:   req.SubjectCategory,
		Degree:            req.Degree,
		UserEmail:         caller.Email,
		UserName:          userName,
		UserPhone:         req.UserPhone,
		UserAddress:       req.UserAddress,
		ApplicationFees:   req.ApplicationFees,
		ServiceCharge:     req.ServiceCharge,
		ApplicationStatus: model.ApplicationPending,
		PaymentStatus:     model.PaymentUnpaid,
		AppliedAt:         time.Now().UTC(),
	}
	if err := s.appRepo.Create(ctx, app); err != nil {
		return nil, err
	}

	s.metrics.ApplicationTransition(OpCreate)
	s.log.WithFields(logrus.Fields{"application_id": app.ID, "user": app.UserEmail}).Info("application created")
	return app, nil
}

func (s *ApplicationService) ListAll(ctx context.Context, caller *model.Identity) ([]model.Application, error) {
	if err := s.policy.RequireStaff(ctx, caller); err != nil {
		return nil, err
	}
	return s.appRepo.List(ctx)
}

func (s *ApplicationService) ListForOwner(ctx context.Context, caller *model.Identity, email string) ([]model.Application, error) {
	if err := RequireSelf(caller, email); err != nil {
		return nil, err
	}
	return s.appRepo.ListByUserEmail(ctx, caller.Email)
}

// StaffUpdate applies any field patch, status included. Staff are trusted.
func (s *ApplicationService) StaffUpdate(ctx context.Context, caller *model.Identity, id string, patch model.ApplicationPatch) (*model.Application, error) {
	if err := s.policy.RequireStaff(ctx, caller); err != nil {
		return nil, err
	}
	app, err := s.appRepo.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	s.metrics.ApplicationTransition(OpStaffUpdate)
	entry := s.log.WithFields(logrus.Fields{"application_id": id, "by": caller.Email})
	if patch.ApplicationStatus != nil {
		entry = entry.WithField("status", *patch.ApplicationStatus)
	}
	entry.Info("application updated by staff")
	return app, nil
}

// OwnerUpdate edits the caller's own application while it is pending. Any
// other caller gets Forbidden whatever the status; the owner gets
// InvalidState once the application has left pending.
func (s *ApplicationService) OwnerUpdate(ctx context.Context, caller *model.Identity, id string, patch model.ApplicationOwnerPatch) (*model.Application, error) {
	if caller == nil {
		return nil, common.Errorf("authentication required: %w", common.ErrUnauthorized)
	}

	app, matched, err := s.appRepo.UpdateIfPending(ctx, id, caller.Email, patch.ToPatch())
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, s.classifyOwnerMiss(ctx, caller, id, true)
	}

	s.metrics.ApplicationTransition(OpOwnerUpdate)
	s.log.WithField("application_id", id).Info("application updated by owner")
	return app, nil
}

// OwnerDelete withdraws the caller's own application in any status.
func (s *ApplicationService) OwnerDelete(ctx context.Context, caller *model.Identity, id string) error {
	if caller == nil {
		return common.Errorf("authentication required: %w", common.ErrUnauthorized)
	}

	deleted, err := s.appRepo.DeleteOwned(ctx, id, caller.Email)
	if err != nil {
		return err
	}
	if !deleted {
		return s.classifyOwnerMiss(ctx, caller, id, false)
	}

	s.metrics.ApplicationTransition(OpOwnerDelete)
	s.log.WithFields(logrus.Fields{"application_id": id, "user": caller.Email}).Info("application withdrawn")
	return nil
}

// classifyOwnerMiss explains why a conditional owner write matched nothing.
func (s *ApplicationService) classifyOwnerMiss(ctx context.Context, caller *model.Identity, id string, requirePending bool) error {
	current, err := s.appRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.Errorf("application %s not found: %w", id, common.ErrNotFound)
		}
		return err
	}
	if current.UserEmail != caller.Email {
		return common.Errorf("application belongs to another user: %w", common.ErrForbidden)
	}
	if requirePending && !current.Editable() {
		return common.Errorf("application is %s and can no longer be edited: %w", current.ApplicationStatus, common.ErrInvalidState)
	}
	// The record changed between the write and this read; report it as a
	// state conflict rather than retrying.
	return common.Errorf("application %s changed concurrently: %w", id, common.ErrInvalidState)
}
