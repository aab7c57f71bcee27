package service

import (
	"context"
	"strings"
	"time"
	"scholarstream/internal/common"
	"scholarstream/internal/domain/model"
	"scholarstream/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/sirupsen/logrus"
)

const MaxScholarshipPageSize = 100

type ScholarshipService struct {
	scholarshipRepo repository.ScholarshipRepository
	policy          *AccessPolicy
	log             logrus.FieldLogger
}

func NewScholarshipService(scholarshipRepo repository.ScholarshipRepository, policy *AccessPolicy, log logrus.FieldLogger) *ScholarshipService {
	return &ScholarshipService{scholarshipRepo: scholarshipRepo, policy: policy, log: log}
}

type ListScholarshipsRequest struct {
	Search   string
	Category string
	Country  string
	Page     int // 1-based
	PageSize int // 0 returns everything
}

type ScholarshipPage struct {
	Scholarships []model.Scholarship `json:"scholarships"`
	Total        int                 `json:"total"`
	Page         int                 `json:"page"`
	PageSize     int                 `json:"pageSize"`
}

func (s *ScholarshipService) List(ctx context.Context, req ListScholarshipsRequest) (*ScholarshipPage, error) {
	filter := model.ScholarshipFilter{
		Search:   strings.TrimSpace(req.Search),
		Category: strings.TrimSpace(req.Category),
		Country:  strings.TrimSpace(req.Country),
	}
	page := req.Page
	if page < 1 {
		page = 1
	}
	if req.PageSize > 0 {
		filter.Limit = req.PageSize
		if filter.Limit > MaxScholarshipPageSize {
			filter.Limit = MaxScholarshipPageSize
		}
		filter.Offset = (page - 1) * filter.Limit
	}

	items, total, err := s.scholarshipRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &ScholarshipPage{Scholarships: items, Total: total, Page: page, PageSize: filter.Limit}, nil
}

func (s *ScholarshipService) Get(ctx context.Context, id string) (*model.Scholarship, error) {
	return s.scholarshipRepo.FindByID(ctx, id)
}

type CreateScholarshipRequest struct {
	ScholarshipName     string     `json:"scholarshipName"`
	UniversityName      string     `json:"universityName"`
	UniversityImage     string     `json:"universityImage"`
	UniversityCountry   string     `json:"universityCountry"`
	UniversityCity      string     `json:"universityCity"`
	UniversityWorldRank int        `json:"universityWorldRank"`
	SubjectCategory     string     `json:"subjectCategory"`
	ScholarshipCategory string     `json:"scholarshipCategory"`
	Degree              string     `json:"degree"`
	TuitionFees         float64    `json:"tuitionFees"`
	ApplicationFees     float64    `json:"applicationFees"`
	ServiceCharge       float64    `json:"serviceCharge"`
	ApplicationDeadline *time.Time `json:"applicationDeadline"`
	Description         string     `json:"description"`
}

func (s *ScholarshipService) Create(ctx context.Context, caller *model.Identity, req CreateScholarshipRequest) (*model.Scholarship, error) {
	if err := s.policy.RequireAdmin(ctx, caller); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ScholarshipName) == "" || strings.TrimSpace(req.UniversityName) == "" {
		return nil, common.Errorf("scholarshipName and universityName are required: %w", common.ErrMissingParameter)
	}
	if req.ApplicationFees < 0 || req.ServiceCharge < 0 || req.TuitionFees < 0 {
		return nil, common.Errorf("fees cannot be negative: %w", common.ErrValidation)
	}

	id := uuid.NewString()
	sch := &model.Scholarship{
		ID:                  id,
		Slug:                slug.Make(req.ScholarshipName+" "+req.UniversityName) + "-" + id[:8],
		ScholarshipName:     strings.TrimSpace(req.ScholarshipName),
		UniversityName:      strings.TrimSpace(req.UniversityName),
		UniversityImage:     req.UniversityImage,
		UniversityCountry:   req.UniversityCountry,
		UniversityCity:      req.UniversityCity,
		UniversityWorldRank: req.UniversityWorldRank,
		SubjectCategory:     req.SubjectCategory,
		ScholarshipCategory: req.ScholarshipCategory,
		Degree:              req.Degree,
		TuitionFees:         req.TuitionFees,
		ApplicationFees:     req.ApplicationFees,
		ServiceCharge:       req.ServiceCharge,
		ApplicationDeadline: req.ApplicationDeadline,
		Description:         req.Description,
		PostedUserEmail:     caller.Email,
		PostedAt:            time.Now().UTC(),
	}
	if err := s.scholarshipRepo.Create(ctx, sch); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"scholarship_id": sch.ID, "slug": sch.Slug}).Info("scholarship created")
	return sch, nil
}

func (s *ScholarshipService) Update(ctx context.Context, caller *model.Identity, id string, patch model.ScholarshipPatch) (*model.Scholarship, error) {
	if err := s.policy.RequireAdmin(ctx, caller); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, common.Errorf("no fields to update: %w", common.ErrValidation)
	}
	for _, v := range []*float64{patch.ApplicationFees, patch.ServiceCharge, patch.TuitionFees} {
		if v != nil && *v < 0 {
			return nil, common.Errorf("fees cannot be negative: %w", common.ErrValidation)
		}
	}
	return s.scholarshipRepo.Update(ctx, id, patch)
}

func (s *ScholarshipService) Delete(ctx context.Context, caller *model.Identity, id string) error {
	if err := s.policy.RequireAdmin(ctx, caller); err != nil {
		return err
	}
	if err := s.scholarshipRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"scholarship_id": id, "by": caller.Email}).Info("scholarship deleted")
	return nil
}
