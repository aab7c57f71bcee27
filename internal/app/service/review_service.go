package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"scholarstream/internal/common"
	"scholarstream/internal/domain/model"
	"scholarstream/internal/domain/repository"
	"scholarstream/internal/platform/cache"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type ReviewService struct {
	reviewRepo repository.ReviewRepository
	policy     *AccessPolicy
	cache      cache.ReviewCache
	log        logrus.FieldLogger
}

func NewReviewService(reviewRepo repository.ReviewRepository, policy *AccessPolicy, rc cache.ReviewCache, log logrus.FieldLogger) *ReviewService {
	if rc == nil {
		rc = cache.NopReviewCache{}
	}
	return &ReviewService{reviewRepo: reviewRepo, policy: policy, cache: rc, log: log}
}

type CreateReviewRequest struct {
	ScholarshipID   string `json:"scholarshipId"`
	ScholarshipName string `json:"scholarshipName"`
	UniversityName  string `json:"universityName"`
	UserName        string `json:"userName"`
	UserImage       string `json:"userImage"`
	RatingPoint     int    `json:"ratingPoint"`
	ReviewComment   string `json:"reviewComment"`
}

func (s *ReviewService) Create(ctx context.Context, caller *model.Identity, req CreateReviewRequest) (*model.Review, error) {
	if caller == nil {
		return nil, common.Errorf("authentication required: %w", common.ErrUnauthorized)
	}
	if strings.TrimSpace(req.ScholarshipID) == "" {
		return nil, common.Errorf("scholarshipId is required: %w", common.ErrMissingParameter)
	}
	if !model.ValidRating(req.RatingPoint) {
		return nil, common.Errorf("ratingPoint must be between %d and %d: %w", model.MinRating, model.MaxRating, common.ErrValidation)
	}

	review := &model.Review{
		ID:              uuid.NewString(),
		ScholarshipID:   req.ScholarshipID,
		ScholarshipName: req.ScholarshipName,
		UniversityName:  req.UniversityName,
		UserEmail:       caller.Email,
		UserName:        firstNonEmpty(req.UserName, caller.Name),
		UserImage:       firstNonEmpty(req.UserImage, caller.Picture),
		RatingPoint:     req.RatingPoint,
		ReviewComment:   req.ReviewComment,
		ReviewDate:      time.Now().UTC(),
	}
	if err := s.reviewRepo.Create(ctx, review); err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	s.log.WithFields(logrus.Fields{"review_id": review.ID, "scholarship_id": review.ScholarshipID}).Info("review created")
	return review, nil
}

// PublicRecent serves the newest reviews without owner emails. The listing
// is read through the cache; cache failures only cost a storage read. A
// listing loaded while a write invalidated the cache is served but not stored.
func (s *ReviewService) PublicRecent(ctx context.Context) ([]model.PublicReview, error) {
	cached, gen, hit, err := s.cache.GetPublic(ctx)
	cacheUp := err == nil
	if err != nil {
		s.log.WithError(err).Warn("public review cache unavailable")
	} else if hit {
		return cached, nil
	}

	reviews, err := s.reviewRepo.ListRecent(ctx, model.PublicReviewLimit)
	if err != nil {
		return nil, err
	}
	public := toPublic(reviews)

	if !cacheUp {
		return public, nil
	}
	if err := s.cache.SetPublic(ctx, gen, public); err != nil {
		if errors.Is(err, cache.ErrStale) {
			s.log.Debug("public review listing changed while loading; not cached")
		} else {
			s.log.WithError(err).Warn("could not populate public review cache")
		}
	}
	return public, nil
}

// ListForScholarship is public and therefore served as the public projection.
func (s *ReviewService) ListForScholarship(ctx context.Context, scholarshipID string) ([]model.PublicReview, error) {
	reviews, err := s.reviewRepo.ListByScholarship(ctx, scholarshipID)
	if err != nil {
		return nil, err
	}
	return toPublic(reviews), nil
}

func (s *ReviewService) ListForOwner(ctx context.Context, caller *model.Identity, email string) ([]model.Review, error) {
	if err := RequireSelf(caller, email); err != nil {
		return nil, err
	}
	return s.reviewRepo.ListByUserEmail(ctx, caller.Email)
}

func (s *ReviewService) ListAll(ctx context.Context, caller *model.Identity) ([]model.Review, error) {
	if err := s.policy.RequireStaff(ctx, caller); err != nil {
		return nil, err
	}
	return s.reviewRepo.ListAll(ctx)
}

// Update changes rating and comment only; the owner and staff may do it.
func (s *ReviewService) Update(ctx context.Context, caller *model.Identity, id string, patch model.ReviewPatch) (*model.Review, error) {
	if caller == nil {
		return nil, common.Errorf("authentication required: %w", common.ErrUnauthorized)
	}
	current, err := s.reviewRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.RequireOwnerOrStaff(ctx, caller, current.UserEmail); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, common.Errorf("ratingPoint or reviewComment is required: %w", common.ErrValidation)
	}
	if patch.RatingPoint != nil && !model.ValidRating(*patch.RatingPoint) {
		return nil, common.Errorf("ratingPoint must be between %d and %d: %w", model.MinRating, model.MaxRating, common.ErrValidation)
	}

	updated, err := s.reviewRepo.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return updated, nil
}

func (s *ReviewService) Delete(ctx context.Context, caller *model.Identity, id string) error {
	if caller == nil {
		return common.Errorf("authentication required: %w", common.ErrUnauthorized)
	}
	current, err := s.reviewRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.policy.RequireOwnerOrStaff(ctx, caller, current.UserEmail); err != nil {
		return err
	}
	if err := s.reviewRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx)
	s.log.WithFields(logrus.Fields{"review_id": id, "by": caller.Email}).Info("review deleted")
	return nil
}

func (s *ReviewService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.WithError(err).Warn("could not invalidate public review cache")
	}
}

func toPublic(reviews []model.Review) []model.PublicReview {
	out := make([]model.PublicReview, 0, len(reviews))
	for i := range reviews {
		out = append(out, reviews[i].Public())
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
