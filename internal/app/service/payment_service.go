package service

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
	"scholarstream/internal/common"
	"scholarstream/internal/domain/model"
	"scholarstream/internal/domain/repository"
	"scholarstream/internal/platform/metrics"
	"scholarstream/internal/platform/payment"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type CheckoutURLs struct {
	Success  string
	Cancel   string
	Currency string
}

// PaymentService turns a confirmed checkout session into exactly one paid
// Application, keyed by the processor's payment intent id.
type PaymentService struct {
	processor payment.Processor
	appRepo   repository.ApplicationRepository
	policy    *AccessPolicy
	urls      CheckoutURLs
	metrics   *metrics.Metrics
	log       logrus.FieldLogger
}

func NewPaymentService(
	processor payment.Processor,
	appRepo repository.ApplicationRepository,
	policy *AccessPolicy,
	urls CheckoutURLs,
	m *metrics.Metrics,
	log logrus.FieldLogger,
) *PaymentService {
	return &PaymentService{
		processor: processor,
		appRepo:   appRepo,
		policy:    policy,
		urls:      urls,
		metrics:   m,
		log:       log,
	}
}

// InitiateCheckoutRequest describes the application being paid for. Amount is
// the charge; ApplicationFees is recorded in metadata and becomes the
// application's fee. A userEmail in the body is ignored.
type InitiateCheckoutRequest struct {
	ScholarshipID     string  `json:"scholarshipId"`
	ScholarshipName   string  `json:"scholarshipName"`
	UniversityName    string  `json:"universityName"`
	UniversityCity    string  `json:"universityCity"`
	UniversityCountry string  `json:"universityCountry"`
	SubjectCategory   string  `json:"subjectCategory"`
	Degree            string  `json:"degree"`
	Amount            float64 `json:"amount"`
	ApplicationFees   float64 `json:"applicationFees"`
}

type CheckoutResponse struct {
	URL       string `json:"url"`
	SessionID string `json:"sessionId"`
}

// InitiateCheckout creates a processor session and persists nothing.
func (s *PaymentService) InitiateCheckout(ctx context.Context, caller *model.Identity, req InitiateCheckoutRequest) (*CheckoutResponse, error) {
	if caller == nil {
		return nil, common.Errorf("authentication required: %w", common.ErrUnauthorized)
	}
	if strings.TrimSpace(req.ScholarshipID) == "" || strings.TrimSpace(req.ScholarshipName) == "" ||
		strings.TrimSpace(req.UniversityName) == "" {
		return nil, common.Errorf("scholarshipId, scholarshipName and universityName are required: %w", common.ErrMissingParameter)
	}
	charge := req.Amount
	if charge <= 0 {
		charge = req.ApplicationFees
	}
	if charge <= 0 || math.IsNaN(charge) || math.IsInf(charge, 0) {
		return nil, common.Errorf("amount must be greater than zero: %w", common.ErrValidation)
	}

	params := model.CheckoutSessionParams{
		LineItem: model.CheckoutLineItem{
			Name:        req.ScholarshipName,
			Description: req.UniversityName,
			Currency:    s.urls.Currency,
			UnitAmount:  int64(math.Round(charge * 100)),
			Quantity:    1,
		},
		SuccessURL: s.urls.Success,
		CancelURL:  s.urls.Cancel,
		Metadata: map[string]string{
			model.MetaUserEmail:         caller.Email,
			model.MetaScholarshipID:     req.ScholarshipID,
			model.MetaScholarshipName:   req.ScholarshipName,
			model.MetaUniversityName:    req.UniversityName,
			model.MetaUniversityCity:    req.UniversityCity,
			model.MetaUniversityCountry: req.UniversityCountry,
			model.MetaSubjectCategory:   req.SubjectCategory,
			model.MetaDegree:            req.Degree,
			model.MetaApplicationFees:   strconv.FormatFloat(req.ApplicationFees, 'f', -1, 64),
		},
	}

	sess, err := s.processor.CreateCheckoutSession(ctx, params)
	if err != nil {
		s.log.WithError(err).WithField("user", caller.Email).Error("checkout session creation failed")
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"session_id": sess.ID, "user": caller.Email}).Info("checkout session created")
	return &CheckoutResponse{URL: sess.URL, SessionID: sess.ID}, nil
}

type FinalizeResult struct {
	Success       bool   `json:"success"`
	Created       bool   `json:"created"`
	ApplicationID string `json:"applicationId"`
	Message       string `json:"message"`
}

// FinalizeCheckout is safe to call any number of times for the same session.
// The lookup by transaction id is a fast path; the unique constraint behind
// CreateIdempotent is what settles concurrent calls.
func (s *PaymentService) FinalizeCheckout(ctx context.Context, caller *model.Identity, sessionID string) (*FinalizeResult, error) {
	if caller == nil {
		return nil, common.Errorf("authentication required: %w", common.ErrUnauthorized)
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, common.Errorf("session_id is required: %w", common.ErrMissingParameter)
	}
	entry := s.log.WithFields(logrus.Fields{"session_id": sessionID, "caller": caller.Email})

	sess, err := s.processor.RetrieveCheckoutSession(ctx, sessionID)
	if err != nil {
		s.metrics.CheckoutFinalized(metrics.OutcomeError)
		entry.WithError(err).Error("retrieving checkout session failed")
		return nil, err
	}
	if sess.PaymentStatus != model.SessionPaymentStatusPaid {
		s.metrics.CheckoutFinalized(metrics.OutcomeIncomplete)
		return nil, common.Errorf("session %s is %q: %w", sessionID, sess.PaymentStatus, common.ErrPaymentIncomplete)
	}
	if sess.PaymentIntentID == "" {
		s.metrics.CheckoutFinalized(metrics.OutcomeError)
		return nil, common.Errorf("paid session %s has no payment intent: %w", sessionID, common.ErrUpstream)
	}

	owner := model.NormalizeEmail(sess.Metadata[model.MetaUserEmail])
	if owner == "" {
		owner = caller.Email
	}
	if owner != caller.Email {
		staff, err := s.policy.IsStaff(ctx, caller)
		if err != nil {
			s.metrics.CheckoutFinalized(metrics.OutcomeError)
			return nil, err
		}
		if !staff {
			s.metrics.CheckoutFinalized(metrics.OutcomeForbidden)
			entry.WithField("owner", owner).Warn("checkout finalization by non-owner rejected")
			return nil, common.Errorf("checkout session belongs to another user: %w", common.ErrForbidden)
		}
	}

	existing, err := s.appRepo.FindByTransactionID(ctx, sess.PaymentIntentID)
	if err == nil {
		s.metrics.CheckoutFinalized(metrics.OutcomeReplayed)
		entry.WithField("application_id", existing.ID).Info("checkout already finalized")
		return &FinalizeResult{Success: true, ApplicationID: existing.ID, Message: "Already saved"}, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		s.metrics.CheckoutFinalized(metrics.OutcomeError)
		return nil, err
	}

	txID := sess.PaymentIntentID
	app := &model.Application{
		ID:                uuid.NewString(),
		ScholarshipID:     sess.Metadata[model.MetaScholarshipID],
		ScholarshipName:   sess.Metadata[model.MetaScholarshipName],
		UniversityName:    sess.Metadata[model.MetaUniversityName],
		UniversityCity:    sess.Metadata[model.MetaUniversityCity],
		UniversityCountry: sess.Metadata[model.MetaUniversityCountry],
		SubjectCategory:   sess.Metadata[model.MetaSubjectCategory],
		Degree:            sess.Metadata[model.MetaDegree],
		UserEmail:         owner,
		ApplicationFees:   sessionFee(sess),
		ApplicationStatus: model.ApplicationPaid,
		PaymentStatus:     model.PaymentPaid,
		TransactionID:     &txID,
		AppliedAt:         time.Now().UTC(),
	}
	if owner == caller.Email {
		app.UserName = caller.Name
	}

	stored, created, err := s.appRepo.CreateIdempotent(ctx, app)
	if err != nil {
		s.metrics.CheckoutFinalized(metrics.OutcomeError)
		entry.WithError(err).Error("recording paid application failed")
		return nil, err
	}
	if !created {
		s.metrics.CheckoutFinalized(metrics.OutcomeReplayed)
		entry.WithField("application_id", stored.ID).Info("concurrent finalization already recorded the payment")
		return &FinalizeResult{Success: true, ApplicationID: stored.ID, Message: "Already saved"}, nil
	}

	s.metrics.CheckoutFinalized(metrics.OutcomeCreated)
	s.metrics.ApplicationTransition(OpFinalize)
	entry.WithFields(logrus.Fields{"application_id": stored.ID, "transaction_id": txID}).Info("paid application recorded")
	return &FinalizeResult{Success: true, Created: true, ApplicationID: stored.ID, Message: "Application saved"}, nil
}

// sessionFee prefers the fee declared in metadata and falls back to the amount
// actually charged when it is absent, unparsable or not positive.
func sessionFee(sess *model.CheckoutSession) float64 {
	if raw := strings.TrimSpace(sess.Metadata[model.MetaApplicationFees]); raw != "" {
		if fee, err := strconv.ParseFloat(raw, 64); err == nil && fee > 0 && !math.IsInf(fee, 0) {
			return fee
		}
	}
	return float64(sess.AmountTotal) / 100
}
