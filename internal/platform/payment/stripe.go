package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
	"scholarstream/internal/common"
	"scholarstream/internal/domain/model"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeProcessor talks to Stripe Checkout. Every call is bounded by timeout
// and never retried.
type StripeProcessor struct {
	api     *client.API
	timeout time.Duration
}

// NewStripeProcessor builds a client for secret. apiURL overrides the Stripe
// API base (stripe-mock or a test server) when non-empty.
func NewStripeProcessor(secret, apiURL string, timeout time.Duration, log logrus.FieldLogger) *StripeProcessor {
	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		LeveledLogger:     log,
		MaxNetworkRetries: stripe.Int64(0),
	}
	if apiURL != "" {
		backendCfg.URL = stripe.String(apiURL)
	}
	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg),
	}
	return &StripeProcessor{api: client.New(secret, backends), timeout: timeout}
}

func (p *StripeProcessor) CreateCheckoutSession(ctx context.Context, in model.CheckoutSessionParams) (*model.CheckoutSession, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(in.LineItem.Currency),
				UnitAmount: stripe.Int64(in.LineItem.UnitAmount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(in.LineItem.Name),
					Description: stripe.String(in.LineItem.Description),
				},
			},
			Quantity: stripe.Int64(in.LineItem.Quantity),
		}},
		SuccessURL: stripe.String(in.SuccessURL),
		CancelURL:  stripe.String(in.CancelURL),
	}
	if email := in.Metadata[model.MetaUserEmail]; email != "" {
		params.CustomerEmail = stripe.String(email)
	}
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	sess, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, classify("creating checkout session", err)
	}
	return toModel(sess), nil
}

func (p *StripeProcessor) RetrieveCheckoutSession(ctx context.Context, sessionID string) (*model.CheckoutSession, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := p.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, classify("retrieving checkout session", err)
	}
	return toModel(sess), nil
}

func toModel(sess *stripe.CheckoutSession) *model.CheckoutSession {
	out := &model.CheckoutSession{
		ID:            sess.ID,
		URL:           sess.URL,
		PaymentStatus: string(sess.PaymentStatus),
		AmountTotal:   sess.AmountTotal,
		Metadata:      sess.Metadata,
	}
	if sess.PaymentIntent != nil {
		out.PaymentIntentID = sess.PaymentIntent.ID
	}
	return out
}

// classify maps an unknown session to ErrNotFound and everything else,
// timeouts included, to ErrUpstream.
func classify(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %s: %w", op, stripeErr.Msg, common.ErrNotFound)
	}
	return fmt.Errorf("%s: %v: %w", op, err, common.ErrUpstream)
}
