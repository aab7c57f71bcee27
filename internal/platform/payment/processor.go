package payment

import (
	"context"
	"scholarstream/internal/domain/model"
)

// Processor is the external payment processor's checkout API.
type Processor interface {
	CreateCheckoutSession(ctx context.Context, params model.CheckoutSessionParams) (*model.CheckoutSession, error)
	RetrieveCheckoutSession(ctx context.Context, sessionID string) (*model.CheckoutSession, error)
}
