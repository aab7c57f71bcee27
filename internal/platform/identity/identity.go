package identity

import (
	"context"
	"scholarstream/internal/domain/model"
)

// Verifier resolves a bearer credential to the caller identity. Invalid
// credentials yield common.ErrUnauthorized; provider outages common.ErrUpstream.
type Verifier interface {
	Verify(ctx context.Context, token string) (*model.Identity, error)
}
