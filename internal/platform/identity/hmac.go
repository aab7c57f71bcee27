package identity

import (
	"context"
	"fmt"
	"scholarstream/internal/common"
	"scholarstream/internal/common/security"
	"scholarstream/internal/domain/model"

	"github.com/go-chi/jwtauth/v5"
)

// HMACVerifier accepts HS256 tokens signed with the shared JWT secret.
type HMACVerifier struct {
	tokenAuth *jwtauth.JWTAuth
}

func NewHMACVerifier(tokenAuth *jwtauth.JWTAuth) *HMACVerifier {
	return &HMACVerifier{tokenAuth: tokenAuth}
}

func (v *HMACVerifier) Verify(ctx context.Context, token string) (*model.Identity, error) {
	if token == "" {
		return nil, fmt.Errorf("authorization token required: %w", common.ErrUnauthorized)
	}
	tok, err := jwtauth.VerifyToken(v.tokenAuth, token)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %v: %w", err, common.ErrUnauthorized)
	}
	claims, err := tok.AsMap(ctx)
	if err != nil {
		return nil, fmt.Errorf("invalid token claims: %v: %w", err, common.ErrUnauthorized)
	}
	id, err := security.IdentityFromClaims(claims)
	if err != nil {
		return nil, fmt.Errorf("invalid token claims: %v: %w", err, common.ErrUnauthorized)
	}
	return id, nil
}
