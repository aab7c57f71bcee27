package identity

import (
	"context"
	"errors"
	"fmt"
	"time"
	"scholarstream/internal/common"
	"scholarstream/internal/common/security"
	"scholarstream/internal/domain/model"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// JWKSVerifier validates RS256 identity tokens (e.g. Firebase ID tokens)
// against the provider's published key set, cached and refreshed in the
// background.
type JWKSVerifier struct {
	cache    *jwk.Cache
	url      string
	issuer   string
	audience string
	timeout  time.Duration
}

// NewJWKSVerifier registers url with a key cache bound to ctx. Keys are fetched
// lazily on first verification.
func NewJWKSVerifier(ctx context.Context, url, issuer, audience string, timeout time.Duration) (*JWKSVerifier, error) {
	if url == "" {
		return nil, errors.New("JWKS url is required")
	}
	cache := jwk.NewCache(ctx)
	if err := cache.Register(url, jwk.WithMinRefreshInterval(15*time.Minute)); err != nil {
		return nil, fmt.Errorf("registering JWKS url: %w", err)
	}
	return &JWKSVerifier{cache: cache, url: url, issuer: issuer, audience: audience, timeout: timeout}, nil
}

func (v *JWKSVerifier) Verify(ctx context.Context, token string) (*model.Identity, error) {
	if token == "" {
		return nil, fmt.Errorf("authorization token required: %w", common.ErrUnauthorized)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()
	keys, err := v.cache.Get(fetchCtx, v.url)
	if err != nil {
		return nil, fmt.Errorf("fetching identity keys: %v: %w", err, common.ErrUpstream)
	}

	opts := []jwt.ParseOption{jwt.WithKeySet(keys), jwt.WithValidate(true)}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	tok, err := jwt.Parse([]byte(token), opts...)
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
