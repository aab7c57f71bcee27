package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"scholarstream/internal/common"
	"scholarstream/internal/common/security"
	"scholarstream/internal/domain/model"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHMACVerifierAcceptsMintedToken(t *testing.T) {
	ta := security.NewTokenAuth([]byte("test-secret"))
	token, err := security.GenerateToken(ta, model.Identity{Subject: "uid-1", Email: "Jane@Example.com", Name: "Jane"}, time.Hour)
	require.NoError(t, err)

	id, err := NewHMACVerifier(ta).Verify(context.Background(), token)

	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", id.Email)
	assert.Equal(t, "uid-1", id.Subject)
	assert.Equal(t, "Jane", id.Name)
}

func TestHMACVerifierRejects(t *testing.T) {
	ta := security.NewTokenAuth([]byte("test-secret"))
	other := security.NewTokenAuth([]byte("other-secret"))
	expired, err := security.GenerateToken(ta, model.Identity{Email: "a@x.com"}, -time.Minute)
	require.NoError(t, err)
	foreign, err := security.GenerateToken(other, model.Identity{Email: "a@x.com"}, time.Hour)
	require.NoError(t, err)
	noEmail, err := security.GenerateToken(ta, model.Identity{Subject: "uid"}, time.Hour)
	require.NoError(t, err)

	v := NewHMACVerifier(ta)
	for name, token := range map[string]string{
		"empty":     "",
		"garbage":   "not-a-jwt",
		"expired":   expired,
		"signature": foreign,
		"no email":  noEmail,
	} {
		_, err := v.Verify(context.Background(), token)
		assert.ErrorIs(t, err, common.ErrUnauthorized, name)
	}
}

type jwksFixture struct {
	server *httptest.Server
	key    jwk.Key
}

func newJWKSFixture(t *testing.T) *jwksFixture {
	t.Helper()
	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	priv, err := jwk.FromRaw(raw)
	require.NoError(t, err)
	require.NoError(t, priv.Set(jwk.KeyIDKey, "test-key"))
	require.NoError(t, priv.Set(jwk.AlgorithmKey, jwa.RS256))

	pub, err := jwk.PublicKeyOf(priv)
	require.NoError(t, err)
	set := jwk.NewSet()
	require.NoError(t, set.AddKey(pub))
	body, err := json.Marshal(set)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return &jwksFixture{server: srv, key: priv}
}

func (f *jwksFixture) sign(t *testing.T, issuer, audience, email string, exp time.Time) string {
	t.Helper()
	b := jwt.NewBuilder().Issuer(issuer).Audience([]string{audience}).Subject("uid-9").
		IssuedAt(time.Now().Add(-time.Minute)).Expiration(exp)
	if email != "" {
		b = b.Claim("email", email)
	}
	tok, err := b.Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, f.key))
	require.NoError(t, err)
	return string(signed)
}

func TestJWKSVerifier(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	f := newJWKSFixture(t)
	const iss, aud = "https://securetoken.google.com/scholar", "scholar"

	v, err := NewJWKSVerifier(ctx, f.server.URL, iss, aud, 5*time.Second)
	require.NoError(t, err)

	id, err := v.Verify(ctx, f.sign(t, iss, aud, "Student@X.com", time.Now().Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, "student@x.com", id.Email)
	assert.Equal(t, "uid-9", id.Subject)

	_, err = v.Verify(ctx, f.sign(t, "https://evil.example", aud, "a@x.com", time.Now().Add(time.Hour)))
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = v.Verify(ctx, f.sign(t, iss, "other-project", "a@x.com", time.Now().Add(time.Hour)))
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = v.Verify(ctx, f.sign(t, iss, aud, "a@x.com", time.Now().Add(-time.Hour)))
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = v.Verify(ctx, f.sign(t, iss, aud, "", time.Now().Add(time.Hour)))
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestJWKSVerifierProviderDown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	f := newJWKSFixture(t)
	token := f.sign(t, "iss", "aud", "a@x.com", time.Now().Add(time.Hour))
	url := f.server.URL
	f.server.Close()

	v, err := NewJWKSVerifier(ctx, url, "iss", "aud", time.Second)
	require.NoError(t, err)

	_, err = v.Verify(ctx, token)
	assert.ErrorIs(t, err, common.ErrUpstream)
}
