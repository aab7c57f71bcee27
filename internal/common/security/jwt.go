package security

import (
	"errors"
	"strings"
	"time"
	"scholarstream/internal/domain/model"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
)

func NewTokenAuth(secret []byte) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", secret, nil)
}

// GenerateToken mints an HS256 identity token. Production identities come from
// the external provider; this is for local development and tests.
func GenerateToken(tokenAuth *jwtauth.JWTAuth, identity model.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   identity.Subject,
		"email": identity.Email,
		"exp":   now.Add(ttl).Unix(),
		"iat":   now.Unix(),
	}
	if identity.Name != "" {
		claims["name"] = identity.Name
	}
	if identity.Picture != "" {
		claims["picture"] = identity.Picture
	}
	_, tokenString, err := tokenAuth.Encode(claims)
	return tokenString, err
}

// IdentityFromClaims extracts the caller identity from verified claims. The
// email claim is required and is lower-cased.
func IdentityFromClaims(claims jwt.MapClaims) (*model.Identity, error) {
	email, ok := claims["email"].(string)
	if !ok || strings.TrimSpace(email) == "" {
		return nil, errors.New("email claim is missing or not a string")
	}
	subject, _ := claims.GetSubject()
	name, _ := claims["name"].(string)
	picture, _ := claims["picture"].(string)

	return &model.Identity{
		Subject: subject,
		Email:   model.NormalizeEmail(email),
		Name:    name,
		Picture: picture,
	}, nil
}
