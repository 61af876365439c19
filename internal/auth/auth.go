package auth

import (
	"context"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// ErrInvalidCredential is returned for a credential that is present but cannot be verified
var ErrInvalidCredential = errors.New("invalid credential")

// User is an authenticated caller
type User struct {
	ID string
}

// Authenticator resolves the caller behind a request credential.
// An empty credential yields a nil user and no error.
type Authenticator interface {
	CurrentUser(ctx context.Context, credential string) (*User, error)
}

// JWTAuthenticator verifies HS256 bearer tokens; the subject claim is the user id.
// Issuing tokens is left to the identity provider.
type JWTAuthenticator struct {
	secret []byte
	parser *jwt.Parser
}

func NewJWTAuthenticator(secret string) *JWTAuthenticator {
	return &JWTAuthenticator{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

func (a *JWTAuthenticator) CurrentUser(_ context.Context, credential string) (*User, error) {
	token := strings.TrimSpace(credential)
	if scheme, rest, ok := strings.Cut(token, " "); ok && strings.EqualFold(scheme, "Bearer") {
		token = strings.TrimSpace(rest)
	}
	if token == "" {
		return nil, nil
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := a.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidCredential, "parse token: %v", err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidCredential
	}
	return &User{ID: claims.Subject}, nil
}
