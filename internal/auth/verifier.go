package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	apperrors "Chatline/pkg/errors"
)

// Verifier resolves a presented credential to a stable user identity. The
// gateway trusts its output and never manages login or signup itself.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

type jwtVerifier struct {
	secret []byte
	issuer string
}

// NewJWTVerifier builds a Verifier for HMAC-signed tokens whose subject
// claim carries the user id.
func NewJWTVerifier(secret, issuer string) Verifier {
	return &jwtVerifier{secret: []byte(secret), issuer: issuer}
}

func (v *jwtVerifier) Verify(_ context.Context, tokenString string) (string, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return "", apperrors.ErrUnauthenticated
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: invalid token", apperrors.ErrUnauthenticated)
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", fmt.Errorf("%w: missing subject", apperrors.ErrUnauthenticated)
	}

	return subject, nil
}

// BearerToken extracts the credential from an Authorization header value,
// falling back to the raw value when no Bearer prefix is present.
func BearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return header
}
