// Package auth verifies session tokens issued by the external identity
// provider. Tokens are HS256 JWTs whose subject is the provider's user id.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/bazaar/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the registered claims plus the profile fields the provider
// embeds in its session tokens.
type Claims struct {
	jwt.RegisteredClaims
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Session is the authenticated identity extracted from a valid token.
type Session struct {
	UserID string
	Name   string
	Email  string
}

// GenerateToken signs a session token. The server only verifies tokens; this
// exists for the dev CLI and tests.
func GenerateToken(s Session, issuer string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		Name:  s.Name,
		Email: s.Email,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken validates signature, expiry and (when issuer is non-empty) the
// issuer claim. Expired tokens yield common.ErrTokenExpired; every other
// failure yields common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte, issuer string) (*Session, error) {
	claims := &Claims{}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	return &Session{UserID: claims.Subject, Name: claims.Name, Email: claims.Email}, nil
}
