// Package auth verifies the bearer tokens issued by the identity provider and
// turns them into a shared.Principal. It never authenticates users itself.
package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/odyssey-erp/odyssey-wms/internal/shared"
)

var (
	// ErrMissingToken indicates a request without a bearer token.
	ErrMissingToken = errors.New("auth: bearer token required")
	// ErrInvalidToken indicates a token that failed verification.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrExpiredToken indicates a token past its expiry.
	ErrExpiredToken = errors.New("auth: token expired")
	// ErrMissingClaims indicates a verified token without sub or org_id.
	ErrMissingClaims = errors.New("auth: token lacks subject or organization")
)

// Claims is the token payload issued by the identity provider.
type Claims struct {
	jwt.RegisteredClaims
	OrganizationID int64    `json:"org_id"`
	Email          string   `json:"email,omitempty"`
	Roles          []string `json:"roles"`
}

// Principal converts verified claims.
func (c Claims) Principal() shared.Principal {
	return shared.Principal{
		UserID:         c.Subject,
		OrganizationID: c.OrganizationID,
		Email:          c.Email,
		Roles:          append([]string(nil), c.Roles...),
	}
}
