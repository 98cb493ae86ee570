package shared

import (
	"slices"
	"strings"
)

// Principal is the already authorised caller handed over by the identity
// provider. It replaces any process wide session state: handlers receive it
// through the request context and pass it down explicitly.
type Principal struct {
	UserID         string   `json:"user_id"`
	OrganizationID int64    `json:"organization_id"`
	Email          string   `json:"email,omitempty"`
	Roles          []string `json:"roles"`
}

// IsZero reports whether the principal carries no identity.
func (p Principal) IsZero() bool {
	return strings.TrimSpace(p.UserID) == ""
}

// HasRole reports role membership, case insensitive.
func (p Principal) HasRole(role string) bool {
	role = strings.ToLower(strings.TrimSpace(role))
	return slices.ContainsFunc(p.Roles, func(r string) bool {
		return strings.ToLower(strings.TrimSpace(r)) == role
	})
}
