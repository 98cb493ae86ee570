package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrUnauthenticated indicates a request without a verified principal.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrOrganizationMismatch indicates access to another organization's data.
	ErrOrganizationMismatch = errors.New("resource belongs to another organization")
)
