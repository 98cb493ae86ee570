package movement

import (
	"errors"
	"fmt"
	"strings"

	"github.com/odyssey-erp/odyssey-wms/internal/inventory"
)

// Kind classifies a rule violation.
type Kind string

const (
	KindInsufficientStock   Kind = "INSUFFICIENT_STOCK"
	KindTrackingMismatch    Kind = "TRACKING_MISMATCH"
	KindLocationRestriction Kind = "LOCATION_RESTRICTION"
	KindValidation          Kind = "VALIDATION"
)

// ErrValidation is returned for malformed movement lines.
var ErrValidation = errors.New("movement: invalid line")

// Sentinel maps a violation kind to the error it unwraps to.
func (k Kind) Sentinel() error {
	switch k {
	case KindInsufficientStock:
		return inventory.ErrInsufficientStock
	case KindTrackingMismatch:
		return inventory.ErrTrackingMismatch
	case KindLocationRestriction:
		return inventory.ErrLocationRestriction
	default:
		return ErrValidation
	}
}

// Violation is one broken rule.
type Violation struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func violation(kind Kind, format string, args ...any) Violation {
	return Violation{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// LineError aggregates every violation of one document line.
type LineError struct {
	LineNumber int         `json:"line_number"`
	Violations []Violation `json:"violations"`
}

func (e *LineError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return fmt.Sprintf("line %d: %s", e.LineNumber, strings.Join(msgs, "; "))
}

// Unwrap exposes the sentinel of every violation kind to errors.Is.
func (e *LineError) Unwrap() []error {
	seen := make(map[Kind]bool, len(e.Violations))
	out := make([]error, 0, len(e.Violations))
	for _, v := range e.Violations {
		if seen[v.Kind] {
			continue
		}
		seen[v.Kind] = true
		out = append(out, v.Kind.Sentinel())
	}
	return out
}

// Kind returns the most significant violation kind. Stock shortfalls win
// over rule violations since they are the only retryable outcome.
func (e *LineError) Kind() Kind {
	order := []Kind{KindInsufficientStock, KindLocationRestriction, KindTrackingMismatch, KindValidation}
	for _, k := range order {
		for _, v := range e.Violations {
			if v.Kind == k {
				return k
			}
		}
	}
	return KindValidation
}

// NewLineError reports a single violation on a document line.
func NewLineError(lineNumber int, kind Kind, format string, args ...any) *LineError {
	return &LineError{LineNumber: lineNumber, Violations: []Violation{violation(kind, format, args...)}}
}

func lineError(lineNumber int, violations []Violation) error {
	if len(violations) == 0 {
		return nil
	}
	return &LineError{LineNumber: lineNumber, Violations: violations}
}
