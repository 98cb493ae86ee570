package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/odyssey-erp/odyssey-wms/internal/auth"
)

// TokenOptions defines the flags of the token command.
type TokenOptions struct {
	Subject        string
	OrganizationID int64
	Roles          string
	Issuer         string
	Audience       string
	TTL            time.Duration
	Stdout         io.Writer
	Stderr         io.Writer
}

// TokenCommand prints a signed bearer token for local development. Deployed
// environments receive tokens from the identity provider.
func TokenCommand(v *auth.Verifier, opts TokenOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if strings.TrimSpace(opts.Subject) == "" || opts.OrganizationID <= 0 {
		_, _ = fmt.Fprintln(opts.Stderr, "token: --sub and --org are required")
		return 1
	}
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	var roles []string
	for _, role := range strings.Split(opts.Roles, ",") {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}
	now := time.Now()
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   opts.Subject,
			Issuer:    opts.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(opts.TTL)),
		},
		OrganizationID: opts.OrganizationID,
		Roles:          roles,
	}
	if opts.Audience != "" {
		claims.Audience = jwt.ClaimStrings{opts.Audience}
	}
	token, err := v.Sign(claims)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "token: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(opts.Stdout, token)
	return 0
}
