package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/odyssey-erp/odyssey-wms/internal/inventory"
)

// ExitDrift is returned by the verify command when the ledger disagrees with
// the replayed movement log.
const ExitDrift = 10

// LedgerVerifier replays movements against stored ledger entries.
type LedgerVerifier interface {
	Verify(ctx context.Context, organizationID, warehouseID int64) (inventory.VerifyReport, error)
}

// VerifyCLI runs ledger verification from the command line.
type VerifyCLI struct {
	verifier LedgerVerifier
}

// NewVerifyCLI constructs the helper.
func NewVerifyCLI(verifier LedgerVerifier) (*VerifyCLI, error) {
	if verifier == nil {
		return nil, fmt.Errorf("verify cli: verifier required")
	}
	return &VerifyCLI{verifier: verifier}, nil
}

// VerifyOptions defines the flags of the verify command.
type VerifyOptions struct {
	OrganizationID int64
	WarehouseID    int64
	JSONOutput     bool
	Stdout         io.Writer
	Stderr         io.Writer
}

// VerifySummary is the JSON output of the verify command.
type VerifySummary struct {
	OK             bool          `json:"ok"`
	OrganizationID int64         `json:"organization_id,omitempty"`
	WarehouseID    int64         `json:"warehouse_id,omitempty"`
	Movements      int           `json:"movements"`
	Entries        int           `json:"entries"`
	Drifts         []VerifyDrift `json:"drifts"`
}

// VerifyDrift is one ledger key whose stored balance differs from replay.
type VerifyDrift struct {
	Key              string `json:"key"`
	StoredOnhand     string `json:"stored_onhand"`
	ReplayedOnhand   string `json:"replayed_onhand"`
	StoredReserved   string `json:"stored_reserved"`
	ReplayedReserved string `json:"replayed_reserved"`
}

// VerifyCommand executes the verification and prints the outcome. It returns
// the process exit code.
func (c *VerifyCLI) VerifyCommand(ctx context.Context, opts VerifyOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.OrganizationID < 0 || opts.WarehouseID < 0 {
		_, _ = fmt.Fprintln(opts.Stderr, "verify: --org and --warehouse must not be negative")
		return 1
	}
	report, err := c.verifier.Verify(ctx, opts.OrganizationID, opts.WarehouseID)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "verify: %v\n", err)
		return 1
	}
	summary := buildVerifySummary(report)
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(summary); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "verify: encode json: %v\n", err)
			return 1
		}
	} else {
		renderVerifyHuman(opts.Stdout, summary)
	}
	if !summary.OK {
		return ExitDrift
	}
	return 0
}

func buildVerifySummary(report inventory.VerifyReport) VerifySummary {
	drifts := make([]VerifyDrift, 0, len(report.Drifts))
	for _, d := range report.Drifts {
		drifts = append(drifts, VerifyDrift{
			Key:              d.Key.String(),
			StoredOnhand:     d.StoredOnhand.String(),
			ReplayedOnhand:   d.ReplayedOnhand.String(),
			StoredReserved:   d.StoredReserved.String(),
			ReplayedReserved: d.ReplayedReserved.String(),
		})
	}
	sort.Slice(drifts, func(i, j int) bool { return drifts[i].Key < drifts[j].Key })
	return VerifySummary{
		OK:             len(drifts) == 0,
		OrganizationID: report.OrganizationID,
		WarehouseID:    report.WarehouseID,
		Movements:      report.Movements,
		Entries:        report.Entries,
		Drifts:         drifts,
	}
}

func renderVerifyHuman(out io.Writer, s VerifySummary) {
	scope := "all organizations"
	if s.OrganizationID > 0 {
		scope = fmt.Sprintf("organization %d", s.OrganizationID)
	}
	if s.WarehouseID > 0 {
		scope += fmt.Sprintf(", warehouse %d", s.WarehouseID)
	}
	_, _ = fmt.Fprintf(out, "Ledger verification for %s: %d movement(s), %d entr(ies)\n", scope, s.Movements, s.Entries)
	if s.OK {
		_, _ = fmt.Fprintln(out, "Ledger matches the movement log.")
		return
	}
	_, _ = fmt.Fprintf(out, "%d drift(s) detected:\n", len(s.Drifts))
	for _, d := range s.Drifts {
		_, _ = fmt.Fprintf(out, " - %s onhand %s (replay %s) reserved %s (replay %s)\n",
			d.Key, d.StoredOnhand, d.ReplayedOnhand, d.StoredReserved, d.ReplayedReserved)
	}
}
