package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-wms/cmd/odyssey/cli"
	"github.com/odyssey-erp/odyssey-wms/internal/app"
	"github.com/odyssey-erp/odyssey-wms/internal/auth"
	"github.com/odyssey-erp/odyssey-wms/internal/inventory"
	"github.com/odyssey-erp/odyssey-wms/internal/platform/db"
)

const usage = `usage: odyssey [serve|verify|jobs|token] [flags]

  serve                     run the HTTP API (default)
  verify  --org --warehouse --json
                            replay the movement log against the ledger
  jobs    trigger <task> [--org --warehouse --document --retention]
  jobs    inspect           print queue statistics
  token   --sub --org --roles --ttl
                            sign a development bearer token`

// runCommand executes a non-serve subcommand and returns the exit code.
func runCommand(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	switch args[0] {
	case "verify":
		return verifyCommand(ctx, cfg, logger, args[1:])
	case "jobs":
		return jobsCommand(ctx, cfg, args[1:])
	case "token":
		return tokenCommand(cfg, args[1:])
	default:
		fmt.Fprintln(os.Stderr, usage)
		return 2
	}
}

func verifyCommand(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	org := fs.Int64("org", 0, "organization id, 0 for all")
	warehouse := fs.Int64("warehouse", 0, "warehouse id, 0 for all")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		return 1
	}
	defer pool.Close()

	svc := inventory.NewService(inventory.NewRepository(pool), nil, logger, inventory.ServiceConfig{})
	verifier, err := cli.NewVerifyCLI(svc)
	if err != nil {
		logger.Error("init verify", slog.Any("error", err))
		return 1
	}
	return verifier.VerifyCommand(ctx, cli.VerifyOptions{OrganizationID: *org, WarehouseID: *warehouse, JSONOutput: *asJSON})
}

func jobsCommand(ctx context.Context, cfg *app.Config, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, usage)
		return 2
	}
	jobsCLI, err := cli.NewJobsCLI(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		fmt.Fprintf(os.Stderr, "jobs: %v\n", err)
		return 1
	}
	defer jobsCLI.Close()

	switch args[0] {
	case "inspect":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "jobs inspect: %v\n", err)
			return 1
		}
		fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
		return 0
	case "trigger":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "jobs trigger: task name required")
			return 2
		}
		fs := flag.NewFlagSet("jobs trigger", flag.ContinueOnError)
		var params cli.TriggerParams
		fs.Int64Var(&params.OrganizationID, "org", 0, "organization id")
		fs.Int64Var(&params.WarehouseID, "warehouse", 0, "warehouse id")
		fs.Int64Var(&params.DocumentID, "document", 0, "count document id")
		fs.DurationVar(&params.Retention, "retention", cfg.IdempotencyRetention, "idempotency key retention")
		if err := fs.Parse(args[2:]); err != nil {
			return 2
		}
		info, err := jobsCLI.Trigger(ctx, args[1], params)
		if err != nil {
			fmt.Fprintf(os.Stderr, "jobs trigger: %v\n", err)
			return 1
		}
		fmt.Printf("enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
		return 0
	default:
		fmt.Fprintln(os.Stderr, usage)
		return 2
	}
}

func tokenCommand(cfg *app.Config, args []string) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	opts := cli.TokenOptions{Issuer: cfg.JWTIssuer, Audience: cfg.JWTAudience}
	fs.StringVar(&opts.Subject, "sub", "", "subject (user id)")
	fs.Int64Var(&opts.OrganizationID, "org", 0, "organization id")
	fs.StringVar(&opts.Roles, "roles", "viewer", "comma separated roles")
	fs.DurationVar(&opts.TTL, "ttl", time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if cfg.IsProduction() {
		fmt.Fprintln(os.Stderr, "token: refusing to sign tokens in production")
		return 1
	}
	verifier, err := auth.NewVerifier(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer, Audience: cfg.JWTAudience})
	if err != nil {
		fmt.Fprintf(os.Stderr, "token: %v\n", err)
		return 1
	}
	return cli.TokenCommand(verifier, opts)
}
