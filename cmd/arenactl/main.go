// Command arenactl runs the arena's scheduled jobs: weekly score sync, rank
// recomputation and the end-of-week settlement.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/osimia/algoridmi/internal/arena"
	"github.com/osimia/algoridmi/internal/auth"
	"github.com/osimia/algoridmi/internal/cache"
	"github.com/osimia/algoridmi/internal/config"
	"github.com/osimia/algoridmi/internal/store"
	"github.com/osimia/algoridmi/internal/tournament"
)

const usage = `usage: arenactl <command> [flags]

commands:
  migrate            apply the database schema
  sync [-all-time]   copy ratings and weekly points into the arena and re-rank
  ranks              re-rank every division from stored scores
  settle             award the weekly podiums and start a new week
  token -user ID     mint a bearer token for local testing
`

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, os.Args[1], os.Args[2:], os.Stdout); err != nil {
		logger.Error(os.Args[1], "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, cmd string, args []string, out io.Writer) error {
	if cmd == "token" {
		return runToken(cfg, args, out)
	}

	db, err := store.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer db.Close()

	if cmd == "migrate" {
		if err := store.Migrate(ctx, db); err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintln(out, "schema applied")
		return nil
	}

	rdb, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer rdb.Close()

	svc := tournament.NewService(db, rdb, cfg.SettleLockTTL, logger)

	switch cmd {
	case "sync":
		fs := flag.NewFlagSet("sync", flag.ContinueOnError)
		allTime := fs.Bool("all-time", false, "count points from all time instead of the last week")
		days := fs.Int("days", 7, "length of the scoring window in days")
		if err := fs.Parse(args); err != nil {
			return err
		}
		since := time.Now().AddDate(0, 0, -*days)
		if *allTime {
			since = time.Time{}
		}
		report, err := svc.Sync(ctx, since)
		if err != nil {
			return lockHint(err)
		}
		color.New(color.FgGreen).Fprintf(out, "synced: %d updated, %d created, %d changed division\n",
			report.Updated, report.Created, report.Moved)
		return nil

	case "ranks":
		changed, err := svc.RecomputeAll(ctx)
		if err != nil {
			return lockHint(err)
		}
		color.New(color.FgGreen).Fprintf(out, "ranks recomputed: %d positions changed\n", changed)
		return nil

	case "settle":
		report, err := svc.Settle(ctx)
		if err != nil {
			return lockHint(err)
		}
		printAwards(out, report)
		return nil

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func runToken(cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	userID := fs.Int64("user", 0, "user ID")
	name := fs.String("name", "", "username claim")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID <= 0 {
		return errors.New("-user is required")
	}
	token, err := auth.Issue(*userID, *name, cfg.JWTSecret, *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	return nil
}

func lockHint(err error) error {
	if errors.Is(err, tournament.ErrSettlementRunning) {
		return fmt.Errorf("%w; retry when it finishes", err)
	}
	return err
}

// printAwards renders a settlement grouped by division in award order.
func printAwards(out io.Writer, report *tournament.SettleReport) {
	bold := color.New(color.Bold)
	if len(report.Awards) == 0 {
		color.New(color.FgYellow).Fprintln(out, "no scores this week, nothing awarded")
	} else {
		bold.Fprintf(out, "weekly awards (%s)\n", report.ID)
		fmt.Fprintln(out, strings.Repeat("-", 50))
		var current arena.Division
		for _, a := range report.Awards {
			if a.Division != current {
				current = a.Division
				color.New(color.FgCyan).Fprintf(out, "%s:\n", current.Title())
			}
			fmt.Fprintf(out, "  #%d user %d - %d points - %s\n", a.Position, a.UserID, a.WeeklyScore, a.Label)
		}
		fmt.Fprintln(out, strings.Repeat("-", 50))
		color.New(color.FgGreen).Fprintf(out, "settled: %d awards\n", len(report.Awards))
	}
	fmt.Fprintln(out, "weekly scores reset, a new week has started")
}
