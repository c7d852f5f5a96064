// Command gesdoc runs the document lifecycle daemon: the hourly deadline
// sweeper plus one-shot maintenance commands.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gesdoc-gq/core/pkg/calendar"
	"github.com/gesdoc-gq/core/pkg/config"
	"github.com/gesdoc-gq/core/pkg/notify"
	"github.com/gesdoc-gq/core/pkg/observability"
	"github.com/gesdoc-gq/core/pkg/scheduler"
	"github.com/gesdoc-gq/core/pkg/store"

	_ "github.com/lib/pq"  // Postgres Driver
	_ "modernc.org/sqlite" // SQLite Driver
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint for testing.
func Run(args []string, stdout, stderr io.Writer) int {
	cmd := "serve"
	if len(args) > 1 {
		cmd = args[1]
	}

	switch cmd {
	case "serve", "server":
		return runServe(stderr)
	case "sweep":
		return runSweep(stdout, stderr)
	case "stats":
		return runStats(stdout, stderr)
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command: %s\n", cmd)
		usage(stderr)
		return 2
	}
}

func usage(w io.Writer) {
	_, _ = fmt.Fprintln(w, `Usage: gesdoc <command>

Commands:
  serve   run the deadline sweeper daemon (default)
  sweep   perform a single sweep and exit
  stats   print reminder statistics and exit`)
}

func newLogger(level string) *slog.Logger {
	var lv slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lv = slog.LevelDebug
	case "WARN":
		lv = slog.LevelWarn
	case "ERROR":
		lv = slog.LevelError
	default:
		lv = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lv}))
}

// openDB selects the driver by DSN scheme: postgres:// or sqlite://
// (anything else is treated as a sqlite file path).
func openDB(dsn string) (*sql.DB, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return sql.Open("postgres", dsn)
	case strings.HasPrefix(dsn, "sqlite://"):
		return sql.Open("sqlite", strings.TrimPrefix(dsn, "sqlite://"))
	default:
		return sql.Open("sqlite", dsn)
	}
}

type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *sql.DB
	sweeper *scheduler.Sweeper
	obs     *observability.Provider
}

func (a *app) close() {
	if a.obs != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.obs.Shutdown(ctx); err != nil {
			a.logger.Warn("telemetry shutdown failed", "error", err)
		}
	}
	_ = a.db.Close()
}

func buildApp(ctx context.Context, stderr io.Writer) (*app, error) {
	cfg := config.Load()
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	db, err := openDB(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := store.Init(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	cal := calendar.Default()
	if cfg.CalendarProfile != "" {
		cal, err = calendar.LoadProfile(cfg.CalendarProfile)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("load calendar profile: %w", err)
		}
		logger.Info("calendar profile loaded", "path", cfg.CalendarProfile)
	}

	notifications := store.NewNotificationStore(db)

	var mailer notify.Mailer
	if cfg.SMTPHost != "" {
		addr := fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort)
		mailer = notify.NewSMTPMailer(addr, cfg.SMTPFrom, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPPerMinute)
		logger.Info("smtp mailer enabled", "host", cfg.SMTPHost)
	}
	dispatcher := notify.NewDispatcher(notifications, mailer, logger)
	guard := notify.NewGuard(notifications)

	var obs *observability.Provider
	if cfg.OTelEnabled {
		obsCfg := observability.DefaultConfig()
		obsCfg.OTLPEndpoint = cfg.OTLPEndpoint
		obsCfg.Insecure = cfg.OTelInsecure
		obs, err = observability.New(ctx, obsCfg)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init telemetry: %w", err)
		}
		logger.Info("telemetry enabled", "endpoint", cfg.OTLPEndpoint)
	}

	var lock scheduler.Lock = scheduler.NoopLock{}
	if cfg.RedisAddr != "" {
		lock = scheduler.NewRedisLock(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, "gesdoc:sweep")
		logger.Info("redis sweep lease enabled", "addr", cfg.RedisAddr)
	}

	sweeper := scheduler.NewSweeper(
		store.NewDeadlineStore(db),
		store.NewDocumentStore(db),
		guard,
		dispatcher,
		notifications,
		cal,
		lock,
		logger,
	).WithInterval(cfg.SweepInterval).WithObservability(obs)

	return &app{cfg: cfg, logger: logger, db: db, sweeper: sweeper, obs: obs}, nil
}

func runServe(stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, stderr)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, "startup failed:", err)
		return 1
	}
	defer a.close()

	a.logger.Info("gesdoc daemon started", "sweep_interval", a.cfg.SweepInterval)
	a.sweeper.Run(ctx)
	a.logger.Info("gesdoc daemon stopped")
	return 0
}

func runSweep(stdout, stderr io.Writer) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	a, err := buildApp(ctx, stderr)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, "startup failed:", err)
		return 1
	}
	defer a.close()

	res, err := a.sweeper.Sweep(ctx)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, "sweep failed:", err)
		return 1
	}
	return printJSON(stdout, stderr, res)
}

func runStats(stdout, stderr io.Writer) int {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	a, err := buildApp(ctx, stderr)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, "startup failed:", err)
		return 1
	}
	defer a.close()

	stats, err := a.sweeper.ReminderStats(ctx)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, "stats failed:", err)
		return 1
	}
	return printJSON(stdout, stderr, stats)
}

func printJSON(stdout, stderr io.Writer, v any) int {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		_, _ = fmt.Fprintln(stderr, "encode failed:", err)
		return 1
	}
	return 0
}
