// cmd/service/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"review-ladder/internal/config"
	"review-ladder/internal/database"
	"review-ladder/internal/github"
	"review-ladder/internal/reconciler"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("Application startup error", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "review-ladder",
		Short:         "Ingest GitHub pull request reviews and rank reviewers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("migrations", "file://migrations", "source URL of the database migrations")
	root.AddCommand(newServeCmd(), newSyncCmd())
	return root
}

// app holds the components shared by every command.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	pool   *pgxpool.Pool
	store  *database.Store
	rec    *reconciler.Reconciler
}

// setup loads the configuration, connects to the database and applies the
// migrations.
func setup(ctx context.Context, cmd *cobra.Command) (*app, error) {
	// 1. Initialize structured logger
	logLevel := new(slog.LevelVar)
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// 2. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	setLogLevel(cfg.LogLevel, logLevel)
	logger.Info("Configuration loaded successfully", "repo", cfg.Repo.String())

	// 3. Initialize database connection and run migrations
	dbpool, err := pgxpool.New(ctx, cfg.DBURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.Info("Database connection established")

	source, err := cmd.Flags().GetString("migrations")
	if err != nil {
		dbpool.Close()
		return nil, err
	}
	if err := runMigrations(source, cfg.DBURL); err != nil {
		dbpool.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}
	logger.Info("Database migrations applied successfully")

	return &app{
		cfg:    cfg,
		logger: logger,
		pool:   dbpool,
		store:  database.NewStore(dbpool),
		rec:    reconciler.New(cfg.Repo, cfg.Since, logger),
	}, nil
}

func (a *app) close() {
	a.pool.Close()
}

func (a *app) auth() github.Auth {
	return github.Auth{
		Token:    a.cfg.GithubToken,
		User:     a.cfg.GithubUser,
		Password: a.cfg.GithubPassword,
	}
}

// pollClient returns the rate limited client used by the syncer.
func (a *app) pollClient() (*github.Client, error) {
	limiter := github.NewRateLimiter(nil, github.RateLimitOptions{
		Threshold: a.cfg.RateLimitThreshold,
		Window:    a.cfg.RateLimitWindow,
		Margin:    a.cfg.RateLimitMargin,
	}, a.logger)
	return github.NewClient(github.NewHTTPClient(a.auth(), limiter), a.cfg.GithubAPI, a.cfg.Repo, a.logger)
}

// hookClient returns a client that never waits on the poller's limiter.
func (a *app) hookClient() (*github.Client, error) {
	return github.NewClient(github.NewHTTPClient(a.auth(), nil), a.cfg.GithubAPI, a.cfg.Repo, a.logger)
}

func runMigrations(source, dbURL string) error {
	m, err := migrate.New(source, dbURL)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func setLogLevel(level string, v *slog.LevelVar) {
	switch level {
	case "debug":
		v.Set(slog.LevelDebug)
	case "warn":
		v.Set(slog.LevelWarn)
	case "error":
		v.Set(slog.LevelError)
	default:
		v.Set(slog.LevelInfo)
	}
}
