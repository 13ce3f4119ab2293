package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/oauth2"

	"github.com/alexanderramin/nutq/internal/cli"
	"github.com/alexanderramin/nutq/internal/config"
	"github.com/alexanderramin/nutq/internal/db"
	"github.com/alexanderramin/nutq/internal/repository"
	"github.com/alexanderramin/nutq/internal/service"
	"github.com/alexanderramin/nutq/internal/session"
	"github.com/alexanderramin/nutq/internal/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath, err := config.DefaultPath()
	if err != nil {
		return err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	logger := newLogger()

	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	uow := db.NewSQLiteUnitOfWork(database)
	store := service.NewSnapshotStore(database, uow)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var tokens oauth2.TokenSource
	if cfg.Token != "" {
		tokens = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"})
	}
	requester := transport.NewHTTPRequester(cfg.ServerURL, tokens, transport.NewLogObserver(logger))

	sess := session.New(session.Deps{
		Store: store,
		Dialer: &transport.WSDialer{
			BaseURL: cfg.WSURL,
			Bucket:  cfg.Bucket,
			Tokens:  tokens,
			Timeout: 10 * time.Second,
		},
		Takeover: transport.BucketStealer{Requester: requester, Bucket: cfg.Bucket},
		Logger:   logger,
		Metrics:  session.NewMetrics(reg),
		Sentinels: session.Sentinels{
			Taken:    cfg.Sentinels.Taken,
			Stealing: cfg.Sentinels.Stealing,
		},
	})

	observer := service.MultiUseCaseObserver(
		service.NewLogUseCaseObserver(logger),
		service.NewMetricsUseCaseObserver(reg),
	)

	app := &cli.App{
		Forest:        service.NewForestService(sess, observer),
		Notifications: service.NewNotificationService(sess, repository.NewSQLiteNotificationRepo(database), cfg.NotificationCap, observer),
		Backups:       service.NewBackupService(sess, repository.NewSQLiteSnapshotRepo(database), observer),
		Unsynced:      service.NewUnsyncedEdits(repository.NewSQLiteSnapshotRepo(database)),
		Session:       sess,
		Remote:        requester,
		Config:        cfg,
		Metrics:       promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Logger:        logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cli.NewRootCmd(app).ExecuteContext(ctx)
}

// newLogger writes text to an interactive stderr and JSON otherwise.
// NUTQ_DEBUG enables debug output.
func newLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelWarn}
	if os.Getenv("NUTQ_DEBUG") != "" {
		opts.Level = slog.LevelDebug
	}
	fd := os.Stderr.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
