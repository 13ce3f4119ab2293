package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/nutq/internal/config"
	"github.com/alexanderramin/nutq/internal/domain"
	"github.com/alexanderramin/nutq/internal/service"
	"github.com/alexanderramin/nutq/internal/session"
)

// SyncSession is the part of *session.Session the commands drive.
type SyncSession interface {
	State() session.State
	Forest() domain.Forest
	Mutate(fn func(f *domain.Forest) error) error
	Steal(ctx context.Context) error
	Cancel()
	Flush(ctx context.Context) error
	SaveCycle(ctx context.Context) (session.CycleOutcome, error)
	LoadLocal(ctx context.Context) (string, error)
	Run(ctx context.Context, opts session.RunOptions) error
}

// Remote is the HTTP side of the sync server.
type Remote interface {
	FetchBucket(ctx context.Context, bucket string) ([]byte, error)
	RegisterDevice(ctx context.Context, token string) error
}

// App holds everything the commands need.
type App struct {
	Forest        service.ForestService
	Notifications service.NotificationService
	Backups       service.BackupService
	Unsynced      service.UnsyncedEdits
	Session       SyncSession
	Remote        Remote

	Config *config.Config
	// Metrics is served on Config.MetricsListen during `nutq sync`.
	Metrics http.Handler
	Logger  *slog.Logger
	Now     func() time.Time
}

func (app *App) now() time.Time {
	if app.Now != nil {
		return app.Now()
	}
	return time.Now()
}

func (app *App) location() *time.Location {
	if app.Config == nil {
		return time.Local
	}
	return app.Config.Location()
}

func (app *App) logger() *slog.Logger {
	if app.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return app.Logger
}

// errLocalEdits guards commands that would replace the local forest with the
// remote copy while edits made offline are still pending.
var errLocalEdits = errors.New("local edits never reached the server")

// persist runs one save cycle so an edit reaches the remote (synced) or
// disk. An edit that only reached disk is also recorded as unsynced.
func (app *App) persist(ctx context.Context) error {
	out, err := app.Session.SaveCycle(ctx)
	if err != nil {
		return fmt.Errorf("saving: %w", err)
	}
	app.logger().DebugContext(ctx, "persisted", "outcome", out.String())
	if out == session.CycleSavedLocal && app.Unsynced != nil {
		return app.Unsynced.Mark(ctx, app.Session.Forest())
	}
	return nil
}

// unsynced returns the forest edited offline, if any.
func (app *App) unsynced(ctx context.Context) (domain.Forest, bool, error) {
	if app.Unsynced == nil {
		return nil, false, nil
	}
	return app.Unsynced.Load(ctx)
}

func (app *App) clearUnsynced(ctx context.Context) error {
	if app.Unsynced == nil {
		return nil
	}
	return app.Unsynced.Clear(ctx)
}

// NewRootCmd creates the top-level "nutq" command. Every subcommand starts
// from the newest local snapshot.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "nutq",
		Short:         "Schemes, recurring items and a single-writer sync client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			key, err := app.Session.LoadLocal(cmd.Context())
			if err != nil && !errors.Is(err, session.ErrConnected) {
				return fmt.Errorf("loading local snapshot: %w", err)
			}
			app.logger().DebugContext(cmd.Context(), "loaded_local", "key", key)
			return nil
		},
	}

	root.AddCommand(
		newListCmd(app),
		newUpcomingCmd(app),
		newIncompleteCmd(app),
		newRangeCmd(app),
		newSchemeCmd(app),
		newItemCmd(app),
		newSyncCmd(app),
		newStatusCmd(app),
		newFetchCmd(app),
		newRegisterDeviceCmd(app),
		newNotifyCmd(app),
		newBackupsCmd(app),
		newExportICSCmd(app),
		newImportICSCmd(app),
	)
	return root
}
