package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/nutq/internal/cli/formatter"
	"github.com/alexanderramin/nutq/internal/config"
	"github.com/alexanderramin/nutq/internal/domain"
	"github.com/alexanderramin/nutq/internal/session"
)

func newSyncCmd(app *App) *cobra.Command {
	var once, pushLocal, discardLocal bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Take the writer slot and push edits until interrupted",
		Long: `Take the writer slot and push edits until interrupted.

Taking the slot replaces the local forest with the server copy. Edits made
while offline must be resolved first: --push-local uploads them in place of
the server copy, --discard-local drops them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			local, pending, err := app.unsynced(ctx)
			if err != nil {
				return err
			}
			if pending && !pushLocal && !discardLocal {
				return fmt.Errorf("%w; rerun with --push-local to upload them or --discard-local to drop them", errLocalEdits)
			}

			if err := app.Session.Steal(ctx); err != nil {
				fmt.Fprintln(out, formatter.StyleYellow.Render("Could not connect; working from the local snapshot."))
				app.logger().WarnContext(ctx, "sync_steal_failed", "error", err.Error())
			}
			fmt.Fprintln(out, formatter.ConnectionBadge(app.Session.State().String()))
			synced := app.Session.State() == session.Synced

			if pending {
				switch {
				case !synced:
					fmt.Fprintln(out, "Local edits kept for the next sync.")
				case pushLocal:
					if err := app.uploadLocal(ctx, local); err != nil {
						app.Session.Cancel()
						return err
					}
					fmt.Fprintf(out, "Uploaded local edits: %d schemes, %d items\n", len(local), local.ItemCount())
				default:
					if err := app.clearUnsynced(ctx); err != nil {
						app.Session.Cancel()
						return err
					}
					fmt.Fprintln(out, "Discarded local edits.")
				}
			}

			if once {
				defer app.Session.Cancel()
				res, err := app.Session.SaveCycle(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, "Save cycle:", res.String())
				return nil
			}
			if pending && !synced {
				// A later reacquire would overwrite the edits with the server copy.
				return nil
			}

			stop, err := app.serveMetrics(ctx)
			if err != nil {
				return err
			}
			defer stop()

			interval, reacquire := config.DefaultSaveInterval, true
			if app.Config != nil {
				interval, reacquire = app.Config.SaveInterval, app.Config.AutoReacquire
			}
			err = app.Session.Run(ctx, session.RunOptions{Interval: interval, Reacquire: reacquire})
			app.Session.Cancel()
			return err
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Run a single save cycle and exit")
	cmd.Flags().BoolVar(&pushLocal, "push-local", false, "Upload offline edits in place of the server copy")
	cmd.Flags().BoolVar(&discardLocal, "discard-local", false, "Drop offline edits and keep the server copy")
	cmd.MarkFlagsMutuallyExclusive("push-local", "discard-local")
	return cmd
}

// uploadLocal replaces the freshly acquired forest with the offline copy and
// flushes it. The first cycle after acquiring resends the whole forest.
func (app *App) uploadLocal(ctx context.Context, local domain.Forest) error {
	if err := app.Session.Mutate(func(f *domain.Forest) error {
		*f = local.Clone()
		return nil
	}); err != nil {
		return err
	}
	if err := app.Session.Flush(ctx); err != nil {
		return fmt.Errorf("uploading local edits: %w", err)
	}
	return app.clearUnsynced(ctx)
}

// serveMetrics exposes app.Metrics on the configured address until stop is
// called. It is a no-op without an address or handler.
func (app *App) serveMetrics(ctx context.Context) (stop func(), err error) {
	if app.Metrics == nil || app.Config == nil || app.Config.MetricsListen == "" {
		return func() {}, nil
	}
	ln, err := net.Listen("tcp", app.Config.MetricsListen)
	if err != nil {
		return nil, fmt.Errorf("listening for metrics: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", app.Metrics)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger().ErrorContext(ctx, "metrics_server_failed", "error", err.Error())
		}
	}()
	app.logger().InfoContext(ctx, "metrics_listening", "addr", ln.Addr().String())
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}, nil
}

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connection state and forest size",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := app.Session.Forest()
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, formatter.ConnectionBadge(app.Session.State().String()))
			fmt.Fprintf(out, "%d schemes, %d items\n", len(f), f.ItemCount())
			if s, ok := f.ExternalScheme(); ok {
				fmt.Fprintln(out, "Calendar:", formatter.SchemeBadge(s.Name, s.Color))
			}
			if app.Config != nil && app.Config.Bucket != "" {
				fmt.Fprintln(out, "Bucket:", app.Config.Bucket)
			}
			local, pending, err := app.unsynced(cmd.Context())
			if err != nil {
				return err
			}
			if pending {
				fmt.Fprintf(out, "Unsynced local edits: %d schemes, %d items\n", len(local), local.ItemCount())
			}
			return nil
		},
	}
}

func newFetchCmd(app *App) *cobra.Command {
	var discardLocal bool

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Replace the local snapshot with the server copy without taking the writer slot",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if app.Remote == nil || app.Config == nil || app.Config.Bucket == "" {
				return fmt.Errorf("no bucket configured")
			}
			_, pending, err := app.unsynced(ctx)
			if err != nil {
				return err
			}
			if pending && !discardLocal {
				return fmt.Errorf("%w; run sync --push-local first or pass --discard-local", errLocalEdits)
			}
			data, err := app.Remote.FetchBucket(ctx, app.Config.Bucket)
			if err != nil {
				return fmt.Errorf("fetching bucket: %w", err)
			}
			fetched, err := domain.DecodeForest(data)
			if err != nil {
				return fmt.Errorf("decoding bucket: %w", err)
			}
			if err := app.Session.Mutate(func(f *domain.Forest) error {
				*f = fetched
				return nil
			}); err != nil {
				return err
			}
			if err := app.persist(ctx); err != nil {
				return err
			}
			if err := app.clearUnsynced(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fetched %d schemes, %d items\n", len(fetched), fetched.ItemCount())
			return nil
		},
	}

	cmd.Flags().BoolVar(&discardLocal, "discard-local", false, "Drop offline edits")
	return cmd
}

func newRegisterDeviceCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "register-device TOKEN",
		Short: "Register a push token with the sync server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Remote == nil {
				return fmt.Errorf("no server configured")
			}
			if err := app.Remote.RegisterDevice(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("registering device: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Device registered")
			return nil
		},
	}
}
