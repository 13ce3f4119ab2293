package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/nutq/internal/cli/formatter"
	"github.com/alexanderramin/nutq/internal/domain"
	"github.com/alexanderramin/nutq/internal/ics"
	"github.com/alexanderramin/nutq/internal/service"
)

func newNotifyCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Reconcile scheduled notifications with the current forest",
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := app.Notifications.Reconcile(cmd.Context(), app.now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatPlan(plan, app.location()))
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "due",
		Short: "List scheduled notifications whose time has passed",
		RunE: func(cmd *cobra.Command, args []string) error {
			due, err := app.Notifications.Due(cmd.Context(), app.now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatDue(due, app.location()))
			return nil
		},
	})
	return cmd
}

func newBackupsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backups",
		Short: "Inspect and restore local snapshots",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List stored snapshots",
			RunE: func(cmd *cobra.Command, args []string) error {
				infos, err := app.Backups.List(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatBackups(infos, app.location()))
				return nil
			},
		},
		&cobra.Command{
			Use:   "restore KEY",
			Short: "Replace the forest with a stored snapshot (e.g. monday)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				restored, err := app.Backups.Restore(ctx, args[0])
				if err != nil {
					return err
				}
				if err := app.persist(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Restored %s: %d schemes, %d items\n", args[0], len(restored), restored.ItemCount())
				return nil
			},
		},
	)
	return cmd
}

func newExportICSCmd(app *App) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export-ics",
		Short: "Write the external-calendar scheme as iCalendar",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := ics.ExportExternal(app.Forest.Schemes(cmd.Context()), app.now())
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), data)
				return err
			}
			if err := os.WriteFile(out, []byte(data), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "Wrote", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (stdout when empty)")
	return cmd
}

func newImportICSCmd(app *App) *cobra.Command {
	var schemeArg string

	cmd := &cobra.Command{
		Use:   "import-ics FILE",
		Short: "Add the events of an iCalendar file as items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			target, err := importTarget(app.Forest.Schemes(ctx), schemeArg)
			if err != nil {
				return err
			}

			fh, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer fh.Close()
			items, skipped, err := ics.Import(fh)
			if err != nil {
				return err
			}

			for _, it := range items {
				in := service.ItemInput{Text: it.Text, Start: it.Start, End: it.End, Repeats: it.Repeats}
				if _, err := app.Forest.AddItem(ctx, target.ID, in); err != nil {
					return err
				}
			}
			if err := app.persist(ctx); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Imported %d items into %s\n", len(items), formatter.SchemeBadge(target.Name, target.Color))
			for _, s := range skipped {
				fmt.Fprintf(w, "  %s %s: %s\n", formatter.StyleYellow.Render("skipped"), s.UID, s.Reason)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&schemeArg, "scheme", "", "Target scheme (defaults to the external-calendar scheme)")
	return cmd
}

func importTarget(f domain.Forest, input string) (domain.Scheme, error) {
	if input != "" {
		return resolveScheme(f, input)
	}
	s, ok := f.ExternalScheme()
	if !ok {
		return domain.Scheme{}, fmt.Errorf("%w; pass --scheme", ics.ErrNoExternalScheme)
	}
	return s, nil
}
