package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/nutq/internal/cli/formatter"
	"github.com/alexanderramin/nutq/internal/domain"
)

func newSchemeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scheme",
		Short: "Manage schemes",
	}

	cmd.AddCommand(
		newSchemeAddCmd(app),
		newSchemeRenameCmd(app),
		newSchemeDeleteCmd(app),
		newSchemeExternalCmd(app),
	)
	return cmd
}

func newSchemeAddCmd(app *App) *cobra.Command {
	var color int

	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Create a scheme",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := app.Forest.AddScheme(ctx, args[0], color)
			if err != nil {
				return err
			}
			if err := app.persist(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created scheme %s %s\n", formatter.SchemeBadge(s.Name, s.Color), formatter.TruncID(s.ID))
			return nil
		},
	}

	cmd.Flags().IntVar(&color, "color", domain.MinColor, "Color index (1-6)")
	return cmd
}

func newSchemeRenameCmd(app *App) *cobra.Command {
	var name string
	var color int

	cmd := &cobra.Command{
		Use:   "rename SCHEME",
		Short: "Change a scheme's name or color",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := resolveScheme(app.Forest.Schemes(ctx), args[0])
			if err != nil {
				return err
			}
			if err := app.Forest.RenameScheme(ctx, s.ID, name, color); err != nil {
				return err
			}
			if err := app.persist(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Updated scheme", formatter.TruncID(s.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().IntVar(&color, "color", 0, "New color index (1-6)")
	return cmd
}

func newSchemeDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete SCHEME",
		Short: "Delete a scheme and all of its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := resolveScheme(app.Forest.Schemes(ctx), args[0])
			if err != nil {
				return err
			}
			deleted, err := app.Forest.DeleteScheme(ctx, s.ID)
			if err != nil {
				return err
			}
			if err := app.persist(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted scheme %s (%d items)\n", deleted.Scheme.Name, len(deleted.Scheme.Items))
			return nil
		},
	}
}

func newSchemeExternalCmd(app *App) *cobra.Command {
	var clearAll bool

	cmd := &cobra.Command{
		Use:   "external [SCHEME]",
		Short: "Choose the scheme mirrored to an external calendar",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := ""
			switch {
			case clearAll:
			case len(args) == 1:
				s, err := resolveScheme(app.Forest.Schemes(ctx), args[0])
				if err != nil {
					return err
				}
				id = s.ID
			default:
				return fmt.Errorf("a scheme or --clear is required")
			}
			if err := app.Forest.SetExternalSync(ctx, id); err != nil {
				return err
			}
			if err := app.persist(ctx); err != nil {
				return err
			}
			if id == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "External calendar sync disabled")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "External calendar sync set to", formatter.TruncID(id))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&clearAll, "clear", false, "Disable external sync for every scheme")
	return cmd
}
