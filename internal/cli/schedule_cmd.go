package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/nutq/internal/cli/formatter"
)

func newListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show every scheme and its items",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatForest(app.Forest.Schemes(cmd.Context()), app.location()))
			return nil
		},
	}
}

func newUpcomingCmd(app *App) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "upcoming",
		Short: "Show the next occurrence of every item",
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := app.now()
			if at != "" {
				t, err := parseWhen(at, app.location())
				if err != nil {
					return err
				}
				ref = *t
			}
			occ := app.Forest.Upcoming(cmd.Context(), ref)
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatOccurrences("Upcoming", occ, ref, app.location()))
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "Reference time instead of now")
	return cmd
}

func newIncompleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "incomplete",
		Short: "Show every occurrence not yet marked complete",
		RunE: func(cmd *cobra.Command, args []string) error {
			occ := app.Forest.Incomplete(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatOccurrences("Incomplete", occ, app.now(), app.location()))
			return nil
		},
	}
}

func newRangeCmd(app *App) *cobra.Command {
	var from, to string
	var types []string

	cmd := &cobra.Command{
		Use:     "range",
		Aliases: []string{"calendar"},
		Short:   "Show occurrences overlapping a time window",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parseWhen(from, app.location())
			if err != nil {
				return err
			}
			end, err := parseWhen(to, app.location())
			if err != nil {
				return err
			}
			if start != nil && end != nil && end.Before(*start) {
				return fmt.Errorf("--to %s is before --from %s", to, from)
			}
			mask, err := parseTypes(types)
			if err != nil {
				return err
			}
			occ := app.Forest.Range(cmd.Context(), start, end, mask)
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatOccurrences("Calendar", occ, app.now(), app.location()))
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Window start (open when empty)")
	cmd.Flags().StringVar(&to, "to", "", "Window end (open when empty)")
	cmd.Flags().StringSliceVar(&types, "types", nil, "Item types: procedure, reminder, assignment, event")
	return cmd
}
