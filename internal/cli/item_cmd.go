package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/nutq/internal/cli/formatter"
	"github.com/alexanderramin/nutq/internal/domain"
)

func newItemCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Manage items inside schemes",
	}

	cmd.AddCommand(
		newItemAddCmd(app),
		newItemUpdateCmd(app),
		newItemDeleteCmd(app),
		newItemDoneCmd(app),
	)
	return cmd
}

func newItemAddCmd(app *App) *cobra.Command {
	var flags itemFlags

	cmd := &cobra.Command{
		Use:   "add SCHEME TEXT",
		Short: "Add an item to a scheme",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := resolveScheme(app.Forest.Schemes(ctx), args[0])
			if err != nil {
				return err
			}
			in, err := flags.input(cmd.Flags(), domain.Item{Text: args[1], Repeats: domain.NoRepeat()}, app.location())
			if err != nil {
				return err
			}
			it, err := app.Forest.AddItem(ctx, s.ID, in)
			if err != nil {
				return err
			}
			if err := app.persist(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s (%s, %d occurrences)\n",
				formatter.TruncID(it.ID), it.Text, it.Type(), it.Repeats.Count())
			return nil
		},
	}

	bindItemFlags(cmd.Flags(), &flags)
	return cmd
}

func newItemUpdateCmd(app *App) *cobra.Command {
	var flags itemFlags
	var text string

	cmd := &cobra.Command{
		Use:   "update ITEM",
		Short: "Change an item's text, times or recurrence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			it, err := resolveItem(app.Forest.Schemes(ctx), args[0])
			if err != nil {
				return err
			}
			in, err := flags.input(cmd.Flags(), it, app.location())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("text") {
				in.Text = text
			}
			updated, err := app.Forest.UpdateItem(ctx, it.ID, in)
			if err != nil {
				return err
			}
			if err := app.persist(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s %s\n", formatter.TruncID(updated.ID), updated.Text)
			return nil
		},
	}

	bindItemFlags(cmd.Flags(), &flags)
	cmd.Flags().StringVar(&text, "text", "", "New text")
	return cmd
}

func newItemDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ITEM",
		Short: "Delete an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			it, err := resolveItem(app.Forest.Schemes(ctx), args[0])
			if err != nil {
				return err
			}
			if err := app.Forest.DeleteItem(ctx, it.ID); err != nil {
				return err
			}
			if err := app.persist(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Deleted", it.Text)
			return nil
		},
	}
}

func newItemDoneCmd(app *App) *cobra.Command {
	var index, value int
	var undo bool

	cmd := &cobra.Command{
		Use:   "done ITEM",
		Short: "Mark one occurrence complete (or set its progress)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			it, err := resolveItem(app.Forest.Schemes(ctx), args[0])
			if err != nil {
				return err
			}
			v := domain.ProgressComplete
			switch {
			case undo:
				v = domain.ProgressPending
			case cmd.Flags().Changed("progress"):
				v = value
			}
			if err := app.Forest.SetProgress(ctx, it.ID, index, v); err != nil {
				return err
			}
			if err := app.persist(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s #%d\n", formatter.StateBadge(v), it.Text, index)
			return nil
		},
	}

	cmd.Flags().IntVar(&index, "index", 0, "Occurrence index")
	cmd.Flags().IntVar(&value, "progress", 0, "Set a progress value instead of completing")
	cmd.Flags().BoolVar(&undo, "undo", false, "Mark the occurrence pending again")
	return cmd
}
