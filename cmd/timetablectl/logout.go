package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/bootstrap"
)

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored timetable session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, app *bootstrap.App) error {
				if err := app.Cookies.Clear(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", app.Cookies.Location())
				return nil
			})
		},
	}
}
