package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/bootstrap"
	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/dto"
	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/models"
)

func syncCmd() *cobra.Command {
	var token, from, to, group string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Mirror the timetable into Google Calendar",
		Long:  `Fetches the timetable for an ISO-8601 date range and, when it changed since the last sync, replaces the events of the configured calendar with it.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				return errors.New("an OAuth access token is required (--token or GOOGLE_ACCESS_TOKEN)")
			}
			req := dto.SyncRequest{AccessToken: token, StartDate: from, EndDate: to, Group: group}

			return withApp(cmd.Context(), func(ctx context.Context, app *bootstrap.App) error {
				outcome, err := app.Schedule.SyncSchedule(ctx, req)
				if err != nil {
					return err
				}
				if err := writeJSON(cmd.OutOrStdout(), outcome); err != nil {
					return err
				}
				if outcome.Status == models.SyncStatusPartial && outcome.Sync != nil {
					return fmt.Errorf("sync finished with %d failed calendar calls", len(outcome.Sync.Failures))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&token, "token", os.Getenv("GOOGLE_ACCESS_TOKEN"), "Google OAuth access token")
	cmd.Flags().StringVar(&from, "from", "", "Start date, ISO-8601")
	cmd.Flags().StringVar(&to, "to", "", "End date, ISO-8601")
	cmd.Flags().StringVar(&group, "group", "", "Group name (defaults to TIMETABLE_GROUP)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}
