package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/bootstrap"
	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/dto"
)

func fetchCmd() *cobra.Command {
	var group, from, to, format, out string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Print a group's timetable",
		Long:  `Fetches the timetable for a date range (dd.mm.yyyy) and prints it as JSON, or renders a CSV or PDF export.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, app *bootstrap.App) error {
				if group == "" {
					group = app.Config.Timetable.DefaultGroup
				}
				req := dto.ScheduleRequest{Group: group, StartDate: from, EndDate: to}
				if format == "json" {
					lessons, err := app.Schedule.GetSchedule(ctx, req)
					if err != nil {
						return err
					}
					return writeJSON(cmd.OutOrStdout(), lessons)
				}

				file, err := app.Export.Export(ctx, dto.ExportRequest{ScheduleRequest: req, Format: format})
				if err != nil {
					return err
				}
				if out == "" {
					out = file.Filename
				}
				if out == "-" {
					_, err = cmd.OutOrStdout().Write(file.Data)
					return err
				}
				if err := os.WriteFile(out, file.Data, 0o644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d lessons to %s\n", file.Lessons, out)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&group, "group", "", "Group name (defaults to TIMETABLE_GROUP)")
	cmd.Flags().StringVar(&from, "from", "", "Start date, dd.mm.yyyy")
	cmd.Flags().StringVar(&to, "to", "", "End date, dd.mm.yyyy")
	cmd.Flags().StringVar(&format, "format", "json", "Output format: json, csv or pdf")
	cmd.Flags().StringVar(&out, "out", "", "Export file path, - for stdout (csv and pdf only)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}
