package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/bootstrap"
	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/browser"
	"github.com/Kotbarsikow/Shed-parser-nuwee/pkg/logger"
)

func loginCmd() *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the timetable site in a visible browser and store the session",
		Long:  `Opens Chrome on the timetable page. Sign in by hand; once the sign-in prompt disappears the session cookies are saved to COOKIE_PATH for the headless browsers.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, app *bootstrap.App) error {
				chromeCfg := app.Chrome
				chromeCfg.Headless = false
				chrome, err := browser.NewChrome(chromeCfg, nil, logger.Named(app.Logger, "login"))
				if err != nil {
					return err
				}
				defer chrome.Close()

				waitCtx, cancel := context.WithTimeout(ctx, wait)
				defer cancel()
				fmt.Fprintf(cmd.ErrOrStderr(), "Sign in at %s within %s...\n", chromeCfg.URL, wait)

				cookies, err := chrome.WaitForSignIn(waitCtx)
				if err != nil {
					return err
				}
				if err := app.Cookies.Save(ctx, cookies); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "saved %d cookies to %s\n", len(cookies), app.Cookies.Location())
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 5*time.Minute, "How long to wait for the sign in to complete")

	return cmd
}
