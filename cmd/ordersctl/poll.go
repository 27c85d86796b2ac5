package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/DanielPopoola/atelier-orders/internal/app"
	"github.com/spf13/cobra"
)

func pollCmd() *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Expire stale sessions and re-check provider B payments",
		Long: `Run the session sweeper. With --once a single sweep runs and the command
waits for the provider B polls it scheduled before exiting, which suits cron.
Without it the sweeper keeps running until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return withApp(ctx, func(a *app.App) error {
				if !once {
					a.Sweeper.Start(ctx)
					return nil
				}

				report, err := a.Sweeper.RunOnce(ctx)
				a.Dispatcher.Wait()
				fmt.Fprintf(cmd.OutOrStdout(), "expired=%d repolled=%d failed=%d\n",
					report.Expired, report.Repolled, report.Failed)
				if err != nil {
					return err
				}
				if report.Failed > 0 {
					return errors.New("some sessions could not be swept")
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "run a single sweep and exit")
	return cmd
}
