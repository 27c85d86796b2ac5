package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/DanielPopoola/atelier-orders/internal/app"
	"github.com/DanielPopoola/atelier-orders/internal/config"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "ordersctl",
		Short:         "Operate the atelier orders service from the command line",
		Version:       app.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(transitionCmd())
	rootCmd.AddCommand(refundCmd())
	rootCmd.AddCommand(pollCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// withApp loads configuration, builds the service graph and hands it to fn.
func withApp(ctx context.Context, fn func(a *app.App) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := cfg.Logger.NewLogger(cfg.Primary.Env)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))

	return fn(a)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
