package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"badgehub/internal/config"
	"badgehub/internal/database"
	"badgehub/internal/services"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type options struct {
	output  string
	timeout time.Duration
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "badgectl",
		Short: "Manage badge definitions and awards",
		Long: `badgectl seeds the badge catalog and evaluates badge criteria
against the configured database.

Configuration is read from the environment (and .env files outside
production), the same way the server reads it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.output != "json" && opts.output != "yaml" {
				return fmt.Errorf("unsupported output format %q (json, yaml)", opts.output)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "json", "Output format: json or yaml")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", time.Minute, "Operation timeout")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		newVersionCmd(opts),
		newValidateCmd(opts),
		newMigrateCmd(opts),
		newSeedCmd(opts),
		newCheckCmd(opts),
		newCheckAllCmd(opts),
		newProgressCmd(opts),
		newLeaderboardCmd(opts),
	)

	return rootCmd
}

// render writes v in the selected output format
func render(w io.Writer, format string, v interface{}) error {
	if format == "yaml" {
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(v); err != nil {
			return err
		}
		return encoder.Close()
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func parseID(raw, name string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, raw)
	}
	return id, nil
}

func newLogger(cfg *config.Config, verbose bool) (*zap.Logger, error) {
	logging := cfg.Logging
	if verbose {
		logging.Level = "debug"
	} else {
		logging.Level = "warn"
	}
	return logging.BuildLogger(cfg.Server.Environment)
}

// withServices loads configuration, connects to the database and runs fn
// against a started service collection.
func withServices(cmd *cobra.Command, opts *options, fn func(ctx context.Context, sc *services.ServiceCollection) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// The CLI seeds explicitly
	cfg.Badges.SeedOnStart = false

	logger, err := newLogger(cfg, opts.verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	dbManager, err := database.InitDB(cfg, logger)
	if err != nil {
		return err
	}

	sc, err := services.NewServiceCollection(dbManager, cfg, logger)
	if err != nil {
		dbManager.Close()
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = sc.Shutdown(shutdownCtx)
	}()

	if err := sc.Start(ctx); err != nil {
		return err
	}

	return fn(ctx, sc)
}
