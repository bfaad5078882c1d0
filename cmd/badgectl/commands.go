package main

import (
	"context"
	"fmt"

	"badgehub/internal/appinfo"
	"badgehub/internal/config"
	"badgehub/internal/database"
	"badgehub/internal/services"

	"github.com/spf13/cobra"
)

const defaultCatalogPath = "badges.yaml"

func newVersionCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return render(cmd.OutOrStdout(), opts.output, appinfo.Get())
		},
	}
}

func newValidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [catalog.yaml]",
		Short: "Validate a badge catalog file without touching the database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultCatalogPath
			if len(args) == 1 {
				path = args[0]
			}

			badges, err := services.LoadCatalogFile(path)
			if err != nil {
				return err
			}
			services.SortCatalog(badges)

			return render(cmd.OutOrStdout(), opts.output, map[string]interface{}{
				"catalog": path,
				"count":   len(badges),
				"badges":  badges,
			})
		},
	}
}

func newMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			cfg.Database.AutoMigrate = true

			logger, err := newLogger(cfg, opts.verbose)
			if err != nil {
				return err
			}
			defer logger.Sync()

			manager, err := database.InitDB(cfg, logger)
			if err != nil {
				return err
			}
			defer manager.Close()

			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newSeedCmd(opts *options) *cobra.Command {
	var catalogPath string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert the badge catalog into the database",
		Long: `Upsert every badge definition in the catalog by name. Seeding is
idempotent: running it twice only refreshes descriptive fields.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, opts, func(ctx context.Context, sc *services.ServiceCollection) error {
				path := catalogPath
				if path == "" {
					path = sc.Config.Badges.CatalogPath
				}

				result, err := sc.GetCatalogSeeder().SeedFile(ctx, path)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts.output, result)
			})
		},
	}

	cmd.Flags().StringVarP(&catalogPath, "catalog", "c", "", "Catalog file (default: BADGE_CATALOG_PATH)")
	return cmd
}

func newCheckCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check <user-id> <badge-id>",
		Short: "Evaluate one badge for a user and award it when earned",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID(args[0], "user-id")
			if err != nil {
				return err
			}
			badgeID, err := parseID(args[1], "badge-id")
			if err != nil {
				return err
			}

			return withServices(cmd, opts, func(ctx context.Context, sc *services.ServiceCollection) error {
				result, err := sc.GetBadgeService().CheckBadge(ctx, userID, badgeID)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts.output, result)
			})
		},
	}
}

func newCheckAllCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check-all <user-id>",
		Short: "Evaluate every badge for a user and list the newly awarded ones",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID(args[0], "user-id")
			if err != nil {
				return err
			}

			return withServices(cmd, opts, func(ctx context.Context, sc *services.ServiceCollection) error {
				awarded, err := sc.GetBadgeService().CheckAllBadges(ctx, userID)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts.output, awarded)
			})
		},
	}
}

func newProgressCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "progress <user-id>",
		Short: "Show a user's progress toward every badge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID(args[0], "user-id")
			if err != nil {
				return err
			}

			return withServices(cmd, opts, func(ctx context.Context, sc *services.ServiceCollection) error {
				progress, err := sc.GetBadgeService().GetProgress(ctx, userID)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts.output, progress)
			})
		},
	}
}

func newLeaderboardCmd(opts *options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show users ranked by badge count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, opts, func(ctx context.Context, sc *services.ServiceCollection) error {
				entries, err := sc.GetBadgeService().GetLeaderboard(ctx, limit)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts.output, entries)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Number of entries (default: BADGE_LEADERBOARD_LIMIT)")
	return cmd
}
