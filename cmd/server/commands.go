package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/phrazzld/taskflow/internal/config"
	"github.com/phrazzld/taskflow/internal/platform/logger"
	"github.com/phrazzld/taskflow/internal/platform/postgres"
	"github.com/phrazzld/taskflow/internal/service/auth"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "taskflow",
		Short:         "Task lifecycle API with queued status notifications",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to a YAML config file (default: ./config.yaml if present)")

	load := func() (*config.Config, error) {
		cfg, err := config.LoadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		return cfg, nil
	}

	rootCmd.AddCommand(serveCmd(load))
	rootCmd.AddCommand(migrateCmd(load))
	rootCmd.AddCommand(tokenCmd(load))
	rootCmd.AddCommand(configCmd(load))

	return rootCmd
}

type configLoader func() (*config.Config, error)

func serveCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API, queue consumer and overdue scanner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			log, err := logger.Setup(cfg.Server)
			if err != nil {
				return fmt.Errorf("failed to set up logger: %w", err)
			}
			log.Info("server configuration loaded",
				"port", cfg.Server.Port,
				"log_level", cfg.Server.LogLevel,
				"queue_driver", cfg.Queue.Driver,
				"worker_enabled", cfg.Worker.Enabled,
				"scheduler_enabled", cfg.Scheduler.Enabled)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			db, err := setupAppDatabase(ctx, cfg.Database, log)
			if err != nil {
				return err
			}

			app, err := newApplication(cfg, log, db)
			if err != nil {
				_ = db.Close()
				return err
			}
			return app.Run(ctx)
		},
	}
}

func migrateCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate {up|down|status|version|reset}",
		Short: "Manage the database schema",
		Long: `Apply or inspect the embedded database migrations.

Examples:
  taskflow migrate up
  taskflow migrate status --config /etc/taskflow/config.yaml`,
		ValidArgs: []string{
			postgres.MigrateUp,
			postgres.MigrateDown,
			postgres.MigrateStatus,
			postgres.MigrateVersion,
			postgres.MigrateReset,
		},
		Args: cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			log, err := logger.Setup(cfg.Server)
			if err != nil {
				return fmt.Errorf("failed to set up logger: %w", err)
			}

			ctx := cmd.Context()
			db, err := setupAppDatabase(ctx, cfg.Database, log)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := postgres.Migrate(ctx, db, args[0], log); err != nil {
				return err
			}
			log.Info("migration command finished", slog.String("command", args[0]))
			return nil
		},
	}
}

func tokenCmd(load configLoader) *cobra.Command {
	var (
		subject string
		scopes  []string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API access token",
		Long: `Issue a signed access token for a client of the task API.

Examples:
  taskflow token --subject ops-dashboard --scope tasks:read
  taskflow token --subject importer --scope tasks:read --scope tasks:write`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			jwtService, err := auth.NewJWTService(cfg.Auth)
			if err != nil {
				return fmt.Errorf("failed to initialize JWT service: %w", err)
			}

			token, err := jwtService.GenerateToken(context.Background(), subject, scopes)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&subject, "subject", "s", "", "client the token is issued to")
	cmd.Flags().StringSliceVar(&scopes, "scope", auth.AllScopes, "granted scopes (tasks:read, tasks:write)")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}

func configCmd(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg.Redacted()); err != nil {
				return fmt.Errorf("failed to encode configuration: %w", err)
			}
			return enc.Close()
		},
	})

	return cmd
}
