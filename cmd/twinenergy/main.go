package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/RounakBanerji/Twinenergy-Demo/internal/api"
	"github.com/RounakBanerji/Twinenergy-Demo/internal/audit"
	"github.com/RounakBanerji/Twinenergy-Demo/internal/config"
	"github.com/RounakBanerji/Twinenergy-Demo/internal/db"
	"github.com/RounakBanerji/Twinenergy-Demo/internal/repository"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	loadDotEnv()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadDotEnv loads the first .env found in the working directory or up to two
// parents. A missing file is fine in containers.
func loadDotEnv() {
	envPaths := []string{".env"}
	if workDir, err := os.Getwd(); err == nil {
		parentDir := filepath.Dir(workDir)
		envPaths = append(envPaths,
			filepath.Join(parentDir, ".env"),
			filepath.Join(filepath.Dir(parentDir), ".env"),
		)
	}

	for _, envPath := range envPaths {
		if _, err := os.Stat(envPath); err != nil {
			continue
		}
		if err := godotenv.Load(envPath); err == nil {
			absPath, _ := filepath.Abs(envPath)
			fmt.Fprintf(os.Stderr, "Loaded environment from: %s\n", absPath)
			return
		}
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "twinenergy",
		Short:         "TwinEnergy readings API",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	root.AddCommand(
		newServeCmd(&configPath),
		newInitSchemaCmd(&configPath),
		newAuditCmd(&configPath),
	)
	return root
}

func newInitSchemaCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "init-schema",
		Short: "Create tables and indexes if absent, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), *configPath, func(ctx context.Context, cfg *config.Config, store repository.Store, logger *zap.Logger) error {
				if err := store.InitSchema(ctx); err != nil {
					return err
				}
				logger.Info("schema ready",
					zap.String("driver", cfg.Database.Driver),
					zap.String("target", storeTarget(cfg.Database)),
				)
				return nil
			})
		},
	}
}

func newAuditCmd(configPath *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Print the most recent audit entries as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), *configPath, func(ctx context.Context, cfg *config.Config, store repository.Store, logger *zap.Logger) error {
				if err := store.InitSchema(ctx); err != nil {
					return err
				}
				entries, err := audit.NewRecorder(store, logger).Recent(ctx, limit)
				if err != nil {
					return err
				}

				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(api.AuditEntryResponses(entries))
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", audit.RecentLimit, "number of entries, at most 50")
	return cmd
}

// withStore loads config, opens the store, runs fn and closes the store
func withStore(ctx context.Context, configPath string, fn func(context.Context, *config.Config, repository.Store, *zap.Logger) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, err := repository.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(ctx, cfg, store, logger)
}

func storeTarget(cfg config.DatabaseConfig) string {
	if cfg.Driver == config.DriverPostgres {
		return db.MaskPassword(cfg.URL)
	}
	return cfg.SQLitePath
}
