package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"catalog/harvester/internal/config"
	"catalog/harvester/internal/container"
	"catalog/harvester/internal/service"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		var fatal *service.FatalRunError
		if errors.As(err, &fatal) && fatal.Saved > 0 {
			log.Errorf("Run failed, %d partial records saved", fatal.Saved)
		}
		log.Fatalf("Application exited with error: %v", err)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "harvester",
		Short:         "Collects the product catalog of a retail site",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default is ./config.yaml)")

	cmd.AddCommand(newHarvestCmd(), newMenuCmd())
	return cmd
}

func newHarvestCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Walk every category, enrich availability and save the records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			log.Info("Starting catalog harvester...")
			app := container.New(cmd.Context(), cfg)
			defer app.Close()

			if err := app.InitHarvest(cmd.Context(), limit); err != nil {
				return fmt.Errorf("failed to initialize harvest: %w", err)
			}

			summary, err := app.Run(cmd.Context())
			if summary != nil {
				logSummary(summary)
			}
			if err != nil {
				return err
			}

			log.Info("Application finished successfully")
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "stop after this many records (overrides runtime.limit)")
	return cmd
}

func newMenuCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Extract the category tree from the navigation menu",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			app := container.New(cmd.Context(), cfg)
			defer app.Close()

			return app.RunMenu(cmd.Context())
		},
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := setupLogging(cfg.Logging); err != nil {
		return nil, err
	}
	log.Info("Configuration loaded successfully")
	return cfg, nil
}

func setupLogging(cfg config.LoggingConfig) error {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid logging.level: %w", err)
	}
	log.SetLevel(level)

	switch cfg.Format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}

func logSummary(s *service.Summary) {
	log.WithFields(log.Fields{
		"run_id":      s.RunID,
		"categories":  s.Categories,
		"skipped":     s.Skipped,
		"aborted":     s.Aborted,
		"records":     s.Records,
		"unique_skus": s.UniqueSKUs,
		"limit_hit":   s.LimitHit,
	}).Infof("📊 Harvest summary, output: %s", s.Destination)
}
