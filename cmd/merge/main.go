package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"coursemerge/config"
	"coursemerge/extract"
	"coursemerge/loader"
	"coursemerge/services"
)

var (
	flagSources   []string
	flagDryRun    bool
	flagBatchSize int
	flagFailFast  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "coursemerge",
		Short:         "Merged die gescrapten Kurskataloge in den vereinheitlichten Store",
		RunE:          runMergeCmd,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.Flags().StringSliceVar(&flagSources, "sources", nil, "Quellen (coursera, edx, nptel); leer = alle")
	rootCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Extraktion ohne Schreibzugriffe, mit Preview im Log")
	rootCmd.Flags().IntVar(&flagBatchSize, "batch-size", 0, "Upsert-Batchgröße (0 = Konfigurationswert)")
	rootCmd.Flags().BoolVar(&flagFailFast, "fail-fast", false, "Lauf beim ersten Quellenfehler abbrechen")

	rootCmd.AddCommand(&cobra.Command{
		Use:          "cleanup",
		Short:        "Entfernt nicht-englische Kurse aus dem vereinheitlichten Katalog",
		RunE:         runCleanupCmd,
		SilenceUsage: true,
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMergeCmd(cmd *cobra.Command, args []string) error {
	cfg, logging, db, err := setup()
	if err != nil {
		return err
	}
	defer logging.Sync()

	sources := extract.AllSources()
	if len(flagSources) > 0 {
		sources = sources[:0]
		for _, name := range flagSources {
			src, err := extract.ParseSource(name)
			if err != nil {
				return err
			}
			sources = append(sources, src)
		}
	}

	mergeService := services.NewMergeService(cfg, db, logging)
	results, err := mergeService.Run(context.Background(), sources, services.RunOptions{
		DryRun:    flagDryRun,
		BatchSize: flagBatchSize,
		FailFast:  flagFailFast || cfg.FailFast,
	})

	for _, res := range results {
		switch {
		case res.Skipped:
			fmt.Printf("%-10s übersprungen (Quell-DB fehlt)\n", res.Source)
		case res.Error != "":
			fmt.Printf("%-10s FEHLER: %s\n", res.Source, res.Error)
		case flagDryRun:
			fmt.Printf("%-10s %d Records (Dry-Run, nichts geschrieben)\n", res.Source, res.Records)
		default:
			fmt.Printf("%-10s %d Records in %d Batches\n", res.Source, res.Records, res.Batches)
		}
	}
	return err
}

func runCleanupCmd(cmd *cobra.Command, args []string) error {
	cfg, logging, db, err := setup()
	if err != nil {
		return err
	}
	defer logging.Sync()

	mergeService := services.NewMergeService(cfg, db, logging)
	deleted, err := mergeService.CleanupNonEnglish()
	if err != nil {
		return err
	}
	fmt.Printf("%d nicht-englische Kurse entfernt\n", deleted)
	return nil
}

func setup() (*config.Config, *zap.Logger, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("config load error: %w", err)
	}
	logging, err := zap.NewProduction()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("can't initialize zap logger: %w", err)
	}
	db, err := loader.OpenTarget(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open unified catalog store: %w", err)
	}
	return cfg, logging, db, nil
}
