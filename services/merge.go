package services

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"coursemerge/config"
	"coursemerge/extract"
	"coursemerge/loader"
	"coursemerge/models"
)

// dryRunSampleSize: so viele Records landen im Dry-Run-Preview.
const dryRunSampleSize = 3

// MergeService kümmert sich um die Orchestrierung des gesamten Merge-Laufs:
// Quellen auflösen, Extraktion treiben, Batches in den Loader spülen.
// Es gibt genau einen Schreiber auf den Zielkatalog, Quellen laufen
// nacheinander und jeweils vollständig.
type MergeService struct {
	Config *config.Config
	DB     *gorm.DB // Zielkatalog
	Logger *zap.Logger
}

// NewMergeService erstellt eine neue Instanz des MergeService.
func NewMergeService(cfg *config.Config, db *gorm.DB, logger *zap.Logger) *MergeService {
	return &MergeService{Config: cfg, DB: db, Logger: logger}
}

// RunOptions steuern einen Merge-Lauf.
type RunOptions struct {
	DryRun    bool
	BatchSize int
	FailFast  bool
}

// SourceResult fasst das Ergebnis einer Quelle zusammen.
type SourceResult struct {
	Source  extract.Source        `json:"source"`
	Records int                   `json:"records"`
	Batches int                   `json:"batches"`
	Skipped bool                  `json:"skipped,omitempty"`
	Sample  []models.CourseRecord `json:"sample,omitempty"`
	Error   string                `json:"error,omitempty"`
}

// Run führt den Merge für die angeforderten Quellen aus. Der Fehler einer
// einzelnen Quelle wird geloggt und im Ergebnis vermerkt; abgebrochen wird
// nur im Fail-Fast-Modus. Bereits geflushte Batches bleiben erhalten.
func (m *MergeService) Run(ctx context.Context, sources []extract.Source, opts RunOptions) ([]SourceResult, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = m.Config.BatchSize
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}

	log := m.Logger.With(zap.Bool("dry_run", opts.DryRun), zap.Int("batch_size", opts.BatchSize))
	log.Info("Starte Merge-Lauf", zap.Any("sources", sources))

	// Im Dry-Run bleibt der Zielkatalog komplett unberührt, auch das Schema.
	if !opts.DryRun {
		if err := loader.EnsureSchema(m.DB); err != nil {
			return nil, fmt.Errorf("target schema setup failed: %w", err)
		}
	}

	results := make([]SourceResult, 0, len(sources))
	for _, src := range sources {
		res := m.runSource(ctx, src, opts)
		results = append(results, res)
		if res.Error != "" && opts.FailFast {
			return results, fmt.Errorf("source %s failed: %s", src, res.Error)
		}
	}

	log.Info("Merge-Lauf abgeschlossen")
	return results, nil
}

// runSource verarbeitet genau eine Quelle bis zum Ende.
func (m *MergeService) runSource(ctx context.Context, src extract.Source, opts RunOptions) SourceResult {
	log := m.Logger.With(zap.String("source", string(src)))
	res := SourceResult{Source: src}

	path, err := m.sourcePath(src)
	if err != nil {
		res.Error = err.Error()
		log.Error("Unbekannte Quelle", zap.Error(err))
		return res
	}

	if _, err := os.Stat(path); err != nil {
		if m.Config.SkipMissingSources {
			log.Warn("Quell-DB fehlt, Quelle wird übersprungen", zap.String("path", path))
			res.Skipped = true
			return res
		}
		res.Error = fmt.Sprintf("source db missing: %s", path)
		log.Error("Quell-DB fehlt", zap.String("path", path))
		return res
	}

	srcDB, err := openSource(path)
	if err != nil {
		res.Error = err.Error()
		log.Error("Quell-DB nicht lesbar", zap.String("path", path), zap.Error(err))
		return res
	}
	defer closeDB(srcDB)

	log.Info("Verarbeite Quelle", zap.String("db", path))

	batch := make([]models.CourseRecord, 0, opts.BatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := loader.UpsertBatch(m.DB, batch); err != nil {
			return err
		}
		res.Batches++
		log.Info("Batch geschrieben", zap.Int("records", len(batch)))
		batch = batch[:0]
		return nil
	}

	emit := func(rec models.CourseRecord) error {
		res.Records++
		if opts.DryRun {
			if len(res.Sample) < dryRunSampleSize {
				res.Sample = append(res.Sample, rec)
			}
			return nil
		}
		batch = append(batch, rec)
		if len(batch) >= opts.BatchSize {
			return flush()
		}
		return nil
	}

	if err := src.Extractor()(srcDB, m.Logger, emit); err != nil {
		res.Error = err.Error()
		log.Error("Extraktion fehlgeschlagen", zap.Error(err))
		return res
	}
	if err := flush(); err != nil {
		res.Error = err.Error()
		log.Error("Letzter Batch-Flush fehlgeschlagen", zap.Error(err))
		return res
	}

	if opts.DryRun {
		log.Info("[DRY RUN] Extraktion abgeschlossen",
			zap.Int("records", res.Records), zap.Any("preview", res.Sample))
	} else {
		log.Info("Quelle abgeschlossen",
			zap.Int("records", res.Records), zap.Int("batches", res.Batches))
	}
	return res
}

// CleanupNonEnglish entfernt Zeilen, deren Sprache gesetzt und nicht Englisch
// ist (exakter, case-insensitiver Vergleich). Zeilen ohne Sprachangabe
// bleiben stehen.
func (m *MergeService) CleanupNonEnglish() (int64, error) {
	result := m.DB.Exec(
		"DELETE FROM unified_courses WHERE language IS NOT NULL AND LOWER(language) <> ?",
		"english",
	)
	if result.Error != nil {
		return 0, result.Error
	}
	m.Logger.Info("Sprach-Cleanup abgeschlossen", zap.Int64("deleted", result.RowsAffected))
	return result.RowsAffected, nil
}

func (m *MergeService) sourcePath(src extract.Source) (string, error) {
	switch src {
	case extract.SourceCoursera:
		return m.Config.CourseraDBPath, nil
	case extract.SourceEdx:
		return m.Config.EdxDBPath, nil
	case extract.SourceNptel:
		return m.Config.NptelDBPath, nil
	}
	return "", fmt.Errorf("unknown source: %q", src)
}

// openSource öffnet eine Quelldatenbank schreibgeschützt.
func openSource(path string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro", path)
	return gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
