package loader

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"coursemerge/config"
)

// OpenTarget öffnet den Zielkatalog: SQLite-Datei (Default) oder Postgres,
// je nach TARGET_DRIVER.
func OpenTarget(cfg *config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}
	switch cfg.TargetDriver {
	case "", "sqlite":
		return gorm.Open(sqlite.Open(cfg.TargetDBPath), gormCfg)
	case "postgres":
		return gorm.Open(postgres.Open(cfg.TargetDSN()), gormCfg)
	}
	return nil, fmt.Errorf("unsupported target driver: %q", cfg.TargetDriver)
}
