package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	// Quell-Datenbanken (SQLite-Dateien, von den Scrapern befüllt)
	EdxDBPath      string `envconfig:"EDX_DB_PATH" default:"data/edx_courses.db"`
	CourseraDBPath string `envconfig:"COURSERA_DB_PATH" default:"data/coursera.db"`
	NptelDBPath    string `envconfig:"NPTEL_DB_PATH" default:"data/nptel_courses.db"`

	// Ziel-Datenbank: SQLite-Datei (Default) oder Postgres
	TargetDriver string `envconfig:"TARGET_DRIVER" default:"sqlite"`
	TargetDBPath string `envconfig:"TARGET_DB_PATH" default:"data/unified_courses.db"`
	DBHost       string `envconfig:"DB_HOST"`
	DBPort       int    `envconfig:"DB_PORT" default:"5432"`
	DBUser       string `envconfig:"DB_USER"`
	DBPassword   string `envconfig:"DB_PASSWORD"`
	DBName       string `envconfig:"DB_NAME"`

	HTTPPort     string `envconfig:"HTTP_PORT" default:"4242"`
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	// ETL-Tuning
	BatchSize          int  `envconfig:"BATCH_SIZE" default:"500"`
	FailFast           bool `envconfig:"FAIL_FAST" default:"false"`
	SkipMissingSources bool `envconfig:"SKIP_MISSING_SOURCES" default:"true"`

	CronSchedule string `envconfig:"CRON_SCHEDULE" default:"0 3 * * *"`

	LogFile string `envconfig:"LOG_FILE" default:"logs/etl_merge.log"`
}

// TargetDSN gibt den Data Source Name für die Postgres-Zieldatenbank zurück.
func (c *Config) TargetDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
