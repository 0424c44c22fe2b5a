package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"coursemerge/config"
	"coursemerge/extract"
	"coursemerge/loader"
	"coursemerge/models"
	"coursemerge/services"
)

var (
	coursesUpsertedCounter prometheus.Counter
	sourceFailuresCounter  prometheus.Counter
)

func init() {
	coursesUpsertedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "courses_upserted_total",
			Help: "Total number of course records upserted into the unified catalog.",
		},
	)
	sourceFailuresCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "merge_source_failures_total",
			Help: "Total number of source-level failures during merge runs.",
		},
	)
	prometheus.MustRegister(coursesUpsertedCounter, sourceFailuresCounter)
}

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

// newLogger schreibt strukturiert in die Logdatei und auf die Konsole.
func newLogger(logFile string) (*zap.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	encCfg := zap.NewProductionEncoderConfig()
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), zap.InfoLevel)
	consoleCore := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(os.Stdout), zap.InfoLevel)
	return zap.New(zapcore.NewTee(fileCore, consoleCore)), nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config load error: %v", err)
	}

	logging, err := newLogger(cfg.LogFile)
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	// Setup Database Connection
	db, err := loader.OpenTarget(cfg)
	if err != nil {
		logging.Fatal("Failed to connect to unified catalog store", zap.Error(err))
	}
	logging.Info("Successfully connected to unified catalog store.")

	logging.Info("Running database auto-migration...")
	if err := loader.EnsureSchema(db); err != nil {
		logging.Fatal("Schema setup failed", zap.Error(err))
	}

	mergeService := services.NewMergeService(cfg, db, logging)

	// Setup Router
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(apiKeyAuthMiddleware(cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Setup Routes
	setupCourseRoutes(router, db, logging)
	setupMergeRoutes(router, mergeService, cfg, logging)

	// Setup Cron
	cronScheduler := cron.New()
	cronScheduler.AddFunc(cfg.CronSchedule, func() {
		logging.Info("Running scheduled merge...")
		runMerge(mergeService, extract.AllSources(),
			services.RunOptions{BatchSize: cfg.BatchSize, FailFast: cfg.FailFast}, logging)
	})
	cronScheduler.Start()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

// runMerge führt einen Lauf aus und aktualisiert die Prometheus-Zähler.
func runMerge(m *services.MergeService, sources []extract.Source, opts services.RunOptions, log *zap.Logger) ([]services.SourceResult, error) {
	results, err := m.Run(context.Background(), sources, opts)

	total := 0
	for _, res := range results {
		if res.Error != "" {
			sourceFailuresCounter.Inc()
			continue
		}
		total += res.Records
	}
	if !opts.DryRun {
		coursesUpsertedCounter.Add(float64(total))
	}

	if err != nil {
		log.Error("Merge run failed", zap.Error(err))
	} else {
		log.Info("Merge run completed", zap.Int("records", total))
	}
	return results, err
}

func setupCourseRoutes(router *gin.Engine, db *gorm.DB, log *zap.Logger) {
	rg := router.Group("/courses")

	// Einfacher GET-Endpunkt mit Query-Parametern
	rg.GET("/", func(c *gin.Context) {
		query := db.Model(&models.UnifiedCourse{})
		if src := c.Query("source"); src != "" {
			query = query.Where("source = ?", src)
		}
		if level := c.Query("level"); level != "" {
			query = query.Where("level = ?", level)
		}
		if subject := c.Query("subject"); subject != "" {
			query = query.Where("subject = ?", subject)
		}
		if q := c.Query("q"); q != "" {
			query = query.Where("title LIKE ?", "%"+q+"%")
		}
		limit := 100
		if raw := c.Query("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				limit = n
			}
		}

		var courses []models.UnifiedCourse
		if err := query.Order("updated_at desc").Limit(limit).Find(&courses).Error; err != nil {
			log.Error("Database query for courses failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, courses)
	})

	rg.GET("/:course_id", func(c *gin.Context) {
		id := c.Param("course_id")

		var course models.UnifiedCourse
		if err := db.Where("course_id = ?", id).First(&course).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "course not found"})
				return
			}
			log.Error("DB error fetching course", zap.String("course_id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, course)
	})

	// Body-gesteuerter Endpunkt für komplexere Abfragen
	rg.POST("/query", func(c *gin.Context) {
		type CourseQuery struct {
			Source    string   `json:"source"`
			Level     string   `json:"level"`
			Subject   string   `json:"subject"`
			Provider  string   `json:"provider"`
			MinRating *float64 `json:"min_rating"`
			Limit     int      `json:"limit"`
		}

		var req CourseQuery
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		query := db.Model(&models.UnifiedCourse{})
		if req.Source != "" {
			query = query.Where("source = ?", req.Source)
		}
		if req.Level != "" {
			query = query.Where("level = ?", req.Level)
		}
		if req.Subject != "" {
			query = query.Where("subject = ?", req.Subject)
		}
		if req.Provider != "" {
			query = query.Where("provider LIKE ?", "%"+req.Provider+"%")
		}
		if req.MinRating != nil {
			query = query.Where("rating >= ?", *req.MinRating)
		}
		if req.Limit > 0 {
			query = query.Limit(req.Limit)
		}

		var courses []models.UnifiedCourse
		if err := query.Order("updated_at desc").Find(&courses).Error; err != nil {
			log.Error("Database query for courses failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, courses)
	})

	router.GET("/stats", func(c *gin.Context) {
		type sourceCount struct {
			Source string `json:"source"`
			Count  int64  `json:"count"`
		}

		var total int64
		if err := db.Model(&models.UnifiedCourse{}).Count(&total).Error; err != nil {
			log.Error("Stats query failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}

		var bySource []sourceCount
		db.Model(&models.UnifiedCourse{}).
			Select("source, count(*) as count").
			Group("source").
			Scan(&bySource)

		var provenanceEntries int64
		db.Model(&models.SourceMap{}).Count(&provenanceEntries)

		c.JSON(http.StatusOK, gin.H{
			"total_courses":      total,
			"by_source":          bySource,
			"provenance_entries": provenanceEntries,
		})
	})
}

func setupMergeRoutes(router *gin.Engine, m *services.MergeService, cfg *config.Config, log *zap.Logger) {
	router.POST("/merge", func(c *gin.Context) {
		type MergeRequest struct {
			Sources   []string `json:"sources"`
			DryRun    bool     `json:"dry_run"`
			BatchSize int      `json:"batch_size"`
		}

		var req MergeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		sources := extract.AllSources()
		if len(req.Sources) > 0 {
			sources = sources[:0]
			for _, name := range req.Sources {
				src, err := extract.ParseSource(name)
				if err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				sources = append(sources, src)
			}
		}

		opts := services.RunOptions{
			DryRun:    req.DryRun,
			BatchSize: req.BatchSize,
			FailFast:  cfg.FailFast,
		}
		results, err := runMerge(m, sources, opts, log)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "results": results})
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": results})
	})
}
