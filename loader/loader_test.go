package loader

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"coursemerge/models"
)

func openTargetDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "target.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, EnsureSchema(db))
	return db
}

func strPtr(s string) *string { return &s }

func sampleRecord() models.CourseRecord {
	return models.CourseRecord{
		Source:         "edx",
		SourceCourseID: "e1",
		Title:          strPtr("EdX Title"),
		Level:          strPtr("beginner"),
		Language:       strPtr("English"),
		Instructors:    []string{"prof_x"},
		Tags:           []string{"AI", "ML"},
		Skills:         []string{"Python"},
		Extra:          map[string]any{"availability": "Available"},
	}
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	db := openTargetDB(t)
	require.NoError(t, EnsureSchema(db))
	require.True(t, db.Migrator().HasTable("unified_courses"))
	require.True(t, db.Migrator().HasTable("source_map"))
}

func TestUpsertBatchEmpty(t *testing.T) {
	db := openTargetDB(t)
	require.NoError(t, UpsertBatch(db, nil))

	var count int64
	require.NoError(t, db.Model(&models.SourceMap{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestUpsertBatchIdempotent(t *testing.T) {
	db := openTargetDB(t)

	rec := sampleRecord()
	require.NoError(t, UpsertBatch(db, []models.CourseRecord{rec}))

	var first models.UnifiedCourse
	require.NoError(t, db.First(&first, "course_id = ?", "edx:e1").Error)
	require.Equal(t, "EdX Title", *first.Title)

	// Zweiter Lauf mit geändertem Titel: gleiche Zeile, created_at stabil,
	// updated_at rückt vor, Provenance wächst.
	time.Sleep(20 * time.Millisecond)
	rec.Title = strPtr("New Title")
	require.NoError(t, UpsertBatch(db, []models.CourseRecord{rec}))

	var count int64
	require.NoError(t, db.Model(&models.UnifiedCourse{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	var updated models.UnifiedCourse
	require.NoError(t, db.First(&updated, "course_id = ?", "edx:e1").Error)
	require.Equal(t, "New Title", *updated.Title)
	require.True(t, updated.CreatedAt.Equal(first.CreatedAt))
	require.True(t, updated.UpdatedAt.After(first.UpdatedAt))

	require.NoError(t, db.Model(&models.SourceMap{}).Where("course_id = ?", "edx:e1").Count(&count).Error)
	require.EqualValues(t, 2, count)
}

func TestUpsertBatchListsNeverNull(t *testing.T) {
	db := openTargetDB(t)

	rec := models.CourseRecord{Source: "nptel", SourceCourseID: "n9"}
	require.NoError(t, UpsertBatch(db, []models.CourseRecord{rec}))

	var stored models.UnifiedCourse
	require.NoError(t, db.First(&stored, "course_id = ?", "nptel:n9").Error)

	for _, raw := range [][]byte{stored.TagsJSON, stored.SkillsJSON, stored.InstructorsJSON} {
		var list []string
		require.NoError(t, json.Unmarshal(raw, &list))
		require.NotNil(t, list)
		require.Empty(t, list)
	}
}

func TestUpsertBatchProvenanceRoundTrip(t *testing.T) {
	db := openTargetDB(t)

	require.NoError(t, UpsertBatch(db, []models.CourseRecord{sampleRecord()}))

	var entry models.SourceMap
	require.NoError(t, db.First(&entry, "course_id = ?", "edx:e1").Error)
	require.Equal(t, "edx", entry.Source)
	require.Equal(t, "e1", entry.SourceCourseID)

	var raw models.CourseRecord
	require.NoError(t, json.Unmarshal(entry.RawRecord, &raw))
	require.Equal(t, "EdX Title", *raw.Title)
	require.Equal(t, []string{"AI", "ML"}, raw.Tags)
}
