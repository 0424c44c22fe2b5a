// Package loader besitzt das Schema des vereinheitlichten Katalogs und führt
// die idempotenten Batch-Upserts samt Provenance-Log aus.
package loader

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"coursemerge/models"
)

// EnsureSchema legt Tabellen und Indizes an. Mehrfacher Aufruf ist harmlos.
func EnsureSchema(db *gorm.DB) error {
	return db.AutoMigrate(&models.UnifiedCourse{}, &models.SourceMap{})
}

// mutableColumns sind alle Spalten, die ein Upsert aktualisiert.
// created_at fehlt absichtlich: es wird nur beim ersten Insert gesetzt.
var mutableColumns = []string{
	"title", "description", "url", "provider", "instructors_json",
	"subject", "level", "language", "duration_weeks",
	"tags_json", "skills_json", "rating", "ratings_count", "popularity",
	"image_url", "updated_at", "extra_json",
}

// UpsertBatch schreibt einen Batch normalisierter Records atomar: ein
// Insert-or-Update je Kurszeile (Konfliktauflösung über course_id) plus ein
// Provenance-Eintrag je Record, alles in einer Transaktion. Schlägt
// irgendetwas fehl, rollt der gesamte Batch zurück.
func UpsertBatch(db *gorm.DB, recs []models.CourseRecord) error {
	if len(recs) == 0 {
		return nil
	}

	now := time.Now().UTC()
	courses := make([]models.UnifiedCourse, 0, len(recs))
	provenance := make([]models.SourceMap, 0, len(recs))
	for i := range recs {
		rec := &recs[i]
		courses = append(courses, packRecord(rec, now))
		provenance = append(provenance, models.SourceMap{
			CourseID:       rec.CourseID(),
			Source:         rec.Source,
			SourceCourseID: rec.SourceCourseID,
			RawRecord:      safeJSON(rec),
			RecordedAt:     now,
		})
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "course_id"}},
			DoUpdates: clause.AssignmentColumns(mutableColumns),
		}).Create(&courses).Error; err != nil {
			return fmt.Errorf("course upsert failed: %w", err)
		}
		if err := tx.Create(&provenance).Error; err != nil {
			return fmt.Errorf("provenance append failed: %w", err)
		}
		return nil
	})
}

func packRecord(rec *models.CourseRecord, now time.Time) models.UnifiedCourse {
	return models.UnifiedCourse{
		CourseID:        rec.CourseID(),
		Source:          rec.Source,
		SourceCourseID:  rec.SourceCourseID,
		Title:           rec.Title,
		Description:     rec.Description,
		URL:             rec.URL,
		Provider:        rec.Provider,
		InstructorsJSON: listJSON(rec.Instructors),
		Subject:         rec.Subject,
		Level:           rec.Level,
		Language:        rec.Language,
		DurationWeeks:   rec.DurationWeeks,
		TagsJSON:        listJSON(rec.Tags),
		SkillsJSON:      listJSON(rec.Skills),
		Rating:          rec.Rating,
		RatingsCount:    rec.RatingsCount,
		Popularity:      rec.Popularity,
		ImageURL:        rec.ImageURL,
		CreatedAt:       now,
		UpdatedAt:       now,
		ExtraJSON:       safeJSON(rec.Extra),
	}
}

// listJSON serialisiert eine Liste, nil wird zur leeren Liste.
func listJSON(list []string) datatypes.JSON {
	if list == nil {
		list = []string{}
	}
	b, _ := json.Marshal(list)
	return datatypes.JSON(b)
}

// safeJSON serialisiert beliebige Werte; schlägt das fehl, wird auf eine
// String-Repräsentation ausgewichen statt den Record zu verlieren.
func safeJSON(v any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		b, _ = json.Marshal(fmt.Sprint(v))
	}
	return datatypes.JSON(b)
}
