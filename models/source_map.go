package models

import (
	"time"

	"gorm.io/datatypes"
)

// SourceMap ist der Audit-Trail des Merge-Laufs: eine Zeile pro Upsert-Versuch
// mit dem vollständigen normalisierten Record. Append-only, wird von der
// Pipeline nie zurückgelesen und absichtlich nicht dedupliziert.
type SourceMap struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	CourseID       string         `json:"course_id" gorm:"index:idx_source_map_course;not null"`
	Source         string         `json:"source" gorm:"not null"`
	SourceCourseID string         `json:"source_course_id" gorm:"not null"`
	RawRecord      datatypes.JSON `json:"raw_record" gorm:"column:raw_record_json"`
	RecordedAt     time.Time      `json:"recorded_at"`
}

// TableName gibt explizit den Tabellennamen an.
func (SourceMap) TableName() string {
	return "source_map"
}
