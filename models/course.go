package models

import (
	"time"

	"gorm.io/datatypes"
)

// UnifiedCourse repräsentiert einen Kurs im vereinheitlichten Katalog.
// Der Schlüssel ist "<source>:<source_course_id>", derselbe reale Kurs darf
// pro Quelle genau einmal vorkommen, quellübergreifend wird nicht dedupliziert.
type UnifiedCourse struct {
	CourseID       string `json:"course_id" gorm:"column:course_id;primaryKey"`
	Source         string `json:"source" gorm:"not null;index:idx_unified_source_pair,unique"`
	SourceCourseID string `json:"source_course_id" gorm:"not null;index:idx_unified_source_pair,unique"`

	Title       *string `json:"title,omitempty" gorm:"index"`
	Description *string `json:"description,omitempty" gorm:"type:text"`
	URL         *string `json:"url,omitempty"`
	Provider    *string `json:"provider,omitempty"` // Organisation/Partner/Institut

	InstructorsJSON datatypes.JSON `json:"instructors" gorm:"column:instructors_json"`

	Subject       *string `json:"subject,omitempty" gorm:"index"`
	Level         *string `json:"level,omitempty" gorm:"index"`
	Language      *string `json:"language,omitempty"`
	DurationWeeks *int    `json:"duration_weeks,omitempty"`

	TagsJSON   datatypes.JSON `json:"tags" gorm:"column:tags_json"`
	SkillsJSON datatypes.JSON `json:"skills" gorm:"column:skills_json"`

	Rating       *float64 `json:"rating,omitempty"`
	RatingsCount *int     `json:"ratings_count,omitempty"`
	Popularity   *int     `json:"popularity,omitempty"` // reserviert, bei Ingestion immer NULL
	ImageURL     *string  `json:"image_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Quellspezifische Restfelder als offenes JSON-Objekt
	ExtraJSON datatypes.JSON `json:"extra" gorm:"column:extra_json"`
}

// TableName gibt explizit den Tabellennamen an.
func (UnifiedCourse) TableName() string {
	return "unified_courses"
}
