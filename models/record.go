package models

// CourseRecord ist die normalisierte Zwischendarstellung, die jeder Extractor
// emittiert. Skalare Felder sind Pointer (nil = von der Quelle nicht geliefert),
// Listenfelder sind immer non-nil, leere Seitentabellen ergeben leere Listen.
type CourseRecord struct {
	Source         string `json:"source"`
	SourceCourseID string `json:"source_course_id"`

	Title       *string `json:"title"`
	Description *string `json:"description"`
	URL         *string `json:"url"`
	Provider    *string `json:"provider"`

	Instructors []string `json:"instructors"`

	Subject       *string `json:"subject"`
	Level         *string `json:"level"`
	Language      *string `json:"language"`
	DurationWeeks *int    `json:"duration_weeks"`

	Tags   []string `json:"tags"`
	Skills []string `json:"skills"`

	Rating       *float64 `json:"rating"`
	RatingsCount *int     `json:"ratings_count"`
	Popularity   *int     `json:"popularity"`
	ImageURL     *string  `json:"image_url"`

	Extra map[string]any `json:"extra"`
}

// CourseID bildet den zusammengesetzten Schlüssel "<source>:<source_course_id>".
func (r *CourseRecord) CourseID() string {
	return r.Source + ":" + r.SourceCourseID
}
