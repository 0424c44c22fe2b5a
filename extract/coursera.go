package extract

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"coursemerge/models"
	"coursemerge/transform"
)

// courseraAliases: kanonisches Feld → Spaltennamen. Der GraphQL-Scraper hat
// Spalten über die Zeit umbenannt, daher mehrere Kandidaten pro Feld.
var courseraAliases = fieldAliases{
	"id":            {"id"},
	"title":         {"name"},
	"url":           {"url"},
	"product_type":  {"product_type"},
	"partners":      {"partners_json"},
	"skills":        {"skills_json"},
	"rating":        {"rating"},
	"ratings_count": {"num_ratings", "numProductRatings"},
	"level":         {"difficulty"},
	"duration":      {"duration", "productDuration"},
	"description":   {"tagline"},
	"fetched_at":    {"fetched_at"},
}

// ExtractCoursera liest die denormalisierte Tabelle coursera_courses.
// Partner und Skills liegen als JSON-Strings vor, die Dauer als Freitext.
// Tags existieren bei dieser Quelle nicht und bleiben leer.
func ExtractCoursera(db *gorm.DB, logger *zap.Logger, emit EmitFunc) error {
	log := logger.With(zap.String("source", string(SourceCoursera)))

	rows, err := db.Raw("SELECT * FROM coursera_courses").Rows()
	if err != nil {
		return fmt.Errorf("coursera table 'coursera_courses' not readable: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	resolved := resolveColumns(cols, courseraAliases)

	for rows.Next() {
		r, err := scanRow(rows, cols)
		if err != nil {
			log.Warn("Skipping unreadable Coursera row", zap.Error(err))
			continue
		}
		cid := stringValue(r.get(resolved, "id"))
		if cid == "" {
			log.Warn("Skipping Coursera row without id")
			continue
		}

		partners := transform.ParseListField(r.get(resolved, "partners"))

		rec := models.CourseRecord{
			Source:         string(SourceCoursera),
			SourceCourseID: cid,
			Title:          asString(r.get(resolved, "title")),
			Description:    asString(r.get(resolved, "description")),
			URL:            asString(r.get(resolved, "url")),
			Provider:       joinedProvider(partners),
			Instructors:    []string{},
			Level:          levelPtr(r.get(resolved, "level")),
			DurationWeeks:  transform.ParseWeeks(r.get(resolved, "duration")),
			Tags:           []string{}, // Coursera liefert keine Tags
			Skills:         transform.ParseListField(r.get(resolved, "skills")),
			Rating:         asFloat(r.get(resolved, "rating")),
			RatingsCount:   asInt(r.get(resolved, "ratings_count")),
			Extra: map[string]any{
				"product_type": r.get(resolved, "product_type"),
				"fetched_at":   r.get(resolved, "fetched_at"),
			},
		}
		if err := emit(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}
