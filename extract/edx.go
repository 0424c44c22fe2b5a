package extract

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"coursemerge/models"
	"coursemerge/transform"
)

// edxAliases: kanonisches Feld → Spaltennamen im edX-Schema.
var edxAliases = fieldAliases{
	"id":           {"id"},
	"title":        {"title"},
	"description":  {"description"},
	"subject":      {"subject"},
	"level":        {"level"},
	"language":     {"language"},
	"weeks":        {"weeks_to_complete"},
	"url":          {"marketing_url"},
	"image_url":    {"card_image_url"},
	"availability": {"availability"},
}

// ExtractEdx liest das edX-Schema: eine flache courses-Tabelle plus
// Seitentabellen skills/tags/staff/owners, die vorab vollständig in
// course_id-Maps geladen und beim Emittieren zu Listen gejoint werden.
// Eine fehlende Seitentabelle wird als leer behandelt, nicht als Fehler.
func ExtractEdx(db *gorm.DB, logger *zap.Logger, emit EmitFunc) error {
	log := logger.With(zap.String("source", string(SourceEdx)))

	skillsMap := map[string][]string{}
	tagsMap := map[string][]string{}
	staffMap := map[string][]string{}
	ownerMap := map[string][]string{}

	for _, side := range []struct {
		table  string
		column string
		dest   map[string][]string
	}{
		{"skills", "skill", skillsMap},
		{"tags", "tag", tagsMap},
		{"staff", "staff_key", staffMap},
		{"owners", "name", ownerMap},
	} {
		if err := loadSideTable(db, side.table, side.column, side.dest); err != nil {
			log.Warn("edX side table missing, continuing with empty list",
				zap.String("table", side.table), zap.Error(err))
		}
	}

	rows, err := db.Raw("SELECT * FROM courses").Rows()
	if err != nil {
		return fmt.Errorf("edx courses query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	resolved := resolveColumns(cols, edxAliases)

	for rows.Next() {
		r, err := scanRow(rows, cols)
		if err != nil {
			log.Warn("Skipping unreadable edX row", zap.Error(err))
			continue
		}
		cid := stringValue(r.get(resolved, "id"))
		if cid == "" {
			log.Warn("Skipping edX row without id")
			continue
		}

		rec := models.CourseRecord{
			Source:         string(SourceEdx),
			SourceCourseID: cid,
			Title:          asString(r.get(resolved, "title")),
			Description:    asString(r.get(resolved, "description")),
			URL:            asString(r.get(resolved, "url")),
			Provider:       joinedProvider(transform.MergeUnique(ownerMap[cid])),
			Instructors:    transform.MergeUnique(staffMap[cid]),
			Subject:        asString(r.get(resolved, "subject")),
			Level:          levelPtr(r.get(resolved, "level")),
			Language:       asString(r.get(resolved, "language")),
			DurationWeeks:  transform.ParseWeeks(r.get(resolved, "weeks")),
			Tags:           transform.MergeUnique(tagsMap[cid]),
			Skills:         transform.MergeUnique(skillsMap[cid]),
			ImageURL:       asString(r.get(resolved, "image_url")),
			Extra: map[string]any{
				"availability": r.get(resolved, "availability"),
			},
		}
		if err := emit(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}
