package extract

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"coursemerge/models"
	"coursemerge/transform"
)

// nptelAliases: kanonisches Feld → Spaltennamen im NPTEL-Schema.
var nptelAliases = fieldAliases{
	"id":           {"course_id"},
	"title":        {"title"},
	"institute":    {"institute"},
	"professor":    {"professor"},
	"subject":      {"discipline_id"},
	"url":          {"url"},
	"content_type": {"content_type"},
	"current_run":  {"current_run"},
	"self_paced":   {"self_paced"},
	"last_updated": {"last_updated"},
}

// ExtractNptel liest das NPTEL-Schema: courses plus course_metadata mit einer
// Zeile pro Lektion. Die Konzepte aller Lektionen eines Kurses werden erst
// konkateniert und dann dedupliziert zu den Tags des Kurses.
func ExtractNptel(db *gorm.DB, logger *zap.Logger, emit EmitFunc) error {
	log := logger.With(zap.String("source", string(SourceNptel)))

	// Konzepte je Kurs einsammeln; fehlende Metadaten-Tabelle heißt nur:
	// keine Tags.
	concepts := map[string][]string{}
	metaRows, err := db.Raw("SELECT course_id, concepts_json, raw_concepts_text FROM course_metadata").Rows()
	if err != nil {
		log.Warn("NPTEL course_metadata missing, continuing without tags", zap.Error(err))
	} else {
		defer metaRows.Close()
		for metaRows.Next() {
			var cid, conceptsJSON, rawConcepts any
			if err := metaRows.Scan(&cid, &conceptsJSON, &rawConcepts); err != nil {
				continue
			}
			id := stringValue(cid)
			if id == "" {
				continue
			}
			concepts[id] = append(concepts[id], transform.ParseListField(conceptsJSON)...)
			concepts[id] = append(concepts[id], transform.ParseListField(rawConcepts)...)
		}
	}

	rows, err := db.Raw("SELECT * FROM courses").Rows()
	if err != nil {
		return fmt.Errorf("nptel table 'courses' not readable: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	resolved := resolveColumns(cols, nptelAliases)

	for rows.Next() {
		r, err := scanRow(rows, cols)
		if err != nil {
			log.Warn("Skipping unreadable NPTEL row", zap.Error(err))
			continue
		}
		cid := stringValue(r.get(resolved, "id"))
		if cid == "" {
			log.Warn("Skipping NPTEL row without course_id")
			continue
		}

		rec := models.CourseRecord{
			Source:         string(SourceNptel),
			SourceCourseID: cid,
			Title:          asString(r.get(resolved, "title")),
			URL:            asString(r.get(resolved, "url")),
			Provider:       asString(r.get(resolved, "institute")),
			Instructors:    transform.ParseListField(r.get(resolved, "professor")),
			Subject:        asString(r.get(resolved, "subject")),
			Tags:           transform.MergeUnique(concepts[cid]),
			Skills:         []string{}, // im NPTEL-Schema nicht modelliert
			Extra: map[string]any{
				"content_type": r.get(resolved, "content_type"),
				"current_run":  r.get(resolved, "current_run"),
				"self_paced":   r.get(resolved, "self_paced"),
				"last_updated": r.get(resolved, "last_updated"),
			},
		}
		if err := emit(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}
