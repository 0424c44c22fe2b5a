// Package extract liest die drei quellspezifischen Scraper-Schemata und
// emittiert normalisierte CourseRecords. Die Quellmenge ist geschlossen:
// jede Quelle ist ein Enum-Wert mit fest zugeordneter Extraktionsfunktion.
package extract

import (
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"coursemerge/models"
	"coursemerge/transform"
)

// Source identifiziert einen der drei Quellkataloge.
type Source string

const (
	SourceCoursera Source = "coursera"
	SourceEdx      Source = "edx"
	SourceNptel    Source = "nptel"
)

// AllSources gibt die Quellen in fester Verarbeitungsreihenfolge zurück.
func AllSources() []Source {
	return []Source{SourceCoursera, SourceEdx, SourceNptel}
}

// ParseSource validiert einen Quellnamen.
func ParseSource(name string) (Source, error) {
	switch s := Source(strings.ToLower(strings.TrimSpace(name))); s {
	case SourceCoursera, SourceEdx, SourceNptel:
		return s, nil
	}
	return "", fmt.Errorf("unknown source: %q", name)
}

// EmitFunc konsumiert einen normalisierten Record. Ein Fehler des Konsumenten
// bricht die Extraktion der Quelle ab.
type EmitFunc func(models.CourseRecord) error

// ExtractFunc streamt die Records einer Quelldatenbank an emit. Ein erneuter
// Aufruf liest die Quelle von vorn.
type ExtractFunc func(db *gorm.DB, logger *zap.Logger, emit EmitFunc) error

// Extractor liefert die Extraktionsfunktion der Quelle.
func (s Source) Extractor() ExtractFunc {
	switch s {
	case SourceCoursera:
		return ExtractCoursera
	case SourceEdx:
		return ExtractEdx
	case SourceNptel:
		return ExtractNptel
	}
	return nil
}

// fieldAliases bildet kanonische Feldnamen auf Kandidaten-Spaltennamen der
// Quelle ab. Die Auflösung passiert einmal pro Result-Set, nicht pro Zeile.
type fieldAliases map[string][]string

// resolveColumns wählt je kanonischem Feld die erste tatsächlich vorhandene
// Spalte aus. Fehlende Spalten fehlen im Ergebnis und lesen sich als nil.
func resolveColumns(cols []string, aliases fieldAliases) map[string]string {
	present := make(map[string]bool, len(cols))
	for _, c := range cols {
		present[c] = true
	}
	resolved := make(map[string]string, len(aliases))
	for field, candidates := range aliases {
		for _, c := range candidates {
			if present[c] {
				resolved[field] = c
				break
			}
		}
	}
	return resolved
}

// row ist eine per Spaltennamen adressierbare Ergebniszeile.
type row map[string]any

func (r row) get(resolved map[string]string, field string) any {
	col, ok := resolved[field]
	if !ok {
		return nil
	}
	return r[col]
}

func scanRow(rows *sql.Rows, cols []string) (row, error) {
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	r := make(row, len(cols))
	for i, c := range cols {
		v := vals[i]
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		r[c] = v
	}
	return r, nil
}

// loadSideTable liest "SELECT course_id, <column> FROM <table>" in eine
// course_id→Werte-Map. Fehlt die Tabelle, kommt der Fehler zum Aufrufer,
// der behandelt das als leere Seitentabelle, nicht als fatalen Zustand.
func loadSideTable(db *gorm.DB, table, column string, dest map[string][]string) error {
	rows, err := db.Raw(fmt.Sprintf("SELECT course_id, %s FROM %s", column, table)).Rows()
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid, val any
		if err := rows.Scan(&cid, &val); err != nil {
			continue
		}
		id := stringValue(cid)
		v := asString(val)
		if id == "" || v == nil {
			continue
		}
		dest[id] = append(dest[id], *v)
	}
	return rows.Err()
}

// asString gibt den getrimmten Stringwert zurück, nil bei fehlendem/leerem Wert.
func asString(v any) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(stringValue(v))
	if s == "" {
		return nil
	}
	return &s
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

func asFloat(v any) *float64 {
	switch t := v.(type) {
	case float64:
		return &t
	case float32:
		f := float64(t)
		return &f
	case int64:
		f := float64(t)
		return &f
	case int:
		f := float64(t)
		return &f
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return &f
		}
	}
	return nil
}

func asInt(v any) *int {
	switch t := v.(type) {
	case int:
		return &t
	case int64:
		n := int(t)
		return &n
	case float64:
		n := int(math.Round(t))
		return &n
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return &n
		}
	}
	return nil
}

// levelPtr normalisiert einen Level-Rohwert, nil bleibt nil.
func levelPtr(v any) *string {
	s := asString(v)
	if s == nil {
		return nil
	}
	n := transform.NormalizeLevel(*s)
	return &n
}

// joinedProvider baut den Provider-String aus einer Namensliste.
func joinedProvider(names []string) *string {
	if len(names) == 0 {
		return nil
	}
	p := strings.Join(names, ", ")
	return &p
}
