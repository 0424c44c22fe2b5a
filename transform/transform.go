// Package transform enthält die reinen Normalisierungsfunktionen für
// Felder aus den Quellkatalogen: Listenfelder, Level, Dauer in Wochen.
// Alle Funktionen sind deterministisch und frei von Seiteneffekten.
package transform

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	listSplitRE = regexp.MustCompile(`[;,|]`)
	rangeRE     = regexp.MustCompile(`(\d+)\s*-\s*(\d+)`)
	numberRE    = regexp.MustCompile(`(\d+)`)
)

// ParseListField akzeptiert nil, Listen, Skalare oder Strings und liefert eine
// getrimmte, deduplizierte Liste (case-insensitiv, erste Schreibweise gewinnt).
// Strings werden zuerst als JSON-Array versucht, sonst an , ; | gesplittet.
// Idempotent: das Parsen der eigenen Ausgabe ändert nichts mehr.
func ParseListField(value any) []string {
	switch v := value.(type) {
	case nil:
		return []string{}
	case []string:
		raw := make([]string, 0, len(v))
		for _, it := range v {
			if s := strings.TrimSpace(it); s != "" {
				raw = append(raw, s)
			}
		}
		return dedupPreserveOrder(raw)
	case []any:
		raw := make([]string, 0, len(v))
		for _, it := range v {
			if s := strings.TrimSpace(fmt.Sprint(it)); s != "" {
				raw = append(raw, s)
			}
		}
		return dedupPreserveOrder(raw)
	case []byte:
		return parseListString(string(v))
	case string:
		return parseListString(v)
	default:
		s := strings.TrimSpace(fmt.Sprint(v))
		if s == "" {
			return []string{}
		}
		return []string{s}
	}
}

func parseListString(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{}
	}

	// Erst als JSON-Array versuchen
	var parsed []any
	if err := json.Unmarshal([]byte(s), &parsed); err == nil {
		raw := make([]string, 0, len(parsed))
		for _, it := range parsed {
			if t := strings.TrimSpace(fmt.Sprint(it)); t != "" {
				raw = append(raw, t)
			}
		}
		return dedupPreserveOrder(raw)
	}

	// Fallback: an Kommas/Semikolons/Pipes splitten
	parts := listSplitRE.Split(s, -1)
	raw := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			raw = append(raw, t)
		}
	}
	return dedupPreserveOrder(raw)
}

// MergeUnique führt mehrere Listen zusammen: case-insensitive Deduplizierung,
// Reihenfolge des ersten Auftretens (Liste für Liste, links nach rechts).
func MergeUnique(lists ...[]string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, list := range lists {
		for _, v := range list {
			t := strings.TrimSpace(v)
			if t == "" {
				continue
			}
			key := strings.ToLower(t)
			if !seen[key] {
				seen[key] = true
				out = append(out, t)
			}
		}
	}
	return out
}

var levelBuckets = []struct {
	canonical string
	keywords  []string
}{
	{"beginner", []string{"intro", "beginner", "basic", "foundation"}},
	{"intermediate", []string{"intermediate", "middle"}},
	{"advanced", []string{"advanced", "expert"}},
}

// NormalizeLevel bildet freien Level-Text auf beginner/intermediate/advanced ab.
// Ohne Keyword-Treffer wird das getrimmte Original samt Schreibweise durchgereicht.
func NormalizeLevel(level string) string {
	trimmed := strings.TrimSpace(level)
	if trimmed == "" {
		return ""
	}
	s := strings.ToLower(trimmed)
	for _, bucket := range levelBuckets {
		for _, kw := range bucket.keywords {
			if strings.Contains(s, kw) {
				return bucket.canonical
			}
		}
	}
	return trimmed
}

// ParseWeeks extrahiert eine Wochenanzahl aus int, float oder String.
// Bereiche wie "2-4 weeks" ergeben die Obergrenze, sonst die erste Zahl.
// Keine Einheitenumrechnung, Wochen werden durchgängig angenommen.
func ParseWeeks(value any) *int {
	switch v := value.(type) {
	case nil:
		return nil
	case int:
		return intPtr(v)
	case int32:
		return intPtr(int(v))
	case int64:
		return intPtr(int(v))
	case float32:
		return intPtr(int(math.Round(float64(v))))
	case float64:
		return intPtr(int(math.Round(v)))
	case []byte:
		return parseWeeksString(string(v))
	case string:
		return parseWeeksString(v)
	default:
		return parseWeeksString(fmt.Sprint(v))
	}
}

func parseWeeksString(s string) *int {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil
	}
	if m := rangeRE.FindStringSubmatch(s); m != nil {
		if n, err := strconv.Atoi(m[2]); err == nil {
			return intPtr(n)
		}
	}
	if m := numberRE.FindStringSubmatch(s); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return intPtr(n)
		}
	}
	return nil
}

func dedupPreserveOrder(items []string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, it := range items {
		key := strings.ToLower(it)
		if !seen[key] {
			seen[key] = true
			out = append(out, it)
		}
	}
	return out
}

func intPtr(n int) *int {
	return &n
}
