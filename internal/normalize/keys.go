package normalize

import (
	"sort"
	"strconv"
	"strings"
)

// Canonical field names on a candidate.
const (
	fieldDay        = "day"
	fieldDays       = "days"
	fieldEventName  = "event_name"
	fieldEventNames = "event_names"
	fieldStartTime  = "start_time"
	fieldEndTime    = "end_time"
	fieldNotes      = "notes"
	fieldConfidence = "confidence"
)

// synonyms lists, per canonical field, the lower-cased alternatives in
// precedence order. The first populated one wins.
var synonyms = []struct {
	field string
	alts  []string
}{
	{fieldEventName, []string{"eventname", "event", "name", "title", "subject", "activity"}},
	{fieldEventNames, []string{"eventnames", "subjects", "activities"}},
	{fieldStartTime, []string{"starttime", "time_start", "start", "from"}},
	{fieldEndTime, []string{"endtime", "time_end", "end", "to"}},
	{fieldDay, []string{"dayofweek", "day_of_week", "weekday"}},
	{fieldDays, []string{"daysofweek", "days_of_week", "weekdays"}},
	{fieldNotes, []string{"note", "description", "comment"}},
	{fieldConfidence, []string{"score"}},
}

// candidate is a raw record after key reconciliation.
type candidate map[string]any

// reconcile lower-cases keys and folds synonyms into canonical names. A
// populated canonical value is never overwritten.
func reconcile(raw map[string]any) candidate {
	// Sorted iteration keeps collisions ("Day" vs "day") deterministic: an
	// already lower-case key beats any other spelling.
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	c := make(candidate, len(raw))
	exact := make(map[string]bool, len(raw))
	for _, k := range keys {
		lk := strings.ToLower(strings.TrimSpace(k))
		if _, taken := c[lk]; taken && (exact[lk] || k != lk) {
			continue
		}
		c[lk] = raw[k]
		exact[lk] = k == lk
	}

	for _, s := range synonyms {
		if populated(c[s.field]) {
			continue
		}
		for _, alt := range s.alts {
			if populated(c[alt]) {
				c[s.field] = c[alt]
				break
			}
		}
	}
	return c
}

// populated reports whether v carries a usable value.
func populated(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	case []any:
		return len(t) > 0
	default:
		return true
	}
}

// str renders a scalar JSON value as trimmed text.
func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

var andReplacer = strings.NewReplacer(" and ", ",", " And ", ",", " AND ", ",")

// list turns a JSON array or a delimited string into trimmed, non-empty items.
func list(v any) []string {
	var items []string
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			if s := str(e); s != "" {
				items = append(items, s)
			}
		}
	case string:
		t = andReplacer.Replace(t)
		for _, part := range strings.FieldsFunc(t, func(r rune) bool {
			return r == ',' || r == '&' || r == '/' || r == ';' || r == '|'
		}) {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
	default:
		if s := str(t); s != "" {
			items = append(items, s)
		}
	}
	return items
}

// sortedKeys returns the original keys of a raw record, for diagnostics.
func sortedKeys(raw map[string]any) []string {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
