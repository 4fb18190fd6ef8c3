package shared

import "time"

var dateFormats = []string{time.RFC3339, "2006-01-02"}

// ParseDate accepts RFC3339 timestamps or bare YYYY-MM-DD dates. An empty
// value parses to the zero time; optional-date fields rely on that.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	var err error
	for _, format := range dateFormats {
		var parsed time.Time
		if parsed, err = time.Parse(format, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, err
}
