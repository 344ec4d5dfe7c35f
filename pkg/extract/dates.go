package extract

import (
	"fmt"
	"strings"
	"time"

	"github.com/jinzhu/now"
)

// dateConfig accepts year-first layouts only. jinzhu/now's default layouts
// include bare months and clock times, which it completes from the current
// date.
var dateConfig = &now.Config{
	TimeLocation: time.UTC,
	TimeFormats: []string{
		"2006",
		"2006-01",
		"2006-01-02",
		"2006-01-02T15:04:05",
		time.RFC3339,
		time.RFC3339Nano,
	},
}

// ParseDate validates a DDI date string. Year, year-month, full dates and
// ISO 8601 timestamps are accepted.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	parsed, err := dateConfig.Parse(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable date %q: %w", value, err)
	}
	return parsed, nil
}

// ParseYear returns the calendar year of a DDI date string.
func ParseYear(value string) (int, error) {
	parsed, err := ParseDate(value)
	if err != nil {
		return 0, err
	}
	year := parsed.Year()
	if year < 1 || year > 9999 {
		return 0, fmt.Errorf("year %d of %q out of range", year, value)
	}
	return year, nil
}
