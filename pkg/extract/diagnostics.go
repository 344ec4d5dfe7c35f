package extract

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidVocabularyValue is returned when a controlled vocabulary value
// (such as a universe clusion flag) is outside its enumeration. Unlike other
// data problems it is not silently omitted.
var ErrInvalidVocabularyValue = errors.New("invalid controlled vocabulary value")

// Diagnostic is a non-fatal problem found while extracting a field.
type Diagnostic struct {
	Field    string `json:"field"`
	Language string `json:"language,omitempty"`
	Message  string `json:"message"`
}

func (d Diagnostic) String() string {
	if d.Language == "" {
		return fmt.Sprintf("%s: %s", d.Field, d.Message)
	}
	return fmt.Sprintf("%s[%s]: %s", d.Field, d.Language, d.Message)
}

// Diagnostics collects non-fatal extraction problems for one record.
type Diagnostics struct {
	mu      sync.Mutex
	entries []Diagnostic
}

// Add records a diagnostic.
func (d *Diagnostics) Add(field, language, format string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = append(d.entries, Diagnostic{
		Field:    field,
		Language: language,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Entries returns a copy of the collected diagnostics in report order.
func (d *Diagnostics) Entries() []Diagnostic {
	d.mu.Lock()
	defer d.mu.Unlock()
	entries := make([]Diagnostic, len(d.entries))
	copy(entries, d.entries)
	return entries
}

// For returns a reporter that attributes diagnostics to field.
func (d *Diagnostics) For(field string) Reporter {
	return Reporter{diagnostics: d, field: field}
}

// Reporter attributes diagnostics to one field. The zero Reporter discards
// everything reported to it.
type Reporter struct {
	diagnostics *Diagnostics
	field       string
}

// Report records a diagnostic for the reporter's field.
func (r Reporter) Report(language, format string, args ...any) {
	if r.diagnostics == nil {
		return
	}
	r.diagnostics.Add(r.field, language, format, args...)
}
