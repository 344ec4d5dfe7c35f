package harvest

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Skip reasons tallied per repository.
const (
	SkipFetchFailed        = "fetch_failed"
	SkipMalformedDocument  = "malformed_document"
	SkipUnsupportedDialect = "unsupported_dialect"
	SkipMissingRoot        = "missing_root"
	SkipStrictField        = "strict_field_error"
	SkipNoLanguage         = "no_qualifying_language"
	SkipMappingFailed      = "mapping_failed"
)

// LanguageCounts are the index outcomes of one language.
type LanguageCounts struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Deleted   int `json:"deleted"`
	Unchanged int `json:"unchanged"`
}

// RepositoryReport summarises the harvest of one repository.
type RepositoryReport struct {
	Code        string                     `json:"code"`
	Listed      int                        `json:"listed"`
	Mapped      int                        `json:"mapped"`
	Deleted     int                        `json:"deleted"`
	Diagnostics int                        `json:"diagnostics"`
	Languages   map[string]*LanguageCounts `json:"languages"`
	Skipped     map[string]int             `json:"skipped,omitempty"`
	Error       string                     `json:"error,omitempty"`
}

func newRepositoryReport(code string) *RepositoryReport {
	return &RepositoryReport{
		Code:      code,
		Languages: make(map[string]*LanguageCounts),
		Skipped:   make(map[string]int),
	}
}

// Skip tallies one skipped record.
func (r *RepositoryReport) Skip(reason string) {
	r.Skipped[reason]++
}

// SkippedTotal returns the number of skipped records.
func (r *RepositoryReport) SkippedTotal() int {
	total := 0
	for _, count := range r.Skipped {
		total += count
	}
	return total
}

// Report summarises one harvest run.
type Report struct {
	ID           string              `json:"id"`
	Status       string              `json:"status"`
	Full         bool                `json:"full"`
	StartedAt    time.Time           `json:"started_at"`
	FinishedAt   time.Time           `json:"finished_at,omitempty"`
	Repositories []*RepositoryReport `json:"repositories"`
	Error        string              `json:"error,omitempty"`
}

// Duration returns how long the run took.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Totals sums the language counts across repositories.
func (r *Report) Totals() LanguageCounts {
	var totals LanguageCounts
	for _, repo := range r.Repositories {
		for _, counts := range repo.Languages {
			totals.Created += counts.Created
			totals.Updated += counts.Updated
			totals.Deleted += counts.Deleted
			totals.Unchanged += counts.Unchanged
		}
	}
	return totals
}

// FormatReport formats a Report for terminal output.
func FormatReport(report *Report) string {
	var builder strings.Builder

	builder.WriteString("\nHarvest Report " + report.ID + "\n")
	builder.WriteString(strings.Repeat("═", 70) + "\n")
	totals := report.Totals()
	builder.WriteString(fmt.Sprintf("Status: %s | Created: %d | Updated: %d | Deleted: %d | Unchanged: %d\n",
		report.Status, totals.Created, totals.Updated, totals.Deleted, totals.Unchanged))
	if report.Error != "" {
		builder.WriteString("Error: " + report.Error + "\n")
	}
	builder.WriteString(strings.Repeat("─", 70) + "\n")

	for _, repo := range report.Repositories {
		status := "[OK]"
		if repo.Error != "" {
			status = "[FAIL]"
		}
		builder.WriteString(fmt.Sprintf("  %-6s %-12s listed %d, mapped %d, deleted %d, skipped %d\n",
			status, repo.Code, repo.Listed, repo.Mapped, repo.Deleted, repo.SkippedTotal()))
		if repo.Error != "" {
			builder.WriteString(fmt.Sprintf("         error: %s\n", repo.Error))
		}

		for _, language := range sortedKeys(repo.Languages) {
			counts := repo.Languages[language]
			builder.WriteString(fmt.Sprintf("         %-5s +%d ~%d -%d =%d\n",
				language, counts.Created, counts.Updated, counts.Deleted, counts.Unchanged))
		}
		for _, reason := range sortedKeys(repo.Skipped) {
			builder.WriteString(fmt.Sprintf("         skip %-24s %d\n", reason, repo.Skipped[reason]))
		}
	}

	return builder.String()
}

// FormatReportJSON formats a Report as JSON.
func FormatReportJSON(report *Report) string {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(data)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
