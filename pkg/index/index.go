// Package index stores finalized per-language study records and reconciles
// harvested records against what is already indexed.
package index

import (
	"context"
	"errors"
	"sort"

	"github.com/coolbeans/ddiharvest/pkg/cmm"
)

// ErrNotFound is returned when a record is not in the index.
var ErrNotFound = errors.New("record not found")

// Sink receives finalized records, one language at a time.
type Sink interface {
	Upsert(ctx context.Context, language string, records []cmm.StudyOfLanguage) error
	Delete(ctx context.Context, language string, ids []string) error
	// Existing returns the indexed records of one repository keyed by id.
	Existing(ctx context.Context, language, repositoryCode string) (map[string]cmm.StudyOfLanguage, error)
	Get(ctx context.Context, language, id string) (cmm.StudyOfLanguage, error)
}

// Plan lists the index operations that bring one language of a repository
// up to date.
type Plan struct {
	Create    []cmm.StudyOfLanguage
	Update    []cmm.StudyOfLanguage
	Delete    []string
	Unchanged int
}

// Reconcile compares harvested records with the indexed ones. Inactive
// harvested records are deleted when indexed. A full harvest also deletes
// indexed records that were not harvested; an incremental one keeps them.
// All slices are ordered by id.
func Reconcile(existing, harvested map[string]cmm.StudyOfLanguage, full bool) Plan {
	var plan Plan
	seen := make(map[string]struct{}, len(harvested))

	for _, id := range sortedIDs(harvested) {
		record := harvested[id]
		seen[id] = struct{}{}
		current, indexed := existing[id]

		switch {
		case !record.Active:
			if indexed {
				plan.Delete = append(plan.Delete, id)
			}
		case !indexed:
			plan.Create = append(plan.Create, record)
		case current.Equal(record):
			plan.Unchanged++
		default:
			plan.Update = append(plan.Update, record)
		}
	}

	if full {
		for _, id := range sortedIDs(existing) {
			if _, ok := seen[id]; !ok {
				plan.Delete = append(plan.Delete, id)
			}
		}
		sort.Strings(plan.Delete)
	}
	return plan
}

// Apply executes plan against sink.
func Apply(ctx context.Context, sink Sink, language string, plan Plan) error {
	upserts := make([]cmm.StudyOfLanguage, 0, len(plan.Create)+len(plan.Update))
	upserts = append(upserts, plan.Create...)
	upserts = append(upserts, plan.Update...)
	if len(upserts) > 0 {
		if err := sink.Upsert(ctx, language, upserts); err != nil {
			return err
		}
	}
	if len(plan.Delete) > 0 {
		if err := sink.Delete(ctx, language, plan.Delete); err != nil {
			return err
		}
	}
	return nil
}

func sortedIDs(records map[string]cmm.StudyOfLanguage) []string {
	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
