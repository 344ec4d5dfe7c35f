// Package harvest runs harvests: it lists and fetches records from each
// configured repository, maps and partitions them, and reconciles the
// result with the index.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coolbeans/ddiharvest/pkg/cmm"
	"github.com/coolbeans/ddiharvest/pkg/config"
	"github.com/coolbeans/ddiharvest/pkg/ddi"
	"github.com/coolbeans/ddiharvest/pkg/index"
	"github.com/coolbeans/ddiharvest/pkg/mapper"
	"github.com/coolbeans/ddiharvest/pkg/partition"
	"github.com/coolbeans/ddiharvest/pkg/source"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ErrUnknownRepository is returned when a run names a repository that is
// not configured.
var ErrUnknownRepository = errors.New("unknown repository")

// RepositoryLister provides the configured repositories.
type RepositoryLister interface {
	List() []*config.Repository
}

// SourceFactory creates the record source of a repository.
type SourceFactory func(repo *config.Repository, settings config.Settings) (source.Source, error)

// DefaultSourceFactory builds OAI-PMH and directory sources.
func DefaultSourceFactory(repo *config.Repository, settings config.Settings) (source.Source, error) {
	switch repo.SourceType() {
	case config.SourceDirectory:
		return source.NewDirectorySource(repo.Path), nil
	case config.SourceOAI:
		opts := []source.ClientOption{
			source.WithMaxRetries(settings.Harvest.MaxRetries),
			source.WithTimeout(settings.Harvest.Timeout),
			source.WithRequestInterval(settings.Harvest.RequestInterval),
			source.WithMaxRequests(settings.Harvest.MaxRequests),
		}
		if repo.Set != "" {
			opts = append(opts, source.WithSet(repo.Set))
		}
		client, err := source.NewClient(repo.URL, repo.MetadataPrefix, opts...)
		if err != nil {
			return nil, err
		}
		return source.NewOAISource(client), nil
	default:
		return nil, fmt.Errorf("repository %s: unknown source type %q", repo.Code, repo.Type)
	}
}

// RunOptions select what one run harvests.
type RunOptions struct {
	// ID identifies the run; a random one is assigned when empty.
	ID string
	// Full lists every record and deletes indexed records not seen.
	Full bool
	// Repositories restricts the run to these codes; empty means all.
	Repositories []string
	// Since is the lower datestamp bound of an incremental run.
	Since time.Time
}

// Runner harvests repositories into a Sink.
type Runner struct {
	Settings       config.Settings
	Repositories   RepositoryLister
	AccessMappings config.AccessMappings
	Sink           index.Sink
	SourceFactory  SourceFactory
	Tracker        *Tracker
}

// NewRunner creates a runner with the default source factory.
func NewRunner(settings config.Settings, repos RepositoryLister, mappings config.AccessMappings, sink index.Sink) *Runner {
	return &Runner{
		Settings:       settings,
		Repositories:   repos,
		AccessMappings: mappings,
		Sink:           sink,
		SourceFactory:  DefaultSourceFactory,
	}
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Run harvests the selected repositories concurrently. Failures of single
// repositories are recorded in the report; the returned error is reserved
// for invalid options and cancellation.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*Report, error) {
	repos, err := r.selectRepositories(opts.Repositories)
	if err != nil {
		return nil, err
	}
	if opts.ID == "" {
		opts.ID = NewRunID()
	}

	startedAt := time.Now().UTC()
	r.track(&Report{ID: opts.ID, Status: StatusRunning, Full: opts.Full, StartedAt: startedAt})

	logger := log.WithFields(log.Fields{"run": opts.ID, "full": opts.Full, "repositories": len(repos)})
	logger.Info("Harvest started")

	reports := make([]*RepositoryReport, len(repos))
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, r.Settings.Harvest.Concurrency)

	for i, repo := range repos {
		wg.Add(1)
		go func(i int, repo *config.Repository) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			reports[i] = r.harvestRepository(ctx, repo, opts)
		}(i, repo)
	}
	wg.Wait()

	report := &Report{
		ID:           opts.ID,
		Status:       StatusCompleted,
		Full:         opts.Full,
		StartedAt:    startedAt,
		FinishedAt:   time.Now().UTC(),
		Repositories: reports,
	}
	if err := ctx.Err(); err != nil {
		report.Status = StatusCancelled
		report.Error = err.Error()
	}
	r.track(report)

	totals := report.Totals()
	logger.WithFields(log.Fields{
		"status":      report.Status,
		"created":     totals.Created,
		"updated":     totals.Updated,
		"deleted":     totals.Deleted,
		"unchanged":   totals.Unchanged,
		"duration_ms": report.Duration().Milliseconds(),
	}).Info("Harvest finished")

	if report.Status == StatusCancelled {
		return report, ctx.Err()
	}
	return report, nil
}

func (r *Runner) track(report *Report) {
	if r.Tracker != nil {
		r.Tracker.Put(report)
	}
}

func (r *Runner) selectRepositories(codes []string) ([]*config.Repository, error) {
	all := r.Repositories.List()
	if len(codes) == 0 {
		var enabled []*config.Repository
		for _, repo := range all {
			if !repo.Disabled {
				enabled = append(enabled, repo)
			}
		}
		return enabled, nil
	}

	byCode := make(map[string]*config.Repository, len(all))
	for _, repo := range all {
		byCode[repo.Code] = repo
	}
	selected := make([]*config.Repository, 0, len(codes))
	for _, code := range codes {
		repo, ok := byCode[code]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRepository, code)
		}
		selected = append(selected, repo)
	}
	return selected, nil
}

// repositoryHarvest collects the partitioned records of one repository.
type repositoryHarvest struct {
	mu        sync.Mutex
	report    *RepositoryReport
	harvested map[string]map[string]cmm.StudyOfLanguage
}

func (h *repositoryHarvest) add(records map[string]cmm.StudyOfLanguage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for language, record := range records {
		if h.harvested[language] == nil {
			h.harvested[language] = make(map[string]cmm.StudyOfLanguage)
		}
		h.harvested[language][record.ID] = record
	}
}

func (h *repositoryHarvest) update(fn func(report *RepositoryReport)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(h.report)
}

func (r *Runner) harvestRepository(ctx context.Context, repo *config.Repository, opts RunOptions) *RepositoryReport {
	logger := log.WithFields(log.Fields{"run": opts.ID, "repository": repo.Code})
	h := &repositoryHarvest{
		report:    newRepositoryReport(repo.Code),
		harvested: make(map[string]map[string]cmm.StudyOfLanguage),
	}

	src, err := r.SourceFactory(repo, r.Settings)
	if err != nil {
		h.report.Error = err.Error()
		logger.WithError(err).Error("Failed to create source")
		return h.report
	}

	var from time.Time
	if !opts.Full {
		from = opts.Since
	}
	refs, err := src.List(ctx, from)
	if err != nil {
		h.report.Error = err.Error()
		logger.WithError(err).Error("Failed to list records")
		return h.report
	}
	h.report.Listed = len(refs)
	logger.WithField("records", len(refs)).Info("Listed records")

	mapping := mapper.New(mapper.Options{
		Backfill:        r.Settings.Backfill,
		DefaultLanguage: r.Settings.DefaultLanguage,
		FailOnStrict:    r.Settings.FailOnStrict,
	})
	repoContext := mapper.RepositoryContext{
		Code:            repo.Code,
		Name:            repo.Name,
		URL:             repo.URL,
		DefaultLanguage: repo.DefaultLanguage,
		AccessMapping:   r.AccessMappings.For(repo.Code),
	}
	partitionOptions := partition.Options{RepositoryCode: repo.Code, RepositoryName: repo.Name}
	if r.Settings.LegacyGate {
		partitionOptions.Gate = partition.LegacyGate
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, r.Settings.Harvest.RecordConcurrency)
	for _, ref := range refs {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(ref source.RecordRef) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()
			if ctx.Err() != nil {
				return
			}

			recordContext := repoContext
			recordContext.StudyXMLSourceURL = ref.URL
			r.harvestRecord(ctx, src, mapping, recordContext, partitionOptions, ref, h, logger)
		}(ref)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		h.report.Error = err.Error()
		logger.Warn("Harvest cancelled, index left unchanged")
		return h.report
	}

	for _, language := range r.Settings.Languages {
		counts, err := r.reconcile(ctx, repo.Code, language, h.harvested[language], opts.Full)
		if err != nil {
			h.report.Error = err.Error()
			logger.WithFields(log.Fields{"language": language, "error": err}).Error("Failed to update index")
			return h.report
		}
		h.report.Languages[language] = counts
	}

	logger.WithFields(log.Fields{
		"mapped":  h.report.Mapped,
		"deleted": h.report.Deleted,
		"skipped": h.report.SkippedTotal(),
	}).Info("Repository harvested")
	return h.report
}

func (r *Runner) harvestRecord(
	ctx context.Context,
	src source.Source,
	mapping *mapper.Mapper,
	repoContext mapper.RepositoryContext,
	partitionOptions partition.Options,
	ref source.RecordRef,
	h *repositoryHarvest,
	logger *log.Entry,
) {
	logger = logger.WithField("record", ref.Identifier)

	if ref.Deleted {
		header := source.Header{Identifier: ref.Identifier, Datestamp: ref.Datestamp, Deleted: true}
		h.add(partition.PartitionByLanguage(mapper.MapDeleted(header, repoContext), r.Settings.Languages, partitionOptions))
		h.update(func(report *RepositoryReport) { report.Deleted++ })
		return
	}

	data, err := src.Fetch(ctx, ref)
	if err != nil {
		logger.WithError(err).Warn("Failed to fetch record")
		h.update(func(report *RepositoryReport) { report.Skip(SkipFetchFailed) })
		return
	}

	doc, namespace, err := source.ParseDocument(data)
	if err != nil {
		logger.WithError(err).Warn("Failed to parse record")
		h.update(func(report *RepositoryReport) { report.Skip(SkipMalformedDocument) })
		return
	}

	header := source.HeaderOf(doc)
	if header.Deleted {
		if header.Identifier == "" {
			header.Identifier = ref.Identifier
		}
		h.add(partition.PartitionByLanguage(mapper.MapDeleted(header, repoContext), r.Settings.Languages, partitionOptions))
		h.update(func(report *RepositoryReport) { report.Deleted++ })
		return
	}

	if doc.Header.Datestamp == "" {
		doc.Header.Datestamp = ref.Datestamp
	}
	result, err := mapping.MapDocument(doc, namespace, repoContext)
	if err != nil {
		reason := skipReason(err)
		logger.WithFields(log.Fields{"error": err, "reason": reason}).Warn("Failed to map record")
		h.update(func(report *RepositoryReport) { report.Skip(reason) })
		return
	}
	for _, strictErr := range result.StrictErrors {
		logger.WithError(strictErr).Error("Dropped field with invalid controlled vocabulary value")
	}
	for _, diagnostic := range result.Diagnostics {
		logger.WithField("diagnostic", diagnostic.String()).Debug("Omitted invalid value")
	}

	records := partition.PartitionByLanguage(result.Study, r.Settings.Languages, partitionOptions)
	if len(records) == 0 {
		logger.Debug("No language has the required fields")
		h.update(func(report *RepositoryReport) {
			report.Diagnostics += len(result.Diagnostics)
			report.Skip(SkipNoLanguage)
		})
		return
	}

	h.add(records)
	h.update(func(report *RepositoryReport) {
		report.Mapped++
		report.Diagnostics += len(result.Diagnostics)
		if len(result.StrictErrors) > 0 {
			report.Skipped[SkipStrictField] += len(result.StrictErrors)
		}
	})
}

func (r *Runner) reconcile(ctx context.Context, code, language string, harvested map[string]cmm.StudyOfLanguage, full bool) (*LanguageCounts, error) {
	existing, err := r.Sink.Existing(ctx, language, code)
	if err != nil {
		return nil, fmt.Errorf("reading index for %s: %w", language, err)
	}
	plan := index.Reconcile(existing, harvested, full)
	if err := index.Apply(ctx, r.Sink, language, plan); err != nil {
		return nil, fmt.Errorf("updating index for %s: %w", language, err)
	}
	return &LanguageCounts{
		Created:   len(plan.Create),
		Updated:   len(plan.Update),
		Deleted:   len(plan.Delete),
		Unchanged: plan.Unchanged,
	}, nil
}

func skipReason(err error) string {
	var fieldErr *mapper.FieldError
	switch {
	case errors.Is(err, ddi.ErrUnsupportedDialect):
		return SkipUnsupportedDialect
	case errors.Is(err, mapper.ErrMissingRoot):
		return SkipMissingRoot
	case errors.As(err, &fieldErr):
		return SkipStrictField
	default:
		return SkipMappingFailed
	}
}
