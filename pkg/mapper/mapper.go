// Package mapper converts a parsed DDI document into the language-neutral
// cmm.Study, driving the dialect registry and extraction strategies field
// by field.
package mapper

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/antchfx/xmlquery"
	"github.com/coolbeans/ddiharvest/pkg/cmm"
	"github.com/coolbeans/ddiharvest/pkg/ddi"
	"github.com/coolbeans/ddiharvest/pkg/extract"
	"github.com/coolbeans/ddiharvest/pkg/source"
)

// DefaultLanguage is the global fallback when neither the document nor the
// repository names a default language.
const DefaultLanguage = "en"

// ErrMissingRoot is returned when a document has no metadata root.
var ErrMissingRoot = errors.New("document has no metadata root")

// FieldError is a strict extraction failure that dropped one field.
type FieldError struct {
	Field ddi.Field
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// RepositoryContext describes the repository a record was harvested from.
type RepositoryContext struct {
	Code            string
	Name            string
	URL             string
	DefaultLanguage string
	AccessMapping   extract.AccessMapping
	// StudyXMLSourceURL is the address the record itself was fetched from.
	StudyXMLSourceURL string
}

// Options control mapping behaviour shared by all repositories.
type Options struct {
	// Backfill moves content without a language into the default language.
	Backfill bool
	// DefaultLanguage is the global default language.
	DefaultLanguage string
	// FailOnStrict turns strict field errors into document failures.
	FailOnStrict bool
}

// DefaultOptions returns backfill enabled with the global default language.
func DefaultOptions() Options {
	return Options{
		Backfill:        true,
		DefaultLanguage: DefaultLanguage,
	}
}

// Result is the outcome of mapping one document.
type Result struct {
	Study        *cmm.Study
	Diagnostics  []extract.Diagnostic
	StrictErrors []error
}

// Mapper maps documents with fixed options. It holds no per-document state
// and is safe for concurrent use.
type Mapper struct {
	opts Options
}

// New creates a mapper.
func New(opts Options) *Mapper {
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = DefaultLanguage
	}
	return &Mapper{opts: opts}
}

// MapDocument maps doc with DefaultOptions.
func MapDocument(doc *source.Document, namespace string, repo RepositoryContext) (*Result, error) {
	return New(DefaultOptions()).MapDocument(doc, namespace, repo)
}

// MapDeleted builds the inactive record of a deleted OAI-PMH header.
func MapDeleted(header source.Header, repo RepositoryContext) *cmm.Study {
	return &cmm.Study{
		StudyNumber:       header.Identifier,
		RepositoryURL:     repo.URL,
		StudyXMLSourceURL: repo.StudyXMLSourceURL,
		LastModified:      header.Datestamp,
		Active:            false,
	}
}

// mapping carries the state of one MapDocument call.
type mapping struct {
	registry    *ddi.Registry
	strategies  ddi.Strategies
	root        *xmlquery.Node
	resolver    *extract.ReferenceResolver
	language    string
	backfill    bool
	diagnostics *extract.Diagnostics
}

func (m *mapping) nodes(field ddi.Field) []*xmlquery.Node {
	return m.registry.Select(m.root, m.resolver, field)
}

func (m *mapping) report(field ddi.Field) extract.Reporter {
	return m.diagnostics.For(string(field))
}

func collectList[T any](m *mapping, field ddi.Field, strategy extract.Strategy[T]) map[string][]T {
	values := extract.Collect(m.nodes(field), strategy, m.report(field))
	return cmm.Backfill(values, m.language, cmm.ConcatLists[T], m.backfill)
}

func collectValue[T any](m *mapping, field ddi.Field, strategy extract.Strategy[T], merge cmm.Merge[T]) map[string]T {
	values := extract.CollectValue(m.nodes(field), strategy, merge, m.report(field))
	return cmm.Backfill(values, m.language, merge, m.backfill)
}

func (m *mapping) terms(field ddi.Field) map[string][]cmm.TermVocabAttributes {
	return collectList(m, field, extract.Term(m.strategies.Vocab))
}

// MapDocument maps one parsed document of the given root namespace.
func (mp *Mapper) MapDocument(doc *source.Document, namespace string, repo RepositoryContext) (*Result, error) {
	registry, err := ddi.GetRegistry(namespace)
	if err != nil {
		return nil, err
	}
	if doc == nil || doc.Root == nil {
		return nil, ErrMissingRoot
	}

	m := &mapping{
		registry:    registry,
		strategies:  registry.Strategies(),
		root:        doc.Root,
		resolver:    extract.NewReferenceResolver(doc.Root),
		language:    mp.defaultLanguage(doc.Root, repo),
		backfill:    mp.opts.Backfill,
		diagnostics: &extract.Diagnostics{},
	}
	result := &Result{}

	study := &cmm.Study{
		StudyNumber:       m.studyNumber(doc.Header),
		RepositoryURL:     repo.URL,
		StudyXMLSourceURL: repo.StudyXMLSourceURL,
		LastModified:      doc.Header.Datestamp,
		Active:            true,
	}

	study.TitleStudy = m.titles()
	study.Abstract = collectValue[string](m, ddi.FieldAbstract, extract.TextValue, cmm.JoinWithBreak)
	study.Keywords = m.terms(ddi.FieldKeywords)
	study.Classifications = m.terms(ddi.FieldClassifications)
	study.Creators = collectList(m, ddi.FieldCreators, m.strategies.Creator)
	study.Publisher = m.publishers()
	study.PidStudies = collectList(m, ddi.FieldPidStudies, m.strategies.Pid)
	study.SamplingProcedureFreeTexts = collectList[string](m, ddi.FieldSamplingProcedureFreeTexts, extract.TextValue)
	study.TypeOfSamplingProcedures = m.terms(ddi.FieldTypeOfSamplingProcedures)
	study.TypeOfModeOfCollections = m.terms(ddi.FieldTypeOfModeOfCollections)
	study.TypeOfTimeMethods = m.terms(ddi.FieldTypeOfTimeMethods)
	study.StudyAreaCountries = collectList(m, ddi.FieldStudyAreaCountries, m.strategies.Country)
	study.UnitTypes = m.terms(ddi.FieldUnitTypes)
	study.RelatedPublications = collectList(m, ddi.FieldRelatedPublications, m.strategies.RelatedPublication)
	study.Funding = collectList(m, ddi.FieldFunding, m.strategies.Funding)
	study.Series = collectList(m, ddi.FieldSeries, m.strategies.Series)
	study.DataAccessFreeTexts = collectList[string](m, ddi.FieldDataAccessFreeTexts, extract.TextValue)
	study.DataCollectionFreeTexts = collectList(m, ddi.FieldDataCollectionDates, m.strategies.CollectionFreeText)
	study.GeneralDataFormats = m.terms(ddi.FieldGeneralDataFormats)

	universe, err := m.universe()
	if err != nil {
		fieldErr := &FieldError{Field: ddi.FieldUniverse, Err: err}
		if mp.opts.FailOnStrict {
			return nil, fieldErr
		}
		result.StrictErrors = append(result.StrictErrors, fieldErr)
	}
	study.Universe = universe

	study.DataCollectionPeriod = m.strategies.CollectionPeriod(m.nodes(ddi.FieldDataCollectionDates), m.report(ddi.FieldDataCollectionDates))
	study.FileLanguages = extract.FileLanguages(m.nodes(ddi.FieldFileLanguages))
	study.PublicationYear = m.publicationYear()
	study.DataAccess = m.dataAccess(repo.AccessMapping)

	languages := study.Languages()
	study.StudyURL = fillMissing(collectValue(m, ddi.FieldStudyURL, m.strategies.URL, cmm.FirstWins[string]), languages, m.language)
	study.DataAccessURL = fillMissing(collectValue(m, ddi.FieldDataAccessURL, m.strategies.URL, cmm.FirstWins[string]), languages, m.language)

	cleanFreeTexts(study)

	result.Study = study
	result.Diagnostics = m.diagnostics.Entries()
	return result, nil
}

// defaultLanguage prefers the root's xml:lang, then the repository
// override, then the global default.
func (mp *Mapper) defaultLanguage(root *xmlquery.Node, repo RepositoryContext) string {
	if language := extract.Lang(root); language != "" {
		return language
	}
	if repo.DefaultLanguage != "" {
		return repo.DefaultLanguage
	}
	return mp.opts.DefaultLanguage
}

// studyNumber uses the OAI-PMH identifier when there is one, so that a
// later deletion of the record yields the same study identity. Bare
// documents fall back to the first non-blank study identifier element.
func (m *mapping) studyNumber(header source.Header) string {
	if header.Identifier != "" {
		return header.Identifier
	}
	number, _ := extract.First[string](m.nodes(ddi.FieldStudyNumber), extract.TextValue, m.report(ddi.FieldStudyNumber))
	return number
}

// titles fills languages without a title from the parallel titles.
func (m *mapping) titles() map[string]string {
	titles := collectValue[string](m, ddi.FieldTitle, extract.TextValue, cmm.FirstWins[string])
	parallel := collectValue[string](m, ddi.FieldParallelTitle, extract.TextValue, cmm.FirstWins[string])
	if titles == nil && len(parallel) > 0 {
		titles = make(map[string]string, len(parallel))
	}
	for language, title := range parallel {
		if _, ok := titles[language]; !ok {
			titles[language] = title
		}
	}
	return titles
}

// publishers falls back to the distributor for languages without a
// publisher.
func (m *mapping) publishers() map[string]cmm.Publisher {
	publishers := collectValue[cmm.Publisher](m, ddi.FieldPublisher, extract.Publisher, cmm.FirstWins[cmm.Publisher])
	if !m.registry.Has(ddi.FieldDistributor) {
		return publishers
	}
	distributors := collectValue[cmm.Publisher](m, ddi.FieldDistributor, extract.Publisher, cmm.FirstWins[cmm.Publisher])
	if publishers == nil && len(distributors) > 0 {
		publishers = make(map[string]cmm.Publisher, len(distributors))
	}
	for language, distributor := range distributors {
		if _, ok := publishers[language]; !ok {
			publishers[language] = distributor
		}
	}
	return publishers
}

func (m *mapping) universe() (map[string]cmm.Universe, error) {
	values, err := extract.CollectUniverse(m.nodes(ddi.FieldUniverse), m.strategies.Clusion)
	if err != nil {
		return nil, err
	}
	return cmm.Backfill(values, m.language, cmm.MergeUniverse, m.backfill), nil
}

// publicationYear reads the first distribution date, preferring the date
// attribute over the element text.
func (m *mapping) publicationYear() string {
	report := m.report(ddi.FieldPublicationYear)
	for _, node := range m.nodes(ddi.FieldPublicationYear) {
		value := extract.Attr(node, "date")
		if value == "" {
			value = extract.Text(node)
		}
		if value == "" {
			continue
		}
		year, err := extract.ParseYear(value)
		if err != nil {
			report.Report(extract.Lang(node), "%v", err)
			return ""
		}
		return strconv.Itoa(year)
	}
	return ""
}

func (m *mapping) dataAccess(rules extract.AccessMapping) cmm.DataAccess {
	var values []string
	for _, node := range m.nodes(ddi.FieldDataAccess) {
		if text := extract.Text(node); text != "" {
			values = append(values, text)
		}
	}

	freeTexts := make(map[string][]string)
	for key, field := range m.registry.AccessMappingSources() {
		for _, node := range m.nodes(field) {
			if text := extract.Text(node); text != "" {
				freeTexts[key] = append(freeTexts[key], text)
			}
		}
	}
	return extract.DataAccessCategory(values, freeTexts, rules)
}

// fillMissing gives every language without a value the value of the default
// language, or failing that of the first language that has one.
func fillMissing(values map[string]string, languages []string, defaultLanguage string) map[string]string {
	if len(values) == 0 {
		return values
	}
	fallback, ok := values[defaultLanguage]
	if !ok {
		fallback = values[cmm.Keys(values)[0]]
	}
	for _, language := range languages {
		if _, ok := values[language]; !ok {
			values[language] = fallback
		}
	}
	return values
}

// cleanFreeTexts removes character returns from the free-text values of
// the study. Universe texts keep the line breaks that separate merged
// descriptions.
func cleanFreeTexts(study *cmm.Study) {
	for _, values := range []map[string]string{study.TitleStudy, study.Abstract} {
		for language, text := range values {
			values[language] = cmm.CleanCharacterReturns(text)
		}
	}
	for _, values := range []map[string][]string{study.SamplingProcedureFreeTexts, study.DataAccessFreeTexts} {
		for _, texts := range values {
			for i := range texts {
				texts[i] = cmm.CleanCharacterReturns(texts[i])
			}
		}
	}
	for language, publisher := range study.Publisher {
		publisher.Name = cmm.CleanCharacterReturns(publisher.Name)
		study.Publisher[language] = publisher
	}
	for _, texts := range study.DataCollectionFreeTexts {
		for i := range texts {
			texts[i].DataCollectionFreeText = cmm.CleanCharacterReturns(texts[i].DataCollectionFreeText)
		}
	}
}
