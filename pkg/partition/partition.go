// Package partition projects a language-neutral cmm.Study into one
// finalized cmm.StudyOfLanguage per qualifying target language.
package partition

import (
	"slices"

	"github.com/coolbeans/ddiharvest/pkg/cmm"
)

// Gate decides whether a study carries enough content in one language to
// be published in that language.
type Gate func(study *cmm.Study, language string) bool

// RequiredFields names the fields a language must carry. These are the
// fields MinimumFields checks.
var RequiredFields = []string{"titleStudy", "abstract", "studyNumber", "publisher"}

// LegacyRequiredFields is the broader set older harvester releases demanded
// before a language was published. MinimumFields is the current rule;
// LegacyGate is kept to compare the two.
var LegacyRequiredFields = []string{
	"titleStudy", "abstract", "studyNumber", "publisher",
	"creators", "classifications", "studyAreaCountries",
}

// MinimumFields requires a title, an abstract, a study number and a
// publisher in the language.
func MinimumFields(study *cmm.Study, language string) bool {
	if study.StudyNumber == "" {
		return false
	}
	if _, ok := study.TitleStudy[language]; !ok {
		return false
	}
	if _, ok := study.Abstract[language]; !ok {
		return false
	}
	_, ok := study.Publisher[language]
	return ok
}

// LegacyGate applies LegacyRequiredFields.
func LegacyGate(study *cmm.Study, language string) bool {
	if !MinimumFields(study, language) {
		return false
	}
	return len(study.Creators[language]) > 0 &&
		len(study.Classifications[language]) > 0 &&
		len(study.StudyAreaCountries[language]) > 0
}

// Options carry the repository identity stamped on every record.
type Options struct {
	RepositoryCode string
	RepositoryName string
	// Gate defaults to MinimumFields.
	Gate Gate
}

// PartitionByLanguage builds one record per target language that passes
// the gate, keyed by language. Inactive studies yield an empty inactive
// record for every target language. The result is empty when no language
// qualifies; it is never nil.
func PartitionByLanguage(study *cmm.Study, languages []string, opts Options) map[string]cmm.StudyOfLanguage {
	records := make(map[string]cmm.StudyOfLanguage)
	if study == nil {
		return records
	}
	gate := opts.Gate
	if gate == nil {
		gate = MinimumFields
	}

	id := cmm.StudyID(study.RepositoryURL, study.StudyNumber)

	if !study.Active {
		for _, language := range languages {
			records[language] = cmm.StudyOfLanguage{
				ID:                id,
				Code:              opts.RepositoryCode,
				StudyNumber:       study.StudyNumber,
				RepositoryURL:     study.RepositoryURL,
				StudyXMLSourceURL: study.StudyXMLSourceURL,
				LastModified:      study.LastModified,
				Active:            false,
				PublisherFilter:   publisherFilter(opts),
			}
		}
		return records
	}

	var available []string
	for _, language := range languages {
		if gate(study, language) {
			available = append(available, language)
		}
	}
	available = cmm.SortedUnique(available)
	if len(available) == 0 {
		return records
	}

	for _, language := range available {
		record := project(study, language)
		record.ID = id
		record.Code = opts.RepositoryCode
		record.PublisherFilter = publisherFilter(opts)
		record.LangAvailableIn = append([]string(nil), available...)
		records[language] = record
	}
	return records
}

func project(study *cmm.Study, language string) cmm.StudyOfLanguage {
	record := cmm.StudyOfLanguage{
		StudyNumber:       study.StudyNumber,
		RepositoryURL:     study.RepositoryURL,
		StudyXMLSourceURL: study.StudyXMLSourceURL,
		LastModified:      study.LastModified,
		Active:            true,

		TitleStudy:                 study.TitleStudy[language],
		Abstract:                   study.Abstract[language],
		Keywords:                   slices.Clone(study.Keywords[language]),
		Classifications:            slices.Clone(study.Classifications[language]),
		Creators:                   cloneCreators(study.Creators[language]),
		PidStudies:                 slices.Clone(study.PidStudies[language]),
		SamplingProcedureFreeTexts: slices.Clone(study.SamplingProcedureFreeTexts[language]),
		TypeOfSamplingProcedures:   slices.Clone(study.TypeOfSamplingProcedures[language]),
		TypeOfModeOfCollections:    slices.Clone(study.TypeOfModeOfCollections[language]),
		TypeOfTimeMethods:          slices.Clone(study.TypeOfTimeMethods[language]),
		StudyAreaCountries:         slices.Clone(study.StudyAreaCountries[language]),
		UnitTypes:                  slices.Clone(study.UnitTypes[language]),
		RelatedPublications:        clonePublications(study.RelatedPublications[language]),
		Funding:                    slices.Clone(study.Funding[language]),
		Series:                     cloneSeries(study.Series[language]),
		DataAccessFreeTexts:        slices.Clone(study.DataAccessFreeTexts[language]),
		DataCollectionFreeTexts:    slices.Clone(study.DataCollectionFreeTexts[language]),
		StudyURL:                   study.StudyURL[language],
		DataAccessURL:              study.DataAccessURL[language],
		GeneralDataFormats:         slices.Clone(study.GeneralDataFormats[language]),

		FileLanguages:                 slices.Clone(study.FileLanguages),
		DataCollectionPeriodStartDate: study.DataCollectionPeriod.StartDate,
		DataCollectionPeriodEndDate:   study.DataCollectionPeriod.EndDate,
		DataCollectionYear:            study.DataCollectionPeriod.Year,
		PublicationYear:               study.PublicationYear,
		DataAccess:                    study.DataAccess,
	}
	if publisher, ok := study.Publisher[language]; ok {
		record.Publisher = &publisher
	}
	if universe, ok := study.Universe[language]; ok {
		record.Universe = &universe
	}
	return record
}

func publisherFilter(opts Options) cmm.Publisher {
	return cmm.Publisher{Abbreviation: opts.RepositoryCode, Name: opts.RepositoryName}
}

func cloneCreators(creators []cmm.Creator) []cmm.Creator {
	cloned := slices.Clone(creators)
	for i := range cloned {
		if cloned[i].Identifier != nil {
			identifier := *cloned[i].Identifier
			cloned[i].Identifier = &identifier
		}
	}
	return cloned
}

func clonePublications(publications []cmm.RelatedPublication) []cmm.RelatedPublication {
	cloned := slices.Clone(publications)
	for i := range cloned {
		cloned[i].HoldingsURIs = slices.Clone(cloned[i].HoldingsURIs)
	}
	return cloned
}

func cloneSeries(series []cmm.Series) []cmm.Series {
	cloned := slices.Clone(series)
	for i := range cloned {
		cloned[i].Names = slices.Clone(cloned[i].Names)
		cloned[i].URIs = slices.Clone(cloned[i].URIs)
		cloned[i].Descriptions = slices.Clone(cloned[i].Descriptions)
	}
	return cloned
}
