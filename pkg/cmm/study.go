// Package cmm provides the common metadata model (CMM) that harvested study
// documents are normalised into: the language-neutral Study produced by the
// mapper and the per-language StudyOfLanguage handed to the index.
package cmm

// NoLanguage is the language key for content without an explicit xml:lang.
// It is eliminated by default-language backfill before records leave the
// mapper.
const NoLanguage = ""

// DataAccess classifies how a study's data can be obtained.
type DataAccess string

const (
	DataAccessOpen          DataAccess = "Open"
	DataAccessRestricted    DataAccess = "Restricted"
	DataAccessUncategorized DataAccess = "Uncategorized"
)

// TermVocabAttributes is a free-text term with optional controlled
// vocabulary metadata.
type TermVocabAttributes struct {
	Vocab    string `json:"vocab,omitempty"`
	VocabURI string `json:"vocabUri,omitempty"`
	ID       string `json:"id,omitempty"`
	Term     string `json:"term"`
}

// Identifier is an external identifier attached to a person or organisation
// (ORCID, ROR, ...).
type Identifier struct {
	Type string `json:"type,omitempty"`
	ID   string `json:"id,omitempty"`
	URI  string `json:"uri,omitempty"`
}

// Creator is a principal investigator or authoring organisation.
type Creator struct {
	Name        string      `json:"name"`
	Affiliation string      `json:"affiliation,omitempty"`
	Identifier  *Identifier `json:"identifier,omitempty"`
}

// Publisher is the organisation publishing a study.
type Publisher struct {
	Abbreviation string `json:"abbr,omitempty"`
	Name         string `json:"publisher"`
}

// Pid is a persistent identifier of a study.
type Pid struct {
	Agency string `json:"agency,omitempty"`
	Pid    string `json:"pid"`
}

// Country is a geographic coverage entry.
type Country struct {
	ISOCode     string `json:"abbr,omitempty"`
	CountryName string `json:"country"`
}

// Universe is the target population, split into included and excluded
// descriptions.
type Universe struct {
	Inclusion string `json:"inclusion,omitempty"`
	Exclusion string `json:"exclusion,omitempty"`
}

// RelatedPublication is a publication based on the study's data.
type RelatedPublication struct {
	Title           string   `json:"title"`
	PublicationDate string   `json:"publicationDate,omitempty"`
	HoldingsURIs    []string `json:"holdings,omitempty"`
}

// Funding is a funding agency and optional grant number.
type Funding struct {
	Agency      string `json:"agency,omitempty"`
	GrantNumber string `json:"grantNumber,omitempty"`
}

// Series is a study series the study belongs to.
type Series struct {
	Names        []string `json:"names,omitempty"`
	URIs         []string `json:"uris,omitempty"`
	Descriptions []string `json:"descriptions,omitempty"`
}

// DataCollectionFreeText is a free-text data collection date with its event
// role (single, start, end).
type DataCollectionFreeText struct {
	DataCollectionFreeText string `json:"dataCollectionFreeText"`
	Event                  string `json:"event,omitempty"`
}

// DataCollectionPeriod holds the language-independent collection dates.
// StartDate, EndDate and Year are derived independently of each other.
type DataCollectionPeriod struct {
	StartDate string `json:"dataCollectionPeriodStartdate,omitempty"`
	EndDate   string `json:"dataCollectionPeriodEnddate,omitempty"`
	Year      int    `json:"dataCollectionYear,omitempty"`
}

// Study is the language-neutral intermediate record built from one source
// document. Per-language fields are keyed by language code; after mapping
// none of them contains NoLanguage.
type Study struct {
	StudyNumber       string `json:"studyNumber"`
	RepositoryURL     string `json:"repositoryUrl,omitempty"`
	StudyXMLSourceURL string `json:"studyXmlSourceUrl,omitempty"`
	LastModified      string `json:"lastModified,omitempty"`
	Active            bool   `json:"active"`

	TitleStudy                 map[string]string                   `json:"titleStudy,omitempty"`
	Abstract                   map[string]string                   `json:"abstract,omitempty"`
	Keywords                   map[string][]TermVocabAttributes    `json:"keywords,omitempty"`
	Classifications            map[string][]TermVocabAttributes    `json:"classifications,omitempty"`
	Creators                   map[string][]Creator                `json:"creators,omitempty"`
	Publisher                  map[string]Publisher                `json:"publisher,omitempty"`
	PidStudies                 map[string][]Pid                    `json:"pidStudies,omitempty"`
	SamplingProcedureFreeTexts map[string][]string                 `json:"samplingProcedureFreeTexts,omitempty"`
	TypeOfSamplingProcedures   map[string][]TermVocabAttributes    `json:"typeOfSamplingProcedures,omitempty"`
	TypeOfModeOfCollections    map[string][]TermVocabAttributes    `json:"typeOfModeOfCollections,omitempty"`
	TypeOfTimeMethods          map[string][]TermVocabAttributes    `json:"typeOfTimeMethods,omitempty"`
	StudyAreaCountries         map[string][]Country                `json:"studyAreaCountries,omitempty"`
	UnitTypes                  map[string][]TermVocabAttributes    `json:"unitTypes,omitempty"`
	Universe                   map[string]Universe                 `json:"universe,omitempty"`
	RelatedPublications        map[string][]RelatedPublication     `json:"relatedPublications,omitempty"`
	Funding                    map[string][]Funding                `json:"funding,omitempty"`
	Series                     map[string][]Series                 `json:"series,omitempty"`
	DataAccessFreeTexts        map[string][]string                 `json:"dataAccessFreeTexts,omitempty"`
	DataCollectionFreeTexts    map[string][]DataCollectionFreeText `json:"dataCollectionFreeTexts,omitempty"`
	StudyURL                   map[string]string                   `json:"studyUrl,omitempty"`
	DataAccessURL              map[string]string                   `json:"dataAccessUrl,omitempty"`
	GeneralDataFormats         map[string][]TermVocabAttributes    `json:"generalDataFormats,omitempty"`

	FileLanguages        []string             `json:"fileLanguages,omitempty"`
	DataCollectionPeriod DataCollectionPeriod `json:"dataCollectionPeriod"`
	PublicationYear      string               `json:"publicationYear,omitempty"`
	DataAccess           DataAccess           `json:"dataAccess,omitempty"`
}

// Languages returns the sorted set of languages that appear in any
// per-language field of the study.
func (s *Study) Languages() []string {
	set := make(map[string]struct{})
	collect := func(languages []string) {
		for _, language := range languages {
			set[language] = struct{}{}
		}
	}
	collect(Keys(s.TitleStudy))
	collect(Keys(s.Abstract))
	collect(Keys(s.Keywords))
	collect(Keys(s.Classifications))
	collect(Keys(s.Creators))
	collect(Keys(s.Publisher))
	collect(Keys(s.PidStudies))
	collect(Keys(s.SamplingProcedureFreeTexts))
	collect(Keys(s.TypeOfSamplingProcedures))
	collect(Keys(s.TypeOfModeOfCollections))
	collect(Keys(s.TypeOfTimeMethods))
	collect(Keys(s.StudyAreaCountries))
	collect(Keys(s.UnitTypes))
	collect(Keys(s.Universe))
	collect(Keys(s.RelatedPublications))
	collect(Keys(s.Funding))
	collect(Keys(s.Series))
	collect(Keys(s.DataAccessFreeTexts))
	collect(Keys(s.DataCollectionFreeTexts))
	collect(Keys(s.StudyURL))
	collect(Keys(s.DataAccessURL))
	collect(Keys(s.GeneralDataFormats))
	return sortedSet(set)
}
