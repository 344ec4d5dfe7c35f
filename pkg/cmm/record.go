package cmm

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// StudyOfLanguage is the finalized, single-language projection of a Study.
// It is the unit handed to the index and is not modified afterwards.
type StudyOfLanguage struct {
	ID                string `json:"id"`
	Code              string `json:"code"`
	StudyNumber       string `json:"studyNumber"`
	RepositoryURL     string `json:"repositoryUrl,omitempty"`
	StudyXMLSourceURL string `json:"studyXmlSourceUrl,omitempty"`
	LastModified      string `json:"lastModified,omitempty"`
	Active            bool   `json:"isActive"`

	TitleStudy                 string                   `json:"titleStudy,omitempty"`
	Abstract                   string                   `json:"abstract,omitempty"`
	Keywords                   []TermVocabAttributes    `json:"keywords,omitempty"`
	Classifications            []TermVocabAttributes    `json:"classifications,omitempty"`
	Creators                   []Creator                `json:"creators,omitempty"`
	Publisher                  *Publisher               `json:"publisher,omitempty"`
	PidStudies                 []Pid                    `json:"pidStudies,omitempty"`
	SamplingProcedureFreeTexts []string                 `json:"samplingProcedureFreeTexts,omitempty"`
	TypeOfSamplingProcedures   []TermVocabAttributes    `json:"typeOfSamplingProcedures,omitempty"`
	TypeOfModeOfCollections    []TermVocabAttributes    `json:"typeOfModeOfCollections,omitempty"`
	TypeOfTimeMethods          []TermVocabAttributes    `json:"typeOfTimeMethods,omitempty"`
	StudyAreaCountries         []Country                `json:"studyAreaCountries,omitempty"`
	UnitTypes                  []TermVocabAttributes    `json:"unitTypes,omitempty"`
	Universe                   *Universe                `json:"universe,omitempty"`
	RelatedPublications        []RelatedPublication     `json:"relatedPublications,omitempty"`
	Funding                    []Funding                `json:"funding,omitempty"`
	Series                     []Series                 `json:"series,omitempty"`
	DataAccessFreeTexts        []string                 `json:"dataAccessFreeTexts,omitempty"`
	DataCollectionFreeTexts    []DataCollectionFreeText `json:"dataCollectionFreeTexts,omitempty"`
	StudyURL                   string                   `json:"studyUrl,omitempty"`
	DataAccessURL              string                   `json:"dataAccessUrl,omitempty"`
	GeneralDataFormats         []TermVocabAttributes    `json:"generalDataFormats,omitempty"`

	FileLanguages                 []string   `json:"fileLanguages,omitempty"`
	DataCollectionPeriodStartDate string     `json:"dataCollectionPeriodStartdate,omitempty"`
	DataCollectionPeriodEndDate   string     `json:"dataCollectionPeriodEnddate,omitempty"`
	DataCollectionYear            int        `json:"dataCollectionYear,omitempty"`
	PublicationYear               string     `json:"publicationYear,omitempty"`
	DataAccess                    DataAccess `json:"dataAccess,omitempty"`

	LangAvailableIn []string  `json:"langAvailableIn,omitempty"`
	PublisherFilter Publisher `json:"publisherFilter"`
}

// StudyID derives the content-addressable identifier of a study. The same
// repository URL and study number always yield the same identifier.
func StudyID(repositoryURL, studyNumber string) string {
	digest := sha256.Sum256([]byte(repositoryURL + "-" + studyNumber))
	return hex.EncodeToString(digest[:])
}

// Equal reports whether two records carry the same content. LastModified is
// ignored so that a re-harvest of unchanged metadata is not an update.
// Records are compared by their JSON form, so nil and empty lists are equal.
func (r StudyOfLanguage) Equal(other StudyOfLanguage) bool {
	r.LastModified = ""
	other.LastModified = ""
	left, err := json.Marshal(r)
	if err != nil {
		return false
	}
	right, err := json.Marshal(other)
	if err != nil {
		return false
	}
	return string(left) == string(right)
}
