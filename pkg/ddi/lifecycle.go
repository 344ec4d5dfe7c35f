package ddi

import (
	"github.com/coolbeans/ddiharvest/pkg/extract"
)

const (
	studyUnit        = "//s:StudyUnit"
	unitCitation     = studyUnit + "/r:Citation"
	methodology      = "//d:DataCollection/d:Methodology"
	archiveAccess    = "//a:Archive/a:ArchiveSpecific/a:Collection/a:Access"
	organizationName = "a:OrganizationIdentification/a:OrganizationName/r:String"
	agentName        = organizationName + " | a:IndividualIdentification/a:IndividualName/a:FullName/r:String"
)

func lifecycleQueries() map[Field]Query {
	return map[Field]Query{
		FieldTitle:         paths(unitCitation + "/r:Title/r:String"),
		FieldParallelTitle: paths(unitCitation + "/r:AlternateTitle/r:String"),
		FieldAbstract:      paths(studyUnit + "/r:Abstract/r:Content"),
		FieldStudyNumber: paths(
			unitCitation+"/r:InternationalIdentifier/r:IdentifierContent",
			studyUnit+"/r:UserID",
		),
		FieldPidStudies:      paths(unitCitation + "/r:InternationalIdentifier"),
		FieldKeywords:        paths(studyUnit + "/r:Coverage/r:TopicalCoverage/r:Keyword"),
		FieldClassifications: paths(studyUnit + "/r:Coverage/r:TopicalCoverage/r:Subject"),
		FieldCreators: {
			Paths:     []string{unitCitation + "/r:Creator/r:CreatorName/r:String"},
			Reference: unitCitation + "/r:Creator/r:CreatorReference",
			Within:    agentName,
		},
		FieldPublisher: {
			Paths:     []string{unitCitation + "/r:Publisher/r:PublisherName/r:String"},
			Reference: unitCitation + "/r:Publisher/r:PublisherReference",
			Within:    organizationName,
		},
		FieldSamplingProcedureFreeTexts: paths(methodology + "/d:SamplingProcedure/r:Content"),
		FieldTypeOfSamplingProcedures:   paths(methodology + "/d:SamplingProcedure/d:TypeOfSamplingProcedure"),
		FieldTypeOfModeOfCollections:    paths("//d:DataCollection/d:CollectionEvent/d:ModeOfCollection/d:TypeOfModeOfCollection"),
		FieldTypeOfTimeMethods:          paths(methodology + "/d:TimeMethod/d:TypeOfTimeMethod"),
		FieldStudyAreaCountries:         paths(studyUnit + "/r:Coverage/r:SpatialCoverage/r:CountryCode"),
		FieldUnitTypes:                  paths(studyUnit + "/r:AnalysisUnit"),
		FieldUniverse: {
			Paths:     []string{studyUnit + "/c:ConceptualComponent/c:UniverseScheme/c:Universe/r:Description/r:Content"},
			Reference: studyUnit + "/r:UniverseReference",
			Within:    "r:Description/r:Content",
		},
		FieldRelatedPublications: {
			Paths:     []string{studyUnit + "/r:OtherMaterial/r:Citation/r:Title/r:String"},
			Reference: studyUnit + "/r:OtherMaterialReference",
			Within:    "r:Citation/r:Title/r:String",
		},
		FieldFunding: {
			Paths:     []string{studyUnit + "/r:FundingInformation/r:GrantNumber"},
			Reference: studyUnit + "/r:FundingInformation/r:AgencyOrganizationReference",
			Within:    organizationName,
		},
		FieldSeries:              paths("//g:Group/r:Citation/r:Title/r:String"),
		FieldDataAccessFreeTexts: paths(archiveAccess + "/r:Description/r:Content"),
		FieldAccessConditions:    paths(archiveAccess + "/a:AccessConditions"),
		FieldAccessRestrictions:  paths(archiveAccess + "/a:Restrictions/r:Content"),
		FieldDataAccess:          paths(archiveAccess + "/a:AccessTypeName/r:String"),
		FieldDataCollectionDates: paths("//d:DataCollection/d:CollectionEvent/d:DataCollectionDate"),
		FieldStudyURL:            paths("//a:Archive/a:ArchiveSpecific/a:Item/a:URI"),
		FieldDataAccessURL:       paths(archiveAccess + "/r:URI"),
		FieldGeneralDataFormats:  paths("//pi:PhysicalInstance/pi:DataFileIdentification/pi:TypeOfDataFile"),
		FieldFileLanguages:       paths("//pi:PhysicalInstance/r:Citation/r:Title/r:String"),
		FieldPublicationYear:     paths(unitCitation + "/r:PublicationDate/r:SimpleDate"),
	}
}

// lifecycle33Overrides lists the fields whose location changed between
// DDI-Lifecycle 3.2 and 3.3.
func lifecycle33Overrides() map[Field]Query {
	return map[Field]Query{
		FieldGeneralDataFormats:         paths("//pi:PhysicalInstance/pi:DataFileIdentification/r:TypeOfDataFile"),
		FieldSamplingProcedureFreeTexts: paths(methodology + "/d:SamplingProcedure/r:Description/r:Content"),
		FieldTypeOfSamplingProcedures:   paths(methodology + "/d:SamplingProcedure/r:TypeOfSamplingProcedure"),
	}
}

func lifecycleStrategies() Strategies {
	return Strategies{
		Vocab:              extract.LifecycleVocabAttributes,
		Creator:            extract.LifecycleCreator,
		Pid:                extract.LifecyclePid,
		Country:            extract.Country(""),
		Clusion:            extract.LifecycleClusion,
		RelatedPublication: extract.LifecycleRelatedPublication,
		Series:             extract.SeriesName,
		Funding:            extract.Funding,
		CollectionFreeText: extract.LifecycleDataCollectionFreeText,
		CollectionPeriod:   extract.LifecycleCollectionPeriod,
		URL:                extract.URIText,
	}
}

func lifecycleAccessSources() map[string]Field {
	return map[string]Field{
		"conditions": FieldAccessConditions,
		"restrctn":   FieldAccessRestrictions,
	}
}
