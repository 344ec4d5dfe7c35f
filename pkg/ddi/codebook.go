package ddi

import (
	"github.com/coolbeans/ddiharvest/pkg/extract"
)

const (
	stdyDscr = "//ddi:codeBook/ddi:stdyDscr"
	citation = stdyDscr + "/ddi:citation"
	stdyInfo = stdyDscr + "/ddi:stdyInfo"
	sumDscr  = stdyInfo + "/ddi:sumDscr"
	dataColl = stdyDscr + "/ddi:method/ddi:dataColl"
	dataAccs = stdyDscr + "/ddi:dataAccs"
	fileDscr = "//ddi:codeBook/ddi:fileDscr"
)

func paths(expressions ...string) Query {
	return Query{Paths: expressions}
}

func codebookQueries() map[Field]Query {
	return map[Field]Query{
		FieldTitle:           paths(citation + "/ddi:titlStmt/ddi:titl"),
		FieldParallelTitle:   paths(citation + "/ddi:titlStmt/ddi:parTitl"),
		FieldAbstract:        paths(stdyInfo + "/ddi:abstract"),
		FieldStudyNumber:     paths(citation + "/ddi:titlStmt/ddi:IDNo"),
		FieldPidStudies:      paths(citation + "/ddi:titlStmt/ddi:IDNo"),
		FieldKeywords:        paths(stdyInfo + "/ddi:subject/ddi:keyword"),
		FieldClassifications: paths(stdyInfo + "/ddi:subject/ddi:topcClas"),
		FieldCreators:        paths(citation + "/ddi:rspStmt/ddi:AuthEnty"),
		FieldPublisher: paths(
			"//ddi:codeBook/ddi:docDscr/ddi:citation/ddi:prodStmt/ddi:producer",
			citation+"/ddi:prodStmt/ddi:producer",
		),
		FieldDistributor:                paths(citation + "/ddi:distStmt/ddi:distrbtr"),
		FieldSamplingProcedureFreeTexts: paths(dataColl + "/ddi:sampProc"),
		FieldTypeOfSamplingProcedures:   paths(dataColl + "/ddi:sampProc[ddi:concept]"),
		FieldTypeOfModeOfCollections:    paths(dataColl + "/ddi:collMode"),
		FieldTypeOfTimeMethods:          paths(dataColl + "/ddi:timeMeth"),
		FieldStudyAreaCountries:         paths(sumDscr + "/ddi:nation"),
		FieldUnitTypes:                  paths(sumDscr + "/ddi:anlyUnit"),
		FieldUniverse:                   paths(sumDscr + "/ddi:universe"),
		FieldRelatedPublications:        paths(stdyDscr + "/ddi:othrStdyMat/ddi:relPubl"),
		FieldFunding: paths(
			citation+"/ddi:prodStmt/ddi:grantNo",
			citation+"/ddi:prodStmt/ddi:fundAg",
		),
		FieldSeries: paths(citation + "/ddi:serStmt"),
		FieldDataAccessFreeTexts: paths(
			dataAccs+"/ddi:useStmt/ddi:restrctn",
			dataAccs+"/ddi:useStmt/ddi:conditions",
		),
		FieldAccessConditions:    paths(dataAccs + "/ddi:useStmt/ddi:conditions"),
		FieldAccessRestrictions:  paths(dataAccs + "/ddi:useStmt/ddi:restrctn"),
		FieldDataAccess:          paths(dataAccs + "/ddi:setAvail/ddi:avlStatus"),
		FieldDataCollectionDates: paths(sumDscr + "/ddi:collDate"),
		FieldStudyURL:            paths(citation + "/ddi:holdings"),
		FieldDataAccessURL:       paths(dataAccs + "/ddi:setAvail/ddi:accsPlac"),
		FieldGeneralDataFormats:  paths(fileDscr + "/ddi:fileTxt/ddi:format"),
		FieldFileLanguages:       paths(fileDscr + "/ddi:fileTxt/ddi:fileName"),
		FieldPublicationYear:     paths(citation + "/ddi:distStmt/ddi:distDate"),
	}
}

// nesstarOverrides lists the fields where Nesstar exports diverge from
// DDI-Codebook 2.5.
func nesstarOverrides() map[Field]Query {
	return map[Field]Query{
		FieldPublisher: paths(
			citation+"/ddi:distStmt/ddi:distrbtr",
			citation+"/ddi:prodStmt/ddi:producer",
		),
		FieldUniverse: paths(
			sumDscr+"/ddi:universe",
			dataColl+"/ddi:universe",
		),
		FieldFileLanguages: paths(fileDscr + "/ddi:fileTxt/ddi:fileCitation/ddi:titlStmt/ddi:titl"),
	}
}

func codebookStrategies() Strategies {
	return Strategies{
		Vocab:              extract.CodebookVocabAttributes,
		Creator:            extract.Creator,
		Pid:                extract.Pid,
		Country:            extract.Country("abbr"),
		Clusion:            extract.CodebookClusion,
		RelatedPublication: extract.RelatedPublication,
		Series:             extract.Series,
		Funding:            extract.Funding,
		CollectionFreeText: extract.DataCollectionFreeText,
		CollectionPeriod:   extract.CollectionPeriod,
		URL:                extract.URIAttribute("URI"),
	}
}

func nesstarStrategies() Strategies {
	strategies := codebookStrategies()
	strategies.Clusion = extract.NesstarClusion
	return strategies
}

func codebookAccessSources() map[string]Field {
	return map[string]Field{
		"conditions": FieldAccessConditions,
		"restrctn":   FieldAccessRestrictions,
	}
}
