package ddi

// Field names a CMM field (or an auxiliary input of one) that a registry
// can locate. The value is the field's JSON name, which is also used to
// attribute extraction diagnostics.
type Field string

const (
	FieldTitle                      Field = "titleStudy"
	FieldParallelTitle              Field = "parallelTitle"
	FieldAbstract                   Field = "abstract"
	FieldStudyNumber                Field = "studyNumber"
	FieldKeywords                   Field = "keywords"
	FieldClassifications            Field = "classifications"
	FieldCreators                   Field = "creators"
	FieldPublisher                  Field = "publisher"
	FieldDistributor                Field = "distributor"
	FieldPidStudies                 Field = "pidStudies"
	FieldSamplingProcedureFreeTexts Field = "samplingProcedureFreeTexts"
	FieldTypeOfSamplingProcedures   Field = "typeOfSamplingProcedures"
	FieldTypeOfModeOfCollections    Field = "typeOfModeOfCollections"
	FieldTypeOfTimeMethods          Field = "typeOfTimeMethods"
	FieldStudyAreaCountries         Field = "studyAreaCountries"
	FieldUnitTypes                  Field = "unitTypes"
	FieldUniverse                   Field = "universe"
	FieldRelatedPublications        Field = "relatedPublications"
	FieldFunding                    Field = "funding"
	FieldSeries                     Field = "series"
	FieldDataAccessFreeTexts        Field = "dataAccessFreeTexts"
	FieldDataCollectionDates        Field = "dataCollectionFreeTexts"
	FieldStudyURL                   Field = "studyUrl"
	FieldDataAccessURL              Field = "dataAccessUrl"
	FieldGeneralDataFormats         Field = "generalDataFormats"
	FieldFileLanguages              Field = "fileLanguages"
	FieldPublicationYear            Field = "publicationYear"
	FieldDataAccess                 Field = "dataAccess"
	FieldAccessConditions           Field = "accessConditions"
	FieldAccessRestrictions         Field = "accessRestrictions"
)
