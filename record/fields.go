package record

// Canonical field names of a manuscript record, in schema order.
const (
	FieldManuscriptID       = "manuscript_ID"
	FieldCentury            = "century_of_creation"
	FieldSupportType        = "support_type"
	FieldDimensions         = "dimensions_of_the_manuscript"
	FieldContainedWorks     = "contained_works"
	FieldIncipit            = "incipit"
	FieldExplicit           = "explicit"
	FieldHandwritingForm    = "handwriting_form"
	FieldDecorations        = "decorations"
	FieldBinding            = "binding"
	FieldTotalFoliaCount    = "total_folia_count"
	FieldInk                = "ink"
	FieldFormat             = "format"
	FieldAuthors            = "authors"
	FieldCopyists           = "copyists"
	FieldMiniaturists       = "miniaturists"
	FieldBookbinders        = "bookbinders"
	FieldIlluminators       = "illuminators"
	FieldRubricators        = "rubricators"
	FieldDataAnalyzed       = "data_analyzed"
	FieldRestorationHistory = "restoration_history"
	FieldAdditionalNotes    = "additional_notes"
	FieldOwnershipHistory   = "ownership_history"

	// FieldSourceText holds the verbatim chunk texts a merged record was
	// built from. It is not part of the extraction schema.
	FieldSourceText = "source_text"
)

// Sub-keys of FieldDimensions.
const (
	DimWidth     = "width"
	DimLength    = "length"
	DimThickness = "thickness"
)

// Fields lists the extraction schema in serialization order.
var Fields = []string{
	FieldManuscriptID,
	FieldCentury,
	FieldSupportType,
	FieldDimensions,
	FieldContainedWorks,
	FieldIncipit,
	FieldExplicit,
	FieldHandwritingForm,
	FieldDecorations,
	FieldBinding,
	FieldTotalFoliaCount,
	FieldInk,
	FieldFormat,
	FieldAuthors,
	FieldCopyists,
	FieldMiniaturists,
	FieldBookbinders,
	FieldIlluminators,
	FieldRubricators,
	FieldDataAnalyzed,
	FieldRestorationHistory,
	FieldAdditionalNotes,
	FieldOwnershipHistory,
}

// DimensionFields lists the sub-keys of FieldDimensions in order.
var DimensionFields = []string{DimWidth, DimLength, DimThickness}

var fieldSet = func() map[string]bool {
	set := make(map[string]bool, len(Fields))
	for _, f := range Fields {
		set[f] = true
	}
	return set
}()

// IsField reports whether name is a schema field.
func IsField(name string) bool {
	return fieldSet[name]
}

func isDimension(name string) bool {
	switch name {
	case DimWidth, DimLength, DimThickness:
		return true
	}
	return false
}
