package record

import "strings"

// Keys of the earlier flat extraction schema.
const (
	legacyHandwritingNotes  = "handwriting_notes"
	legacyBindingType       = "binding_type"
	legacyTotalFolia        = "total_folia"
	legacyInkType           = "ink_type"
	legacyWorkFolia         = "work_folia"
	legacyMentionOfPeople   = "mention_of_people"
	legacyMentionOfPlace    = "mention_of_place"
	legacyExtraInformation  = "extra_information"
	legacyDataNotIdentified = "data_not_identified"
)

var legacyRenames = map[string]string{
	legacyBindingType: FieldBinding,
	legacyTotalFolia:  FieldTotalFoliaCount,
	legacyInkType:     FieldInk,
}

// legacyNotes fold into additional_notes in this order.
var legacyNotes = []string{
	legacyHandwritingNotes,
	legacyWorkFolia,
	legacyMentionOfPeople,
	legacyMentionOfPlace,
	legacyExtraInformation,
	legacyDataNotIdentified,
}

// IsLegacy reports whether m uses keys of the legacy schema, including the
// structured {types, details} form of decorations.
func IsLegacy(m map[string]any) bool {
	for key := range legacyRenames {
		if _, ok := m[key]; ok {
			return true
		}
	}
	for _, key := range legacyNotes {
		if _, ok := m[key]; ok {
			return true
		}
	}
	_, structured := m[FieldDecorations].(map[string]any)
	return structured
}

// MigrateLegacy maps a legacy-schema object onto the current schema. Renamed
// keys only fill fields the object does not already set. Note-like keys are
// appended to additional_notes, joined with "; ". Objects without legacy
// keys are returned unchanged.
func MigrateLegacy(m map[string]any) map[string]any {
	if !IsLegacy(m) {
		return m
	}

	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}

	for old, current := range legacyRenames {
		v, ok := out[old]
		if !ok {
			continue
		}
		delete(out, old)
		if strings.TrimSpace(Text(out[current])) == "" {
			out[current] = v
		}
	}

	if deco, ok := out[FieldDecorations].(map[string]any); ok {
		out[FieldDecorations] = joinNonBlank([]string{Text(deco["types"]), Text(deco["details"])}, "; ")
	}

	notes := []string{Text(out[FieldAdditionalNotes])}
	for _, key := range legacyNotes {
		if v, ok := out[key]; ok {
			notes = append(notes, Text(v))
			delete(out, key)
		}
	}
	if joined := joinNonBlank(notes, "; "); joined != "" {
		out[FieldAdditionalNotes] = joined
	}

	return out
}
