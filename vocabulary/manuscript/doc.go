// Package manuscript provides the controlled vocabularies used to classify
// manuscript record fields.
//
// Each Vocabulary is a closed label set bound to one record field:
//   - materials: support_type (parchment, paper, vellum, ...)
//   - scripts: handwriting_form (textualis, bastarda, humanistic, ...)
//   - decorations: decorations (miniature, historiatedInitial, ...)
//   - formats: format (folio, quarto, octavo, ...)
//   - bindings: binding (copticBinding, gothicBinding, ...)
//   - inks: ink (ironGallInk, carbonInk, ...)
//
// Labels are lowerCamelCase identifiers suitable for use as RDF local
// names. Matching against a label is case-insensitive; Canonical returns
// the label in its defined casing.
package manuscript
