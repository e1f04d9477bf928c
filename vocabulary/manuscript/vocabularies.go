package manuscript

import (
	"strings"

	"github.com/c360studio/scriptorium/record"
)

// Vocabulary is a closed set of labels for one record field.
type Vocabulary struct {
	// Name identifies the vocabulary in classification output.
	Name string

	// Field is the record field whose text is classified.
	Field string

	// Subject describes what the labels classify, for prompts.
	Subject string

	// Labels lists the allowed labels in their canonical casing.
	Labels []string

	// Hints gives common abbreviations or synonyms for some labels.
	Hints map[string]string
}

// Canonical returns the label matching s case-insensitively, or "" when s
// is not in the vocabulary.
func (v Vocabulary) Canonical(s string) string {
	s = strings.TrimSpace(s)
	for _, label := range v.Labels {
		if strings.EqualFold(label, s) {
			return label
		}
	}
	return ""
}

// Contains reports whether s is a label of the vocabulary.
func (v Vocabulary) Contains(s string) bool {
	return v.Canonical(s) != ""
}

// Vocabulary names.
const (
	NameMaterials   = "materials"
	NameScripts     = "scripts"
	NameDecorations = "decorations"
	NameFormats     = "formats"
	NameBindings    = "bindings"
	NameInks        = "inks"
)

// Materials classifies the writing support.
var Materials = Vocabulary{
	Name:    NameMaterials,
	Field:   record.FieldSupportType,
	Subject: "manuscript support materials",
	Labels: []string{
		"papyrus", "parchment", "silk", "bark", "palmLeaves", "paper", "vellum",
		"donkeySkin", "marbledPaper", "uterineVellum", "russiaLeather", "calico",
		"canvas", "sheepskin", "velvet", "naturalGoatskin", "roughSkin", "satin",
		"deerskin", "pigskin", "morocco",
	},
}

// Scripts classifies the handwriting form.
var Scripts = Vocabulary{
	Name:    NameScripts,
	Field:   record.FieldHandwritingForm,
	Subject: "manuscript handwriting forms",
	Labels: []string{
		"uncial", "halfUncial", "carolingianMinuscule", "textualis", "cursiva",
		"bastarda", "mercantesca", "anglosaxonMinuscule", "rotunda", "notarile",
		"humanistic", "insularScript", "visigothic", "beneventan", "merovingian",
		"luxueilMinuscule", "ashuriScript", "byzantineMinuscule", "kufic", "maghrebi",
		"nandinagari", "brahmi", "kana", "pallava", "baybayin", "nahuatlWriting",
		"chanceryHand", "cyrillicScript", "naskh", "devanagari", "chineseCalligraphy",
		"phagsPa", "khmer", "geez", "mayaHieroglyphs",
	},
}

// Decorations classifies decorative features, including binding
// furniture such as clasps.
var Decorations = Vocabulary{
	Name:    NameDecorations,
	Field:   record.FieldDecorations,
	Subject: "manuscript decorations",
	Labels: []string{
		"illumination", "miniature", "historiatedInitial", "borderDesign", "drollerie",
		"bindingDecoration", "tooling", "embossing", "decoratedInitial", "schematicDrawing",
		"penworkInitial", "coloredDrawing", "figure", "ornamentation", "illustrationCycle",
		"panel", "fastener", "clasp",
	},
}

// Formats classifies the book format.
var Formats = Vocabulary{
	Name:    NameFormats,
	Field:   record.FieldFormat,
	Subject: "manuscript formats",
	Labels:  []string{"quarto", "folio", "octavo", "duodecimo", "sextodecimo"},
	Hints: map[string]string{
		"quarto":      "4to",
		"folio":       "2to",
		"octavo":      "8vo",
		"duodecimo":   "12mo",
		"sextodecimo": "16mo",
	},
}

// Bindings classifies binding techniques.
var Bindings = Vocabulary{
	Name:    NameBindings,
	Field:   record.FieldBinding,
	Subject: "manuscript binding techniques",
	Labels: []string{
		"copticBinding", "carolingianBinding", "romanesqueBinding", "gothicBinding",
		"limpVellumBinding", "sewnOnCordsBinding",
	},
}

// Inks classifies ink types.
var Inks = Vocabulary{
	Name:    NameInks,
	Field:   record.FieldInk,
	Subject: "manuscript ink",
	Labels: []string{
		"carbonInk", "invisibleInk", "copperGallInk", "redInk", "ironGallInk",
		"coloredInk", "organicInk",
	},
}

// All returns every vocabulary in classification order.
func All() []Vocabulary {
	return []Vocabulary{Materials, Scripts, Decorations, Formats, Bindings, Inks}
}

// ByName returns the vocabulary with the given name.
func ByName(name string) (Vocabulary, bool) {
	for _, v := range All() {
		if v.Name == name {
			return v, true
		}
	}
	return Vocabulary{}, false
}
