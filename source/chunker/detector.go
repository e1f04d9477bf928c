package chunker

import "strings"

// Detect maps a declared format tag to a chunking strategy. The tag is
// matched case-insensitively after trimming whitespace. Unrecognized tags,
// including the empty tag, select plain text.
func Detect(tag string) Strategy {
	switch normalizeTag(tag) {
	case "csv", "tsv":
		return StrategyTabular
	case "json":
		return StrategyObject
	case "xml", "tei":
		return StrategyMarkup
	case "ttl", "turtle":
		return StrategyTurtle
	default:
		return StrategyPlainText
	}
}

// ForFormat returns the chunker for a format tag.
func ForFormat(tag string, cfg Config) Chunker {
	cfg = cfg.withDefaults()
	tag = normalizeTag(tag)
	plain := NewPlainText(cfg.Size, cfg.Overlap())

	switch Detect(tag) {
	case StrategyTabular:
		return NewTabular(tag == "tsv", cfg.MaxRows)
	case StrategyObject:
		return NewObject(plain)
	case StrategyMarkup:
		if cfg.TEIMsDesc && tag == "tei" {
			return NewMarkupTEI(plain)
		}
		return NewMarkup(cfg.Size, plain)
	case StrategyTurtle:
		return NewTurtle(cfg.Size, cfg.Overlap())
	default:
		return plain
	}
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
