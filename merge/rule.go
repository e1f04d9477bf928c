package merge

import (
	"strings"

	"github.com/c360studio/scriptorium/record"
)

// Separator joins distinct conflicting values of one field.
const Separator = " / "

// Into merges src into dst in place. The identifier and source_text are
// never touched. Empty source values are skipped, nested maps are merged
// recursively, empty targets adopt the source value, and differing values
// accumulate as Separator-joined parts without repeating a part already
// present.
func Into(dst, src record.Record) {
	mergeMaps(dst, src)
}

func mergeMaps(dst, src map[string]any) {
	for key, val := range src {
		if key == record.FieldManuscriptID || key == record.FieldSourceText {
			continue
		}
		if isEmpty(val) {
			continue
		}
		dst[key] = mergeValue(dst[key], val)
	}
}

func mergeValue(target, src any) any {
	srcMap, srcIsMap := src.(map[string]any)
	if targetMap, ok := target.(map[string]any); ok && srcIsMap {
		mergeMaps(targetMap, srcMap)
		return targetMap
	}

	if isEmpty(target) {
		if srcIsMap {
			return cloneMap(srcMap)
		}
		return src
	}

	return accumulate(record.Text(target), record.Text(src))
}

// accumulate appends the parts of src that target does not already hold.
func accumulate(target, src string) string {
	parts := strings.Split(target, Separator)
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		seen[strings.TrimSpace(p)] = true
	}

	out := target
	for _, p := range strings.Split(src, Separator) {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out += Separator + p
	}
	return out
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}

func cloneMap(m map[string]any) map[string]any {
	return map[string]any(record.Record(m).Clone())
}
