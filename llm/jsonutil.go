package llm

import (
	"regexp"
	"strings"
)

// Patterns for pulling JSON out of chat replies. Models often wrap JSON in
// Markdown fences or surround it with prose.
var (
	fencedObjectPattern  = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*\\})\\s*```")
	bareObjectPattern    = regexp.MustCompile(`(?s)\{.*\}`)
	fencedArrayPattern   = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\[.*\\])\\s*```")
	bareArrayPattern     = regexp.MustCompile(`(?s)\[.*\]`)
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractJSON returns the JSON object embedded in a reply, or "" when none
// is found. Line comments and trailing commas are removed.
func ExtractJSON(content string) string {
	return extract(content, fencedObjectPattern, bareObjectPattern)
}

// ExtractJSONArray returns the JSON array embedded in a reply, or "".
func ExtractJSONArray(content string) string {
	return extract(content, fencedArrayPattern, bareArrayPattern)
}

// ExtractJSONValue returns the embedded object or array, whichever opens
// first in the reply.
func ExtractJSONValue(content string) string {
	obj := strings.IndexByte(content, '{')
	arr := strings.IndexByte(content, '[')

	switch {
	case arr >= 0 && (obj < 0 || arr < obj):
		if v := ExtractJSONArray(content); v != "" {
			return v
		}
		return ExtractJSON(content)
	case obj >= 0:
		if v := ExtractJSON(content); v != "" {
			return v
		}
		return ExtractJSONArray(content)
	default:
		return ""
	}
}

func extract(content string, fenced, bare *regexp.Regexp) string {
	if m := fenced.FindStringSubmatch(content); len(m) > 1 {
		return cleanJSON(m[1])
	}
	if m := bare.FindString(content); m != "" {
		return cleanJSON(m)
	}
	return ""
}

// cleanJSON strips // comments outside string literals and trailing commas
// before a closing bracket.
func cleanJSON(raw string) string {
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = stripLineComment(line)
	}
	return trailingCommaPattern.ReplaceAllString(strings.Join(lines, "\n"), "$1")
}

// stripLineComment cuts a line at the first // that is not inside a JSON
// string, so URLs in values survive:
//
//	"ink": "iron gall",   // guessed   ->  "ink": "iron gall",
//	"see": "http://x.org"              ->  unchanged
func stripLineComment(line string) string {
	if !strings.Contains(line, "//") {
		return line
	}

	inString, escaped := false, false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case !inString && ch == '/' && i+1 < len(line) && line[i+1] == '/':
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}
