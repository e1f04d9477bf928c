package chunker

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"sort"
	"strings"
)

// teiNamespace is the TEI P5 namespace URI.
const teiNamespace = "http://www.tei-c.org/ns/1.0"

var (
	errNoRoot        = errors.New("no root element")
	errMultipleRoots = errors.New("multiple root elements")
	errTextOutside   = errors.New("character data outside root element")
)

// Markup splits XML documents along top-level children of the root.
// Children larger than the size threshold are split further as plain text.
type Markup struct {
	size     int
	fallback Chunker
}

// NewMarkup creates an XML chunker.
func NewMarkup(size int, fallback Chunker) *Markup {
	if size <= 0 {
		size = DefaultConfig().Size
	}
	return &Markup{size: size, fallback: fallback}
}

// Name returns the strategy identifier.
func (m *Markup) Name() string {
	return string(StrategyMarkup)
}

// Chunk splits an XML document. Chunks are verbatim slices of the input,
// with the root's namespace declarations re-declared on each child so
// every chunk stands alone.
func (m *Markup) Chunk(content string) []string {
	tree, err := scanMarkup(content, nil)
	if err != nil {
		return m.fallback.Chunk(content)
	}

	if len(tree.children) == 0 {
		whole := tree.root.text(content)
		if charLen(whole) > m.size {
			return m.fallback.Chunk(whole)
		}
		return []string{whole}
	}

	chunks := make([]string, 0, len(tree.children))
	for _, child := range tree.children {
		text := withNamespaces(child.text(content), child.decls)
		if charLen(text) > m.size {
			chunks = append(chunks, m.fallback.Chunk(text)...)
			continue
		}
		chunks = append(chunks, text)
	}
	return chunks
}

// MarkupTEI splits TEI documents into one chunk per msDesc element.
type MarkupTEI struct {
	fallback Chunker
}

// NewMarkupTEI creates a TEI manuscript-description chunker.
func NewMarkupTEI(fallback Chunker) *MarkupTEI {
	return &MarkupTEI{fallback: fallback}
}

// Name returns the strategy identifier.
func (m *MarkupTEI) Name() string {
	return string(StrategyTEI)
}

// Chunk returns every msDesc element in document order. Documents whose root
// is not a TEI element, or that have no msDesc, are returned whole.
func (m *MarkupTEI) Chunk(content string) []string {
	isMsDesc := func(name xml.Name) bool {
		return name.Space == teiNamespace && name.Local == "msDesc"
	}

	tree, err := scanMarkup(content, isMsDesc)
	if err != nil {
		return m.fallback.Chunk(content)
	}
	if !strings.HasSuffix(tree.rootName.Local, "TEI") || len(tree.matches) == 0 {
		return []string{content}
	}

	chunks := make([]string, 0, len(tree.matches))
	for _, match := range tree.matches {
		chunks = append(chunks, withNamespaces(match.text(content), match.decls))
	}
	return chunks
}

// span is a byte range of the source document. decls are the namespace
// declarations in scope where the range starts.
type span struct {
	start, end int64
	decls      []xml.Attr
}

func (s span) text(content string) string {
	return content[s.start:s.end]
}

// markupTree is the outline of an XML document needed for chunking.
type markupTree struct {
	root     span
	rootName xml.Name
	children []span
	matches  []span
}

// scanMarkup validates content as a single well-formed XML document and
// records the byte ranges of the root, its direct children and, when match
// is set, of every element it accepts.
func scanMarkup(content string, match func(xml.Name) bool) (*markupTree, error) {
	dec := xml.NewDecoder(strings.NewReader(content))
	// content is already decoded text, whatever the prolog declares.
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	tree := &markupTree{}
	var (
		depth     int
		rootSeen  bool
		child     span
		open      []span
		openDepth []int
		scopes    [][]xml.Attr
	)

	for {
		offset := dec.InputOffset()
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			var parent []xml.Attr
			if len(scopes) > 0 {
				parent = scopes[len(scopes)-1]
			}
			switch {
			case depth == 0 && rootSeen:
				return nil, errMultipleRoots
			case depth == 0:
				rootSeen = true
				tree.root.start = offset
				tree.rootName = t.Name
			case depth == 1:
				child = span{start: offset, decls: parent}
			}
			if match != nil && match(t.Name) {
				open = append(open, span{start: offset, decls: parent})
				openDepth = append(openDepth, depth)
			}
			scopes = append(scopes, inScope(parent, t.Attr))
			depth++

		case xml.EndElement:
			depth--
			scopes = scopes[:len(scopes)-1]
			end := dec.InputOffset()
			if n := len(open); n > 0 && openDepth[n-1] == depth {
				m := open[n-1]
				m.end = end
				tree.matches = append(tree.matches, m)
				open, openDepth = open[:n-1], openDepth[:n-1]
			}
			switch depth {
			case 1:
				child.end = end
				tree.children = append(tree.children, child)
			case 0:
				tree.root.end = end
			}

		case xml.CharData:
			if depth == 0 && len(bytes.TrimSpace(t)) > 0 {
				return nil, errTextOutside
			}
		}
	}

	if !rootSeen {
		return nil, errNoRoot
	}

	// Nested matches close before their ancestors; restore document order.
	sort.Slice(tree.matches, func(i, j int) bool {
		return tree.matches[i].start < tree.matches[j].start
	})
	return tree, nil
}

// namespaceDecls returns the xmlns attributes among attrs.
func namespaceDecls(attrs []xml.Attr) []xml.Attr {
	var decls []xml.Attr
	for _, attr := range attrs {
		if attr.Name.Space == "xmlns" || (attr.Name.Space == "" && attr.Name.Local == "xmlns") {
			decls = append(decls, attr)
		}
	}
	return decls
}

// inScope returns the parent's declarations overridden and extended by the
// xmlns attributes among attrs.
func inScope(parent, attrs []xml.Attr) []xml.Attr {
	own := namespaceDecls(attrs)
	if len(own) == 0 {
		return parent
	}

	scope := make([]xml.Attr, 0, len(parent)+len(own))
	for _, p := range parent {
		overridden := false
		for _, o := range own {
			if o.Name == p.Name {
				overridden = true
				break
			}
		}
		if !overridden {
			scope = append(scope, p)
		}
	}
	return append(scope, own...)
}

// withNamespaces adds the namespace declarations the fragment's start tag
// does not already carry.
func withNamespaces(fragment string, decls []xml.Attr) string {
	if len(decls) == 0 || !strings.HasPrefix(fragment, "<") {
		return fragment
	}

	tagEnd := strings.IndexByte(fragment, '>')
	if tagEnd < 0 {
		return fragment
	}
	startTag := fragment[:tagEnd]

	var extra strings.Builder
	for _, decl := range decls {
		name := "xmlns"
		if decl.Name.Space == "xmlns" {
			name = "xmlns:" + decl.Name.Local
		}
		if strings.Contains(startTag, name+"=") {
			continue
		}
		extra.WriteByte(' ')
		extra.WriteString(name)
		extra.WriteString(`="`)
		_ = xml.EscapeText(&extra, []byte(decl.Value))
		extra.WriteByte('"')
	}
	if extra.Len() == 0 {
		return fragment
	}

	nameEnd := strings.IndexAny(startTag, " \t\r\n/")
	if nameEnd < 0 {
		nameEnd = tagEnd
	}
	return fragment[:nameEnd] + extra.String() + fragment[nameEnd:]
}
