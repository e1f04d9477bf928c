package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"

	"github.com/c360studio/scriptorium/source"
)

var excessiveLinesRe = regexp.MustCompile(`\n{3,}`)

// dropped elements never carry catalog content.
var dropped = map[string]bool{
	"script": true, "style": true, "noscript": true, "nav": true,
	"iframe": true, "object": true, "embed": true, "form": true,
}

// HTMLParser converts HTML catalog pages to Markdown text. Tables are kept
// as GitHub-flavored tables so row structure reaches the extractor.
type HTMLParser struct {
	converter *md.Converter
}

// NewHTMLParser creates a new HTML parser.
func NewHTMLParser() *HTMLParser {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &HTMLParser{converter: converter}
}

// Extensions returns the handled extensions.
func (p *HTMLParser) Extensions() []string {
	return []string{"htm", "html", "xhtml"}
}

// Parse converts the page body to Markdown.
func (p *HTMLParser) Parse(filename string, content []byte) (source.Document, error) {
	cleaned, err := stripNoise(content)
	if err != nil {
		return source.Document{}, fmt.Errorf("parse HTML: %w", err)
	}

	markdown, err := p.converter.ConvertString(cleaned)
	if err != nil {
		return source.Document{}, fmt.Errorf("convert HTML: %w", err)
	}

	return source.Document{
		Content:   cleanMarkdown(markdown),
		Extension: source.DefaultExtension,
		Filename:  filename,
	}, nil
}

// stripNoise removes elements without catalog content and renders the
// remaining body.
func stripNoise(content []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return "", err
	}

	var toRemove []*html.Node
	var collect func(*html.Node)
	collect = func(node *html.Node) {
		if node.Type == html.ElementNode && dropped[node.Data] {
			toRemove = append(toRemove, node)
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(doc)

	for _, node := range toRemove {
		if node.Parent != nil {
			node.Parent.RemoveChild(node)
		}
	}

	root := findElement(doc, "body")
	if root == nil {
		root = doc
	}

	var sb strings.Builder
	if err := html.Render(&sb, root); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func cleanMarkdown(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	content = strings.Join(lines, "\n")
	content = excessiveLinesRe.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
