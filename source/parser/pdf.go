package parser

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/c360studio/scriptorium/source"
)

// ErrNoText is returned for PDFs without an extractable text layer, such as
// scanned catalogs.
var ErrNoText = errors.New("PDF has no text content")

// PDFParser extracts the text layer of PDF documents.
type PDFParser struct{}

// NewPDFParser creates a new PDF parser.
func NewPDFParser() *PDFParser {
	return &PDFParser{}
}

// Extensions returns the handled extensions.
func (p *PDFParser) Extensions() []string {
	return []string{"pdf"}
}

// Parse extracts the text of every page. Pages are separated by a blank
// line so the plain-text chunker can split on them.
func (p *PDFParser) Parse(filename string, content []byte) (source.Document, error) {
	reader, err := pdf.NewReader(newBytesReaderAt(content), int64(len(content)))
	if err != nil {
		return source.Document{}, fmt.Errorf("open PDF: %w", err)
	}

	var textBuilder strings.Builder

	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Some pages may fail to parse
			continue
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if textBuilder.Len() > 0 {
			textBuilder.WriteString("\n\n")
		}
		textBuilder.WriteString(text)
	}

	if textBuilder.Len() == 0 {
		return source.Document{}, fmt.Errorf("%s (%d pages): %w", filename, numPages, ErrNoText)
	}

	return source.Document{
		Content:   textBuilder.String(),
		Extension: source.DefaultExtension,
		Filename:  filename,
	}, nil
}

// bytesReaderAt implements io.ReaderAt for a byte slice.
type bytesReaderAt struct {
	data []byte
}

func newBytesReaderAt(data []byte) *bytesReaderAt {
	return &bytesReaderAt{data: data}
}

func (r *bytesReaderAt) ReadAt(p []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset")
	}
	if off >= int64(len(r.data)) {
		return 0, io.EOF
	}
	n = copy(p, r.data[off:])
	if n < len(p) {
		err = io.EOF
	}
	return n, err
}
