package chunker

import (
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"strings"
)

// Tabular splits delimited text into groups of rows. Every chunk starts
// with the header row so each one can be read without the others.
type Tabular struct {
	delimiter rune
	maxRows   int
}

// NewTabular creates a tabular chunker. tabDelimited selects TSV over CSV.
func NewTabular(tabDelimited bool, maxRows int) *Tabular {
	if maxRows <= 0 {
		maxRows = DefaultConfig().MaxRows
	}
	delimiter := ','
	if tabDelimited {
		delimiter = '\t'
	}
	return &Tabular{delimiter: delimiter, maxRows: maxRows}
}

// Name returns the strategy identifier.
func (t *Tabular) Name() string {
	return string(StrategyTabular)
}

// Delimiter returns the field delimiter in use.
func (t *Tabular) Delimiter() rune {
	return t.delimiter
}

// Chunk emits header+rows blocks of at most maxRows data rows.
// Header-only and empty input yield no chunks.
func (t *Tabular) Chunk(content string) []string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil
	}

	r := csv.NewReader(strings.NewReader(trimmed))
	r.Comma = t.delimiter
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil
	}

	var chunks []string
	rows := make([][]string, 0, t.maxRows)
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				slog.Warn("Skipping unparseable row", "line", parseErr.StartLine, "error", parseErr.Err)
				continue
			}
			slog.Warn("Stopped reading rows", "error", err)
			break
		}

		rows = append(rows, row)
		if len(rows) >= t.maxRows {
			chunks = append(chunks, t.render(header, rows))
			rows = rows[:0]
		}
	}

	if len(rows) > 0 {
		chunks = append(chunks, t.render(header, rows))
	}
	return chunks
}

func (t *Tabular) render(header []string, rows [][]string) string {
	var sb strings.Builder
	t.writeRow(&sb, header)
	for _, row := range rows {
		sb.WriteByte('\n')
		t.writeRow(&sb, row)
	}
	return sb.String()
}

// writeRow joins fields with the delimiter, quoting only the fields that
// would otherwise be ambiguous.
func (t *Tabular) writeRow(sb *strings.Builder, row []string) {
	for i, field := range row {
		if i > 0 {
			sb.WriteRune(t.delimiter)
		}
		if strings.ContainsRune(field, t.delimiter) || strings.ContainsAny(field, "\"\r\n") {
			sb.WriteByte('"')
			sb.WriteString(strings.ReplaceAll(field, `"`, `""`))
			sb.WriteByte('"')
			continue
		}
		sb.WriteString(field)
	}
}
