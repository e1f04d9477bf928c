package chunker

import "strings"

// Turtle splits Turtle documents on blank-line separated blocks and walks
// them with an overlapping window. It does not parse the triple grammar:
// blank lines are taken as statement-group boundaries.
type Turtle struct {
	window  int
	overlap int
}

// NewTurtle creates a Turtle chunker. window and overlap count blocks.
func NewTurtle(window, overlap int) *Turtle {
	if window <= 0 {
		window = DefaultConfig().Size
	}
	if overlap < 0 {
		overlap = 0
	}
	return &Turtle{window: window, overlap: overlap}
}

// Name returns the strategy identifier.
func (t *Turtle) Name() string {
	return string(StrategyTurtle)
}

// Chunk joins up to window blocks per chunk. The next window starts
// overlap blocks before the end of the current one, but always after the
// current start.
func (t *Turtle) Chunk(content string) []string {
	trimmed := strings.TrimSpace(strings.ReplaceAll(content, "\r\n", "\n"))
	if trimmed == "" {
		return nil
	}

	blocks := strings.Split(trimmed, "\n\n")
	total := len(blocks)

	var chunks []string
	for i := 0; i < total; {
		end := min(i+t.window, total)
		chunks = append(chunks, strings.Join(blocks[i:end], "\n\n"))
		if end == total {
			break
		}

		next := end - t.overlap
		if next <= i {
			next = end
		}
		i = next
	}
	return chunks
}
