package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/c360studio/scriptorium/llm"
	"github.com/c360studio/scriptorium/record"
)

// ErrMalformedReply is returned when a reply is not a JSON object or an
// array of objects.
var ErrMalformedReply = errors.New("malformed extraction reply")

// ParseReply decodes an extraction reply into records. The reply may be a
// bare JSON value or one wrapped in Markdown fences or prose. Records are
// normalized with record.FromMap after legacy keys are migrated.
func ParseReply(reply string) ([]record.Record, error) {
	trimmed := strings.TrimSpace(reply)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty reply", ErrMalformedReply)
	}

	value, err := decodeValue(trimmed)
	if err != nil {
		embedded := llm.ExtractJSONValue(trimmed)
		if embedded == "" {
			return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
		}
		if value, err = decodeValue(embedded); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
		}
	}

	switch v := value.(type) {
	case map[string]any:
		return []record.Record{toRecord(v)}, nil
	case []any:
		records := make([]record.Record, 0, len(v))
		for i, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: element %d is %s, not an object", ErrMalformedReply, i, kind(item))
			}
			records = append(records, toRecord(obj))
		}
		return records, nil
	default:
		return nil, fmt.Errorf("%w: got %s", ErrMalformedReply, kind(value))
	}
}

func toRecord(obj map[string]any) record.Record {
	return record.FromMap(record.MigrateLegacy(obj))
}

// decodeValue decodes exactly one JSON value, keeping numbers verbatim.
func decodeValue(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after JSON value")
	}
	return v, nil
}

func kind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "a string"
	case bool:
		return "a boolean"
	case json.Number:
		return "a number"
	case []any:
		return "an array"
	case map[string]any:
		return "an object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// compactJSON flattens a reply onto one line for the malformed-reply log.
func compactJSON(s string) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(s)); err != nil {
		return s
	}
	return buf.String()
}
