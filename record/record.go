// Package record defines the manuscript record schema shared by extraction,
// merging and output.
//
// A Record is a map restricted to the fixed schema in Fields. Values are
// strings, the dimensions sub-map, or absent. Absent fields serialize as
// explicit nulls so every record has the same shape on the wire.
package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// ErrNotObject is returned when a JSON value that should hold a record is
// not an object.
var ErrNotObject = errors.New("record is not a JSON object")

// Record is a manuscript description keyed by canonical field name.
type Record map[string]any

// ID returns the trimmed manuscript identifier, or "" when absent.
func (r Record) ID() string {
	id, _ := r[FieldManuscriptID].(string)
	return strings.TrimSpace(id)
}

// HasID reports whether the record carries a non-blank identifier.
func (r Record) HasID() bool {
	return r.ID() != ""
}

// String returns the text form of a field, or "" when absent.
func (r Record) String(field string) string {
	return Text(r[field])
}

// SourceText returns the accumulated chunk text of a merged record.
func (r Record) SourceText() string {
	s, _ := r[FieldSourceText].(string)
	return s
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, sub := range t {
			m[k] = cloneValue(sub)
		}
		return m
	case []any:
		return slices.Clone(t)
	default:
		return v
	}
}

// MarshalJSON emits every schema field in schema order, using null for
// absent fields. source_text is appended last when present.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, field := range Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(&buf, field, r.wireValue(field)); err != nil {
			return nil, err
		}
	}

	if src, ok := r[FieldSourceText]; ok && src != nil {
		buf.WriteByte(',')
		if err := writeMember(&buf, FieldSourceText, Text(src)); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// wireValue returns the serializable form of a field. The dimensions map
// is rendered with its sub-keys in order.
func (r Record) wireValue(field string) any {
	v, ok := r[field]
	if !ok || v == nil {
		return nil
	}
	if field == FieldDimensions {
		if dims, ok := v.(map[string]any); ok {
			return orderedDimensions(dims)
		}
	}
	if _, ok := v.(string); ok {
		return v
	}
	return Text(v)
}

type orderedDimensions map[string]any

func (d orderedDimensions) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range DimensionFields {
		if i > 0 {
			buf.WriteByte(',')
		}
		var val any
		if v, ok := d[key]; ok && v != nil {
			val = Text(v)
		}
		if err := writeMember(&buf, key, val); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeMember(buf *bytes.Buffer, key string, val any) error {
	if err := encodeValue(buf, key); err != nil {
		return err
	}
	buf.WriteByte(':')
	return encodeValue(buf, val)
}

// encodeValue writes v as JSON without HTML escaping.
func encodeValue(buf *bytes.Buffer, v any) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %T: %w", v, err)
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}

// UnmarshalJSON decodes a JSON object into a normalized record. Legacy
// schema keys are migrated first.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return ErrNotObject
	}
	*r = FromMap(MigrateLegacy(obj))
	return nil
}

// FromMap builds a record from a decoded JSON object. Unknown keys are
// dropped, scalars become strings, lists are joined with ", " and the
// dimensions mapping keeps only its known sub-keys. Null and blank values
// are treated as absent.
func FromMap(m map[string]any) Record {
	r := make(Record, len(m))
	for key, val := range m {
		if !IsField(key) && key != FieldSourceText {
			continue
		}
		if key == FieldDimensions {
			if dims, ok := val.(map[string]any); ok {
				if d := normalizeDimensions(dims); len(d) > 0 {
					r[key] = d
				}
				continue
			}
		}
		if s := strings.TrimSpace(Text(val)); s != "" {
			r[key] = s
		}
	}
	return r
}

func normalizeDimensions(dims map[string]any) map[string]any {
	out := make(map[string]any, len(DimensionFields))
	for key, val := range dims {
		if !isDimension(key) {
			continue
		}
		if s := strings.TrimSpace(Text(val)); s != "" {
			out[key] = s
		}
	}
	return out
}

// Text renders a decoded JSON value as a string. Lists are joined with
// ", " and mappings are flattened to "key: value" pairs joined with "; ",
// in key order.
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(t)
	case []string:
		return joinNonBlank(t, ", ")
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, Text(item))
		}
		return joinNonBlank(parts, ", ")
	case map[string]any:
		parts := make([]string, 0, len(t))
		for _, k := range slices.Sorted(maps.Keys(t)) {
			if s := strings.TrimSpace(Text(t[k])); s != "" {
				parts = append(parts, k+": "+s)
			}
		}
		return strings.Join(parts, "; ")
	default:
		return fmt.Sprint(t)
	}
}

func joinNonBlank(parts []string, sep string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
