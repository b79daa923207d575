package clinical

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/tulugarseguro/agentes/internal/records"
)

// Section holds one group's fields. Values are nil, string, json.Number,
// bool, []string, or whatever a stored record decoded to.
type Section map[string]any

// Text returns the display text of a field, empty when it has none.
func (s Section) Text(field string) string {
	return FieldText(s[field])
}

// Empty reports whether no schema field of g has a value in s.
func (s Section) Empty(g Group) bool {
	for _, f := range g.Fields {
		if !IsEmpty(s[f.Key]) {
			return false
		}
	}
	return true
}

// Record is the canonical in-memory clinical record. A nil section is absent.
type Record struct {
	Sections  map[string]Section
	Objetivos []string
}

// Section returns the named group, nil when absent.
func (r *Record) Section(key string) Section {
	if r == nil || r.Sections == nil {
		return nil
	}
	return r.Sections[key]
}

// MarshalJSON writes every schema group in schema order. Absent sections are
// null, missing objectives are [], and only schema fields are written.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, g := range Schema {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(g.Key)
		buf.Write(key)
		buf.WriteByte(':')

		var raw []byte
		var err error
		if g.IsList() {
			raw, err = marshalList(r.Objetivos)
		} else {
			raw, err = marshalSection(g, r.Section(g.Key))
		}
		if err != nil {
			return nil, err
		}
		buf.Write(raw)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalList(items []string) ([]byte, error) {
	if items == nil {
		items = []string{}
	}
	return json.Marshal(items)
}

func marshalSection(g Group, s Section) ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range g.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(f.Key)
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(s[f.Key])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ToRaw converts r to its stored form. Absent sections are left out.
func (r *Record) ToRaw() (records.RawRecord, error) {
	out := make(records.RawRecord, len(Schema))
	for _, g := range Schema {
		var raw []byte
		var err error
		if g.IsList() {
			raw, err = marshalList(r.Objetivos)
		} else {
			s := r.Section(g.Key)
			if s == nil {
				continue
			}
			raw, err = marshalSection(g, s)
		}
		if err != nil {
			return nil, err
		}
		out[g.Key] = raw
	}
	return out, nil
}

// FromRaw normalizes a stored record. Each group may be a JSON object, a JSON
// string holding serialized JSON, or missing; anything undecodable counts as
// absent.
func FromRaw(raw records.RawRecord) *Record {
	rec := &Record{Sections: make(map[string]Section, len(Schema))}
	for _, g := range Schema {
		v, ok := raw[g.Key]
		if !ok {
			continue
		}
		if g.IsList() {
			rec.Objetivos = DecodeList(v)
			continue
		}
		if s := DecodeSection(v); s != nil {
			rec.Sections[g.Key] = s
		}
	}
	return rec
}

// DecodeSection accepts json.RawMessage, []byte, string or map[string]any and
// returns the object it holds, or nil when it holds none.
func DecodeSection(v any) Section {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]any:
		return Section(t)
	case Section:
		return t
	case json.RawMessage:
		return decodeSectionBytes(t, true)
	case []byte:
		return decodeSectionBytes(t, true)
	case string:
		return decodeSectionBytes([]byte(t), false)
	}
	return nil
}

// decodeSectionBytes decodes data; a JSON string is unwrapped once more when
// unwrap is set.
func decodeSectionBytes(data []byte, unwrap bool) Section {
	v, err := decodeValue(data)
	if err != nil {
		return nil
	}
	switch t := v.(type) {
	case map[string]any:
		return Section(t)
	case string:
		if unwrap {
			return decodeSectionBytes([]byte(t), false)
		}
	}
	return nil
}

// DecodeList reads a stored list of strings, either native or serialized.
// Blank items are dropped and scalars are stringified.
func DecodeList(v any) []string {
	var data []byte
	switch t := v.(type) {
	case json.RawMessage:
		data = t
	case []byte:
		data = t
	case string:
		data = []byte(t)
	case []any:
		return listStrings(t)
	case []string:
		return listStrings(toAny(t))
	default:
		return nil
	}

	decoded, err := decodeValue(data)
	if err != nil {
		return nil
	}
	if s, ok := decoded.(string); ok {
		if decoded, err = decodeValue([]byte(s)); err != nil {
			return nil
		}
	}
	items, ok := decoded.([]any)
	if !ok {
		return nil
	}
	return listStrings(items)
}

func listStrings(items []any) []string {
	var out []string
	for _, item := range items {
		if text := FieldText(item); text != "" {
			out = append(out, text)
		}
	}
	return out
}

func toAny(items []string) []any {
	out := make([]any, len(items))
	for i, s := range items {
		out[i] = s
	}
	return out
}

func decodeValue(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// IsEmpty reports whether v carries no information: null, blank text, or an
// empty list or object.
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []string:
		for _, s := range t {
			if strings.TrimSpace(s) != "" {
				return false
			}
		}
		return true
	case []any:
		for _, item := range t {
			if !IsEmpty(item) {
				return false
			}
		}
		return true
	case map[string]any:
		return len(t) == 0
	}
	return false
}

// FieldText formats a value for display. Lists are joined with ", " and
// booleans read Sí/No.
func FieldText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		if t {
			return "Sí"
		}
		return "No"
	case []string:
		return strings.Join(listStrings(toAny(t)), ", ")
	case []any:
		return strings.Join(listStrings(t), ", ")
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
