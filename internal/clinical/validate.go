package clinical

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Status tags the outcome of schema validation.
type Status string

const (
	StatusValid       Status = "valid"
	StatusNeedsRepair Status = "needs_repair"
	StatusRejected    Status = "rejected"
)

// ValidationResult carries the repaired record unless Status is rejected.
type ValidationResult struct {
	Status Status
	Record *Record
	Issues []string
}

type validator struct {
	repairs    []string
	rejections []string
}

func (v *validator) repair(format string, args ...any) {
	v.repairs = append(v.repairs, fmt.Sprintf(format, args...))
}

func (v *validator) reject(format string, args ...any) {
	v.rejections = append(v.rejections, fmt.Sprintf(format, args...))
}

// Validate checks a parsed document against Schema.
//
// Missing groups or fields, unknown nested fields, a bare string in a list
// field and non-string scalars in a list are repaired. An unknown top-level
// key, a group that is not an object, or a value of the wrong shape rejects
// the document.
func Validate(doc any) ValidationResult {
	obj, ok := doc.(map[string]any)
	if !ok {
		return ValidationResult{
			Status: StatusRejected,
			Issues: []string{fmt.Sprintf("document is %s, want object", jsonType(doc))},
		}
	}

	v := &validator{}

	var unknown []string
	for key := range obj {
		if _, ok := GroupByKey(key); !ok {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		v.reject("unexpected top-level key %q", key)
	}

	rec := &Record{Sections: make(map[string]Section, len(Schema))}
	for _, g := range Schema {
		raw, present := obj[g.Key]
		if g.IsList() {
			if !present {
				v.repair("%s missing, set to []", g.Key)
				rec.Objetivos = []string{}
				continue
			}
			rec.Objetivos = v.list(g.Key, raw)
			continue
		}

		if !present {
			v.repair("%s missing, set to null", g.Key)
			continue
		}
		if raw == nil {
			continue
		}
		fields, ok := raw.(map[string]any)
		if !ok {
			v.reject("%s is %s, want object or null", g.Key, jsonType(raw))
			continue
		}
		rec.Sections[g.Key] = v.section(g, fields)
	}

	if len(v.rejections) > 0 {
		return ValidationResult{
			Status: StatusRejected,
			Issues: append(v.rejections, v.repairs...),
		}
	}
	if len(v.repairs) > 0 {
		return ValidationResult{Status: StatusNeedsRepair, Record: rec, Issues: v.repairs}
	}
	return ValidationResult{Status: StatusValid, Record: rec}
}

func (v *validator) section(g Group, fields map[string]any) Section {
	var unknown []string
	for key := range fields {
		if _, ok := g.Field(key); !ok {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		v.repair("%s.%s is not a schema field, dropped", g.Key, key)
	}

	s := make(Section, len(g.Fields))
	for _, f := range g.Fields {
		path := g.Key + "." + f.Key
		raw, present := fields[f.Key]

		if f.Kind == List {
			if !present {
				v.repair("%s missing, set to []", path)
				s[f.Key] = []string{}
				continue
			}
			if raw == nil {
				s[f.Key] = nil
				continue
			}
			s[f.Key] = v.list(path, raw)
			continue
		}

		if !present {
			v.repair("%s missing, set to null", path)
			s[f.Key] = nil
			continue
		}
		switch raw.(type) {
		case nil, string, json.Number, bool:
			s[f.Key] = raw
		default:
			v.reject("%s is %s, want scalar", path, jsonType(raw))
		}
	}
	return s
}

// list validates a list of strings at path. The result is never nil.
func (v *validator) list(path string, raw any) []string {
	switch t := raw.(type) {
	case nil:
		v.repair("%s is null, set to []", path)
		return []string{}
	case string:
		v.repair("%s is a string, wrapped in a list", path)
		if t == "" {
			return []string{}
		}
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for i, item := range t {
			switch it := item.(type) {
			case string:
				out = append(out, it)
			case nil:
				v.repair("%s[%d] is null, dropped", path, i)
			case json.Number, bool:
				v.repair("%s[%d] is %s, converted to string", path, i, jsonType(item))
				out = append(out, scalarString(it))
			default:
				v.reject("%s[%d] is %s, want string", path, i, jsonType(item))
			}
		}
		return out
	default:
		v.reject("%s is %s, want list of strings", path, jsonType(raw))
		return []string{}
	}
}

func scalarString(v any) string {
	switch t := v.(type) {
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	}
	return fmt.Sprint(v)
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case json.Number, float64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}
