// Package render produces the HTML clinical history document for one
// session.
package render

import (
	"bytes"
	"embed"
	"html/template"
	"strconv"
	"strings"

	"github.com/tulugarseguro/agentes/internal/clinical"
	"github.com/tulugarseguro/agentes/internal/records"
)

// EmptyMarker replaces the body of a group with nothing recorded.
const EmptyMarker = "Sin información registrada"

//go:embed templates/clinical_history.html
var templateFS embed.FS

var page = template.Must(template.ParseFS(templateFS, "templates/clinical_history.html"))

// Document is one session of one patient. A nil Patient renders a generic
// name.
type Document struct {
	Patient *records.Patient
	Session records.Session
}

type item struct {
	Label string
	Value string
}

type section struct {
	Title      string
	Ordered    bool
	Items      []item
	Objectives []string
}

type view struct {
	PatientName   string
	SessionNumber string
	Date          string
	Modality      string
	Status        string
	Sections      []section
	EmptyMarker   string
}

// Render returns the HTML document. Output depends only on doc.
func Render(doc Document) (string, error) {
	var buf bytes.Buffer
	if err := page.Execute(&buf, buildView(doc)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildView(doc Document) view {
	s := doc.Session
	v := view{
		PatientName:   patientName(doc.Patient),
		SessionNumber: "-",
		Date:          "-",
		Modality:      orDash(s.Modality),
		Status:        "-",
		EmptyMarker:   EmptyMarker,
	}
	if s.SessionNumber != nil {
		v.SessionNumber = strconv.Itoa(*s.SessionNumber)
	}
	if !s.SessionDate.IsZero() {
		v.Date = s.SessionDate.Format("2006-01-02")
		if s.SessionTime != nil && strings.TrimSpace(*s.SessionTime) != "" {
			v.Date += " " + strings.TrimSpace(*s.SessionTime)
		}
	}
	if s.Status != "" {
		v.Status = string(s.Status)
	}

	rec := clinical.FromRaw(s.Record)
	for _, g := range clinical.Schema {
		sec := section{Title: g.Title}
		if g.IsList() {
			sec.Ordered = true
			sec.Objectives = rec.Objetivos
		} else {
			sec.Items = items(g, rec.Section(g.Key))
		}
		v.Sections = append(v.Sections, sec)
	}
	return v
}

// items lists the non-empty fields of s in schema order.
func items(g clinical.Group, s clinical.Section) []item {
	var out []item
	for _, f := range g.Fields {
		val := s[f.Key]
		if clinical.IsEmpty(val) {
			continue
		}
		text := clinical.FieldText(val)
		if text == "" {
			continue
		}
		out = append(out, item{Label: f.Label, Value: text})
	}
	return out
}

func patientName(p *records.Patient) string {
	if p == nil {
		return "Paciente"
	}
	if name := strings.TrimSpace(p.FullName); name != "" {
		return name
	}
	return p.DisplayName()
}

func orDash(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return "-"
	}
	return strings.TrimSpace(*s)
}
