package render

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tulugarseguro/agentes/internal/clinical"
	"github.com/tulugarseguro/agentes/internal/records"
	"github.com/tulugarseguro/agentes/internal/shared/types"
)

func ptr[T any](v T) *T { return &v }

func sampleDocument() Document {
	return Document{
		Patient: &records.Patient{ID: types.NewID(), FullName: "María José Pérez", PreferredName: ptr("Majo")},
		Session: records.Session{
			ID:            types.NewID(),
			SessionNumber: ptr(4),
			SessionDate:   time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
			SessionTime:   ptr("16:30"),
			Modality:      ptr("online"),
			Status:        records.SessionStatusCompleted,
			Record: records.RawRecord{
				"motivo_consulta":   json.RawMessage(`{"texto_paciente": "Ansiedad en el trabajo", "inicio_evolucion": "", "desencadenantes": null}`),
				"historia_problema": json.RawMessage(`"{\"impacto_score\": 7, \"areas\": [\"trabajo\", \"sueño\"]}"`),
				"riesgo_seguridad":  json.RawMessage(`{"ideacion": false, "acciones": []}`),
				"antecedentes":      json.RawMessage(`"no es json"`),
				"objetivos":         json.RawMessage(`["dormir mejor", "", "poner límites"]`),
				"cierre_administrativo": json.RawMessage(`{"pago_realizado": true, "observaciones": "<b>pendiente</b>"}`),
			},
		},
	}
}

func sectionBody(t *testing.T, html, title string) string {
	t.Helper()
	start := strings.Index(html, "<h2>"+title+"</h2>")
	require.GreaterOrEqual(t, start, 0, title)
	rest := html[start:]
	end := strings.Index(rest, "</div>")
	require.Greater(t, end, 0)
	return rest[:end]
}

func TestRenderHeader(t *testing.T) {
	html, err := Render(sampleDocument())
	require.NoError(t, err)

	assert.Contains(t, html, "<strong>Paciente:</strong> María José Pérez<br>")
	assert.Contains(t, html, "<strong>Sesión N°:</strong> 4<br>")
	assert.Contains(t, html, "<strong>Fecha:</strong> 2025-03-14 16:30<br>")
	assert.Contains(t, html, "<strong>Modalidad:</strong> online<br>")
	assert.Contains(t, html, "<strong>Estado:</strong> completed")
}

func TestRenderMissingHeaderFields(t *testing.T) {
	html, err := Render(Document{})
	require.NoError(t, err)

	assert.Contains(t, html, "<strong>Paciente:</strong> Paciente<br>")
	assert.Contains(t, html, "<strong>Sesión N°:</strong> -<br>")
	assert.Contains(t, html, "<strong>Fecha:</strong> -<br>")
	assert.Contains(t, html, "<strong>Modalidad:</strong> -<br>")
	assert.Contains(t, html, "<strong>Estado:</strong> -")
	assert.Equal(t, len(clinical.Schema), strings.Count(html, EmptyMarker))
}

func TestRenderSections(t *testing.T) {
	html, err := Render(sampleDocument())
	require.NoError(t, err)

	last := -1
	for _, g := range clinical.Schema {
		i := strings.Index(html, "<h2>"+g.Title+"</h2>")
		require.Greater(t, i, last, g.Title)
		last = i
	}

	assert.Equal(t,
		"<ul><li><strong>Texto del paciente:</strong> Ansiedad en el trabajo</li></ul>",
		strings.TrimSpace(strings.TrimPrefix(sectionBody(t, html, "A. Motivo de Consulta"), "<h2>A. Motivo de Consulta</h2>")))

	historia := sectionBody(t, html, "B. Historia del Problema")
	assert.Contains(t, historia, "<li><strong>Impacto (0-10):</strong> 7</li>")
	assert.Contains(t, historia, "<li><strong>Áreas afectadas:</strong> trabajo, sueño</li>")

	riesgo := sectionBody(t, html, "D. Riesgo y Seguridad")
	assert.Contains(t, riesgo, "<li><strong>Ideación:</strong> No</li>")
	assert.NotContains(t, riesgo, "Acciones tomadas")

	assert.Contains(t, sectionBody(t, html, "E. Antecedentes"), EmptyMarker)
	assert.Contains(t, sectionBody(t, html, "C. Tamizajes"), EmptyMarker)

	objetivos := sectionBody(t, html, "I. Objetivos Terapéuticos")
	assert.Contains(t, objetivos, "<ol><li>dormir mejor</li><li>poner límites</li></ol>")

	cierre := sectionBody(t, html, "L. Cierre Administrativo")
	assert.Contains(t, cierre, "<li><strong>Pago realizado:</strong> Sí</li>")
	assert.Contains(t, cierre, "&lt;b&gt;pendiente&lt;/b&gt;")
	assert.NotContains(t, cierre, "<b>pendiente</b>")
}

func TestRenderEmptyObjectives(t *testing.T) {
	doc := sampleDocument()
	doc.Session.Record["objetivos"] = json.RawMessage(`[]`)

	html, err := Render(doc)
	require.NoError(t, err)
	objetivos := sectionBody(t, html, "I. Objetivos Terapéuticos")
	assert.NotContains(t, objetivos, "<ol>")
	assert.Contains(t, objetivos, "<p><em>"+EmptyMarker+"</em></p>")
}

func TestRenderDeterministic(t *testing.T) {
	first, err := Render(sampleDocument())
	require.NoError(t, err)
	second, err := Render(sampleDocument())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
