package clinical

import (
	"strings"
)

const fillInstructions = `Eres un asistente especializado en psicología clínica.
A continuación encontrarás el texto extraído de notas escritas a mano durante una sesión terapéutica.

NOTAS DE SESIÓN:
{{NOTES}}

Basándote ÚNICAMENTE en la información presente en las notas, completa la siguiente estructura de historia clínica en formato JSON.
Si no hay información para un campo, usa null o array vacío según corresponda.
NO inventes información que no esté en las notas.

Devuelve ÚNICAMENTE el JSON válido, sin texto adicional:

{{SKELETON}}`

// Skeleton renders Schema as the empty JSON structure the model must fill:
// scalar fields null, list fields and objetivos [].
func Skeleton() string {
	var b strings.Builder
	b.WriteString("{\n")
	for i, g := range Schema {
		b.WriteString(`  "` + g.Key + `": `)
		if g.IsList() {
			b.WriteString("[]")
		} else {
			b.WriteString("{\n")
			for j, f := range g.Fields {
				b.WriteString(`    "` + f.Key + `": `)
				if f.Kind == List {
					b.WriteString("[]")
				} else {
					b.WriteString("null")
				}
				if j < len(g.Fields)-1 {
					b.WriteByte(',')
				}
				b.WriteByte('\n')
			}
			b.WriteString("  }")
		}
		if i < len(Schema)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString("}")
	return b.String()
}

var skeleton = Skeleton()

// FillPrompt embeds the combined session notes in the fill instruction.
func FillPrompt(notes string) string {
	return strings.NewReplacer(
		"{{NOTES}}", notes,
		"{{SKELETON}}", skeleton,
	).Replace(fillInstructions)
}
