package history

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tulugarseguro/agentes/internal/clinical"
	"github.com/tulugarseguro/agentes/internal/records"
)

const briefingInstructions = `Genera un resumen de preparación para la próxima sesión que incluya:

1. **Patrones observados**: Temas y patrones recurrentes identificados en las sesiones
2. **Objetivos pendientes**: Objetivos terapéuticos que aún están en proceso
3. **Tareas asignadas**: Tareas enviadas al paciente para revisar seguimiento
4. **Temas sugeridos**: 3-5 temas específicos a explorar en la próxima sesión basados en el historial
5. **Notas de continuidad**: Elementos importantes a retomar o dar seguimiento

Sé específico y basado en la información proporcionada. Usa un tono clínico pero accesible.`

// Narrative renders sessions, given newest first, as one chronological
// block from oldest to newest.
func Narrative(sessions []records.Session) string {
	var b strings.Builder
	for i := len(sessions) - 1; i >= 0; i-- {
		s := sessions[i]
		position := len(sessions) - i

		number := strconv.Itoa(position)
		if s.SessionNumber != nil {
			number = strconv.Itoa(*s.SessionNumber)
		}
		date := "fecha desconocida"
		if !s.SessionDate.IsZero() {
			date = s.SessionDate.Format("2006-01-02")
		}
		fmt.Fprintf(&b, "\n--- SESIÓN %s (%s) ---\n", number, date)

		rec := clinical.FromRaw(s.Record)
		line(&b, "Motivo", rec.Section("motivo_consulta").Text("texto_paciente"))
		line(&b, "Objetivos", strings.Join(rec.Objetivos, ", "))

		plan := rec.Section("plan")
		if week, task := plan.Text("plan_semana"), plan.Text("tarea"); week != "" || task != "" {
			fmt.Fprintf(&b, "Plan: %s | Tarea: %s\n", week, task)
		}

		line(&b, "Patrones", rec.Section("formulacion_clinica").Text("patrones"))
		line(&b, "Intervenciones", rec.Section("intervenciones").Text("otros"))
	}
	return b.String()
}

func line(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, value)
}

// BuildPrompt assembles the briefing request for one patient.
func BuildPrompt(p records.Patient, narrative, nextSessionDate string) string {
	var b strings.Builder
	b.WriteString("Eres un asistente de preparación para sesiones de psicología clínica.\n\n")

	b.WriteString("PACIENTE: " + p.DisplayName())
	if p.Age != nil {
		fmt.Fprintf(&b, " (%d años)", *p.Age)
	}
	b.WriteString("\n")
	if next := strings.TrimSpace(nextSessionDate); next != "" {
		b.WriteString("La próxima sesión está programada para: " + next + "\n")
	}

	b.WriteString("\nHISTORIAL DE SESIONES (de más antigua a más reciente):\n")
	b.WriteString(narrative)
	b.WriteString("\n\n")
	b.WriteString(briefingInstructions)
	return b.String()
}
