// Package clinical maps session note text onto the clinical record schema:
// the schema itself, normalization of stored records, parsing and
// validation of model output, and the Schema Filler stage.
package clinical

// Kind is the shape of a leaf field.
type Kind int

const (
	// Scalar holds a string, number, boolean or null.
	Scalar Kind = iota
	// List holds an ordered sequence of strings.
	List
)

type Field struct {
	Key   string
	Label string
	Kind  Kind
}

// Group is one top-level key of a record. A group with no Fields is a bare
// list of strings (objetivos).
type Group struct {
	Key    string
	Title  string
	Fields []Field
}

// IsList reports whether the group is a bare list rather than an object.
func (g Group) IsList() bool {
	return len(g.Fields) == 0
}

// Field returns the field with the given key.
func (g Group) Field(key string) (Field, bool) {
	for _, f := range g.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

const GroupObjetivos = "objetivos"

// Schema lists every group in document order.
var Schema = []Group{
	{Key: "motivo_consulta", Title: "A. Motivo de Consulta", Fields: []Field{
		{"texto_paciente", "Texto del paciente", Scalar},
		{"inicio_evolucion", "Inicio/evolución", Scalar},
		{"desencadenantes", "Desencadenantes", Scalar},
	}},
	{Key: "historia_problema", Title: "B. Historia del Problema", Fields: []Field{
		{"sintomas", "Síntomas", Scalar},
		{"impacto_score", "Impacto (0-10)", Scalar},
		{"areas", "Áreas afectadas", List},
		{"estrategias", "Estrategias previas", Scalar},
		{"factores", "Factores", Scalar},
	}},
	{Key: "tamizajes", Title: "C. Tamizajes", Fields: []Field{
		{"phq_score", "Puntaje PHQ", Scalar},
		{"phq_items", "Ítems PHQ", Scalar},
		{"otros", "Otros tamizajes", Scalar},
	}},
	{Key: "riesgo_seguridad", Title: "D. Riesgo y Seguridad", Fields: []Field{
		{"ideacion", "Ideación", Scalar},
		{"frecuencia", "Frecuencia", Scalar},
		{"plan", "Plan", Scalar},
		{"medios", "Acceso a medios", Scalar},
		{"intencion", "Intención", Scalar},
		{"protectores", "Factores protectores", Scalar},
		{"acciones", "Acciones tomadas", List},
	}},
	{Key: "antecedentes", Title: "E. Antecedentes", Fields: []Field{
		{"salud_mental", "Salud mental", Scalar},
		{"salud_medica", "Salud médica", Scalar},
		{"sustancias", "Sustancias", Scalar},
		{"eventos", "Eventos significativos", Scalar},
	}},
	{Key: "contexto_psicosocial", Title: "F. Contexto Psicosocial", Fields: []Field{
		{"familia", "Familia", Scalar},
		{"relaciones", "Relaciones", Scalar},
		{"factores_contexto", "Factores contextuales", Scalar},
		{"recursos", "Recursos", Scalar},
	}},
	{Key: "observaciones_clinicas", Title: "G. Observaciones Clínicas", Fields: []Field{
		{"apariencia", "Apariencia", Scalar},
		{"actitud", "Actitud", Scalar},
		{"afecto", "Afecto", Scalar},
		{"lenguaje", "Lenguaje", Scalar},
		{"pensamiento", "Pensamiento", Scalar},
		{"orientacion", "Orientación", Scalar},
		{"insight", "Insight", Scalar},
	}},
	{Key: "formulacion_clinica", Title: "H. Formulación Clínica", Fields: []Field{
		{"patrones", "Patrones", Scalar},
		{"creencias", "Creencias", Scalar},
		{"ciclo", "Ciclo", Scalar},
		{"necesidades", "Necesidades", Scalar},
	}},
	{Key: GroupObjetivos, Title: "I. Objetivos Terapéuticos"},
	{Key: "intervenciones", Title: "J. Intervenciones", Fields: []Field{
		{"psicoeducacion", "Psicoeducación", Scalar},
		{"regulacion", "Regulación emocional", Scalar},
		{"patrones", "Trabajo con patrones", Scalar},
		{"limites", "Límites", Scalar},
		{"otros", "Otros", Scalar},
	}},
	{Key: "plan", Title: "K. Plan", Fields: []Field{
		{"plan_semana", "Plan para la semana", Scalar},
		{"tarea", "Tarea asignada", Scalar},
		{"proxima_fecha", "Próxima sesión", Scalar},
		{"proxima_hora", "Hora", Scalar},
		{"proxima_foco", "Foco próxima sesión", Scalar},
	}},
	{Key: "cierre_administrativo", Title: "L. Cierre Administrativo", Fields: []Field{
		{"pago_realizado", "Pago realizado", Scalar},
		{"pago_metodo", "Método de pago", Scalar},
		{"reserva", "Reserva", Scalar},
		{"consentimiento", "Consentimiento", Scalar},
		{"observaciones", "Observaciones", Scalar},
	}},
}

var groupIndex = func() map[string]int {
	m := make(map[string]int, len(Schema))
	for i, g := range Schema {
		m[g.Key] = i
	}
	return m
}()

// GroupByKey looks up a group by its top-level key.
func GroupByKey(key string) (Group, bool) {
	i, ok := groupIndex[key]
	if !ok {
		return Group{}, false
	}
	return Schema[i], true
}
