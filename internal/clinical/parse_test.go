package clinical

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tulugarseguro/agentes/internal/shared/errors"
)

func TestStripFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding space", "\n  ```json\n{\"a\":1}\n```  \n", `{"a":1}`},
		{"fence only", "```json```", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFence(tt.in))
		})
	}
}

func TestFencedAndUnfencedParseIdentically(t *testing.T) {
	body := "{\n  \"motivo_consulta\": {\"texto_paciente\": \"ansiedad\", \"impacto\": 7}\n}"

	plain, err := ParseResponse(body)
	require.NoError(t, err)
	fenced, err := ParseResponse("```json\n" + body + "\n```")
	require.NoError(t, err)

	assert.Equal(t, plain, fenced)
}

func TestParseResponseMalformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"prose", "Lo siento, no puedo completar la historia."},
		{"truncated", `{"motivo_consulta": {"texto_paciente": "ansie`},
		{"trailing text", `{"a": 1} y algo más`},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseResponse(tt.in)
			require.Error(t, err)
			assert.Nil(t, doc)
			assert.ErrorIs(t, err, errors.ErrMalformedResponse)

			var appErr *errors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.NotEmpty(t, appErr.Details["parse_error"])
			assert.Equal(t, strings.TrimSpace(tt.in), appErr.Details["excerpt"])
		})
	}
}

func TestParseResponseExcerptIsBounded(t *testing.T) {
	in := "no es json " + strings.Repeat("á", 2*errors.MaxExcerpt)

	_, err := ParseResponse(in)
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.MaxExcerpt, len([]rune(appErr.Details["excerpt"])))
}
