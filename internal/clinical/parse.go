package clinical

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/tulugarseguro/agentes/internal/shared/errors"
)

// StripFence removes a wrapping code fence. When the trimmed text starts
// with ``` the first and last lines are dropped.
func StripFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	if len(lines) < 3 {
		return ""
	}
	return strings.Join(lines[1:len(lines)-1], "\n")
}

// ParseResponse decodes a model reply into a generic document. Numbers are
// kept as json.Number. Failures carry the parser error and a bounded excerpt
// of the stripped reply.
func ParseResponse(text string) (any, error) {
	stripped := StripFence(text)

	dec := json.NewDecoder(bytes.NewReader([]byte(stripped)))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.MalformedResponse(err, stripped)
	}
	var extra any
	if err := dec.Decode(&extra); err != io.EOF {
		if err == nil {
			err = fmt.Errorf("unexpected data after top-level value")
		}
		return nil, errors.MalformedResponse(err, stripped)
	}
	return doc, nil
}
