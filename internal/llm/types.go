// Package llm is the client for the hosted vision/text model.
package llm

import "context"

// Operations label calls in logs and metrics.
const (
	OperationOCR     = "ocr"
	OperationFill    = "fill"
	OperationSummary = "summary"
)

// Image is an inline image attachment.
type Image struct {
	Data        []byte
	ContentType string
}

// Request is a single-turn prompt, optionally with one image placed before
// the text.
type Request struct {
	Operation string
	Prompt    string
	Image     *Image
	MaxTokens int
}

// Response carries the concatenated text blocks of the reply. Text is empty
// when the model returned no content.
type Response struct {
	Text         string
	Model        string
	StopReason   string
	InputTokens  int
	OutputTokens int
}

// Completer is the model service as the pipeline stages see it.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Messages API wire types.

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type messagesResponse struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
