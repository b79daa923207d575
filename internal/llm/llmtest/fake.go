// Package llmtest provides a scripted model completer for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/tulugarseguro/agentes/internal/llm"
)

// Fake answers each call with Respond, or with Text when Respond is nil.
type Fake struct {
	Text    string
	Err     error
	Respond func(req llm.Request) (string, error)

	mu       sync.Mutex
	requests []llm.Request
}

func (f *Fake) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Respond != nil {
		text, err := f.Respond(req)
		if err != nil {
			return nil, err
		}
		return &llm.Response{Text: text, Model: "fake"}, nil
	}
	if f.Err != nil {
		return nil, f.Err
	}
	return &llm.Response{Text: f.Text, Model: "fake"}, nil
}

// Requests returns a copy of every request seen so far.
func (f *Fake) Requests() []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.Request(nil), f.requests...)
}

// Calls is the number of requests seen so far.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}
