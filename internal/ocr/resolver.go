package ocr

import (
	"context"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tulugarseguro/agentes/internal/llm"
)

const defaultContentType = "image/jpeg"

// Fetcher resolves a stored file reference to its bytes.
type Fetcher interface {
	Fetch(ctx context.Context, fileURL string) (*llm.Image, error)
}

// Resolver downloads upload images from object storage over HTTP.
type Resolver struct {
	http *resty.Client
}

func NewResolver(timeout time.Duration) *Resolver {
	return &Resolver{
		http: resty.New().SetTimeout(timeout),
	}
}

// Fetch downloads fileURL. Any transport failure or non-2xx status is a
// FetchError.
func (r *Resolver) Fetch(ctx context.Context, fileURL string) (*llm.Image, error) {
	resp, err := r.http.R().
		SetContext(ctx).
		Get(fileURL)
	if err != nil {
		return nil, &FetchError{URL: fileURL, Err: err}
	}
	if !resp.IsSuccess() {
		return nil, &FetchError{
			URL:        fileURL,
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode()),
		}
	}

	return &llm.Image{
		Data:        resp.Body(),
		ContentType: mediaType(resp.Header().Get("Content-Type")),
	}, nil
}

// mediaType strips parameters from a Content-Type header value.
func mediaType(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return defaultContentType
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		if i := strings.IndexByte(header, ';'); i >= 0 {
			header = header[:i]
		}
		mt = strings.ToLower(strings.TrimSpace(header))
	}
	if mt == "" {
		return defaultContentType
	}
	return mt
}
