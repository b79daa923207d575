package ocr

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolverFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/png":
			w.Header().Set("Content-Type", "image/png; name=hoja.png")
			w.Write([]byte("png-bytes"))
		case "/untyped":
			w.Header()["Content-Type"] = nil
			w.Write([]byte("raw-bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	r := NewResolver(5 * time.Second)

	img, err := r.Fetch(context.Background(), srv.URL+"/png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, []byte("png-bytes"), img.Data)

	img, err = r.Fetch(context.Background(), srv.URL+"/untyped")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.ContentType)

	_, err = r.Fetch(context.Background(), srv.URL+"/missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFetch))
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
}

func TestResolverUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/hoja.jpg"
	srv.Close()

	_, err := NewResolver(time.Second).Fetch(context.Background(), url)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)
}

func TestMediaType(t *testing.T) {
	tests := map[string]string{
		"":                          "image/jpeg",
		"image/webp":                "image/webp",
		"IMAGE/PNG":                 "image/png",
		"image/jpeg; charset=utf-8": "image/jpeg",
		"image/heic;;":              "image/heic",
	}
	for in, want := range tests {
		assert.Equal(t, want, mediaType(in), in)
	}
}
