package images

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "products", r.FormValue("folder"))
		assert.Equal(t, "Bearer key123", r.Header.Get("Authorization"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "mug.png", header.Filename)

		json.NewEncoder(w).Encode(Upload{URL: "https://img.example.com/products/mug.png", Name: "products/mug"})
	}))
	defer srv.Close()

	up := NewUploader(srv.URL, "key123", "products")
	got, err := up.UploadImage(context.Background(), "mug.png", strings.NewReader("fake-png-bytes"))
	require.NoError(t, err)

	assert.Equal(t, "https://img.example.com/products/mug.png", got.URL)
	assert.Equal(t, "products/mug", got.Name)
}

func TestUploadImageHostError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	up := NewUploader(srv.URL, "key123", "products")
	_, err := up.UploadImage(context.Background(), "mug.png", strings.NewReader("x"))
	assert.Error(t, err)
}
