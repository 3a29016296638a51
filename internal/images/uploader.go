// Package images uploads product images to the configured image host.
package images

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/shopstack/ecommerce-api/internal/apperr"
)

// Upload is the narrow contract the rest of the system depends on: a hosted
// URL plus the host-assigned name.
type Upload struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// Uploader sends files to the image host.
type Uploader struct {
	uploadURL string
	apiKey    string
	folder    string
	client    *http.Client
}

func NewUploader(uploadURL, apiKey, folder string) *Uploader {
	return &Uploader{
		uploadURL: uploadURL,
		apiKey:    apiKey,
		folder:    folder,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// UploadImage posts the file as multipart form data and returns the hosted
// location.
func (u *Uploader) UploadImage(ctx context.Context, filename string, file io.Reader) (*Upload, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, apperr.Internal("failed to build upload form", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, apperr.Internal("failed to read upload file", err)
	}
	if err := writer.WriteField("folder", u.folder); err != nil {
		return nil, apperr.Internal("failed to build upload form", err)
	}
	if err := writer.Close(); err != nil {
		return nil, apperr.Internal("failed to finalize upload form", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.uploadURL, &body)
	if err != nil {
		return nil, apperr.Internal("failed to build upload request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+u.apiKey)

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, apperr.Internal("image host unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, apperr.Internal(fmt.Sprintf("image host returned %d", resp.StatusCode), nil)
	}

	var out Upload
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperr.Internal("failed to decode upload response", err)
	}
	if out.URL == "" {
		return nil, apperr.Internal("image host returned no url", nil)
	}
	return &out, nil
}
