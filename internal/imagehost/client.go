// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package imagehost uploads comment attachments to an ImgBB-compatible image
host and hands back a markdown snippet the reader pastes into a comment.
*/
package imagehost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/taibuivan/mangashelf/internal/platform/apperr"
	"github.com/taibuivan/mangashelf/internal/platform/constants"
)

// FieldImage is the multipart field carrying the image, both inbound and upstream.
const FieldImage = "image"

// Image is a hosted attachment.
type Image struct {
	ID         string `json:"id"`
	Title      string `json:"title,omitempty"`
	URL        string `json:"url"`
	DisplayURL string `json:"display_url,omitempty"`
	DeleteURL  string `json:"delete_url,omitempty"`
}

// Markdown renders the image as a markdown embed.
func (image Image) Markdown() string {
	return "![Image](" + image.URL + ")"
}

type uploadResponse struct {
	Success bool  `json:"success"`
	Data    Image `json:"data"`
	Error   struct {
		Message string `json:"message"`
	} `json:"error"`
}

// # Client

// Client posts images to the host.
type Client struct {
	httpClient *http.Client
	uploadURL  string
	key        string
	logger     *slog.Logger
}

// Option customizes a [Client].
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(client *Client) { client.httpClient = httpClient }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(client *Client) { client.logger = logger }
}

// NewClient builds a client for uploadURL authenticated by key.
func NewClient(uploadURL, key string, opts ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{Timeout: constants.StoreHTTPTimeout},
		uploadURL:  uploadURL,
		key:        key,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Configured reports whether an API key is set.
func (client *Client) Configured() bool {
	return client.key != ""
}

/*
Upload sends one image to the host.

Parameters:
  - context: Request context
  - name: Original file name
  - data: File contents, which must sniff as an image

Returns:
  - *Image: The hosted image
  - error: VALIDATION_ERROR for non-images, SERVICE_UNAVAILABLE without a key,
    TRANSPORT_ERROR when the host fails or rejects the upload
*/
func (client *Client) Upload(context context.Context, name string, data []byte) (*Image, error) {
	if !client.Configured() {
		return nil, apperr.ServiceUnavailable("Image host is not configured")
	}
	if !strings.HasPrefix(http.DetectContentType(data), "image/") {
		return nil, apperr.ValidationError("Images only")
	}

	body, contentType, err := encodeForm(name, data)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	endpoint := client.uploadURL + "?key=" + url.QueryEscape(client.key)
	request, err := http.NewRequestWithContext(context, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	request.Header.Set("Content-Type", contentType)

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, apperr.Transport("Image host unreachable", err)
	}
	defer response.Body.Close()

	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, apperr.Transport("Image host response unreadable", err)
	}

	var decoded uploadResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, apperr.Transport(fmt.Sprintf("Image host returned %d", response.StatusCode), err)
	}

	if !decoded.Success {
		message := decoded.Error.Message
		if message == "" {
			message = "Upload failed"
		}
		client.logger.WarnContext(context, "attachment_upload_rejected",
			slog.String("file", name),
			slog.Int("status", response.StatusCode),
			slog.String("reason", message),
		)
		return nil, apperr.Transport(message, nil)
	}

	client.logger.InfoContext(context, "attachment_uploaded", slog.String("file", name), slog.String("image_id", decoded.Data.ID))
	return &decoded.Data, nil
}

func encodeForm(name string, data []byte) (io.Reader, string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile(FieldImage, name)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := form.Close(); err != nil {
		return nil, "", err
	}

	return &body, form.FormDataContentType(), nil
}
