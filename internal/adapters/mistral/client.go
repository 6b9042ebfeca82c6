package mistral

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/r-uben/mistral-ocr-cli/internal/core/domain"
	"github.com/r-uben/mistral-ocr-cli/internal/core/ports"
)

const (
	defaultBaseURL = "https://api.mistral.ai"
	ocrPath        = "/v1/ocr"
)

var mimeTypes = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".tiff": "image/tiff",
}

// Client implements ports.OcrClient against the Mistral OCR REST API.
type Client struct {
	apiKey        string
	model         string
	includeImages bool
	baseURL       string
	client        *http.Client
}

// NewClient creates a new Client. The API key must be non-empty; model
// selects the OCR model sent with every request.
func NewClient(apiKey, model string, includeImages bool) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("mistral API key must not be empty")
	}
	return &Client{
		apiKey:        apiKey,
		model:         model,
		includeImages: includeImages,
		baseURL:       defaultBaseURL,
		client: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}, nil
}

type ocrRequest struct {
	Model              string   `json:"model"`
	Document           document `json:"document"`
	IncludeImageBase64 bool     `json:"include_image_base64"`
}

// document is the request payload for one file: PDFs go as a document_url,
// every other supported type as an image_url. Both embed the file content
// as a base64 data URI, so no separate upload step is needed.
type document struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// Process runs OCR on the file at filePath.
func (c *Client) Process(ctx context.Context, filePath string) (*ports.OcrResponse, error) {
	doc, err := buildDocument(filePath)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(ocrRequest{
		Model:              c.model,
		Document:           doc,
		IncludeImageBase64: c.includeImages,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode OCR request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ocrPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("OCR request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("OCR request failed: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var result ports.OcrResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode OCR response: %w", err)
	}
	return &result, nil
}

func buildDocument(filePath string) (document, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	mime, ok := mimeTypes[ext]
	if !ok {
		return document{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedFileType, ext)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return document{}, fmt.Errorf("failed to read %s: %w", filePath, err)
	}
	dataURI := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)

	if ext == ".pdf" {
		return document{Type: "document_url", DocumentURL: dataURI}, nil
	}
	return document{Type: "image_url", ImageURL: dataURI}, nil
}
