package mistral

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/r-uben/mistral-ocr-cli/internal/core/domain"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &Client{
		apiKey:        "sk-test",
		model:         "mistral-ocr-latest",
		includeImages: true,
		baseURL:       srv.URL,
		client:        &http.Client{Timeout: 5 * time.Second},
	}
}

func writeTestFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestProcess_PDFRequest(t *testing.T) {
	var got ocrRequest
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/v1/ocr" {
			t.Errorf("path = %s, want /v1/ocr", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("Authorization = %q, want bearer token", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"mistral-ocr-latest","pages":[{"index":0,"markdown":"hello"}]}`))
	})

	path := writeTestFile(t, "doc.pdf", []byte("%PDF-1.4 fake"))
	resp, err := client.Process(context.Background(), path)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if got.Model != "mistral-ocr-latest" {
		t.Errorf("request model = %q", got.Model)
	}
	if !got.IncludeImageBase64 {
		t.Error("include_image_base64 not set")
	}
	if got.Document.Type != "document_url" {
		t.Errorf("document type = %q, want document_url for a PDF", got.Document.Type)
	}
	if !strings.HasPrefix(got.Document.DocumentURL, "data:application/pdf;base64,") {
		t.Errorf("document_url = %q, want a PDF data URI", got.Document.DocumentURL)
	}
	if got.Document.ImageURL != "" {
		t.Error("image_url must be empty for a PDF")
	}

	if len(resp.Pages) != 1 || resp.Pages[0].Markdown != "hello" {
		t.Errorf("pages = %+v, want one page with markdown \"hello\"", resp.Pages)
	}
}

func TestProcess_ImageRequest(t *testing.T) {
	var got ocrRequest
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"pages":[{"index":0,"markdown":"scan"}]}`))
	})

	path := writeTestFile(t, "scan.PNG", []byte("\x89PNG fake"))
	if _, err := client.Process(context.Background(), path); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if got.Document.Type != "image_url" {
		t.Errorf("document type = %q, want image_url for an image", got.Document.Type)
	}
	if !strings.HasPrefix(got.Document.ImageURL, "data:image/png;base64,") {
		t.Errorf("image_url = %q, want a PNG data URI", got.Document.ImageURL)
	}
}

func TestProcess_APIError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid document"}`))
	})

	path := writeTestFile(t, "doc.pdf", []byte("%PDF"))
	_, err := client.Process(context.Background(), path)
	if err == nil {
		t.Fatal("expected error on non-200 status, got nil")
	}
	if !strings.Contains(err.Error(), "422") {
		t.Errorf("error %q does not mention the status code", err)
	}
}

func TestProcess_UnsupportedType(t *testing.T) {
	calls := 0
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
	})

	path := writeTestFile(t, "notes.txt", []byte("plain text"))
	_, err := client.Process(context.Background(), path)
	if !errors.Is(err, domain.ErrUnsupportedFileType) {
		t.Fatalf("expected ErrUnsupportedFileType, got %v", err)
	}
	if calls != 0 {
		t.Errorf("API was called %d times for an unsupported file, want 0", calls)
	}
}

func TestNewClient_RequiresKey(t *testing.T) {
	if _, err := NewClient("", "mistral-ocr-latest", true); err == nil {
		t.Fatal("expected error for empty API key, got nil")
	}
}
