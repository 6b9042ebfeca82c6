package ports

import "context"

// OcrImage is one embedded image extracted from a page. The Base64 payload
// may carry a data URI prefix depending on the API version.
type OcrImage struct {
	ID     string `json:"id"`
	Base64 string `json:"image_base64"`
}

// OcrPage is one page of OCR output. Index is zero-based and assigned by
// the API; pages arrive in document order.
type OcrPage struct {
	Index    int        `json:"index"`
	Markdown string     `json:"markdown"`
	Images   []OcrImage `json:"images"`
}

// OcrResponse is the full result of one OCR call.
type OcrResponse struct {
	Model string    `json:"model"`
	Pages []OcrPage `json:"pages"`
}

// OcrClient defines the contract for running OCR on a single document.
type OcrClient interface {
	// Process runs OCR on the file at filePath and returns the ordered
	// page results. The file's content is embedded into the request, so
	// no separate upload step is needed.
	Process(ctx context.Context, filePath string) (*OcrResponse, error)
}
