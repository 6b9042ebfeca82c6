package materialize

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/r-uben/mistral-ocr-cli/internal/core/domain"
	"github.com/r-uben/mistral-ocr-cli/internal/core/ports"
)

// SanitizeStem replaces characters that are invalid in filenames with
// underscores. The stem is never truncated.
func SanitizeStem(stem string) string {
	const invalid = `<>:"/\|?*`
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalid, r) {
			return '_'
		}
		return r
	}, stem)
}

// WriteResult renders one OCR response as a markdown file under outputDir,
// named after the sanitized stem of the source file, and returns the path
// of the markdown file. When includeImages is set, embedded page images are
// decoded and written to an images/ subdirectory (created lazily, only if
// at least one image exists) with a relative reference appended after the
// owning page's text. A pre-existing markdown file of the same name is
// overwritten without warning.
func WriteResult(sourcePath string, resp *ports.OcrResponse, outputDir string, includeImages bool) (string, error) {
	name := filepath.Base(sourcePath)
	stem := SanitizeStem(strings.TrimSuffix(name, filepath.Ext(name)))
	mdPath := filepath.Join(outputDir, stem+".md")

	var b strings.Builder
	b.WriteString("# OCR Results\n\n")
	fmt.Fprintf(&b, "**Original File:** %s\n", name)
	fmt.Fprintf(&b, "**Full Path:** `%s`\n", sourcePath)
	fmt.Fprintf(&b, "**Processed:** %s\n\n", time.Now().Format(domain.TimestampLayout))
	b.WriteString("---\n\n")

	imagesDir := filepath.Join(outputDir, "images")
	imagesDirReady := false

	for _, page := range resp.Pages {
		pageNum := page.Index + 1
		fmt.Fprintf(&b, "## Page %d\n\n", pageNum)
		b.WriteString(page.Markdown)
		b.WriteString("\n\n")

		if !includeImages {
			continue
		}
		for idx, image := range page.Images {
			if !imagesDirReady {
				if err := os.MkdirAll(imagesDir, 0755); err != nil {
					return "", fmt.Errorf("failed to create images directory: %w", err)
				}
				imagesDirReady = true
			}

			data, err := decodeImagePayload(image.Base64)
			if err != nil {
				return "", fmt.Errorf("failed to decode image %d on page %d of %s: %w", idx+1, pageNum, name, err)
			}
			imageName := fmt.Sprintf("page%d_img%d.png", pageNum, idx+1)
			if err := os.WriteFile(filepath.Join(imagesDir, imageName), data, 0644); err != nil {
				return "", fmt.Errorf("failed to save %s: %w", imageName, err)
			}
			fmt.Fprintf(&b, "![Image %d](./images/%s)\n\n", idx+1, imageName)
		}
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}
	if err := os.WriteFile(mdPath, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", mdPath, err)
	}
	return mdPath, nil
}

// decodeImagePayload decodes a base64 image body, tolerating an optional
// data URI prefix ("data:image/png;base64,...").
func decodeImagePayload(payload string) ([]byte, error) {
	if strings.HasPrefix(payload, "data:") {
		if i := strings.Index(payload, ","); i >= 0 {
			payload = payload[i+1:]
		}
	}
	return base64.StdEncoding.DecodeString(payload)
}
