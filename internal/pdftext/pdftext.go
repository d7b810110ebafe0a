// Package pdftext validates PDF files and extracts their plain text.
// It backs the conversion stage twice: a cheap structural check before the
// document is sent for conversion, and a local extraction fallback when
// conversion fails so the document is not lost.
package pdftext

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/soundbench/soundbench/internal/core/domain"
)

// Info describes a structurally valid PDF.
type Info struct {
	Pages int
}

// Validate parses the PDF structure and returns basic information.
// A file that cannot be parsed is reported as malformed.
func Validate(data []byte) (Info, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", domain.ErrMalformedDocument, err)
	}

	pages := reader.NumPage()
	if pages == 0 {
		return Info{}, fmt.Errorf("%w: document has no pages", domain.ErrEmptyDocument)
	}
	return Info{Pages: pages}, nil
}

// ExtractText pulls the plain text out of every page. Null pages are skipped;
// a page that fails to decode aborts the extraction. An empty result is
// reported as an empty document.
func ExtractText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrMalformedDocument, err)
	}

	var sb strings.Builder
	totalPages := reader.NumPage()
	for pageIndex := 1; pageIndex <= totalPages; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract text from page %d: %w", pageIndex, err)
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("%w: no text content extracted", domain.ErrEmptyDocument)
	}
	return text, nil
}
