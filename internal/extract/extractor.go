// Package extract turns uploaded documents into plain text so their
// content can feed workflow trigger payloads.
package extract

import (
	"fmt"
	"io"
	"strings"
)

// Extract reads r and returns a text representation of the content.
// Returns ("", nil) for unsupported content types.
func Extract(contentType string, r io.Reader) (string, error) {
	mime := strings.SplitN(contentType, ";", 2)[0]
	mime = strings.TrimSpace(strings.ToLower(mime))

	switch {
	case mime == "text/html":
		return extractHTML(r)
	case strings.HasPrefix(mime, "text/"):
		return extractText(r)
	case mime == "application/pdf":
		return extractPDF(r)
	case mime == "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return extractDOCX(r)
	case mime == "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return extractXLSX(r)
	default:
		return "", nil
	}
}

func extractText(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
