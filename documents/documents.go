// Package documents classifies uploaded files and extracts their text.
package documents

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Kind is the coarse type of an uploaded file, decided by extension.
type Kind int

const (
	KindUnknown Kind = iota
	KindText
	KindPDF
	KindDocx
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindPDF:
		return "pdf"
	case KindDocx:
		return "docx"
	case KindImage:
		return "image"
	}
	return "unknown"
}

// ImageExtensions are the image formats providers and the vision service accept.
var ImageExtensions = []string{".png", ".jpg", ".jpeg", ".webp", ".bmp"}

// Ext returns the lowercased extension of path.
func Ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// Classify returns the Kind of path.
func Classify(path string) Kind {
	ext := Ext(path)
	switch ext {
	case ".txt", ".md":
		return KindText
	case ".pdf":
		return KindPDF
	case ".docx":
		return KindDocx
	}
	for _, img := range ImageExtensions {
		if ext == img {
			return KindImage
		}
	}
	return KindUnknown
}

// ReadText returns the content of a UTF-8 text file.
func ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read text file: %w", err)
	}
	return string(data), nil
}

// ExtractPDF returns the plain text of every page of a PDF, pages separated by
// blank lines.
func ExtractPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to extract text from page %d: %w", i, err)
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}

var mimeTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".md":   "text/markdown",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// MimeType returns the MIME type of path from a fixed extension table,
// sniffing the first bytes for unknown extensions. Parameters such as
// charset are never included.
func MimeType(path string) string {
	if mt, ok := mimeTypes[Ext(path)]; ok {
		return mt
	}
	f, err := os.Open(path)
	if err != nil {
		return "application/octet-stream"
	}
	defer f.Close()
	head := make([]byte, 512)
	n, _ := io.ReadFull(f, head)
	mt, _, err := mime.ParseMediaType(http.DetectContentType(head[:n]))
	if err != nil {
		return "application/octet-stream"
	}
	return mt
}
