// Package source prepares local study material for upload: it reads the file,
// rejects types and sizes the backend would bounce anyway, and extracts a text
// preview so the wizard can show what is about to be processed.
package source

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// MaxUploadBytes mirrors the backend's upload cap.
const MaxUploadBytes = 20 << 20

const previewLimit = 600

// Kind is the detected material type.
type Kind string

const (
	KindPDF  Kind = "pdf"
	KindText Kind = "text"
)

// Material is a validated, ready-to-upload file.
type Material struct {
	Filename string
	Kind     Kind
	Bytes    []byte
	// Pages is the PDF page count; zero for plain text.
	Pages int
	// Preview is a short plain-text excerpt for the confirmation step.
	Preview string
}

var collapseWhitespace = regexp.MustCompile(`\s+`)

// Prepare reads and validates the file at path.
func Prepare(path string) (Material, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Material{}, fmt.Errorf("read file: %w", err)
	}
	if info.Size() > MaxUploadBytes {
		return Material{}, fmt.Errorf("%s is %.1f MB, the limit is %d MB", filepath.Base(path), float64(info.Size())/(1<<20), MaxUploadBytes>>20)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Material{}, fmt.Errorf("read file: %w", err)
	}

	material := Material{Filename: filepath.Base(path), Bytes: data}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		material.Kind = KindPDF
		pages, preview, err := inspectPDF(path)
		if err != nil {
			return Material{}, err
		}
		material.Pages = pages
		material.Preview = preview
	case ".txt", ".md":
		material.Kind = KindText
		material.Preview = makePreview(string(data))
	default:
		return Material{}, fmt.Errorf("unsupported file type %q; use pdf, txt or md", filepath.Ext(path))
	}
	return material, nil
}

func inspectPDF(path string) (pages int, preview string, err error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return 0, "", fmt.Errorf("open pdf: %w", err)
	}
	defer file.Close()

	pages = reader.NumPage()

	content, err := reader.GetPlainText()
	if err != nil {
		// A scanned PDF without a text layer still uploads fine; the backend
		// runs its own extraction.
		return pages, "", nil
	}
	var builder strings.Builder
	if _, err := io.Copy(&builder, content); err != nil {
		return pages, "", nil
	}
	return pages, makePreview(builder.String()), nil
}

func makePreview(text string) string {
	text = collapseWhitespace.ReplaceAllString(strings.TrimSpace(text), " ")
	runes := []rune(text)
	if len(runes) <= previewLimit {
		return text
	}
	return strings.TrimSpace(string(runes[:previewLimit])) + "…"
}

// ValidateText checks pasted material before submission; the backend rejects
// empty text, so catch it locally for a friendlier error.
func ValidateText(text string) error {
	if len(bytes.TrimSpace([]byte(text))) == 0 {
		return fmt.Errorf("text content must not be empty")
	}
	return nil
}
