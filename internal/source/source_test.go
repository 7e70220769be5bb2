package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestPrepareTextFile(t *testing.T) {
	path := writeFile(t, "mitosis_notes.txt", "Cells divide.\n\nProphase   comes\tfirst.")

	material, err := Prepare(path)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if material.Kind != KindText {
		t.Fatalf("kind = %q, want text", material.Kind)
	}
	if material.Filename != "mitosis_notes.txt" {
		t.Fatalf("filename = %q", material.Filename)
	}
	if want := "Cells divide. Prophase comes first."; material.Preview != want {
		t.Fatalf("preview = %q, want %q", material.Preview, want)
	}
	if len(material.Bytes) == 0 {
		t.Fatal("raw bytes must be retained for upload")
	}
}

func TestPreparePreviewTruncates(t *testing.T) {
	long := strings.Repeat("word ", 400)
	material, err := Prepare(writeFile(t, "big.md", long))
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if !strings.HasSuffix(material.Preview, "…") {
		t.Fatalf("long preview should be truncated, got %q…", material.Preview[:40])
	}
	if count := utf8.RuneCountInString(material.Preview); count > 601 {
		t.Fatalf("preview length = %d runes", count)
	}
}

func TestPrepareRejectsUnsupportedExtension(t *testing.T) {
	path := writeFile(t, "slides.pptx", "binary-ish")
	if _, err := Prepare(path); err == nil {
		t.Fatal("pptx should be rejected")
	}
}

func TestPrepareMissingFile(t *testing.T) {
	if _, err := Prepare(filepath.Join(t.TempDir(), "nope.pdf")); err == nil {
		t.Fatal("missing file should error")
	}
}

func TestValidateText(t *testing.T) {
	if err := ValidateText("   \n\t "); err == nil {
		t.Fatal("whitespace-only text should be rejected")
	}
	if err := ValidateText(""); err == nil {
		t.Fatal("empty text should be rejected")
	}
	if err := ValidateText("The Krebs cycle"); err != nil {
		t.Fatalf("valid text rejected: %v", err)
	}
}
