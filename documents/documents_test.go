package documents

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMimeType_KnownExtensions(t *testing.T) {
	cases := map[string]string{
		"photo.PNG":   "image/png",
		"photo.jpg":   "image/jpeg",
		"photo.webp":  "image/webp",
		"scan.bmp":    "image/bmp",
		"report.pdf":  "application/pdf",
		"notes.txt":   "text/plain",
		"README.md":   "text/markdown",
		"letter.docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	}
	for path, want := range cases {
		if got := MimeType(path); got != want {
			t.Errorf("MimeType(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestMimeType_SniffedWithoutParameters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.unknownext")
	if err := os.WriteFile(path, []byte("plain words here"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := MimeType(path); got != "text/plain" {
		t.Errorf("expected text/plain without charset, got %q", got)
	}
	if got := MimeType(filepath.Join(t.TempDir(), "missing.unknownext")); got != "application/octet-stream" {
		t.Errorf("unexpected type for missing file %q", got)
	}
}

func TestClassify(t *testing.T) {
	cases := map[string]Kind{
		"a.txt":  KindText,
		"a.pdf":  KindPDF,
		"a.docx": KindDocx,
		"a.jpeg": KindImage,
		"a.gif":  KindUnknown,
	}
	for path, want := range cases {
		if got := Classify(path); got != want {
			t.Errorf("Classify(%q) = %v, want %v", path, got, want)
		}
	}
}
