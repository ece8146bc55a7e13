package services

import (
	"archive/zip"
	"bytes"
	"testing"
)

func TestDetectKind(t *testing.T) {
	tests := []struct {
		mime, name string
		want       DocumentKind
		ok         bool
	}{
		{"application/pdf", "x", KindPDF, true},
		{"image/png", "", KindImage, true},
		{"text/plain; charset=utf-8", "", KindText, true},
		{docxMIME, "", KindDOCX, true},
		{"application/octet-stream", "paper.PDF", KindPDF, true},
		{"", "notes.docx", KindDOCX, true},
		{"", "photo.jpeg", KindImage, true},
		{"application/zip", "a.zip", "", false},
	}
	for _, tt := range tests {
		got, ok := DetectKind(tt.mime, tt.name)
		if got != tt.want || ok != tt.ok {
			t.Errorf("DetectKind(%q, %q) = %q, %v; expected %q, %v", tt.mime, tt.name, got, ok, tt.want, tt.ok)
		}
	}
}

func TestExtractText_TXT(t *testing.T) {
	s := NewFileExtractService()
	got, err := s.ExtractText([]byte("  line one  \r\n\r\n\r\n\nline two\n"), KindText)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "line one\n\nline two" {
		t.Errorf("unexpected normalized text %q", got)
	}

	if _, err := s.ExtractText([]byte(" \n "), KindText); err == nil {
		t.Error("expected error for blank text")
	}
}

func TestExtractText_DOCX(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("zip create: %v", err)
	}
	f.Write([]byte(`<w:document><w:body><w:p><w:r><w:t>Q1. Salt &amp; water?</w:t></w:r></w:p><w:p><w:r><w:t>(a) yes</w:t></w:r></w:p></w:body></w:document>`))
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}

	got, err := NewFileExtractService().ExtractText(buf.Bytes(), KindDOCX)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Q1. Salt & water?\n(a) yes" {
		t.Errorf("unexpected docx text %q", got)
	}
}

func TestExtractText_Unsupported(t *testing.T) {
	if _, err := NewFileExtractService().ExtractText([]byte{1}, KindImage); err == nil {
		t.Error("expected error for image text extraction")
	}
}
