package services

import (
	"errors"
	"testing"

	"github.com/Lllllllleong/presentationflow/internal/models"
)

func TestResolveFormat(t *testing.T) {
	pdfBytes := []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<< >>\nendobj\n")

	tests := []struct {
		name     string
		file     string
		declared models.Format
		raw      []byte
		want     models.Format
		wantErr  bool
	}{
		{name: "declared wins over suffix", file: "notes.pdf", declared: models.FormatTXT, raw: []byte("x"), want: models.FormatTXT},
		{name: "declared format ignores case", file: "scan", declared: models.Format("PDF"), want: models.FormatPDF},
		{name: "declared docx mixed case", file: "memo.bin", declared: models.Format(" Docx "), want: models.FormatDOCX},
		{name: "pdf suffix", file: "report.PDF", want: models.FormatPDF},
		{name: "docx suffix", file: "memo.docx", want: models.FormatDOCX},
		{name: "txt suffix", file: "a.txt", want: models.FormatTXT},
		{name: "sniff pdf without suffix", file: "upload", raw: pdfBytes, want: models.FormatPDF},
		{name: "sniff text with unknown suffix", file: "README.md", raw: []byte("# Title\n\nSome plain words.\n"), want: models.FormatTXT},
		{name: "sniff docx", file: "attachment.bin", raw: buildDOCX(t, "Intro"), want: models.FormatDOCX},
		{name: "binary with unknown suffix", file: "image.xyz", raw: []byte{0x00, 0x9f, 0x00, 0x01, 0xfe}, wantErr: true},
		{name: "no suffix and no bytes", file: "empty", wantErr: true},
		{name: "unknown declared format", file: "a.txt", declared: models.Format("rtf"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveFormat(tt.file, tt.declared, tt.raw)
			if tt.wantErr {
				var unsupported *UnsupportedFormatError
				if !errors.As(err, &unsupported) {
					t.Fatalf("err = %v, want UnsupportedFormatError", err)
				}
				if unsupported.Name != tt.file {
					t.Errorf("error names %q, want %q", unsupported.Name, tt.file)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}
