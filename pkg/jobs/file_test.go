package jobs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vyvo/site/backend/pkg/apierr"
)

func TestValidateFile(t *testing.T) {
	cases := []struct {
		name string
		file *File
		code string
	}{
		{name: "missing", file: nil, code: apierr.CodeNoFile},
		{name: "docx", file: &File{Name: "a.docx", Type: "application/vnd.openxmlformats-officedocument.wordprocessingml.document", Size: 10}, code: apierr.CodeInvalidFileType},
		{name: "gif", file: &File{Name: "a.gif", Type: "image/gif", Size: 10}, code: apierr.CodeInvalidFileType},
		{name: "empty type", file: &File{Name: "a", Size: 10}, code: apierr.CodeInvalidFileType},
		{name: "one byte over", file: &File{Name: "a.pdf", Type: "application/pdf", Size: MaxFileSize + 1}, code: apierr.CodeFileTooLarge},
		{name: "exact limit", file: &File{Name: "a.pdf", Type: "application/pdf", Size: MaxFileSize}},
		{name: "jpeg", file: &File{Name: "a.jpg", Type: "image/jpeg", Size: 1}},
		{name: "png", file: &File{Name: "a.png", Type: "image/png", Size: 1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateFile(tc.file)
			if tc.code == "" {
				if err != nil {
					t.Fatalf("expected file to pass, got %v", err)
				}
				return
			}
			apiErr, ok := apierr.As(err)
			if !ok {
				t.Fatalf("expected *apierr.Error, got %v", err)
			}
			if apiErr.Code != tc.code || apiErr.Status != 400 {
				t.Fatalf("expected %s/400, got %s/%d", tc.code, apiErr.Code, apiErr.Status)
			}
		})
	}
}

func TestOpenFileDetectsType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "invoice.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.7\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := OpenFile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if f.Type != "application/pdf" || f.Size != 9 || f.Name != "invoice.pdf" {
		t.Fatalf("unexpected file: %#v", f)
	}
}
