package jobs

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/vyvo/site/backend/pkg/apierr"
)

// MaxFileSize is the largest upload the conversion service accepts.
const MaxFileSize = 20 * 1024 * 1024

// AllowedTypes lists the MIME types accepted for conversion.
var AllowedTypes = []string{"application/pdf", "image/jpeg", "image/png"}

// File is a local document selected for conversion.
type File struct {
	Name    string
	Type    string
	Size    int64
	Content io.Reader
}

// NewFile wraps in-memory content.
func NewFile(name, contentType string, data []byte) *File {
	return &File{Name: name, Type: contentType, Size: int64(len(data)), Content: bytes.NewReader(data)}
}

// OpenFile reads path and determines its MIME type from the extension,
// falling back to content sniffing.
func OpenFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mediaType
	}
	return NewFile(filepath.Base(path), contentType, data), nil
}

// ValidateFile checks a selection before any network round-trip.
func ValidateFile(f *File) error {
	if f == nil {
		return apierr.Validation(apierr.CodeNoFile, "no file selected")
	}
	if !allowedType(f.Type) {
		return apierr.Validation(apierr.CodeInvalidFileType,
			fmt.Sprintf("unsupported file type %q: upload a PDF, JPEG or PNG", f.Type))
	}
	if f.Size > MaxFileSize {
		return apierr.Validation(apierr.CodeFileTooLarge,
			fmt.Sprintf("file is %d bytes; the limit is 20 MB", f.Size))
	}
	return nil
}

func allowedType(contentType string) bool {
	for _, t := range AllowedTypes {
		if contentType == t {
			return true
		}
	}
	return false
}
