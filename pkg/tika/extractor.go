package tika

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ErrUnsupportedType is returned for extensions the extractor cannot read.
var ErrUnsupportedType = errors.New("unsupported file type")

// Extractor turns uploaded bytes into plain text.
type Extractor interface {
	Extract(ctx context.Context, data []byte, fileName string) (string, error)
}

// SupportedExtensions lists the extensions accepted for upload, lower case with the dot.
var SupportedExtensions = []string{".pdf", ".doc", ".docx", ".txt", ".md"}

// FileExtractor reads .txt and .md directly and hands pdf, doc and docx to Tika.
type FileExtractor struct {
	tika *Client
}

// NewExtractor returns an extractor. With a nil client only plain text
// formats are accepted.
func NewExtractor(client *Client) *FileExtractor {
	return &FileExtractor{tika: client}
}

// Supported reports whether fileName has an accepted extension.
func Supported(fileName string) bool {
	ext := strings.ToLower(filepath.Ext(fileName))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

func (e *FileExtractor) Extract(ctx context.Context, data []byte, fileName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".txt", ".md":
		if !utf8.Valid(data) {
			return strings.ToValidUTF8(string(data), ""), nil
		}
		return string(data), nil
	case ".pdf", ".doc", ".docx":
		if e.tika == nil {
			return "", fmt.Errorf("%w: %s needs a tika server", ErrUnsupportedType, ext)
		}
		return e.tika.ExtractText(ctx, bytes.NewReader(data), fileName)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
}
