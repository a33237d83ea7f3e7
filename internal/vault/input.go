package vault

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	apperrors "github.com/dygy/sonigraph/internal/errors"
)

const (
	DefaultMaxNoteSize = 1024 * 1024 // 1MB
)

// Format represents a note file format
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatUnknown  Format = "unknown"
)

// ValidateNote checks that path is a readable markdown note within the size limit
func ValidateNote(path string, maxSize int64) (Format, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxNoteSize
	}

	// Check file exists
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return FormatUnknown, fmt.Errorf("%w: %s", apperrors.ErrNoteNotFound, path)
	}
	if err != nil {
		return FormatUnknown, fmt.Errorf("%w: stat: %v", apperrors.ErrReadFailed, err)
	}
	if info.IsDir() {
		return FormatUnknown, fmt.Errorf("%w: %s is a directory", apperrors.ErrUnsupportedFormat, path)
	}

	// Check file size
	if info.Size() > maxSize {
		return FormatUnknown, fmt.Errorf("%w: maximum size is %d bytes", apperrors.ErrNoteTooLarge, maxSize)
	}

	format, err := detectFormat(path)
	if err != nil {
		return FormatUnknown, err
	}
	if format == FormatUnknown {
		return FormatUnknown, fmt.Errorf("%w: please provide a markdown note", apperrors.ErrUnsupportedFormat)
	}
	return format, nil
}

// detectFormat checks the extension and sniffs the head of the file for binary content
func detectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
	default:
		return FormatUnknown, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("%w: %v", apperrors.ErrReadFailed, err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, _ := f.Read(head)
	head = head[:n]

	if bytes.IndexByte(head, 0) >= 0 {
		return FormatUnknown, nil
	}
	// a multi-byte rune may be cut at the sniff boundary
	for len(head) > 0 && !utf8.Valid(head) && len(head) > n-utf8.UTFMax {
		head = head[:len(head)-1]
	}
	if !utf8.Valid(head) {
		return FormatUnknown, nil
	}
	return FormatMarkdown, nil
}
