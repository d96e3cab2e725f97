// Package chunker splits extracted document text into overlapping windows.
package chunker

import (
	"errors"
	"fmt"
	"iter"
	"unicode/utf16"

	"docbrain-go/pkg/textutil"
)

const (
	DefaultSize    = 1000
	DefaultOverlap = 200

	// MinLength is the shortest trimmed chunk that is kept. Shorter windows
	// are almost always page furniture or the tail of the previous window.
	MinLength = 50
)

// ErrInvalidConfig is returned when size and overlap cannot make progress.
var ErrInvalidConfig = errors.New("invalid chunking config")

// Chunker holds a validated window size and overlap, both in UTF-16 code
// units so windows line up with those of the Node.js service.
type Chunker struct {
	size    int
	overlap int
}

// New validates size and overlap. overlap must be smaller than size or the
// window would never advance.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size %d must be positive", ErrInvalidConfig, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap %d must not be negative", ErrInvalidConfig, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than size %d", ErrInvalidConfig, overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size returns the window size.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the number of code units shared by neighbouring windows.
func (c *Chunker) Overlap() int { return c.overlap }

// Chunks returns a lazy sequence of trimmed windows over text. Every range
// over the sequence starts again from the first window. A surrogate pair cut
// by a window edge decodes to U+FFFD on that side.
func (c *Chunker) Chunks(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		units := utf16.Encode([]rune(text))
		step := c.size - c.overlap
		for start := 0; start < len(units); start += step {
			end := min(start+c.size, len(units))
			chunk := textutil.TrimSpace(string(utf16.Decode(units[start:end])))
			if textutil.UTF16Len(chunk) <= MinLength {
				continue
			}
			if !yield(chunk) {
				return
			}
		}
	}
}

// Split collects every chunk of text into a slice.
func (c *Chunker) Split(text string) []string {
	var chunks []string
	for chunk := range c.Chunks(text) {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// Split chunks text with the given window parameters.
func Split(text string, size, overlap int) ([]string, error) {
	c, err := New(size, overlap)
	if err != nil {
		return nil, err
	}
	return c.Split(text), nil
}
