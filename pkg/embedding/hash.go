package embedding

import (
	"context"
	"math"
	"strings"
	"unicode/utf16"

	"docbrain-go/pkg/textutil"
)

// HashDimensions is the length of vectors produced by HashEmbedder.
const HashDimensions = 384

// HashEmbedder is a deterministic, model-free embedder. It places each
// character of each word into a bucket derived from the character code and
// its word and character positions, weights earlier words higher and
// normalises the result to unit length. The output must stay stable across
// releases because stored indexes depend on it.
type HashEmbedder struct{}

func NewHashEmbedder() *HashEmbedder { return &HashEmbedder{} }

func (*HashEmbedder) Dimensions() int { return HashDimensions }

func (*HashEmbedder) Name() string { return "hash-384" }

// Embed never fails; ctx is accepted to satisfy Embedder.
func (*HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	acc := Hash(text)
	vec := make([]float32, len(acc))
	for i, v := range acc {
		vec[i] = float32(v)
	}
	return vec, nil
}

// Hash returns the float64 hash embedding of text. The result has norm 1,
// or is all zero when text has no characters outside whitespace.
//
// Words come from splitting on whitespace runs (ECMAScript whitespace, so
// NBSP and U+3000 separate words too), and leading whitespace yields an
// empty first word that still takes word position 0. Characters are UTF-16
// code units.
func Hash(text string) []float64 {
	acc := make([]float64, HashDimensions)
	words := textutil.SplitWhitespace(strings.ToLower(text))
	for i, word := range words {
		weight := 1 / float64(i+1)
		for j, c := range utf16.Encode([]rune(word)) {
			idx := (int(c) * (i + 1) * (j + 1)) % HashDimensions
			acc[idx] += weight
		}
	}

	var sum float64
	for _, v := range acc {
		sum += v * v
	}
	if norm := math.Sqrt(sum); norm > 0 {
		for i := range acc {
			acc[i] /= norm
		}
	}
	return acc
}
