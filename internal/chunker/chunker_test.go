package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name          string
		size, overlap int
	}{
		{"overlap equals size", 100, 100},
		{"overlap larger than size", 100, 150},
		{"zero size", 0, 0},
		{"negative overlap", 100, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.size, tt.overlap)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestSplitEmptyText(t *testing.T) {
	chunks, err := Split("", DefaultSize, DefaultOverlap)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplitTwelveHundredCharacters(t *testing.T) {
	chunks, err := Split(strings.Repeat("A", 1200), DefaultSize, DefaultOverlap)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Len(t, chunks[0], 1000)
	assert.Len(t, chunks[1], 400)
}

func TestSplitDropsShortFragments(t *testing.T) {
	// the second window is ten letters and trailing blanks
	text := strings.Repeat("b", 810) + strings.Repeat(" ", 190)
	chunks, err := Split(text, 1000, 200)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.True(t, strings.HasPrefix(chunks[0], "bbb"))

	chunks, err = Split("   short text   ", 1000, 200)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplitChunkBoundsAndOverlap(t *testing.T) {
	var sb strings.Builder
	for i := 0; sb.Len() < 5000; i++ {
		sb.WriteString("word")
		sb.WriteByte(byte('a' + i%26))
	}
	text := sb.String()

	chunks, err := Split(text, 1000, 200)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 1000)
		assert.Greater(t, len(strings.TrimSpace(c)), MinLength)
	}
	// neighbouring windows share exactly the overlap
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1]
		if len(prev) < 1000 {
			continue
		}
		assert.Equal(t, prev[800:], chunks[i][:200])
	}
	assert.Equal(t, text[:1000], chunks[0])
}

func TestChunksIsRestartable(t *testing.T) {
	c, err := New(100, 20)
	require.NoError(t, err)
	seq := c.Chunks(strings.Repeat("x", 350))

	var first, second []string
	for s := range seq {
		first = append(first, s)
	}
	for s := range seq {
		second = append(second, s)
	}
	assert.Equal(t, first, second)
	assert.Len(t, first, 4)
}

func TestChunksStopsEarly(t *testing.T) {
	c, err := New(100, 20)
	require.NoError(t, err)
	n := 0
	for range c.Chunks(strings.Repeat("y", 1000)) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestChunksCountsUTF16Units(t *testing.T) {
	// BMP characters are one unit each
	chunks, err := Split(strings.Repeat("文", 150), 100, 20)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 100, len([]rune(chunks[0])))
	assert.Equal(t, 70, len([]rune(chunks[1])))

	// astral characters are two: 75 emoji are 150 units
	chunks, err = Split(strings.Repeat("😀", 75), 100, 20)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, strings.Repeat("😀", 50), chunks[0])
	assert.Equal(t, strings.Repeat("😀", 35), chunks[1])
}

func TestChunksSplitSurrogatePair(t *testing.T) {
	// the window edge falls inside the pair at units 59-60
	text := strings.Repeat("a", 59) + "😀" + strings.Repeat("b", 40)
	chunks, err := Split(text, 60, 0)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, strings.Repeat("a", 59)+"\uFFFD", chunks[0])
}

func TestChunksTrimUnicodeWhitespace(t *testing.T) {
	body := strings.Repeat("a", 60)
	chunks, err := Split("\u00a0\u3000"+body+"\ufeff\u2028", 1000, 200)
	require.NoError(t, err)
	assert.Equal(t, []string{body}, chunks)

	// fifty letters padded with no-break spaces is still too short
	chunks, err = Split(strings.Repeat("\u00a0", 30)+strings.Repeat("c", 50), 1000, 200)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}
