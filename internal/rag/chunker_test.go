package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	appErr "github.com/ragkb/ragkb/internal/pkg/errors"
)

func mustChunk(t *testing.T, text string, size, overlap int) []string {
	t.Helper()
	chunks, err := ChunkText(text, size, overlap)
	require.NoError(t, err)
	return chunks
}

func TestChunkTextEmpty(t *testing.T) {
	require.Nil(t, mustChunk(t, "", 900, 150))
	require.Nil(t, mustChunk(t, "   \n\t  ", 10, 2))
}

func TestChunkTextShort(t *testing.T) {
	chunks := mustChunk(t, "  hello world  ", 900, 150)
	require.Equal(t, []string{"hello world"}, chunks)
}

func TestChunkTextWindowAdvance(t *testing.T) {
	text := strings.Repeat("a", 25)
	chunks := mustChunk(t, text, 10, 4)
	// window starts advance by 10-4=6 runes
	require.Equal(t, []string{
		strings.Repeat("a", 10),
		strings.Repeat("a", 10),
		strings.Repeat("a", 10),
		strings.Repeat("a", 7),
		strings.Repeat("a", 1),
	}, chunks)
}

func TestChunkTextOverlapContent(t *testing.T) {
	chunks := mustChunk(t, "abcdefghij", 6, 2)
	require.Equal(t, []string{"abcdef", "efghij", "ij"}, chunks)
}

func TestChunkTextDropsBlankWindows(t *testing.T) {
	text := "abc" + strings.Repeat(" ", 20) + "xyz"
	chunks := mustChunk(t, text, 5, 0)
	for _, chunk := range chunks {
		require.NotEmpty(t, chunk)
		require.Equal(t, strings.TrimSpace(chunk), chunk)
	}
}

func TestChunkTextRuneBoundaries(t *testing.T) {
	text := strings.Repeat("日本語テキスト", 5)
	chunks := mustChunk(t, text, 7, 2)
	for _, chunk := range chunks {
		require.True(t, len([]rune(chunk)) <= 7)
		require.True(t, strings.HasPrefix(text, chunks[0]))
	}
}

func TestChunkTextBadParams(t *testing.T) {
	_, err := ChunkText("hello", 0, 0)
	require.ErrorIs(t, err, appErr.ErrInvalidArgument)
	_, err = ChunkText("hello", -1, 0)
	require.ErrorIs(t, err, appErr.ErrInvalidArgument)
	_, err = ChunkText("hello world", 5, 5)
	require.ErrorIs(t, err, appErr.ErrInvalidArgument)
	_, err = ChunkText("hello world", 5, 9)
	require.ErrorIs(t, err, appErr.ErrInvalidArgument)
	_, err = ChunkText("hello world", 5, -1)
	require.ErrorIs(t, err, appErr.ErrInvalidArgument)
}
