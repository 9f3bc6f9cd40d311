package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	appErr "github.com/ragkb/ragkb/internal/pkg/errors"
)

func TestSupportedExt(t *testing.T) {
	require.True(t, SupportedExt("notes.txt"))
	require.True(t, SupportedExt("README.MD"))
	require.True(t, SupportedExt("paper.pdf"))
	require.False(t, SupportedExt("image.png"))
	require.False(t, SupportedExt("archive"))
}

func TestExtractTextPlain(t *testing.T) {
	text, err := ExtractText("notes.txt", []byte("hello world"))
	require.NoError(t, err)
	require.Equal(t, "hello world", text)
}

func TestExtractTextInvalidUTF8(t *testing.T) {
	text, err := ExtractText("notes.md", []byte{'o', 'k', 0xff, '!'})
	require.NoError(t, err)
	require.Equal(t, "ok�!", text)
}

func TestExtractTextUnsupported(t *testing.T) {
	_, err := ExtractText("image.png", []byte("data"))
	require.ErrorIs(t, err, appErr.ErrUnsupportedFormat)
}
