package rag

import (
	"fmt"
	"strings"

	appErr "github.com/ragkb/ragkb/internal/pkg/errors"
)

// ChunkText splits a document body into overlapping windows of at most
// chunkSize runes. Each window is trimmed and empty windows are dropped, so
// chunk indexes count only the chunks that survive. The window start advances
// by chunkSize-overlap runes each step, which requires overlap < chunkSize.
func ChunkText(text string, chunkSize, overlap int) ([]string, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", appErr.ErrInvalidArgument, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap must be in [0, chunk size), got %d", appErr.ErrInvalidArgument, overlap)
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}
	step := chunkSize - overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		window := strings.TrimSpace(string(runes[start:end]))
		if window != "" {
			chunks = append(chunks, window)
		}
	}
	return chunks, nil
}
