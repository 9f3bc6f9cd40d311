package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
)

// Metadata describes the chunk a stored vector was embedded from.
type Metadata struct {
	DocID      int64  `json:"doc_id"`
	DocTitle   string `json:"doc_title"`
	Filename   string `json:"doc_filename"`
	ChunkIndex int    `json:"chunk_index"`
}

// Filter narrows a query to vectors from specific documents. A nil DocIDs
// slice leaves the search unrestricted.
type Filter struct {
	DocIDs []int64
}

// QueryResult holds nearest-neighbor hits as parallel slices ordered from
// closest to farthest.
type QueryResult struct {
	Texts     []string
	Metadatas []Metadata
	Distances []float64
}

func (r *QueryResult) Len() int {
	return len(r.Texts)
}

// IStore is a vector index keyed by caller-supplied string ids.
type IStore interface {
	Upsert(ctx context.Context, ids []string, vectors [][]float32, texts []string, metas []Metadata) error
	Query(ctx context.Context, vector []float32, topK int, filter *Filter) (*QueryResult, error)
	Delete(ctx context.Context, ids []string) error
}

// DecodeConfig round-trips an untyped config block into a store-specific
// struct.
func DecodeConfig(args interface{}, out interface{}) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("marshal store config: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unmarshal store config: %w", err)
	}
	return nil
}
