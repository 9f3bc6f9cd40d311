package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ragkb/ragkb/internal/vectorstore"
)

type Config struct {
	BaseURL    string `json:"base_url"`
	APIKey     string `json:"api_key"`
	Collection string `json:"collection"`
	VectorSize int    `json:"vector_size"`
	TimeoutSec int    `json:"timeout_sec"`
}

// Store talks to a qdrant instance over its REST API. Vector ids are the
// caller's 32-char hex keys reshaped into UUID form, which qdrant accepts as
// point ids.
type Store struct {
	cfg    Config
	client *http.Client
}

func New(args interface{}) (*Store, error) {
	cfg := Config{}
	if err := vectorstore.DecodeConfig(args, &cfg); err != nil {
		return nil, err
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("qdrant base_url is required")
	}
	if cfg.Collection == "" {
		cfg.Collection = "chunks"
	}
	if cfg.VectorSize <= 0 {
		cfg.VectorSize = 1536
	}
	timeout := 30 * time.Second
	if cfg.TimeoutSec > 0 {
		timeout = time.Duration(cfg.TimeoutSec) * time.Second
	}
	return &Store{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}, nil
}

// EnsureCollection creates the collection with cosine distance if it does not
// exist yet. Qdrant returns 409 when it already does.
func (s *Store) EnsureCollection(ctx context.Context) error {
	body := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     s.cfg.VectorSize,
			"distance": "Cosine",
		},
	}
	resp, err := s.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", s.cfg.Collection), body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusConflict {
		return nil
	}
	return checkStatus(resp)
}

type point struct {
	ID      string                 `json:"id"`
	Vector  []float32              `json:"vector"`
	Payload map[string]interface{} `json:"payload"`
}

func (s *Store) Upsert(ctx context.Context, ids []string, vectors [][]float32, texts []string, metas []vectorstore.Metadata) error {
	if len(ids) == 0 {
		return nil
	}
	if len(vectors) != len(ids) || len(texts) != len(ids) || len(metas) != len(ids) {
		return fmt.Errorf("mismatched upsert lengths: ids=%d vectors=%d texts=%d metas=%d",
			len(ids), len(vectors), len(texts), len(metas))
	}
	points := make([]point, 0, len(ids))
	for i, id := range ids {
		pointID, err := hexToUUID(id)
		if err != nil {
			return err
		}
		points = append(points, point{
			ID:     pointID,
			Vector: vectors[i],
			Payload: map[string]interface{}{
				"doc_id":       metas[i].DocID,
				"doc_title":    metas[i].DocTitle,
				"doc_filename": metas[i].Filename,
				"chunk_index":  metas[i].ChunkIndex,
				"text":         texts[i],
			},
		})
	}
	resp, err := s.do(ctx, http.MethodPut,
		fmt.Sprintf("/collections/%s/points?wait=true", s.cfg.Collection),
		map[string]interface{}{"points": points})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

type searchResponse struct {
	Result []struct {
		Score   float64                `json:"score"`
		Payload map[string]interface{} `json:"payload"`
	} `json:"result"`
}

func (s *Store) Query(ctx context.Context, vector []float32, topK int, filter *vectorstore.Filter) (*vectorstore.QueryResult, error) {
	if topK <= 0 {
		return &vectorstore.QueryResult{}, nil
	}
	body := map[string]interface{}{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	if filter != nil && filter.DocIDs != nil {
		if len(filter.DocIDs) == 0 {
			return &vectorstore.QueryResult{}, nil
		}
		body["filter"] = map[string]interface{}{
			"must": []map[string]interface{}{
				{
					"key":   "doc_id",
					"match": map[string]interface{}{"any": filter.DocIDs},
				},
			},
		}
	}
	resp, err := s.do(ctx, http.MethodPost,
		fmt.Sprintf("/collections/%s/points/search", s.cfg.Collection), body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	decoded := searchResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	result := &vectorstore.QueryResult{}
	for _, hit := range decoded.Result {
		result.Texts = append(result.Texts, payloadString(hit.Payload, "text"))
		result.Metadatas = append(result.Metadatas, vectorstore.Metadata{
			DocID:      payloadInt64(hit.Payload, "doc_id"),
			DocTitle:   payloadString(hit.Payload, "doc_title"),
			Filename:   payloadString(hit.Payload, "doc_filename"),
			ChunkIndex: int(payloadInt64(hit.Payload, "chunk_index")),
		})
		// qdrant reports cosine similarity, convert to distance so all
		// backends agree on lower-is-closer.
		result.Distances = append(result.Distances, 1-hit.Score)
	}
	return result, nil
}

func (s *Store) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	pointIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		pointID, err := hexToUUID(id)
		if err != nil {
			return err
		}
		pointIDs = append(pointIDs, pointID)
	}
	resp, err := s.do(ctx, http.MethodPost,
		fmt.Sprintf("/collections/%s/points/delete?wait=true", s.cfg.Collection),
		map[string]interface{}{"points": pointIDs})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

func (s *Store) do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal qdrant request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.cfg.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("api-key", s.cfg.APIKey)
	}
	return s.client.Do(req)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("qdrant returned status %d: %s", resp.StatusCode, string(raw))
}

// hexToUUID reshapes a 32-char hex string into 8-4-4-4-12 UUID form.
func hexToUUID(id string) (string, error) {
	if len(id) != 32 {
		return "", fmt.Errorf("vector id must be 32 hex chars, got %q", id)
	}
	return fmt.Sprintf("%s-%s-%s-%s-%s", id[:8], id[8:12], id[12:16], id[16:20], id[20:]), nil
}

func payloadString(payload map[string]interface{}, key string) string {
	value, _ := payload[key].(string)
	return value
}

func payloadInt64(payload map[string]interface{}, key string) int64 {
	switch value := payload[key].(type) {
	case float64:
		return int64(value)
	case json.Number:
		parsed, _ := value.Int64()
		return parsed
	default:
		return 0
	}
}
