package model

// Chunk is one contiguous slice of a document's text. (document_id, chunk_index)
// is unique; vector_id is the content-derived identifier shared with the vector
// index entry.
type Chunk struct {
	ID         int64  `json:"id"`
	DocumentID int64  `json:"document_id"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
	VectorID   string `json:"vector_id"`
	Ctime      int64  `json:"ctime"`
}
