package model

const (
	DocumentStatusUploaded = "UPLOADED"
	DocumentStatusIndexing = "INDEXING"
	DocumentStatusIndexed  = "INDEXED"
	DocumentStatusFailed   = "FAILED"
)

type Document struct {
	ID               int64  `json:"id"`
	Title            string `json:"title"`
	FileKey          string `json:"file_key,omitempty"`
	OriginalFilename string `json:"original_filename,omitempty"`
	RawText          string `json:"-"`
	Status           string `json:"status"`
	ChunksCount      int    `json:"chunks_count"`
	LastIndexedAt    int64  `json:"last_indexed_at,omitempty"`
	ErrorMessage     string `json:"error_message,omitempty"`
	Ctime            int64  `json:"ctime"`
}

// Indexable reports whether the document has any source text to chunk.
func (d *Document) Indexable() bool {
	return d.RawText != "" || d.FileKey != ""
}
