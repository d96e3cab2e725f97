package model

// EsChunk is the document shape stored in the Elasticsearch index.
type EsChunk struct {
	ChunkID      string    `json:"chunk_id"`
	DocumentID   string    `json:"document_id"`
	DocumentName string    `json:"document_name"`
	ChunkIndex   int       `json:"chunk_index"`
	Text         string    `json:"text"`
	Vector       []float32 `json:"vector"`
}
