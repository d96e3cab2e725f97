package model

import "fmt"

// ChunkMetadata is stored next to every indexed chunk.
type ChunkMetadata struct {
	DocumentID   string `json:"documentId"`
	DocumentName string `json:"documentName"`
	ChunkIndex   int    `json:"chunkIndex"`
}

// IndexEntry is the unit written to a vector store.
type IndexEntry struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata ChunkMetadata
}

// ChunkID formats the id of chunk index of a document.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s-chunk-%d", documentID, index)
}

// RankedChunk is one retrieval hit. Similarity is cosine similarity in [-1, 1]
// whatever store produced it.
type RankedChunk struct {
	Text       string  `json:"text"`
	Source     string  `json:"source"`
	Similarity float64 `json:"similarity"`
}

// SearchResult groups ranked chunks with their distinct sources in
// first-seen order.
type SearchResult struct {
	Results []RankedChunk `json:"results"`
	Sources []string      `json:"sources"`
}
