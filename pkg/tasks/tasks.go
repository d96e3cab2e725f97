// Package tasks defines the messages exchanged over Kafka.
package tasks

// RebuildTask asks a worker to re-extract and re-index one stored document.
type RebuildTask struct {
	DocumentID string `json:"document_id"`
	FileName   string `json:"file_name"`
	ObjectName string `json:"object_name"`
}
