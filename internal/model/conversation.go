package model

import "time"

// ChatMessage is one turn of a conversation kept in Redis.
type ChatMessage struct {
	Role       string    `json:"role"` // "user" or "assistant"
	Content    string    `json:"content"`
	Sources    []string  `json:"sources,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
