// Package model defines the records shared by repositories, services and handlers.
package model

import "time"

// Document is one uploaded file. Its chunks live in the vector store and
// carry ID as metadata.documentId.
type Document struct {
	ID         string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	Name       string    `gorm:"type:varchar(255);not null" json:"name"`
	Extension  string    `gorm:"type:varchar(16);not null" json:"extension"`
	Size       int64     `gorm:"not null" json:"size"`
	ChunkCount int       `gorm:"not null;default:0" json:"chunkCount"`
	ObjectName string    `gorm:"type:varchar(512)" json:"-"`
	UploadedAt time.Time `gorm:"autoCreateTime" json:"uploadedAt"`
}

// TableName pins the table name.
func (Document) TableName() string {
	return "documents"
}

// UploadOutcome reports what happened to one file of a batch upload.
type UploadOutcome struct {
	FileName   string `json:"fileName"`
	DocumentID string `json:"documentId,omitempty"`
	ChunkCount int    `json:"chunkCount"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}
