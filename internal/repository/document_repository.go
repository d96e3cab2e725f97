// Package repository defines the persistence interfaces and their implementations.
package repository

import (
	"context"
	"errors"
	"sort"
	"sync"

	"docbrain-go/internal/model"

	"gorm.io/gorm"
)

// ErrDocumentNotFound is returned when no document has the requested id.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentRepository stores the records of uploaded documents.
type DocumentRepository interface {
	Create(ctx context.Context, doc *model.Document) error
	FindByID(ctx context.Context, id string) (*model.Document, error)
	// FindAll returns documents in upload order.
	FindAll(ctx context.Context) ([]model.Document, error)
	UpdateChunkCount(ctx context.Context, id string, chunkCount int) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}

// documentRepository is the GORM implementation of DocumentRepository.
type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a DocumentRepository backed by db.
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(ctx context.Context, doc *model.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *documentRepository) FindByID(ctx context.Context, id string) (*model.Document, error) {
	var doc model.Document
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) FindAll(ctx context.Context) ([]model.Document, error) {
	var docs []model.Document
	err := r.db.WithContext(ctx).Order("uploaded_at ASC").Find(&docs).Error
	return docs, err
}

func (r *documentRepository) UpdateChunkCount(ctx context.Context, id string, chunkCount int) error {
	res := r.db.WithContext(ctx).Model(&model.Document{}).Where("id = ?", id).Update("chunk_count", chunkCount)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

func (r *documentRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Document{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

func (r *documentRepository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.Document{}).Error
}

// memoryDocumentRepository keeps records in process memory when no
// database is configured.
type memoryDocumentRepository struct {
	mu   sync.RWMutex
	docs map[string]model.Document
	seq  map[string]int
	next int
}

// NewMemoryDocumentRepository creates an in-memory DocumentRepository.
func NewMemoryDocumentRepository() DocumentRepository {
	return &memoryDocumentRepository{docs: make(map[string]model.Document), seq: make(map[string]int)}
}

func (r *memoryDocumentRepository) Create(_ context.Context, doc *model.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[doc.ID]; ok {
		return errors.New("duplicate document id " + doc.ID)
	}
	r.docs[doc.ID] = *doc
	r.seq[doc.ID] = r.next
	r.next++
	return nil
}

func (r *memoryDocumentRepository) FindByID(_ context.Context, id string) (*model.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return &doc, nil
}

func (r *memoryDocumentRepository) FindAll(context.Context) ([]model.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	docs := make([]model.Document, 0, len(r.docs))
	for _, d := range r.docs {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool { return r.seq[docs[i].ID] < r.seq[docs[j].ID] })
	return docs, nil
}

func (r *memoryDocumentRepository) UpdateChunkCount(_ context.Context, id string, chunkCount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return ErrDocumentNotFound
	}
	doc.ChunkCount = chunkCount
	r.docs[id] = doc
	return nil
}

func (r *memoryDocumentRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return ErrDocumentNotFound
	}
	delete(r.docs, id)
	delete(r.seq, id)
	return nil
}

func (r *memoryDocumentRepository) DeleteAll(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.docs)
	clear(r.seq)
	return nil
}
