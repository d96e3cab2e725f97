// Package pipeline turns extracted document text into indexed chunks.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"docbrain-go/internal/chunker"
	"docbrain-go/internal/model"
	"docbrain-go/internal/repository"
	"docbrain-go/internal/vectorstore"
	"docbrain-go/pkg/embedding"
	"docbrain-go/pkg/log"
	"docbrain-go/pkg/metrics"
	"docbrain-go/pkg/storage"
	"docbrain-go/pkg/tasks"
	"docbrain-go/pkg/tika"
)

// ErrEmptyText is returned by Process when a stored file yields no text.
var ErrEmptyText = errors.New("extracted text is empty")

// Processor owns the ingestion path: chunk, embed, upsert.
type Processor struct {
	chunker   *chunker.Chunker
	embedder  embedding.Embedder
	store     vectorstore.Store
	extractor tika.Extractor
	objects   storage.ObjectStore
	documents repository.DocumentRepository
}

// NewProcessor wires a Processor. objects and documents are only needed by Process.
func NewProcessor(
	ch *chunker.Chunker,
	embedder embedding.Embedder,
	store vectorstore.Store,
	extractor tika.Extractor,
	objects storage.ObjectStore,
	documents repository.DocumentRepository,
) *Processor {
	return &Processor{
		chunker:   ch,
		embedder:  embedder,
		store:     store,
		extractor: extractor,
		objects:   objects,
		documents: documents,
	}
}

// Ingest chunks text, embeds every chunk and upserts it under
// "<documentID>-chunk-<i>". It returns the number of chunks indexed.
func (p *Processor) Ingest(ctx context.Context, documentID, name, text string) (int, error) {
	log.Infof("[Processor] ingesting %s (%s), %d characters", name, documentID, utf8.RuneCountInString(text))

	count := 0
	for chunk := range p.chunker.Chunks(text) {
		vector, err := p.embedder.Embed(ctx, chunk)
		if err != nil {
			return count, fmt.Errorf("embed chunk %d: %w", count, err)
		}
		entry := model.IndexEntry{
			ID:     model.ChunkID(documentID, count),
			Vector: vector,
			Text:   chunk,
			Metadata: model.ChunkMetadata{
				DocumentID:   documentID,
				DocumentName: name,
				ChunkIndex:   count,
			},
		}
		if err := p.store.Upsert(ctx, entry); err != nil {
			return count, fmt.Errorf("index chunk %d: %w", count, err)
		}
		count++
		metrics.ChunksIndexed.Inc()
	}

	log.Infof("[Processor] %s indexed, %d chunks", name, count)
	return count, nil
}

// Process handles a rebuild task: it re-reads the stored file, replaces the
// document's chunks and records the new chunk count.
func (p *Processor) Process(ctx context.Context, task tasks.RebuildTask) error {
	log.Infof("[Processor] rebuilding document %s, object: %s", task.DocumentID, task.ObjectName)
	if p.objects == nil {
		return errors.New("no object store configured")
	}

	data, err := p.objects.Get(ctx, task.ObjectName)
	if err != nil {
		return fmt.Errorf("load %s: %w", task.ObjectName, err)
	}
	text, err := p.extractor.Extract(ctx, data, task.FileName)
	if err != nil {
		return fmt.Errorf("extract %s: %w", task.FileName, err)
	}
	if text == "" {
		return fmt.Errorf("%s: %w", task.FileName, ErrEmptyText)
	}

	if err := p.store.Delete(ctx, vectorstore.Filter{DocumentID: task.DocumentID}); err != nil {
		return fmt.Errorf("drop old chunks: %w", err)
	}
	count, err := p.Ingest(ctx, task.DocumentID, task.FileName, text)
	if err != nil {
		return err
	}
	if p.documents != nil {
		if err := p.documents.UpdateChunkCount(ctx, task.DocumentID, count); err != nil {
			return fmt.Errorf("update chunk count: %w", err)
		}
	}
	return nil
}
