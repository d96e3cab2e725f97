package service

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"docbrain-go/internal/model"
	"docbrain-go/internal/repository"
	"docbrain-go/internal/vectorstore"
	"docbrain-go/pkg/log"
	"docbrain-go/pkg/metrics"
	"docbrain-go/pkg/storage"
	"docbrain-go/pkg/tasks"
	"docbrain-go/pkg/tika"

	"github.com/google/uuid"
)

// ErrFileTooLarge is reported for uploads above the size limit.
var ErrFileTooLarge = errors.New("file exceeds the upload size limit")

const downloadURLExpiry = time.Hour

// Ingester indexes text and re-processes stored files.
type Ingester interface {
	Ingest(ctx context.Context, documentID, name, text string) (int, error)
	Process(ctx context.Context, task tasks.RebuildTask) error
}

// TaskPublisher queues rebuild tasks for asynchronous workers.
type TaskPublisher interface {
	Produce(ctx context.Context, task tasks.RebuildTask) error
}

// UploadFile is one file of an upload batch.
type UploadFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// Download is either a presigned URL or the raw bytes of a document.
type Download struct {
	FileName    string
	URL         string
	ContentType string
	Data        []byte
}

// RebuildReport summarises a rebuild request.
type RebuildReport struct {
	Documents int  `json:"documents"`
	Queued    bool `json:"queued"`
}

// DocumentService manages the document collection.
type DocumentService interface {
	// Upload ingests every file independently and reports one outcome per file.
	Upload(ctx context.Context, files []UploadFile) []model.UploadOutcome
	List(ctx context.Context) ([]model.Document, error)
	// Delete removes a document with its chunks and stored file.
	Delete(ctx context.Context, id string) error
	// Clear removes every document.
	Clear(ctx context.Context) error
	// Rebuild drops the index and re-ingests every stored file.
	Rebuild(ctx context.Context) (RebuildReport, error)
	Download(ctx context.Context, id string) (*Download, error)
	// IngestDirectory uploads the supported files found directly in dir,
	// skipping names that are already in the collection.
	IngestDirectory(ctx context.Context, dir string) ([]model.UploadOutcome, error)
}

type documentService struct {
	ingester  Ingester
	extractor tika.Extractor
	store     vectorstore.Store
	objects   storage.ObjectStore
	documents repository.DocumentRepository
	publisher TaskPublisher
	maxBytes  int64
	newID     func() string
}

// NewDocumentService creates a DocumentService. publisher may be nil, in
// which case Rebuild runs synchronously. maxBytes <= 0 disables the size check.
func NewDocumentService(
	ingester Ingester,
	extractor tika.Extractor,
	store vectorstore.Store,
	objects storage.ObjectStore,
	documents repository.DocumentRepository,
	publisher TaskPublisher,
	maxBytes int64,
) DocumentService {
	return &documentService{
		ingester:  ingester,
		extractor: extractor,
		store:     store,
		objects:   objects,
		documents: documents,
		publisher: publisher,
		maxBytes:  maxBytes,
		newID:     uuid.NewString,
	}
}

func objectName(id, fileName string) string {
	return fmt.Sprintf("documents/%s/%s", id, fileName)
}

func (s *documentService) Upload(ctx context.Context, files []UploadFile) []model.UploadOutcome {
	outcomes := make([]model.UploadOutcome, 0, len(files))
	for _, f := range files {
		outcome := model.UploadOutcome{FileName: f.Name}
		doc, err := s.uploadOne(ctx, f)
		if err != nil {
			log.Errorf("[DocumentService] upload of %s failed: %v", f.Name, err)
			outcome.Error = err.Error()
			metrics.DocumentsIngested.WithLabelValues("failed").Inc()
		} else {
			outcome.Success = true
			outcome.DocumentID = doc.ID
			outcome.ChunkCount = doc.ChunkCount
			metrics.DocumentsIngested.WithLabelValues("success").Inc()
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

func (s *documentService) uploadOne(ctx context.Context, f UploadFile) (*model.Document, error) {
	if !tika.Supported(f.Name) {
		return nil, fmt.Errorf("%w: %s", tika.ErrUnsupportedType, filepath.Ext(f.Name))
	}
	if s.maxBytes > 0 && int64(len(f.Data)) > s.maxBytes {
		return nil, ErrFileTooLarge
	}

	text, err := s.extractor.Extract(ctx, f.Data, f.Name)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}

	doc := &model.Document{
		ID:        s.newID(),
		Name:      f.Name,
		Extension: strings.ToLower(filepath.Ext(f.Name)),
		Size:      int64(len(f.Data)),
	}
	doc.ObjectName = objectName(doc.ID, f.Name)

	contentType := f.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(doc.Extension)
	}
	if err := s.objects.Put(ctx, doc.ObjectName, f.Data, contentType); err != nil {
		return nil, fmt.Errorf("store file: %w", err)
	}

	count, err := s.ingester.Ingest(ctx, doc.ID, doc.Name, text)
	if err != nil {
		s.rollback(ctx, doc)
		return nil, err
	}
	doc.ChunkCount = count

	if err := s.documents.Create(ctx, doc); err != nil {
		s.rollback(ctx, doc)
		return nil, fmt.Errorf("save document record: %w", err)
	}
	return doc, nil
}

// rollback undoes a partially ingested upload.
func (s *documentService) rollback(ctx context.Context, doc *model.Document) {
	if err := s.store.Delete(ctx, vectorstore.Filter{DocumentID: doc.ID}); err != nil {
		log.Warnf("[DocumentService] removing chunks of %s failed: %v", doc.ID, err)
	}
	if err := s.objects.Remove(ctx, doc.ObjectName); err != nil {
		log.Warnf("[DocumentService] removing object %s failed: %v", doc.ObjectName, err)
	}
}

func (s *documentService) List(ctx context.Context) ([]model.Document, error) {
	return s.documents.FindAll(ctx)
}

func (s *documentService) Delete(ctx context.Context, id string) error {
	doc, err := s.documents.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, vectorstore.Filter{DocumentID: id}); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if doc.ObjectName != "" {
		if err := s.objects.Remove(ctx, doc.ObjectName); err != nil {
			log.Warnf("[DocumentService] file of %s not removed: %v", id, err)
		}
	}
	if err := s.documents.Delete(ctx, id); err != nil {
		return err
	}
	log.Infof("[DocumentService] document %s (%s) deleted", doc.Name, id)
	return nil
}

func (s *documentService) Clear(ctx context.Context) error {
	docs, err := s.documents.FindAll(ctx)
	if err != nil {
		return err
	}
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	for _, doc := range docs {
		if doc.ObjectName == "" {
			continue
		}
		if err := s.objects.Remove(ctx, doc.ObjectName); err != nil {
			log.Warnf("[DocumentService] file of %s not removed: %v", doc.ID, err)
		}
	}
	if err := s.documents.DeleteAll(ctx); err != nil {
		return err
	}
	log.Infof("[DocumentService] all %d documents cleared", len(docs))
	return nil
}

func (s *documentService) Rebuild(ctx context.Context) (RebuildReport, error) {
	docs, err := s.documents.FindAll(ctx)
	if err != nil {
		return RebuildReport{}, err
	}
	if err := s.store.Clear(ctx); err != nil {
		return RebuildReport{}, fmt.Errorf("clear index: %w", err)
	}

	report := RebuildReport{Documents: len(docs), Queued: s.publisher != nil}
	var errs []error
	for _, doc := range docs {
		task := tasks.RebuildTask{DocumentID: doc.ID, FileName: doc.Name, ObjectName: doc.ObjectName}
		if s.publisher != nil {
			err = s.publisher.Produce(ctx, task)
		} else {
			err = s.ingester.Process(ctx, task)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", doc.Name, err))
		}
	}
	if len(errs) > 0 {
		return report, errors.Join(errs...)
	}
	log.Infof("[DocumentService] rebuild of %d documents done (queued=%t)", len(docs), report.Queued)
	return report, nil
}

func (s *documentService) Download(ctx context.Context, id string) (*Download, error) {
	doc, err := s.documents.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d := &Download{FileName: doc.Name, ContentType: mime.TypeByExtension(doc.Extension)}
	if d.ContentType == "" {
		d.ContentType = "application/octet-stream"
	}

	url, err := s.objects.PresignedURL(ctx, doc.ObjectName, downloadURLExpiry)
	if err == nil {
		d.URL = url
		return d, nil
	}
	if !errors.Is(err, storage.ErrPresignUnsupported) {
		return nil, err
	}
	if d.Data, err = s.objects.Get(ctx, doc.ObjectName); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *documentService) IngestDirectory(ctx context.Context, dir string) ([]model.UploadOutcome, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	existing, err := s.documents.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]struct{}, len(existing))
	for _, doc := range existing {
		known[doc.Name] = struct{}{}
	}

	var files []UploadFile
	for _, e := range entries {
		if e.IsDir() || !tika.Supported(e.Name()) {
			continue
		}
		if _, ok := known[e.Name()]; ok {
			log.Infof("[DocumentService] %s already ingested, skipping", e.Name())
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			log.Warnf("[DocumentService] skipping %s: %v", e.Name(), err)
			continue
		}
		files = append(files, UploadFile{Name: e.Name(), Data: data})
	}
	log.Infof("[DocumentService] ingesting %d files from %s", len(files), dir)
	return s.Upload(ctx, files), nil
}
