package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"docbrain-go/internal/repository"
	"docbrain-go/internal/service"
	"docbrain-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// DocumentHandler serves the document management routes.
type DocumentHandler struct {
	docService service.DocumentService
	maxBytes   int64
}

// NewDocumentHandler creates a DocumentHandler. Files larger than maxBytes
// are reported as failed outcomes.
func NewDocumentHandler(docService service.DocumentService, maxBytes int64) *DocumentHandler {
	return &DocumentHandler{docService: docService, maxBytes: maxBytes}
}

// List handles GET /api/documents.
func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.docService.List(c.Request.Context())
	if err != nil {
		log.Error("List documents failed", err)
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "documents": docs})
}

// Upload handles POST /api/documents/upload with multipart field "documents".
func (h *DocumentHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil || len(form.File["documents"]) == 0 {
		fail(c, http.StatusBadRequest, "No files uploaded")
		return
	}

	files := make([]service.UploadFile, 0, len(form.File["documents"]))
	for _, fh := range form.File["documents"] {
		f, err := fh.Open()
		if err != nil {
			fail(c, http.StatusBadRequest, fmt.Sprintf("cannot read %s", fh.Filename))
			return
		}
		var r io.Reader = f
		if h.maxBytes > 0 {
			// one byte past the limit is enough for the size check downstream
			r = io.LimitReader(f, h.maxBytes+1)
		}
		data, err := io.ReadAll(r)
		_ = f.Close()
		if err != nil {
			fail(c, http.StatusBadRequest, fmt.Sprintf("cannot read %s", fh.Filename))
			return
		}
		files = append(files, service.UploadFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	outcomes := h.docService.Upload(c.Request.Context(), files)
	succeeded := 0
	for _, o := range outcomes {
		if o.Success {
			succeeded++
		}
	}
	message := "Documents uploaded successfully"
	if succeeded < len(outcomes) {
		message = fmt.Sprintf("%d of %d documents uploaded", succeeded, len(outcomes))
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   succeeded > 0,
		"message":   message,
		"count":     succeeded,
		"documents": outcomes,
	})
}

// Delete handles DELETE /api/documents/:id.
func (h *DocumentHandler) Delete(c *gin.Context) {
	err := h.docService.Delete(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repository.ErrDocumentNotFound) {
		fail(c, http.StatusNotFound, "Document not found")
		return
	}
	if err != nil {
		log.Errorf("Delete document %s failed: %v", c.Param("id"), err)
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Document deleted successfully"})
}

// Clear handles DELETE /api/documents and DELETE /api/documents/clear.
func (h *DocumentHandler) Clear(c *gin.Context) {
	if err := h.docService.Clear(c.Request.Context()); err != nil {
		log.Error("Clear documents failed", err)
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "All documents cleared"})
}

// Rebuild handles POST /api/documents/rebuild.
func (h *DocumentHandler) Rebuild(c *gin.Context) {
	report, err := h.docService.Rebuild(c.Request.Context())
	if err != nil {
		log.Error("Rebuild failed", err)
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	message := "Embeddings rebuilt successfully"
	if report.Queued {
		message = "Rebuild queued"
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message, "documents": report.Documents, "queued": report.Queued})
}

// Download handles GET /api/documents/:id/download. It redirects to a
// presigned URL when the object store can sign one and streams the file
// otherwise.
func (h *DocumentHandler) Download(c *gin.Context) {
	d, err := h.docService.Download(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repository.ErrDocumentNotFound) {
		fail(c, http.StatusNotFound, "Document not found")
		return
	}
	if err != nil {
		log.Errorf("Download of %s failed: %v", c.Param("id"), err)
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	if d.URL != "" {
		c.Redirect(http.StatusFound, d.URL)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", d.FileName))
	c.Data(http.StatusOK, d.ContentType, d.Data)
}
