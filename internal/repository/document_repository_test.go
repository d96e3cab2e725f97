package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"docbrain-go/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockRepository(t *testing.T) (DocumentRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gdb, err := gorm.Open(mysql.New(mysql.Config{Conn: db, SkipInitializeWithVersion: true}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewDocumentRepository(gdb), mock
}

func TestGormFindByID(t *testing.T) {
	repo, mock := newMockRepository(t)
	uploaded := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "name", "extension", "size", "chunk_count", "object_name", "uploaded_at"}).
		AddRow("d1", "policy.pdf", ".pdf", 2048, 4, "documents/d1/policy.pdf", uploaded)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `documents` WHERE id = ?")).WillReturnRows(rows)

	doc, err := repo.FindByID(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, "policy.pdf", doc.Name)
	assert.Equal(t, 4, doc.ChunkCount)
	assert.Equal(t, uploaded, doc.UploadedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormFindByIDNotFound(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `documents` WHERE id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormCreate(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `documents`")).WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &model.Document{ID: "d1", Name: "a.txt", Extension: ".txt", Size: 10})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUpdateChunkCount(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `documents` SET `chunk_count`=? WHERE id = ?")).
		WithArgs(7, "d1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `documents` SET `chunk_count`=? WHERE id = ?")).
		WithArgs(1, "gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdateChunkCount(context.Background(), "d1", 7))
	assert.ErrorIs(t, repo.UpdateChunkCount(context.Background(), "gone", 1), ErrDocumentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormDelete(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `documents` WHERE id = ?")).
		WithArgs("d1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `documents` WHERE id = ?")).
		WithArgs("d1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `documents`")).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.Delete(context.Background(), "d1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "d1"), ErrDocumentNotFound)
	require.NoError(t, repo.DeleteAll(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryDocumentRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryDocumentRepository()

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, repo.Create(ctx, &model.Document{ID: id, Name: id + ".txt"}))
	}
	assert.Error(t, repo.Create(ctx, &model.Document{ID: "a"}))

	docs, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{docs[0].ID, docs[1].ID, docs[2].ID})

	require.NoError(t, repo.UpdateChunkCount(ctx, "a", 5))
	doc, err := repo.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 5, doc.ChunkCount)

	require.NoError(t, repo.Delete(ctx, "a"))
	assert.ErrorIs(t, repo.Delete(ctx, "a"), ErrDocumentNotFound)
	_, err = repo.FindByID(ctx, "a")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
	assert.ErrorIs(t, repo.UpdateChunkCount(ctx, "a", 1), ErrDocumentNotFound)

	require.NoError(t, repo.DeleteAll(ctx))
	docs, err = repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}
