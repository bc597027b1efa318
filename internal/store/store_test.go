package store

import (
	"testing"
	"time"

	"github.com/go-xpost/xpost/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	// Use in-memory SQLite database for testing
	s, err := New("sqlite", ":memory:")
	require.NoError(t, err)
	return s
}

func strptr(s string) *string { return &s }

func TestGetDialector(t *testing.T) {
	d, err := GetDialector("sqlite", ":memory:")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())

	d, err = GetDialector("postgres", "host=localhost dbname=xpost")
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	_, err = GetDialector("mysql", "dsn")
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestUpsertCredential_CreateThenReplace(t *testing.T) {
	s := setupTestStore(t)

	expiry := time.Now().Add(2 * time.Hour)
	cred, err := s.UpsertCredential(&models.Credential{
		UserID:      "default_user",
		AccessToken: "token-1",
		Username:    "alice",
		ExpiresAt:   &expiry,
	})
	require.NoError(t, err)
	require.NotEmpty(t, cred.ID)

	// Upsert for the same user replaces instead of appending
	replaced, err := s.UpsertCredential(&models.Credential{
		UserID:       "default_user",
		AccessToken:  "token-2",
		RefreshToken: "refresh-2",
		Username:     "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, cred.ID, replaced.ID)

	var count int64
	require.NoError(t, s.db.Model(&models.Credential{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	got, err := s.GetCredential("default_user")
	require.NoError(t, err)
	assert.Equal(t, "token-2", got.AccessToken)
	assert.Equal(t, "refresh-2", got.RefreshToken)
}

func TestGetCredential_NotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetCredential("nobody")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestDeleteCredential_Idempotent(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.UpsertCredential(&models.Credential{
		UserID:      "default_user",
		AccessToken: "token",
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteCredential("default_user"))
	_, err = s.GetCredential("default_user")
	assert.ErrorIs(t, err, ErrRecordNotFound)

	// Deleting again must still succeed
	require.NoError(t, s.DeleteCredential("default_user"))
}

func TestCreateAndListUploads_NewestFirst(t *testing.T) {
	s := setupTestStore(t)

	first := &models.Upload{
		Title:     "first",
		Status:    models.UploadStatusProcessing,
		CreatedAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, s.CreateUpload(first))

	second := &models.Upload{
		Title:     "second",
		Status:    models.UploadStatusProcessing,
		CreatedAt: time.Now(),
	}
	require.NoError(t, s.CreateUpload(second))

	uploads, err := s.ListUploads()
	require.NoError(t, err)
	require.Len(t, uploads, 2)
	assert.Equal(t, "second", uploads[0].Title)
	assert.Equal(t, "first", uploads[1].Title)
}

func TestUpdateUploadStatus_Success(t *testing.T) {
	s := setupTestStore(t)

	upload := &models.Upload{Title: "video", Status: models.UploadStatusProcessing}
	require.NoError(t, s.CreateUpload(upload))

	updated, err := s.UpdateUploadStatus(upload.ID, models.UploadStatusUpdate{
		Status:          models.UploadStatusSuccess,
		MediaID:         strptr("media-1"),
		MediaKey:        strptr("key-1"),
		PostID:          strptr("post-1"),
		ProcessingState: strptr("succeeded"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.UploadStatusSuccess, updated.Status)
	require.NotNil(t, updated.MediaID)
	assert.Equal(t, "media-1", *updated.MediaID)
	require.NotNil(t, updated.CompletedAt)
}

func TestUpdateUploadStatus_TerminalIsNeverOverwritten(t *testing.T) {
	s := setupTestStore(t)

	upload := &models.Upload{Title: "video", Status: models.UploadStatusProcessing}
	require.NoError(t, s.CreateUpload(upload))

	failed, err := s.UpdateUploadStatus(upload.ID, models.UploadStatusUpdate{
		Status:       models.UploadStatusFailed,
		ErrorMessage: strptr("append failed"),
	})
	require.NoError(t, err)
	require.NotNil(t, failed.CompletedAt)
	completedAt := *failed.CompletedAt

	// A later update from any task must not change the terminal outcome
	_, err = s.UpdateUploadStatus(upload.ID, models.UploadStatusUpdate{
		Status: models.UploadStatusSuccess,
	})
	assert.ErrorIs(t, err, ErrUploadFinalized)

	got, err := s.GetUpload(upload.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UploadStatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "append failed", *got.ErrorMessage)
	require.NotNil(t, got.CompletedAt)
	assert.WithinDuration(t, completedAt, *got.CompletedAt, time.Second)
}

func TestUpdateUploadStatus_MissingUpload(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.UpdateUploadStatus("missing", models.UploadStatusUpdate{
		Status: models.UploadStatusFailed,
	})
	assert.ErrorIs(t, err, ErrRecordNotFound)
}
