package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-xpost/xpost/internal/models"
	"github.com/go-xpost/xpost/internal/store"
	"github.com/go-xpost/xpost/internal/xapi"
)

// fakeXServer fakes the media upload and post creation endpoints.
type fakeXServer struct {
	srv *httptest.Server

	appendCalls  int32
	publishCalls int32

	omitMediaID     bool
	publishStatus   int    // non-zero makes /tweets fail with this status
	publishDetail   string // detail carried by the publish failure
	publishFailures int32  // fail this many publish attempts, then succeed

	lastPostText string
}

func newFakeXServer(t *testing.T) *fakeXServer {
	f := &fakeXServer{}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /media/upload/initialize", func(w http.ResponseWriter, r *http.Request) {
		if f.omitMediaID {
			fmt.Fprint(w, `{"data":{}}`)
			return
		}
		fmt.Fprint(w, `{"data":{"id":"media-1"}}`)
	})
	mux.HandleFunc("POST /media/upload/media-1/append", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.appendCalls, 1)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /media/upload/media-1/finalize", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"id":"media-1","media_key":"key-1","processing_info":{"state":"succeeded"}}}`)
	})
	mux.HandleFunc("POST /tweets", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&f.publishCalls, 1)
		if f.publishStatus != 0 && n <= f.publishFailures {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.publishStatus)
			fmt.Fprintf(w, `{"title":"error","detail":%q,"status":%d}`, f.publishDetail, f.publishStatus)
			return
		}
		var body struct {
			Text string `json:"text"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.lastPostText = body.Text
		fmt.Fprint(w, `{"data":{"id":"post-1","text":"posted"}}`)
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func newUploadTestService(t *testing.T, f *fakeXServer) (*UploadService, *store.Store) {
	s, err := store.New("sqlite", ":memory:")
	require.NoError(t, err)

	client := xapi.NewClient(f.srv.Client(), f.srv.URL, nil)
	runner := NewRunner(4, nil)
	t.Cleanup(func() {
		_ = runner.Shutdown(context.Background())
	})

	// Millisecond backoff keeps the retry schedule exercised without
	// slowing the suite.
	return NewUploadService(s, client, runner, nil, 3, time.Millisecond), s
}

func connectAccount(t *testing.T, s *store.Store, expiresAt *time.Time) {
	_, err := s.UpsertCredential(&models.Credential{
		UserID:      DefaultUserID,
		AccessToken: "at-1",
		Username:    "alice",
		ExpiresAt:   expiresAt,
	})
	require.NoError(t, err)
}

func waitTask(t *testing.T, task *Task) {
	select {
	case <-task.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("background task did not finish")
	}
}

func TestUploadService_SubmitSuccess(t *testing.T) {
	f := newFakeXServer(t)
	svc, s := newUploadTestService(t, f)
	future := time.Now().Add(time.Hour)
	connectAccount(t, s, &future)

	upload, task, err := svc.Submit(SubmitRequest{
		Title:       "My clip",
		Description: "behind the scenes",
		Data:        make([]byte, 1024),
		MimeType:    "video/mp4",
	})
	require.NoError(t, err)
	assert.Equal(t, models.UploadStatusProcessing, upload.Status)
	assert.Equal(t, int64(1024), upload.FileSize)

	waitTask(t, task)
	require.NoError(t, task.Err())

	final, err := s.GetUpload(upload.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UploadStatusSuccess, final.Status)
	require.NotNil(t, final.MediaID)
	assert.Equal(t, "media-1", *final.MediaID)
	require.NotNil(t, final.MediaKey)
	assert.Equal(t, "key-1", *final.MediaKey)
	require.NotNil(t, final.PostID)
	assert.Equal(t, "post-1", *final.PostID)
	require.NotNil(t, final.CompletedAt)

	assert.Equal(t, "My clip - behind the scenes", f.lastPostText)
}

func TestUploadService_NotConnected(t *testing.T) {
	f := newFakeXServer(t)
	svc, _ := newUploadTestService(t, f)

	_, _, err := svc.Submit(SubmitRequest{Data: []byte("x"), MimeType: "video/mp4"})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestUploadService_ExpiredTokenAtBoundary(t *testing.T) {
	f := newFakeXServer(t)
	svc, s := newUploadTestService(t, f)

	// Expiry equal to now is already expired.
	now := time.Now()
	connectAccount(t, s, &now)

	_, _, err := svc.Submit(SubmitRequest{Data: []byte("x"), MimeType: "video/mp4"})
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestUploadService_NoExpiryNeverExpires(t *testing.T) {
	f := newFakeXServer(t)
	svc, s := newUploadTestService(t, f)
	connectAccount(t, s, nil)

	_, task, err := svc.Submit(SubmitRequest{Data: []byte("x"), MimeType: "video/mp4"})
	require.NoError(t, err)
	waitTask(t, task)
	require.NoError(t, task.Err())
}

func TestUploadService_MissingMediaIDFailsWithoutAppend(t *testing.T) {
	f := newFakeXServer(t)
	f.omitMediaID = true
	svc, s := newUploadTestService(t, f)
	future := time.Now().Add(time.Hour)
	connectAccount(t, s, &future)

	upload, task, err := svc.Submit(SubmitRequest{
		Title:    "broken",
		Data:     make([]byte, 64),
		MimeType: "video/mp4",
	})
	require.NoError(t, err)
	waitTask(t, task)
	require.Error(t, task.Err())

	final, err := s.GetUpload(upload.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UploadStatusFailed, final.Status)
	require.NotNil(t, final.ErrorMessage)
	assert.NotEmpty(t, *final.ErrorMessage)
	require.NotNil(t, final.CompletedAt)

	assert.Zero(t, atomic.LoadInt32(&f.appendCalls), "no APPEND after a bad INIT")
	assert.Zero(t, atomic.LoadInt32(&f.publishCalls))
}

func TestUploadService_PublishExhaustionRecordsDetail(t *testing.T) {
	f := newFakeXServer(t)
	f.publishStatus = http.StatusBadRequest
	f.publishDetail = "Media is still processing"
	f.publishFailures = 100 // never recovers
	svc, s := newUploadTestService(t, f)
	future := time.Now().Add(time.Hour)
	connectAccount(t, s, &future)

	upload, task, err := svc.Submit(SubmitRequest{
		Title:    "stuck",
		Data:     make([]byte, 64),
		MimeType: "video/mp4",
	})
	require.NoError(t, err)
	waitTask(t, task)
	require.Error(t, task.Err())

	// maxRetries=3 means 4 total attempts.
	assert.Equal(t, int32(4), atomic.LoadInt32(&f.publishCalls))

	final, err := s.GetUpload(upload.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UploadStatusFailed, final.Status)
	require.NotNil(t, final.ErrorMessage)
	assert.Equal(t, "Media is still processing", *final.ErrorMessage)

	// Media identifiers from the interim write survive the failure.
	require.NotNil(t, final.MediaID)
	assert.Equal(t, "media-1", *final.MediaID)
}

func TestUploadService_PublishRecoversMidSchedule(t *testing.T) {
	f := newFakeXServer(t)
	f.publishStatus = http.StatusServiceUnavailable
	f.publishDetail = "over capacity"
	f.publishFailures = 2
	svc, s := newUploadTestService(t, f)
	future := time.Now().Add(time.Hour)
	connectAccount(t, s, &future)

	upload, task, err := svc.Submit(SubmitRequest{
		Title:    "eventually",
		Data:     make([]byte, 64),
		MimeType: "video/mp4",
	})
	require.NoError(t, err)
	waitTask(t, task)
	require.NoError(t, task.Err())

	assert.Equal(t, int32(3), atomic.LoadInt32(&f.publishCalls))

	final, err := s.GetUpload(upload.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UploadStatusSuccess, final.Status)
}

func TestUploadService_ForbiddenRewrittenToReconnectHint(t *testing.T) {
	f := newFakeXServer(t)
	f.publishStatus = http.StatusForbidden
	f.publishDetail = "client-not-enrolled"
	f.publishFailures = 100
	svc, s := newUploadTestService(t, f)
	future := time.Now().Add(time.Hour)
	connectAccount(t, s, &future)

	upload, task, err := svc.Submit(SubmitRequest{
		Data:     make([]byte, 64),
		MimeType: "video/mp4",
	})
	require.NoError(t, err)
	waitTask(t, task)

	final, err := s.GetUpload(upload.ID)
	require.NoError(t, err)
	require.NotNil(t, final.ErrorMessage)
	assert.Equal(t, reauth403Message, *final.ErrorMessage)
}

func TestUploadService_DefaultsTitleAndText(t *testing.T) {
	f := newFakeXServer(t)
	svc, s := newUploadTestService(t, f)
	future := time.Now().Add(time.Hour)
	connectAccount(t, s, &future)

	upload, task, err := svc.Submit(SubmitRequest{
		Data:     make([]byte, 64),
		MimeType: "video/mp4",
	})
	require.NoError(t, err)
	assert.Equal(t, "Untitled Video", upload.Title)

	waitTask(t, task)
	require.NoError(t, task.Err())
	assert.Equal(t, "Check out this video!", f.lastPostText)
}

func TestBuildPostText(t *testing.T) {
	tests := []struct {
		name        string
		title, desc string
		want        string
	}{
		{"both", "Title", "Desc", "Title - Desc"},
		{"title only", "Title", "", "Title"},
		{"description only", "", "Desc", "Desc"},
		{"neither", "", "", "Check out this video!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildPostText(tt.title, tt.desc))
		})
	}
}
