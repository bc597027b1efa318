package xapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-xpost/xpost/internal/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePost(t *testing.T) {
	var got createPostRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/tweets", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"data":{"id":"post-1","text":"my video"}}`)
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), srv.URL, metrics.NewNoopMetrics())

	post, err := client.CreatePost(t.Context(), "test-token", "my video", "media-123")
	require.NoError(t, err)

	assert.Equal(t, "post-1", post.ID)
	assert.Equal(t, "my video", got.Text)
	assert.Equal(t, []string{"media-123"}, got.Media.MediaIDs)
}

func TestCreatePost_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"title":"Bad Request","detail":"media id is still processing","status":400}`)
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), srv.URL, metrics.NewNoopMetrics())

	_, err := client.CreatePost(t.Context(), "test-token", "my video", "media-123")
	require.ErrorIs(t, err, ErrPublishFailed)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "media id is still processing", apiErr.Message())
	assert.True(t, IsMediaProcessingError(err))
}

func TestIsMediaProcessingError(t *testing.T) {
	assert.False(t, IsMediaProcessingError(errors.New("network down")))
	assert.False(t, IsMediaProcessingError(&APIError{StatusCode: 500, Detail: "media broke"}))
	assert.False(t, IsMediaProcessingError(&APIError{StatusCode: 400, Detail: "bad text"}))
	assert.True(t, IsMediaProcessingError(&APIError{StatusCode: 400, Detail: "media not ready"}))
	assert.True(t, IsMediaProcessingError(
		fmt.Errorf("%w: %w", ErrPublishFailed, &APIError{StatusCode: 400, Detail: "Media is processing"}),
	))
}
