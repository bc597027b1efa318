package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-xpost/xpost/internal/metrics"
	"github.com/go-xpost/xpost/internal/models"
	"github.com/go-xpost/xpost/internal/retry"
	"github.com/go-xpost/xpost/internal/store"
	"github.com/go-xpost/xpost/internal/xapi"
)

const (
	defaultTitle     = "Untitled Video"
	defaultPostText  = "Check out this video!"
	titleDescJoiner  = " - "
	genericFailText  = "Upload failed"
	reauth401Message = "Unauthorized. Please reconnect your X account."
	reauth403Message = "Access forbidden. Your X account token may be invalid or expired. " +
		"Please reconnect your account."
)

// SubmitRequest is one video submission. Data holds the whole payload;
// the upload protocol slices it into ordered segments.
type SubmitRequest struct {
	Title       string
	Description string
	Data        []byte
	MimeType    string
}

// UploadService orchestrates submissions: it validates the credential,
// persists a processing record, and schedules the upload-then-publish
// sequence as a supervised background task.
type UploadService struct {
	store   *store.Store
	x       *xapi.Client
	runner  *Runner
	metrics metrics.Recorder

	publishMaxRetries int
	publishBaseDelay  time.Duration
}

func NewUploadService(
	s *store.Store,
	x *xapi.Client,
	runner *Runner,
	m metrics.Recorder,
	publishMaxRetries int,
	publishBaseDelay time.Duration,
) *UploadService {
	if m == nil {
		m = metrics.NewNoopMetrics()
	}
	return &UploadService{
		store:             s,
		x:                 x,
		runner:            runner,
		metrics:           m,
		publishMaxRetries: publishMaxRetries,
		publishBaseDelay:  publishBaseDelay,
	}
}

// Submit validates the stored credential, creates the upload record in
// processing state, and schedules the background work. It returns the
// record synchronously; the outcome is observable only via the record.
func (s *UploadService) Submit(req SubmitRequest) (*models.Upload, *Task, error) {
	cred, err := s.store.GetCredential(DefaultUserID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, nil, ErrNotConnected
		}
		return nil, nil, err
	}
	if cred.IsExpired() {
		log.Printf("[Upload] Access token expired at %v, re-auth required", cred.ExpiresAt)
		return nil, nil, ErrTokenExpired
	}

	title := req.Title
	if title == "" {
		title = defaultTitle
	}
	upload := &models.Upload{
		Title:    title,
		Status:   models.UploadStatusProcessing,
		FileSize: int64(len(req.Data)),
		MimeType: req.MimeType,
	}
	if req.Description != "" {
		desc := req.Description
		upload.Description = &desc
	}
	if err := s.store.CreateUpload(upload); err != nil {
		return nil, nil, fmt.Errorf("failed to create upload record: %w", err)
	}

	s.metrics.RecordUploadSubmitted()

	// Post text comes from the raw request fields, not the defaulted
	// title: an untitled, undescribed video gets the stock text.
	text := buildPostText(req.Title, req.Description)
	accessToken := cred.AccessToken
	data := req.Data
	mimeType := req.MimeType
	id := upload.ID

	task, err := s.runner.Go("upload "+id, func(ctx context.Context) error {
		return s.process(ctx, id, accessToken, data, mimeType, text)
	})
	if err != nil {
		s.recordFailure(id, time.Time{}, err)
		return nil, nil, err
	}

	return upload, task, nil
}

// Get returns a single upload record.
func (s *UploadService) Get(id string) (*models.Upload, error) {
	return s.store.GetUpload(id)
}

// List returns all upload records, newest first.
func (s *UploadService) List() ([]models.Upload, error) {
	return s.store.ListUploads()
}

// process runs the three-phase media upload followed by the retried
// publish, then writes exactly one terminal status. Errors never escape:
// every failure becomes a failed record.
func (s *UploadService) process(
	ctx context.Context,
	id string,
	accessToken string,
	data []byte,
	mimeType string,
	text string,
) error {
	started := time.Now()

	result, err := s.x.UploadMedia(ctx, data, mimeType, accessToken)
	if err != nil {
		log.Printf("[Upload] Media upload failed for upload=%s: %v", id, err)
		s.recordFailure(id, started, err)
		return err
	}

	log.Printf("[Upload] Media upload completed upload=%s mediaId=%s state=%s",
		id, result.MediaID, result.ProcessingState)

	// Interim write: media identifiers are preserved even if the publish
	// step later fails.
	_, err = s.store.UpdateUploadStatus(id, models.UploadStatusUpdate{
		Status:          models.UploadStatusProcessing,
		MediaID:         &result.MediaID,
		MediaKey:        &result.MediaKey,
		ProcessingState: &result.ProcessingState,
	})
	if err != nil {
		log.Printf("[Upload] Failed to record media identifiers for upload=%s: %v", id, err)
	}

	post, err := s.publish(ctx, accessToken, result.MediaID, text)
	if err != nil {
		log.Printf("[Upload] Publish exhausted retries for upload=%s: %v", id, err)
		s.recordFailure(id, started, err)
		return err
	}

	_, err = s.store.UpdateUploadStatus(id, models.UploadStatusUpdate{
		Status:          models.UploadStatusSuccess,
		MediaID:         &result.MediaID,
		MediaKey:        &result.MediaKey,
		ProcessingState: &result.ProcessingState,
		PostID:          &post.ID,
	})
	if err != nil {
		log.Printf("[Upload] Failed to record success for upload=%s: %v", id, err)
		return err
	}

	s.metrics.RecordUploadCompleted(models.UploadStatusSuccess, time.Since(started))
	log.Printf("[Upload] Completed upload=%s mediaId=%s postId=%s", id, result.MediaID, post.ID)
	return nil
}

// publish runs the completion call under the linear-backoff retry
// schedule. Retries are unconditional; the media-processing signature is
// only logged as the likely cause.
func (s *UploadService) publish(
	ctx context.Context,
	accessToken, mediaID, text string,
) (*xapi.Post, error) {
	var post *xapi.Post

	runner := retry.NewRunner(
		retry.WithMaxRetries(s.publishMaxRetries),
		retry.WithBaseDelay(s.publishBaseDelay),
		retry.WithOnRetry(func(attempt int, delay time.Duration, err error) {
			s.metrics.RecordPublishRetry()
			if xapi.IsMediaProcessingError(err) {
				log.Printf("[Upload] Media still processing, retrying publish in %v (attempt %d)",
					delay, attempt)
				return
			}
			log.Printf("[Upload] Publish failed, retrying in %v (attempt %d): %v",
				delay, attempt, err)
		}),
	)

	err := runner.Do(ctx, func(ctx context.Context) error {
		p, err := s.x.CreatePost(ctx, accessToken, text, mediaID)
		s.metrics.RecordPublishAttempt(err == nil)
		if err != nil {
			return err
		}
		post = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

// recordFailure writes the terminal failed status with a user-facing
// message. Authorization rejections are rewritten to a reconnect hint,
// then upstream detail is preferred over the raw error text.
func (s *UploadService) recordFailure(id string, started time.Time, cause error) {
	message := failureMessage(cause)
	_, err := s.store.UpdateUploadStatus(id, models.UploadStatusUpdate{
		Status:       models.UploadStatusFailed,
		ErrorMessage: &message,
	})
	if err != nil {
		log.Printf("[Upload] Failed to record failure for upload=%s: %v", id, err)
		return
	}
	if !started.IsZero() {
		s.metrics.RecordUploadCompleted(models.UploadStatusFailed, time.Since(started))
	}
}

func failureMessage(err error) string {
	if apiErr, ok := xapi.AsAPIError(err); ok {
		switch apiErr.StatusCode {
		case 403:
			return reauth403Message
		case 401:
			return reauth401Message
		}
		if msg := apiErr.Message(); msg != "" {
			return msg
		}
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return genericFailText
}

func buildPostText(title, description string) string {
	parts := make([]string, 0, 2)
	for _, p := range []string{title, description} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	text := strings.TrimSpace(strings.Join(parts, titleDescJoiner))
	if text == "" {
		return defaultPostText
	}
	return text
}
