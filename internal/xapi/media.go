package xapi

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"time"
)

// ChunkSize is the fixed APPEND segment size. The final segment holds the
// remainder, or a full chunk when the payload divides evenly.
const ChunkSize = 2 * 1024 * 1024 // 2MB

// mediaCategory tells the X API how the media will be used.
const mediaCategory = "tweet_video"

// defaultProcessingState is reported when FINALIZE omits processing
// metadata, which the API does for media that needs no further processing.
const defaultProcessingState = "succeeded"

// MediaUploadResult is the outcome of a completed three-phase upload.
type MediaUploadResult struct {
	MediaID         string
	MediaKey        string
	ProcessingState string
}

type mediaInitRequest struct {
	MediaType     string `json:"media_type"`
	TotalBytes    int    `json:"total_bytes"`
	MediaCategory string `json:"media_category"`
}

type mediaInitResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

type mediaAppendRequest struct {
	SegmentIndex int    `json:"segment_index"`
	Media        string `json:"media"`
}

type mediaFinalizeResponse struct {
	Data struct {
		ID             string `json:"id"`
		MediaKey       string `json:"media_key"`
		ProcessingInfo *struct {
			State          string `json:"state"`
			CheckAfterSecs int    `json:"check_after_secs"`
		} `json:"processing_info"`
	} `json:"data"`
}

// UploadMedia transfers the buffer to the X media endpoint using the
// INIT -> APPEND -> FINALIZE protocol. Segments are uploaded strictly in
// ascending order; the append endpoint is order-sensitive, so segment i+1
// is never sent before segment i's call has returned.
func (c *Client) UploadMedia(
	ctx context.Context,
	media []byte,
	mimeType string,
	accessToken string,
) (*MediaUploadResult, error) {
	totalBytes := len(media)

	// INIT: reserve an upload slot
	start := time.Now()
	var initResp mediaInitResponse
	err := c.postJSON(ctx, "/media/upload/initialize", accessToken, mediaInitRequest{
		MediaType:     mimeType,
		TotalBytes:    totalBytes,
		MediaCategory: mediaCategory,
	}, &initResp)
	c.metrics.RecordUploadPhase("init", err == nil && initResp.Data.ID != "", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitFailed, err)
	}

	mediaID := initResp.Data.ID
	if mediaID == "" {
		return nil, fmt.Errorf("%w: response contained no media ID", ErrInitFailed)
	}
	log.Printf("[xapi] INIT ok: media_id=%s total_bytes=%d type=%s", mediaID, totalBytes, mimeType)

	// APPEND: upload fixed-size segments in order
	segments := 0
	for offset := 0; offset < totalBytes; offset += ChunkSize {
		end := offset + ChunkSize
		if end > totalBytes {
			end = totalBytes
		}
		chunk := media[offset:end]

		start = time.Now()
		err := c.postJSON(
			ctx,
			fmt.Sprintf("/media/upload/%s/append", mediaID),
			accessToken,
			mediaAppendRequest{
				SegmentIndex: segments,
				Media:        base64.StdEncoding.EncodeToString(chunk),
			},
			nil,
		)
		c.metrics.RecordUploadPhase("append", err == nil, time.Since(start))
		if err != nil {
			return nil, fmt.Errorf("%w: segment %d: %w", ErrAppendFailed, segments, err)
		}

		log.Printf("[xapi] APPEND ok: media_id=%s segment=%d size=%d", mediaID, segments, len(chunk))
		segments++
	}
	c.metrics.RecordUploadSegments(segments)

	// FINALIZE: commit the upload
	start = time.Now()
	var finResp mediaFinalizeResponse
	err = c.postJSON(
		ctx,
		fmt.Sprintf("/media/upload/%s/finalize", mediaID),
		accessToken,
		struct{}{},
		&finResp,
	)
	c.metrics.RecordUploadPhase("finalize", err == nil, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFinalizeFailed, err)
	}

	processingState := defaultProcessingState
	if finResp.Data.ProcessingInfo != nil && finResp.Data.ProcessingInfo.State != "" {
		processingState = finResp.Data.ProcessingInfo.State
	}
	log.Printf(
		"[xapi] FINALIZE ok: media_id=%s media_key=%s state=%s",
		mediaID, finResp.Data.MediaKey, processingState,
	)

	return &MediaUploadResult{
		MediaID:         mediaID,
		MediaKey:        finResp.Data.MediaKey,
		ProcessingState: processingState,
	}, nil
}

// SegmentCount returns the number of APPEND calls needed for a payload of
// the given length: ceil(length / ChunkSize).
func SegmentCount(length int) int {
	if length <= 0 {
		return 0
	}
	return (length + ChunkSize - 1) / ChunkSize
}
