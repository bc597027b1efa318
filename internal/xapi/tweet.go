package xapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Post is the created post returned by the publish endpoint.
type Post struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type createPostRequest struct {
	Text  string `json:"text"`
	Media struct {
		MediaIDs []string `json:"media_ids"`
	} `json:"media"`
}

type createPostResponse struct {
	Data Post `json:"data"`
}

// CreatePost publishes a post referencing previously uploaded media.
// A single attempt; the completion executor owns the retry schedule.
func (c *Client) CreatePost(
	ctx context.Context,
	accessToken string,
	text string,
	mediaID string,
) (*Post, error) {
	req := createPostRequest{Text: text}
	req.Media.MediaIDs = []string{mediaID}

	var resp createPostResponse
	if err := c.postJSON(ctx, "/tweets", accessToken, req, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return &resp.Data, nil
}

// IsMediaProcessingError reports whether err looks like the "media still
// processing" rejection: a 400 whose detail mentions the media. Used for
// logging only; the publish retry policy is unconditional.
func IsMediaProcessingError(err error) bool {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return false
	}
	return apiErr.StatusCode == http.StatusBadRequest &&
		strings.Contains(strings.ToLower(apiErr.Detail), "media")
}
