package hosts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// ErrUnexpectedAPIResponse indicates the YouTube Data API returned a shape
// the decision tree cannot place. It is never silently coerced to Ok.
var ErrUnexpectedAPIResponse = errors.New("youtube: unexpected api response")

// APIError wraps an unexpected YouTube API response together with the raw
// payload for offline diagnosis.
type APIError struct {
	// VideoID is the id whose classification failed.
	VideoID string
	// Raw is the response body as returned by the API.
	Raw json.RawMessage
	// Err is the underlying error.
	Err error
}

// Error returns a string representation including the raw payload.
func (e *APIError) Error() string {
	return fmt.Sprintf("youtube: classify %s: %v: %s", e.VideoID, e.Err, e.Raw)
}

// Unwrap returns the underlying error for use with errors.Is().
func (e *APIError) Unwrap() error { return e.Err }

// YouTubeChecker checks video availability via YouTube Data API v3.
// Unlike a plain HEAD probe it can tell why a video is unavailable:
// private, removed, or blocked by region restrictions.
type YouTubeChecker struct {
	service *youtube.Service
	// totalRegions is the number of officially assignable ISO 3166-1
	// alpha-2 codes; a block-list of this exact length blocks everywhere.
	totalRegions int
}

// NewYouTubeChecker creates a checker backed by YouTube Data API v3.
func NewYouTubeChecker(ctx context.Context, apiKey string, totalRegions int) (*YouTubeChecker, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key required")
	}

	service, err := youtube.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}

	return &YouTubeChecker{service: service, totalRegions: totalRegions}, nil
}

// Check implements Checker. Transport failures are not retried here; they
// propagate so the caller can decide whether to retry the whole crawl.
func (c *YouTubeChecker) Check(ctx context.Context, h *Host, videoID string) (Status, error) {
	call := c.service.Videos.List([]string{"status", "contentDetails"}).
		Id(videoID).
		Fields("items(status,contentDetails/regionRestriction)").
		Context(ctx)

	resp, err := call.Do()
	if err != nil {
		return Status{Code: CheckError, Detail: err.Error()}, fmt.Errorf("youtube: check %s: %w", videoID, err)
	}

	status, err := ClassifyVideo(resp.Items, c.totalRegions)
	if err != nil {
		raw, _ := json.Marshal(resp)
		apiErr := &APIError{VideoID: videoID, Raw: raw, Err: err}
		return Status{Code: CheckError, Detail: apiErr.Error()}, apiErr
	}
	return status, nil
}

// ClassifyVideo interprets a videos.list response for a single id into a
// liveness status. It is deterministic and side-effect-free; the branching
// order matters: a video that is simultaneously private and region
// restricted must report as private.
func ClassifyVideo(items []*youtube.Video, totalRegions int) (Status, error) {
	if len(items) == 0 {
		return Status{Code: NotFound}, nil
	}

	video := items[0]
	if video.Status == nil {
		return Status{}, ErrUnexpectedAPIResponse
	}

	// privacyStatus can also be: public, unlisted
	if video.Status.PrivacyStatus == "private" {
		return Status{Code: Private}, nil
	}
	// uploadStatus can also be: deleted, failed (to upload),
	// rejected (by YT), uploaded (and private?)
	if video.Status.UploadStatus != "processed" {
		return Status{Code: Removed}, nil
	}

	// The video may be available but show a content warning.
	// Example: https://www.youtube.com/watch?v=sVm7Cqm9Z5c
	if video.ContentDetails == nil || video.ContentDetails.RegionRestriction == nil {
		return Status{Code: Ok}, nil
	}
	region := video.ContentDetails.RegionRestriction

	if region.Allowed != nil {
		if len(region.Allowed) == 0 {
			return Status{Code: BlockedEverywhere}, nil
		}
		// A minimal allow-list still means it plays somewhere.
		return Status{Code: Ok}, nil
	}

	if region.Blocked != nil {
		if len(region.Blocked) == totalRegions {
			return Status{Code: BlockedEverywhere}, nil
		}
		return Status{Code: Ok}, nil
	}

	// Restriction object present but neither list populated.
	return Status{}, ErrUnexpectedAPIResponse
}
