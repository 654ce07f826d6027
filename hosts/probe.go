package hosts

import (
	"context"
	"net/http"

	icmhttp "github.com/monk-time/icm-dead-video-links/http"
)

// ProbeChecker checks video availability with a HEAD request against the
// canonical watch URL, redirects followed. It is used by every host that
// has no richer status API: HTTP 200 means alive, anything else means the
// video is gone. No retries at this layer; a transport failure surfaces
// as an error for the caller to record.
type ProbeChecker struct {
	client *icmhttp.Client
}

// NewProbeChecker creates a probe checker over the shared HTTP client.
func NewProbeChecker(client *icmhttp.Client) *ProbeChecker {
	return &ProbeChecker{client: client}
}

// Check implements Checker.
func (p *ProbeChecker) Check(ctx context.Context, h *Host, videoID string) (Status, error) {
	resp, err := p.client.Head(ctx, h.VideoURL(videoID), h.UseProxy)
	if err != nil {
		return Status{Code: CheckError, Detail: err.Error()}, err
	}
	if resp.StatusCode == http.StatusOK {
		return Status{Code: Ok}, nil
	}
	return Status{Code: NotFound}, nil
}
