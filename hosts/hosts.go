// Package hosts knows the supported video-hosting providers: how to
// recognize their video ids inside free text and how to check whether a
// video is still playable.
package hosts

import (
	"context"
	"fmt"
	"regexp"
)

// Checker decides whether a specific hosted video is still playable.
// Implementations must not retry on their own; a transport failure is
// returned to the caller as an error.
type Checker interface {
	Check(ctx context.Context, h *Host, videoID string) (Status, error)
}

// Host describes one video-hosting provider.
// Hosts are built once at startup and never mutated afterwards.
type Host struct {
	// Name is the unique key of the host, e.g. "youtube".
	Name string
	// IDPattern recognizes embedded video ids inside arbitrary text.
	// It must have exactly one capture group per match, restrictive
	// enough not to absorb trailing text.
	IDPattern *regexp.Regexp
	// WatchURL is the canonical watch URL template with one %s verb.
	WatchURL string
	// UseProxy routes probes through the alternate egress because direct
	// probes of this host are unreliable from the operating environment.
	UseProxy bool
	// Checker is the liveness-check strategy for this host.
	Checker Checker
}

// VideoURL returns the canonical playable URL for a video id.
func (h *Host) VideoURL(videoID string) string {
	return fmt.Sprintf(h.WatchURL, videoID)
}

// Check runs the host's liveness-check strategy for a video id.
func (h *Host) Check(ctx context.Context, videoID string) (Status, error) {
	return h.Checker.Check(ctx, h, videoID)
}

// Match is one video link recognized inside a block of text.
type Match struct {
	Host    *Host
	VideoID string
}

// Registry is the immutable, ordered table of supported hosts.
type Registry struct {
	hosts  []*Host
	byName map[string]*Host
}

// NewRegistry builds a registry from the given hosts, preserving order.
func NewRegistry(hosts ...*Host) *Registry {
	byName := make(map[string]*Host, len(hosts))
	for _, h := range hosts {
		byName[h.Name] = h
	}
	return &Registry{hosts: hosts, byName: byName}
}

// Lookup returns the host with the given name.
func (r *Registry) Lookup(name string) (*Host, bool) {
	h, ok := r.byName[name]
	return h, ok
}

// All returns the hosts in registration order.
func (r *Registry) All() []*Host {
	return r.hosts
}

// Extract finds every recognizable video link in a block of text, in
// registry order. Empty text yields no matches. Repeated identical links
// are repeated in the output; classification is idempotent per id, so
// duplicates are safe, merely wasteful.
func (r *Registry) Extract(text string) []Match {
	if text == "" {
		return nil
	}
	var matches []Match
	for _, h := range r.hosts {
		for _, m := range h.IDPattern.FindAllStringSubmatch(text, -1) {
			matches = append(matches, Match{Host: h, VideoID: m[1]})
		}
	}
	return matches
}

// youtubeIDPattern matches every historical YouTube URL shape seen in the
// site's comments: youtu.be short links, /v/, /vi/, /e/ and /embed/ paths,
// legacy user-profile-relative "#p" paths, and ?v=/&vi= query forms.
var youtubeIDPattern = regexp.MustCompile(
	`(?:youtu\.be/|youtube\.com/(?:(?:vi?|(?:user/)?\w+#p/(?:\w+/)?\w+/\d+|e|embed)/|(?:[\w?=]+)?[?&]vi?=))([-_a-zA-Z0-9]{11,12})`)

// DefaultHosts returns the hand-maintained host table. YouTube gets the
// rich-status API checker; the rest are probed with a HEAD request.
func DefaultHosts(probe *ProbeChecker, yt *YouTubeChecker) []*Host {
	return []*Host{
		{
			Name:      "youtube",
			IDPattern: youtubeIDPattern,
			WatchURL:  "https://www.youtube.com/watch?v=%s",
			Checker:   yt,
		},
		{
			Name:      "vimeo",
			IDPattern: regexp.MustCompile(`vimeo\.com/(\d+)`),
			WatchURL:  "https://vimeo.com/%s",
			Checker:   probe,
		},
		{
			Name:      "dailymotion",
			IDPattern: regexp.MustCompile(`dailymotion\.com/video/([^"\s]+)`),
			WatchURL:  "https://www.dailymotion.com/video/%s",
			UseProxy:  true,
			Checker:   probe,
		},
		{
			Name:      "googlevideo",
			IDPattern: regexp.MustCompile(`video\.google\.com/videoplay\?.*?docid=([-0-9]+)`),
			WatchURL:  "http://video.google.com/videoplay?docid=%s",
			Checker:   probe,
		},
	}
}
