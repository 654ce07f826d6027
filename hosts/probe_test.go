package hosts

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	icmhttp "github.com/monk-time/icm-dead-video-links/http"
)

func newProbeClient(t *testing.T) *icmhttp.Client {
	t.Helper()
	cfg := icmhttp.DefaultConfig()
	cfg.RequestsPerSecond = 0 // no throttling in tests
	client, err := icmhttp.New(cfg)
	if err != nil {
		t.Fatalf("http.New() error = %v", err)
	}
	return client
}

func probeHost(serverURL string) *Host {
	return &Host{
		Name:      "vimeo",
		IDPattern: regexp.MustCompile(`vimeo\.com/(\d+)`),
		WatchURL:  serverURL + "/%s",
	}
}

func TestProbeCheckerAlive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("probe used %s, want HEAD", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	probe := NewProbeChecker(newProbeClient(t))
	status, err := probe.Check(t.Context(), probeHost(server.URL), "12345")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if status.Code != Ok {
		t.Errorf("Check() = %v, want Ok", status.Code)
	}
}

func TestProbeCheckerGone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	probe := NewProbeChecker(newProbeClient(t))
	status, err := probe.Check(t.Context(), probeHost(server.URL), "12345")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if status.Code != NotFound {
		t.Errorf("Check() = %v, want NotFound", status.Code)
	}
	if status.Label() != "" {
		t.Errorf("NotFound label = %q, want empty", status.Label())
	}
}

func TestProbeCheckerFollowsRedirects(t *testing.T) {
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer final.Close()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final.URL, http.StatusFound)
	}))
	defer server.Close()

	probe := NewProbeChecker(newProbeClient(t))
	status, err := probe.Check(t.Context(), probeHost(server.URL), "12345")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if status.Code != Ok {
		t.Errorf("Check() = %v, want Ok after redirect", status.Code)
	}
}

func TestProbeCheckerTransportFailure(t *testing.T) {
	probe := NewProbeChecker(newProbeClient(t))
	h := probeHost("http://127.0.0.1:1")

	status, err := probe.Check(t.Context(), h, "12345")
	if err == nil {
		t.Fatal("Check() against a closed port should fail")
	}
	if status.Code != CheckError {
		t.Errorf("Check() = %v, want CheckError", status.Code)
	}
	if status.Label() == "" {
		t.Error("CheckError label should not be empty")
	}
}

func TestProbeCheckerProxyNotConfigured(t *testing.T) {
	probe := NewProbeChecker(newProbeClient(t))
	h := probeHost("http://example.invalid")
	h.UseProxy = true

	if _, err := probe.Check(t.Context(), h, "12345"); err == nil {
		t.Fatal("Check() with UseProxy but no proxy configured should fail")
	}
}
