package http

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiterWait(t *testing.T) {
	rl := NewRateLimiter(10.0) // 10 req/s = 100ms per request
	ctx := context.Background()
	url := "https://www.icheckmovies.com/profiles/comments/"

	// First request should not wait
	start := time.Now()
	if err := rl.Wait(ctx, url); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Logf("First request took %v (expected ~0ms)", elapsed)
	}

	// Second request should wait ~100ms
	start = time.Now()
	if err := rl.Wait(ctx, url); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Logf("Second request took %v (expected ~100ms)", elapsed)
	}
}

func TestRateLimiterContextCanceled(t *testing.T) {
	rl := NewRateLimiter(1.0)
	ctx, cancel := context.WithCancel(context.Background())
	url := "https://www.icheckmovies.com/"

	if err := rl.Wait(ctx, url); err != nil {
		t.Fatalf("First Wait failed: %v", err)
	}

	cancel()

	if err := rl.Wait(ctx, url); err == nil {
		t.Fatal("Expected context canceled error")
	}
}

func TestRateLimiterIndependentDomains(t *testing.T) {
	rl := NewRateLimiter(1.0) // slow enough that a shared bucket would block
	ctx := context.Background()

	// A probe against a video host must not wait behind the site crawl.
	start := time.Now()
	if err := rl.Wait(ctx, "https://www.icheckmovies.com/profiles/"); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if err := rl.Wait(ctx, "https://vimeo.com/12345"); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("cross-domain requests took %v, buckets are not independent", elapsed)
	}
}

func TestRateLimiterUnlimited(t *testing.T) {
	rl := NewRateLimiter(0)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		if err := rl.Wait(ctx, "https://vimeo.com/1"); err != nil {
			t.Fatalf("Wait failed on iteration %d: %v", i, err)
		}
	}
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		url    string
		domain string
	}{
		{"https://www.icheckmovies.com/profiles/comments/?user=x", "www.icheckmovies.com"},
		{"https://vimeo.com:443/12345", "vimeo.com"},
		{"http://video.google.com/videoplay?docid=-1", "video.google.com"},
		{"not a url", "unknown"},
	}

	for _, tt := range tests {
		if got := extractDomain(tt.url); got != tt.domain {
			t.Errorf("extractDomain(%q) = %q, want %q", tt.url, got, tt.domain)
		}
	}
}
