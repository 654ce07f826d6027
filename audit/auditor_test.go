package audit

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/monk-time/icm-dead-video-links/hosts"
	icmhttp "github.com/monk-time/icm-dead-video-links/http"
	"github.com/monk-time/icm-dead-video-links/icm"
	"github.com/monk-time/icm-dead-video-links/storage"
)

// stubChecker serves canned statuses keyed by video id; unknown ids are
// alive.
type stubChecker struct {
	statuses map[string]hosts.Status
}

func (s *stubChecker) Check(_ context.Context, _ *hosts.Host, videoID string) (hosts.Status, error) {
	if st, ok := s.statuses[videoID]; ok {
		return st, nil
	}
	return hosts.Status{Code: hosts.Ok}, nil
}

func commentHTML(comments ...[2]string) string {
	var b strings.Builder
	b.WriteString("<html><body><ul>\n")
	for _, c := range comments {
		fmt.Fprintf(&b, `<li class="comment">
  <div class="span-18"><span>%s</span></div>
  <div class="link"><a href="%s">movie</a></div>
</li>
`, c[1], c[0])
	}
	b.WriteString("</ul></body></html>")
	return b.String()
}

type fixture struct {
	auditor  *Auditor
	icm      *icm.Client
	report   *storage.Report
	ledger   *storage.Ledger
	requests *atomic.Int32
}

func newFixture(t *testing.T, pages map[string]string, dead map[string]hosts.Status) *fixture {
	t.Helper()

	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		user := r.URL.Query().Get("user")
		page, ok := pages[user]
		if !ok {
			page = "<html><body></body></html>"
		}
		fmt.Fprint(w, page)
	}))
	t.Cleanup(server.Close)

	httpCfg := icmhttp.DefaultConfig()
	httpCfg.RequestsPerSecond = 0
	httpClient, err := icmhttp.New(httpCfg)
	if err != nil {
		t.Fatalf("http.New() error = %v", err)
	}

	log := zap.NewNop()
	icmClient := icm.NewClient(httpClient, server.URL, log)
	registry := hosts.NewRegistry(&hosts.Host{
		Name:      "vimeo",
		IDPattern: regexp.MustCompile(`vimeo\.com/(\d+)`),
		WatchURL:  "https://vimeo.com/%s",
		Checker:   &stubChecker{statuses: dead},
	})

	dir := t.TempDir()
	report := storage.NewReport(filepath.Join(dir, "result.md"))
	ledger, err := storage.OpenLedger(filepath.Join(dir, "checked_users.txt"))
	if err != nil {
		t.Fatalf("OpenLedger() error = %v", err)
	}
	t.Cleanup(func() { ledger.Close() })

	return &fixture{
		auditor:  NewAuditor(log, icmClient, registry, report, ledger),
		icm:      icmClient,
		report:   report,
		ledger:   ledger,
		requests: &requests,
	}
}

func TestAuditUserFindsDeadLinks(t *testing.T) {
	pages := map[string]string{
		"bob": commentHTML(
			[2]string{"/movies/halloween/", "alive https://vimeo.com/1"},
			[2]string{"/movies/alien/", "dead https://vimeo.com/2"},
			[2]string{"/movies/jaws/", "private https://vimeo.com/3"},
		),
	}
	dead := map[string]hosts.Status{
		"2": {Code: hosts.NotFound},
		"3": {Code: hosts.Private},
	}
	f := newFixture(t, pages, dead)

	entries, err := f.auditor.AuditUser(t.Context(), "bob", 1, 1)
	if err != nil {
		t.Fatalf("AuditUser() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("AuditUser() found %d dead links, want 2", len(entries))
	}

	if entries[0].VideoURL != "https://vimeo.com/2" {
		t.Errorf("first entry url = %q", entries[0].VideoURL)
	}
	if entries[0].Detail != "" {
		t.Errorf("NotFound entry detail = %q, want empty", entries[0].Detail)
	}
	if entries[1].Detail != "private" {
		t.Errorf("private entry detail = %q, want private", entries[1].Detail)
	}
	if entries[1].Movie != "/movies/jaws/" {
		t.Errorf("entry movie = %q, want /movies/jaws/", entries[1].Movie)
	}
	if !strings.HasSuffix(entries[1].MovieURL, "/movies/jaws/comments/") {
		t.Errorf("entry movie url = %q", entries[1].MovieURL)
	}
}

func TestAuditUserNoCommentsFetchesNothingMore(t *testing.T) {
	f := newFixture(t, nil, nil)

	entries, err := f.auditor.AuditUser(t.Context(), "empty", 1, 0)
	if err != nil {
		t.Fatalf("AuditUser() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("AuditUser() = %d entries, want 0", len(entries))
	}
	// Only the page-count fetch; zero pages means no page fetches.
	if n := f.requests.Load(); n != 1 {
		t.Errorf("server saw %d requests, want 1", n)
	}
}

func TestBatchAuditWritesReportAndLedger(t *testing.T) {
	pages := map[string]string{
		"alice": commentHTML(
			[2]string{"/movies/halloween/", "alive https://vimeo.com/1"},
		),
		"bob": commentHTML(
			[2]string{"/movies/alien/", "dead https://vimeo.com/2"},
			[2]string{"/movies/jaws/", "dead https://vimeo.com/3"},
		),
	}
	dead := map[string]hosts.Status{
		"2": {Code: hosts.NotFound},
		"3": {Code: hosts.RegionRestricted, Detail: "blocked everywhere"},
	}
	f := newFixture(t, pages, dead)

	if err := f.auditor.BatchAudit(t.Context(), []string{"alice", "bob"}, 1, false); err != nil {
		t.Fatalf("BatchAudit() error = %v", err)
	}

	data, err := os.ReadFile(f.report.Path())
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	content := string(data)

	// Clean users leave no block behind; bob gets one with his count.
	if strings.Contains(content, "[alice]") {
		t.Error("report should have no block for a clean user")
	}
	if !strings.Contains(content, "## [bob](") || !strings.Contains(content, ") (2)\n") {
		t.Errorf("report missing bob's block with count 2:\n%s", content)
	}
	if !strings.Contains(content, "**(blocked everywhere)**") {
		t.Errorf("report missing detail label:\n%s", content)
	}

	// Both users are done, dead links or not.
	if !f.ledger.Contains("alice") || !f.ledger.Contains("bob") {
		t.Error("ledger should contain both audited users")
	}
}

func TestBatchAuditSkipsLedgeredUsers(t *testing.T) {
	f := newFixture(t, nil, nil)
	if err := f.ledger.Append("alice"); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if err := f.auditor.BatchAudit(t.Context(), []string{"alice"}, 1, false); err != nil {
		t.Fatalf("BatchAudit() error = %v", err)
	}
	if n := f.requests.Load(); n != 0 {
		t.Errorf("server saw %d requests for an already checked user, want 0", n)
	}
}

func TestBatchAuditIgnoreLedger(t *testing.T) {
	pages := map[string]string{
		"alice": commentHTML([2]string{"/movies/halloween/", "no links"}),
	}
	f := newFixture(t, pages, nil)
	if err := f.ledger.Append("alice"); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if err := f.auditor.BatchAudit(t.Context(), []string{"alice"}, 1, true); err != nil {
		t.Fatalf("BatchAudit() error = %v", err)
	}
	if n := f.requests.Load(); n == 0 {
		t.Error("ignoreLedger should re-check the user")
	}
}

func TestBatchAuditInterruptMidUserIsNotRecorded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pagedHTML := `<html><body><ul>
<li class="comment">
  <div class="span-18"><span>dead https://vimeo.com/2</span></div>
  <div class="link"><a href="/movies/alien/">movie</a></div>
</li>
</ul>
<ul class="pages">
  <li><a href="?page=1">1</a></li>
  <li><a href="?page=3">3</a></li>
</ul>
</body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The interrupt lands while page 2 of 3 is being served.
		if r.URL.Query().Get("page") == "2" {
			cancel()
		}
		fmt.Fprint(w, pagedHTML)
	}))
	t.Cleanup(server.Close)

	httpCfg := icmhttp.DefaultConfig()
	httpCfg.RequestsPerSecond = 0
	httpClient, err := icmhttp.New(httpCfg)
	if err != nil {
		t.Fatalf("http.New() error = %v", err)
	}

	log := zap.NewNop()
	icmClient := icm.NewClient(httpClient, server.URL, log)
	registry := hosts.NewRegistry(&hosts.Host{
		Name:      "vimeo",
		IDPattern: regexp.MustCompile(`vimeo\.com/(\d+)`),
		WatchURL:  "https://vimeo.com/%s",
		Checker:   &stubChecker{statuses: map[string]hosts.Status{"2": {Code: hosts.NotFound}}},
	})

	dir := t.TempDir()
	report := storage.NewReport(filepath.Join(dir, "result.md"))
	ledger, err := storage.OpenLedger(filepath.Join(dir, "checked_users.txt"))
	if err != nil {
		t.Fatalf("OpenLedger() error = %v", err)
	}
	t.Cleanup(func() { ledger.Close() })

	auditor := NewAuditor(log, icmClient, registry, report, ledger)
	if err := auditor.BatchAudit(ctx, []string{"bob"}, 1, false); err == nil {
		t.Fatal("BatchAudit() interrupted mid-user should return an error")
	}

	// An interrupted user must stay resumable: no ledger line, no
	// partial block.
	if ledger.Contains("bob") {
		t.Error("ledger contains bob after an interrupt mid-user")
	}
	if _, err := os.Stat(report.Path()); !os.IsNotExist(err) {
		t.Error("report should have no partial block for an interrupted user")
	}
}

func TestBatchAuditStopsOnCancel(t *testing.T) {
	pages := map[string]string{
		"alice": commentHTML([2]string{"/movies/halloween/", "no links"}),
	}
	f := newFixture(t, pages, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := f.auditor.BatchAudit(ctx, []string{"alice", "bob"}, 1, false); err == nil {
		t.Fatal("BatchAudit() with canceled context should fail")
	}
	if n := f.requests.Load(); n != 0 {
		t.Errorf("server saw %d requests after cancel, want 0", n)
	}
}
