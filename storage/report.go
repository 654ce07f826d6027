package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Entry is one dead link written into a report block.
type Entry struct {
	// Host is the video host name, e.g. "youtube".
	Host string
	// VideoID is the extracted video id.
	VideoID string
	// VideoURL is the canonical watch URL.
	VideoURL string
	// Detail is the explanatory label; empty for videos that simply no
	// longer exist.
	Detail string
	// Movie is the site-relative movie path the comment was attached to.
	Movie string
	// MovieURL is the full URL of the movie's comment listing.
	MovieURL string
}

// Report is the markdown report file: a sequence of per-user blocks, each
// self-describing its own entry count for integrity checking.
type Report struct {
	path string
}

// NewReport creates a handle for the report file at path. The file itself
// is created lazily on the first appended block.
func NewReport(path string) *Report {
	return &Report{path: path}
}

// Path returns the report file path.
func (r *Report) Path() string { return r.path }

// CSVPath returns the tabular export path derived from the report path.
func (r *Report) CSVPath() string {
	return strings.TrimSuffix(r.path, filepath.Ext(r.path)) + ".csv"
}

// AppendBlock appends one user's block to the report. It is a no-op for
// zero entries: a clean user produces no section, and the absence of a
// block means "checked, nothing dead". The block is built in memory and
// written with a single flushed write so an interrupt cannot leave a
// half-written block behind.
func (r *Report) AppendBlock(user, userURL string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## [%s](%s) (%d)\n", user, userURL, len(entries))
	for _, e := range entries {
		detail := ""
		if e.Detail != "" {
			detail = fmt.Sprintf("**(%s)** ", sanitizeDetail(e.Detail))
		}
		fmt.Fprintf(&b, "- [%s:%s](%s) %son [%s](%s)\n",
			e.Host, e.VideoID, e.VideoURL, detail, e.Movie, e.MovieURL)
	}

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return &StorageError{Op: "append", Entity: "report", ID: user, Err: err}
	}
	defer f.Close()

	if _, err := f.WriteString(b.String()); err != nil {
		return &StorageError{Op: "append", Entity: "report", ID: user, Err: err}
	}
	if err := f.Sync(); err != nil {
		return &StorageError{Op: "append", Entity: "report", ID: user, Err: err}
	}
	return nil
}

// sanitizeDetail keeps a detail string on one line so the block grammar
// stays parseable.
func sanitizeDetail(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// read loads the report file, mapping a missing file to ErrNotFound so
// callers can tell "never audited anything" from a real read failure.
func (r *Report) read() (string, error) {
	content, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", err
	}
	return string(content), nil
}

var (
	blockHeaderRe = regexp.MustCompile(`^## \[(?P<author>.+?)]\((?P<author_url>.+?)\) \((?P<count>\d+)\)$`)
	blockRowRe    = regexp.MustCompile(`^- \[(?P<host>\w+):.+?]\((?P<video_url>.+?)\)(?: \*\*\((?P<detail>.+)\)\*\*)? on .+\((?P<comment_url>.+)\)$`)
	blockSplitRe  = regexp.MustCompile(`(?m)^## `)
)

// block is one parsed report block.
type block struct {
	text   string // full block text including trailing newline
	author string
	count  int // declared dead-link count from the header
	rows   []row
}

// row is one parsed dead-link line.
type row struct {
	host       string
	videoURL   string
	detail     string
	commentURL string
}

// parseBlocks splits report content into validated blocks. A block whose
// declared count disagrees with its entry lines is a fatal parse error,
// not a silent skip: partial output would be misleading.
func (r *Report) parseBlocks(content string) ([]block, error) {
	var blocks []block
	for _, part := range blockSplitRe.Split(content, -1) {
		if strings.TrimSpace(part) == "" {
			continue
		}
		text := "## " + part
		b, err := r.parseBlock(text)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

func (r *Report) parseBlock(text string) (block, error) {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")

	header := blockHeaderRe.FindStringSubmatch(lines[0])
	if header == nil {
		return block{}, &StorageError{Op: "parse", Entity: "block", ID: lines[0], Err: ErrCorrupt}
	}
	author := header[1]
	count, err := strconv.Atoi(header[3])
	if err != nil {
		return block{}, &StorageError{Op: "parse", Entity: "block", ID: author, Err: ErrCorrupt}
	}

	var rows []row
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := blockRowRe.FindStringSubmatch(line)
		if m == nil {
			return block{}, &StorageError{
				Op: "parse", Entity: "block", ID: author,
				Err: fmt.Errorf("%w: unparseable line %q", ErrCorrupt, line),
			}
		}
		rows = append(rows, row{host: m[1], videoURL: m[2], detail: m[3], commentURL: m[4]})
	}

	if len(rows) != count {
		return block{}, &StorageError{
			Op: "parse", Entity: "block", ID: author,
			Err: fmt.Errorf("%w: header declares %d links, found %d", ErrCorrupt, count, len(rows)),
		}
	}

	return block{text: text, author: author, count: count, rows: rows}, nil
}

// Resort rewrites the report with blocks ordered by descending declared
// dead-link count; ties are broken by the block text itself so the result
// is deterministic and resorting is idempotent. Returns the total number
// of dead links across all blocks.
func (r *Report) Resort() (int, error) {
	content, err := r.read()
	if err != nil {
		return 0, &StorageError{Op: "resort", Entity: "report", ID: r.path, Err: err}
	}

	blocks, err := r.parseBlocks(content)
	if err != nil {
		return 0, err
	}

	sort.Slice(blocks, func(i, j int) bool {
		if blocks[i].count != blocks[j].count {
			return blocks[i].count > blocks[j].count
		}
		return blocks[i].text < blocks[j].text
	})

	w, err := NewAtomicWriter(r.path)
	if err != nil {
		return 0, &StorageError{Op: "resort", Entity: "report", ID: r.path, Err: err}
	}
	total := 0
	for _, b := range blocks {
		total += b.count
		if _, err := w.Write([]byte(b.text)); err != nil {
			w.Abort()
			return 0, &StorageError{Op: "resort", Entity: "report", ID: r.path, Err: err}
		}
	}
	if err := w.Commit(); err != nil {
		return 0, &StorageError{Op: "resort", Entity: "report", ID: r.path, Err: err}
	}
	return total, nil
}

// ExportCSV parses every block into flat rows and writes them to the
// derived .csv path with columns author, comment_url, host, video_url,
// blocked. The blocked column is filled only for the region-restriction
// status family. Returns the number of exported rows, which always equals
// the sum of declared per-block counts; any disagreement aborts the
// export instead of producing a truncated file.
func (r *Report) ExportCSV() (int, error) {
	content, err := r.read()
	if err != nil {
		return 0, &StorageError{Op: "export", Entity: "report", ID: r.path, Err: err}
	}

	blocks, err := r.parseBlocks(content)
	if err != nil {
		return 0, err
	}

	w, err := NewAtomicWriter(r.CSVPath())
	if err != nil {
		return 0, &StorageError{Op: "export", Entity: "report", ID: r.CSVPath(), Err: err}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"author", "comment_url", "host", "video_url", "blocked"}); err != nil {
		w.Abort()
		return 0, &StorageError{Op: "export", Entity: "report", Err: err}
	}

	total := 0
	for _, b := range blocks {
		for _, row := range b.rows {
			blocked := ""
			if isRegionDetail(row.detail) {
				blocked = row.detail
			}
			if err := cw.Write([]string{b.author, row.commentURL, row.host, row.videoURL, blocked}); err != nil {
				w.Abort()
				return 0, &StorageError{Op: "export", Entity: "report", ID: b.author, Err: err}
			}
			total++
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		w.Abort()
		return 0, &StorageError{Op: "export", Entity: "report", Err: err}
	}
	if err := w.Commit(); err != nil {
		return 0, &StorageError{Op: "export", Entity: "report", Err: err}
	}
	return total, nil
}

// isRegionDetail reports whether a detail string belongs to the
// region-restriction status family.
func isRegionDetail(detail string) bool {
	return detail == "blocked everywhere" ||
		strings.HasPrefix(detail, "allowed only in") ||
		strings.HasPrefix(detail, "blocked in")
}
