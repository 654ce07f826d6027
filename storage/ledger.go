package storage

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Ledger is the append-only set of usernames already audited. It is used
// to skip redundant work across runs. Each Append is flushed to disk
// before returning, so an external interrupt can lose at most the
// in-flight user's record.
type Ledger struct {
	path string
	file *os.File
	seen map[string]struct{}
}

// OpenLedger loads the ledger file (creating it if absent) and keeps it
// open for appending.
func OpenLedger(path string) (*Ledger, error) {
	seen := make(map[string]struct{})

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, &StorageError{Op: "open", Entity: "ledger", ID: path, Err: err}
	}
	if err == nil {
		scanner := bufio.NewScanner(strings.NewReader(string(data)))
		for scanner.Scan() {
			user := strings.TrimSpace(scanner.Text())
			if user != "" {
				seen[user] = struct{}{}
			}
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, &StorageError{Op: "open", Entity: "ledger", ID: path, Err: err}
	}

	return &Ledger{path: path, file: file, seen: seen}, nil
}

// Contains reports whether a user was already audited.
func (l *Ledger) Contains(user string) bool {
	_, ok := l.seen[user]
	return ok
}

// Filter returns the users not yet present in the ledger, preserving order.
func (l *Ledger) Filter(users []string) []string {
	var unchecked []string
	for _, u := range users {
		if !l.Contains(u) {
			unchecked = append(unchecked, u)
		}
	}
	return unchecked
}

// Append records a user as audited and flushes the line to disk.
func (l *Ledger) Append(user string) error {
	if _, err := fmt.Fprintln(l.file, user); err != nil {
		return &StorageError{Op: "append", Entity: "ledger", ID: user, Err: err}
	}
	if err := l.file.Sync(); err != nil {
		return &StorageError{Op: "append", Entity: "ledger", ID: user, Err: err}
	}
	l.seen[user] = struct{}{}
	return nil
}

// Close closes the underlying file.
func (l *Ledger) Close() error {
	return l.file.Close()
}
