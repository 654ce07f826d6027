package deadlinks

import (
	"github.com/monk-time/icm-dead-video-links/config"
	"github.com/monk-time/icm-dead-video-links/hosts"
	"github.com/monk-time/icm-dead-video-links/icm"
	"github.com/monk-time/icm-dead-video-links/storage"
)

// Type aliases for convenient error handling.
type (
	// APIError wraps an unclassifiable YouTube Data API response together
	// with its raw payload.
	APIError = hosts.APIError
	// StorageError wraps errors during report and ledger operations.
	StorageError = storage.StorageError
)

// Sentinel errors exported from sub-packages.
var (
	// ErrUserNotFound indicates the icheckmovies user does not exist.
	ErrUserNotFound = icm.ErrUserNotFound
	// ErrUnexpectedAPIResponse indicates a YouTube Data API payload that
	// fits none of the known status shapes.
	ErrUnexpectedAPIResponse = hosts.ErrUnexpectedAPIResponse
	// ErrMissingAPIKey indicates the Google API key file is absent or empty.
	ErrMissingAPIKey = config.ErrMissingAPIKey

	// Storage errors
	// ErrNotFound indicates the report file does not exist yet.
	ErrNotFound = storage.ErrNotFound
	// ErrCorrupt indicates the report file no longer matches its own
	// declared structure.
	ErrCorrupt = storage.ErrCorrupt
)
