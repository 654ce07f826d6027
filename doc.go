// Package deadlinks finds dead video links in user comments on
// icheckmovies.com.
//
// Comments there often embed links to YouTube, Vimeo, Dailymotion or the
// defunct Google Video; over the years many of those videos were removed,
// made private or blocked. This module crawls a user's comment pages,
// extracts every recognizable video link and checks whether the video is
// still watchable, then records the dead ones in a markdown report.
//
// Quick Start
//
// The tool is normally used through the deadlinks command:
//
//	deadlinks someuser               # check one user's comments
//	deadlinks batch -top 25          # check the 25 most active commenters
//	deadlinks sort                   # reorder the report by dead-link count
//	deadlinks export                 # export the report to CSV
//
// Configuration
//
// Settings load from multiple sources, highest priority first:
//
//   1. ICMDEAD_* environment variables (a .env file is honored)
//   2. Config file (deadlinks.json or ~/.config/deadlinks/deadlinks.json)
//   3. Built-in defaults
//
// A Google API key with YouTube Data API access must be present in the
// configured key file; without it the tool refuses to start.
//
// Error Handling
//
// Operations return errors that work with errors.Is and errors.As:
//
//	if errors.Is(err, deadlinks.ErrUserNotFound) {
//		fmt.Println("no such user")
//	}
//
//	var apiErr *deadlinks.APIError
//	if errors.As(err, &apiErr) {
//		fmt.Printf("unexpected API payload for %s: %s\n", apiErr.VideoID, apiErr.Raw)
//	}
//
// Packages
//
// For direct use, the sub-packages are:
//
//   - icm: icheckmovies client (comment pages, commenter charts)
//   - hosts: video host registry, link extraction and liveness checks
//   - storage: the markdown report, the checked-users ledger, CSV export
//   - audit: the auditor that ties crawling and checking together
//   - config: configuration management
package deadlinks
