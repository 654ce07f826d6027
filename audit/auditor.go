// Package audit drives the whole check: it walks a user's comments,
// extracts video links, classifies each one and records the dead ones.
package audit

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/monk-time/icm-dead-video-links/hosts"
	"github.com/monk-time/icm-dead-video-links/icm"
	"github.com/monk-time/icm-dead-video-links/storage"
)

// Auditor audits users one at a time. A user is the unit of progress:
// their report block and ledger line are written together, so an
// interrupted batch can resume without repeating finished users.
type Auditor struct {
	log      *zap.Logger
	icm      *icm.Client
	registry *hosts.Registry
	report   *storage.Report
	ledger   *storage.Ledger
}

func NewAuditor(log *zap.Logger, icmClient *icm.Client, registry *hosts.Registry, report *storage.Report, ledger *storage.Ledger) *Auditor {
	return &Auditor{
		log:      log,
		icm:      icmClient,
		registry: registry,
		report:   report,
		ledger:   ledger,
	}
}

// AuditUser checks every video link in one user's comment pages and
// returns the dead ones. Pages run from `from` to `to` inclusive; a
// zero `to` means "up to the user's last page". A user that cannot be
// found (or whose page count cannot be fetched) yields no entries.
func (a *Auditor) AuditUser(ctx context.Context, user string, from, to int) ([]storage.Entry, error) {
	log := a.log.With(zap.String("user", user))

	if to == 0 {
		n, err := a.icm.PageCount(ctx, user)
		if err != nil {
			if errors.Is(err, icm.ErrUserNotFound) {
				log.Warn("user not found, skipping")
				return nil, nil
			}
			log.Error("failed to get page count", zap.Error(err))
			return nil, nil
		}
		if n == 0 {
			log.Info("user has no comments")
			return nil, nil
		}
		to = n
	}

	var entries []storage.Entry
	for comment := range a.icm.Range(ctx, user, from, to) {
		if err := ctx.Err(); err != nil {
			return entries, err
		}
		for _, m := range a.registry.Extract(comment.Text) {
			status, err := m.Host.Check(ctx, m.VideoID)
			if err != nil {
				log.Error("check failed",
					zap.String("host", m.Host.Name),
					zap.String("video_id", m.VideoID),
					zap.Error(err))
			}
			if !status.Dead() {
				log.Debug("video is alive",
					zap.String("host", m.Host.Name),
					zap.String("video_id", m.VideoID))
				continue
			}
			log.Warn("dead video link",
				zap.String("host", m.Host.Name),
				zap.String("video_id", m.VideoID),
				zap.String("status", status.Code.String()),
				zap.String("movie", comment.Movie))
			entries = append(entries, storage.Entry{
				Host:     m.Host.Name,
				VideoID:  m.VideoID,
				VideoURL: m.Host.VideoURL(m.VideoID),
				Detail:   status.Label(),
				Movie:    comment.Movie,
				MovieURL: a.icm.MovieCommentsURL(comment.Movie),
			})
		}
	}
	// The iterator stops quietly when the context is canceled mid-crawl;
	// the caller must see the interrupt, or a half-audited user would be
	// recorded as done.
	if err := ctx.Err(); err != nil {
		return entries, err
	}
	return entries, nil
}

// BatchAudit audits a list of users, skipping those already in the
// ledger unless ignoreLedger is set. Each finished user is appended to
// the report and the ledger before the next one starts, so an
// interrupt loses at most the user in flight.
func (a *Auditor) BatchAudit(ctx context.Context, users []string, from int, ignoreLedger bool) error {
	log := a.log.With(zap.String("run", uuid.NewString()))

	if !ignoreLedger {
		before := len(users)
		users = a.ledger.Filter(users)
		if skipped := before - len(users); skipped > 0 {
			log.Info("skipping already checked users", zap.Int("count", skipped))
		}
	}
	log.Info("starting batch", zap.Int("users", len(users)))

	for _, user := range users {
		if err := ctx.Err(); err != nil {
			return err
		}
		entries, err := a.AuditUser(ctx, user, from, 0)
		if err != nil {
			return err
		}
		if err := a.report.AppendBlock(user, a.icm.UserCommentsURL(user), entries); err != nil {
			return err
		}
		if !ignoreLedger {
			if err := a.ledger.Append(user); err != nil {
				return err
			}
		}
		log.Info("user done", zap.String("user", user), zap.Int("dead_links", len(entries)))
	}
	return nil
}
