package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/readboostid/readboost-server/models"
	"github.com/readboostid/readboost-server/store"
)

const sessionsCollection = "reading_sessions"

// ErrSessionClosed is returned when a write targets a session that has
// already ended. Closed sessions are terminal; their accumulated time must
// never change again.
var ErrSessionClosed = errors.New("reading session already ended")

// ErrSessionNotFound is returned when the session id is unknown to the
// remote store.
var ErrSessionNotFound = errors.New("reading session not found")

// SessionTracker records reading attempts as append-only documents in the
// remote store. It is independent of progress state; its accumulated active
// time feeds the XP computation on completion.
type SessionTracker struct {
	remote store.Remote
	clock  Clock
	log    *zap.SugaredLogger
}

// NewSessionTracker creates the session tracker.
func NewSessionTracker(remote store.Remote, clock Clock, log *zap.SugaredLogger) *SessionTracker {
	return &SessionTracker{remote: remote, clock: clock, log: log}
}

// Start opens a session and returns its id. The id is derived from user,
// article and start instant so retries of the same attempt collide while
// separate attempts never do. The initial write is best-effort: the reader
// keeps reading even when the session record could not be stored.
func (t *SessionTracker) Start(ctx context.Context, userID string, articleID uint) string {
	now := t.clock.Now()
	id := fmt.Sprintf("%s_%d_%d", userID, articleID, now.UnixMilli())

	session := models.ReadingSession{
		SessionID:      id,
		UserID:         userID,
		ArticleID:      articleID,
		StartTime:      now.UnixMilli(),
		LastActiveTime: now.UnixMilli(),
		IsActive:       true,
	}
	if err := t.remote.SetDocument(ctx, sessionsCollection, id, session.Document()); err != nil {
		t.log.Warnf("start session failed session=%s err=%v", id, err)
	}
	return id
}

// Accumulate adds active reading time to an open session. The increment runs
// as a remote read-modify-write transaction so rapid heartbeat ticks from the
// client cannot lose updates. Returns ErrSessionClosed for ended sessions and
// ErrSessionNotFound for unknown ids.
func (t *SessionTracker) Accumulate(ctx context.Context, sessionID string, increment time.Duration) error {
	if increment <= 0 {
		return nil
	}

	var missing, closed bool
	err := t.remote.RunTransaction(ctx, sessionsCollection, sessionID, func(doc map[string]any) map[string]any {
		if doc == nil {
			missing = true
			return nil
		}
		if !models.DocBool(doc, "isActive") {
			closed = true
			return nil
		}
		doc["totalActiveTime"] = models.DocInt64(doc, "totalActiveTime") + increment.Milliseconds()
		doc["lastActiveTime"] = t.clock.Now().UnixMilli()
		return doc
	})
	if err != nil {
		return fmt.Errorf("accumulate session %s: %w", sessionID, err)
	}
	if missing {
		return ErrSessionNotFound
	}
	if closed {
		return ErrSessionClosed
	}
	return nil
}

// End closes a session with its final XP award. Ending twice is rejected the
// same way late accumulation is.
func (t *SessionTracker) End(ctx context.Context, sessionID string, xpEarned int) error {
	var missing, closed bool
	err := t.remote.RunTransaction(ctx, sessionsCollection, sessionID, func(doc map[string]any) map[string]any {
		if doc == nil {
			missing = true
			return nil
		}
		if !models.DocBool(doc, "isActive") {
			closed = true
			return nil
		}
		doc["isActive"] = false
		doc["endTime"] = t.clock.Now().UnixMilli()
		doc["xpEarned"] = xpEarned
		return doc
	})
	if err != nil {
		return fmt.Errorf("end session %s: %w", sessionID, err)
	}
	if missing {
		return ErrSessionNotFound
	}
	if closed {
		return ErrSessionClosed
	}
	return nil
}

// Get loads a session record, mostly for tests and admin inspection.
func (t *SessionTracker) Get(ctx context.Context, sessionID string) (*models.ReadingSession, error) {
	doc, err := t.remote.GetDocument(ctx, sessionsCollection, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	s := models.SessionFromDocument(sessionID, doc)
	return &s, nil
}
