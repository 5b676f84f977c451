package models

// ReadingSession is an append-only record of one reading attempt, stored only
// in the remote store. It is created active, grows TotalActiveTime through
// transactional increments while the reader is on the page, and becomes
// terminal once ended; closed sessions accept no further writes.
type ReadingSession struct {
	SessionID       string `json:"session_id"`
	UserID          string `json:"user_id"`
	ArticleID       uint   `json:"article_id"`
	StartTime       int64  `json:"start_time"`
	EndTime         int64  `json:"end_time,omitempty"`
	LastActiveTime  int64  `json:"last_active_time"`
	TotalActiveTime int64  `json:"total_active_time"`
	XPEarned        int    `json:"xp_earned"`
	IsActive        bool   `json:"is_active"`
}

// Document encodes the session as a remote store document.
func (s ReadingSession) Document() map[string]any {
	return map[string]any{
		"sessionId":       s.SessionID,
		"userId":          s.UserID,
		"articleId":       int64(s.ArticleID),
		"startTime":       s.StartTime,
		"endTime":         s.EndTime,
		"lastActiveTime":  s.LastActiveTime,
		"totalActiveTime": s.TotalActiveTime,
		"xpEarned":        s.XPEarned,
		"isActive":        s.IsActive,
	}
}

// SessionFromDocument decodes a remote session document.
func SessionFromDocument(id string, doc map[string]any) ReadingSession {
	return ReadingSession{
		SessionID:       id,
		UserID:          DocString(doc, "userId"),
		ArticleID:       uint(DocInt64(doc, "articleId")),
		StartTime:       DocInt64(doc, "startTime"),
		EndTime:         DocInt64(doc, "endTime"),
		LastActiveTime:  DocInt64(doc, "lastActiveTime"),
		TotalActiveTime: DocInt64(doc, "totalActiveTime"),
		XPEarned:        DocInt(doc, "xpEarned"),
		IsActive:        DocBool(doc, "isActive"),
	}
}
