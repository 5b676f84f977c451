package models

// LeaderboardEntry is a denormalized ranking view derived from the remote
// leaderboard documents, or from the local progress table when the remote
// store is unreachable. Rank is 1-based by descending TotalXP.
type LeaderboardEntry struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	TotalXP     int    `json:"total_xp"`
	Rank        int    `json:"rank"`
	LastUpdated int64  `json:"last_updated,omitempty"`
}

// EntryFromDocument decodes one leaderboard document.
func EntryFromDocument(doc map[string]any, rank int) LeaderboardEntry {
	username := DocString(doc, "username")
	if username == "" {
		username = "Unknown"
	}
	return LeaderboardEntry{
		UserID:      DocString(doc, "userId"),
		Username:    username,
		TotalXP:     DocInt(doc, "totalXP"),
		Rank:        rank,
		LastUpdated: DocInt64(doc, "lastUpdated"),
	}
}
