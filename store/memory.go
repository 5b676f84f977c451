package store

import (
	"context"
	"sort"
	"sync"

	"github.com/readboostid/readboost-server/models"
)

// In-memory implementations of both adapters. They back the test suite and
// double as a degraded single-process mode when neither backend is
// configured. ReadErr/WriteErr inject failures so reconciliation fallback
// paths can be exercised deterministically.

// MemoryLocal is a map-backed Local store.
type MemoryLocal struct {
	mu   sync.RWMutex
	rows map[string]models.UserProgress

	ReadErr  error
	WriteErr error
	Writes   int
}

// NewMemoryLocal creates an empty in-memory local store.
func NewMemoryLocal() *MemoryLocal {
	return &MemoryLocal{rows: make(map[string]models.UserProgress)}
}

func (m *MemoryLocal) GetProgress(ctx context.Context, userID string) (*models.UserProgress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	p, ok := m.rows[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemoryLocal) PutProgress(ctx context.Context, p *models.UserProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.Writes++
	m.rows[p.UserID] = *p
	return nil
}

func (m *MemoryLocal) UpdateField(ctx context.Context, userID, field string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	p, ok := m.rows[userID]
	if !ok {
		return ErrNotFound
	}
	m.Writes++
	switch field {
	case "username":
		p.Username, _ = value.(string)
	case "totalXP":
		p.TotalXP = toInt(value)
	case "streakDays":
		p.StreakDays = toInt(value)
	case "dailyTarget":
		p.DailyTarget = toInt(value)
	case "dailyXPEarned":
		p.DailyXPEarned = toInt(value)
	case "dailyReadingMinutes":
		p.DailyReadingMinutes = toInt(value)
	}
	m.rows[userID] = p
	return nil
}

func (m *MemoryLocal) TopByXP(ctx context.Context, limit int) ([]models.UserProgress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	rows := make([]models.UserProgress, 0, len(m.rows))
	for _, p := range m.rows {
		rows = append(rows, p)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].TotalXP > rows[j].TotalXP })
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// MemoryRemote is a map-backed Remote store.
type MemoryRemote struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any

	ReadErr  error
	WriteErr error
	Writes   int
}

// NewMemoryRemote creates an empty in-memory remote store.
func NewMemoryRemote() *MemoryRemote {
	return &MemoryRemote{collections: make(map[string]map[string]map[string]any)}
}

func (m *MemoryRemote) GetDocument(ctx context.Context, collection, id string) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	doc, ok := m.collections[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyDoc(doc), nil
}

func (m *MemoryRemote) SetDocument(ctx context.Context, collection, id string, doc map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.Writes++
	if m.collections[collection] == nil {
		m.collections[collection] = make(map[string]map[string]any)
	}
	m.collections[collection][id] = copyDoc(doc)
	return nil
}

func (m *MemoryRemote) UpdateFields(ctx context.Context, collection, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	doc, ok := m.collections[collection][id]
	if !ok {
		return ErrNotFound
	}
	m.Writes++
	for k, v := range fields {
		doc[k] = v
	}
	return nil
}

func (m *MemoryRemote) RunTransaction(ctx context.Context, collection, id string, fn func(doc map[string]any) map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	var current map[string]any
	if doc, ok := m.collections[collection][id]; ok {
		current = copyDoc(doc)
	}
	next := fn(current)
	if next == nil {
		return nil
	}
	m.Writes++
	if m.collections[collection] == nil {
		m.collections[collection] = make(map[string]map[string]any)
	}
	m.collections[collection][id] = copyDoc(next)
	return nil
}

func (m *MemoryRemote) Query(ctx context.Context, collection, orderBy string, limit int) ([]map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	docs := make([]map[string]any, 0, len(m.collections[collection]))
	for _, doc := range m.collections[collection] {
		docs = append(docs, copyDoc(doc))
	}
	sort.Slice(docs, func(i, j int) bool {
		return models.DocInt64(docs[i], orderBy) > models.DocInt64(docs[j], orderBy)
	})
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

func copyDoc(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
