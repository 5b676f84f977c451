package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/readboostid/readboost-server/middleware"
	"github.com/readboostid/readboost-server/models"
	"github.com/readboostid/readboost-server/services"
	"github.com/readboostid/readboost-server/store"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Setenv("JWT_SECRET", "test-secret")
	os.Setenv("ADMIN_USERNAMES", "admin")
	os.Exit(m.Run())
}

type testEnv struct {
	db      *gorm.DB
	local   *store.MemoryLocal
	remote  *store.MemoryRemote
	manager *services.HybridManager
	boards  *services.LeaderboardService
	tracker *services.SessionTracker
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Article{}, &models.UserProgress{}))

	local := store.NewMemoryLocal()
	remote := store.NewMemoryRemote()
	log := zap.NewNop().Sugar()
	clock := services.SystemClock()
	boards := services.NewLeaderboardService(remote, local, clock, log)
	tracker := services.NewSessionTracker(remote, clock, log)
	manager := services.NewHybridManager(local, remote, boards, tracker, clock, time.Second, log)

	return &testEnv{db: db, local: local, remote: remote, manager: manager, boards: boards, tracker: tracker}
}

// identity injects an authenticated user the way AuthRequired would.
func identity(externalID, username string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Set(middleware.ContextUserIDKey, uint(1))
		ctx.Set(middleware.ContextExternalIDKey, externalID)
		ctx.Set(middleware.ContextUsernameKey, username)
		ctx.Next()
	}
}

func doJSON(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestProgressEndpoints(t *testing.T) {
	env := newTestEnv(t)
	c := NewProgressController(env.db, env.manager)

	r := gin.New()
	auth := r.Group("", identity("ext-1", "budi"))
	auth.GET("/progress", c.GetProgress)
	auth.PUT("/progress/target", c.UpdateTarget)
	auth.POST("/progress/complete", c.CompleteArticle)

	// fresh users get a synthesized default
	w := doJSON(r, http.MethodGet, "/progress", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Progress models.UserProgress `json:"progress"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &got))
	assert.Equal(t, "ext-1", got.Progress.UserID)
	assert.Equal(t, 5, got.Progress.DailyTarget)

	// invalid target rejected
	w = doJSON(r, http.MethodPut, "/progress/target", gin.H{"minutes": -5})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPut, "/progress/target", gin.H{"minutes": 20})
	require.Equal(t, http.StatusOK, w.Code)

	// completion computes XP server side
	article := models.Article{Title: "Go Concurrency", Content: "...", Category: "teknologi", XP: 10, ReadingTimeMinutes: 8}
	require.NoError(t, env.db.Create(&article).Error)

	w = doJSON(r, http.MethodPost, "/progress/complete", gin.H{
		"article_id":          article.ID,
		"active_time_seconds": 600,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var completion struct {
		XPEarned int                 `json:"xp_earned"`
		Progress models.UserProgress `json:"progress"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &completion))
	assert.Equal(t, 45, completion.XPEarned, "base 10 + 20 time bonus + 15 complexity bonus")
	assert.Equal(t, 45, completion.Progress.TotalXP)
	assert.Equal(t, 1, completion.Progress.StreakDays)
	assert.Equal(t, 20, completion.Progress.DailyTarget)

	// unknown article
	w = doJSON(r, http.MethodPost, "/progress/complete", gin.H{"article_id": 9999})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionEndpoints(t *testing.T) {
	env := newTestEnv(t)
	c := NewSessionController(env.tracker)

	r := gin.New()
	auth := r.Group("", identity("ext-1", "budi"))
	auth.POST("/sessions", c.StartSession)
	auth.POST("/sessions/heartbeat", c.Heartbeat)
	auth.POST("/sessions/end", c.EndSession)

	w := doJSON(r, http.MethodPost, "/sessions", gin.H{"article_id": 7})
	require.Equal(t, http.StatusOK, w.Code)
	var started struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &started))
	require.NotEmpty(t, started.SessionID)

	w = doJSON(r, http.MethodPost, "/sessions/heartbeat", gin.H{"session_id": started.SessionID, "active_seconds": 30})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodPost, "/sessions/end", gin.H{"session_id": started.SessionID, "xp_earned": 25})
	assert.Equal(t, http.StatusOK, w.Code)

	// terminal: further writes conflict
	w = doJSON(r, http.MethodPost, "/sessions/heartbeat", gin.H{"session_id": started.SessionID, "active_seconds": 30})
	assert.Equal(t, http.StatusConflict, w.Code)
	w = doJSON(r, http.MethodPost, "/sessions/end", gin.H{"session_id": started.SessionID, "xp_earned": 1})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(r, http.MethodPost, "/sessions/heartbeat", gin.H{"session_id": "unknown", "active_seconds": 5})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLeaderboardEndpoint(t *testing.T) {
	env := newTestEnv(t)
	c := NewLeaderboardController(env.boards)

	r := gin.New()
	r.GET("/leaderboard", c.GetLeaderboard)

	require.NoError(t, env.boards.AddXP(context.Background(), "ext-1", "budi", 90))
	require.NoError(t, env.boards.AddXP(context.Background(), "ext-2", "sari", 140))

	w := doJSON(r, http.MethodGet, "/leaderboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Period  string                    `json:"period"`
		Entries []models.LeaderboardEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &got))
	assert.Equal(t, "alltime", got.Period)
	require.Len(t, got.Entries, 2)
	assert.Equal(t, "sari", got.Entries[0].Username)
	assert.Equal(t, 1, got.Entries[0].Rank)

	w = doJSON(r, http.MethodGet, "/leaderboard?period=monthly", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminEndpointsRequireAdmin(t *testing.T) {
	env := newTestEnv(t)
	c := NewAdminController(env.db, env.manager)

	r := gin.New()
	r.POST("/admin/xp", identity("ext-9", "mallory"), c.AddXP)

	w := doJSON(r, http.MethodPost, "/admin/xp", gin.H{"username": "budi", "amount": 10})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminAddXP(t *testing.T) {
	env := newTestEnv(t)
	c := NewAdminController(env.db, env.manager)

	user := models.User{Username: "budi", PasswordHash: "x"}
	require.NoError(t, env.db.Create(&user).Error)
	// the target must have progress before a grant is accepted
	env.manager.GetProgress(context.Background(), user.ExternalID)

	r := gin.New()
	admin := r.Group("", identity("ext-admin", "admin"))
	admin.POST("/admin/xp", c.AddXP)
	admin.POST("/admin/reset", c.ResetUser)

	w := doJSON(r, http.MethodPost, "/admin/xp", gin.H{"username": "budi", "amount": 120})
	require.Equal(t, http.StatusOK, w.Code)
	p := env.manager.GetProgress(context.Background(), user.ExternalID)
	assert.Equal(t, 120, p.TotalXP)

	// out-of-bounds amounts rejected
	w = doJSON(r, http.MethodPost, "/admin/xp", gin.H{"username": "budi", "amount": 501})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// unknown account
	w = doJSON(r, http.MethodPost, "/admin/xp", gin.H{"username": "ghost", "amount": 10})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// reset wipes the granted XP
	w = doJSON(r, http.MethodPost, "/admin/reset", gin.H{"username": "budi"})
	require.Equal(t, http.StatusOK, w.Code)
	p = env.manager.GetProgress(context.Background(), user.ExternalID)
	assert.Equal(t, 0, p.TotalXP)
}

func TestAuthRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	c := NewAuthController(env.db)

	r := gin.New()
	r.POST("/auth/register", c.Register)
	r.POST("/auth/login", c.Login)

	w := doJSON(r, http.MethodPost, "/auth/register", gin.H{"username": "budi", "password": "secret-1"})
	require.Equal(t, http.StatusOK, w.Code)
	var reg struct {
		Token string `json:"token"`
		User  struct {
			ExternalID string `json:"external_id"`
			Username   string `json:"username"`
			IsAdmin    bool   `json:"is_admin"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &reg))
	assert.NotEmpty(t, reg.Token)
	assert.NotEmpty(t, reg.User.ExternalID)
	assert.False(t, reg.User.IsAdmin)

	// duplicate username
	w = doJSON(r, http.MethodPost, "/auth/register", gin.H{"username": "budi", "password": "secret-1"})
	assert.Equal(t, http.StatusConflict, w.Code)

	// wrong password
	w = doJSON(r, http.MethodPost, "/auth/login", gin.H{"username": "budi", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(r, http.MethodPost, "/auth/login", gin.H{"username": "budi", "password": "secret-1"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	c := NewStatsController(env.db)

	require.NoError(t, env.db.Create(&models.User{Username: "budi", PasswordHash: "x"}).Error)
	require.NoError(t, env.db.Create(&models.Article{Title: "A", Content: "B"}).Error)

	r := gin.New()
	r.GET("/stats", c.GetStats)

	w := doJSON(r, http.MethodGet, "/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		UserCount    int `json:"user_count"`
		ArticleCount int `json:"article_count"`
		ReaderCount  int `json:"reader_count"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &got))
	assert.Equal(t, 1, got.UserCount)
	assert.Equal(t, 1, got.ArticleCount)
	assert.Equal(t, 0, got.ReaderCount)
}
