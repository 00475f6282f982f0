package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/mediagrab-go/internal/app"
	"github.com/yourusername/mediagrab-go/internal/domain"
	"github.com/yourusername/mediagrab-go/internal/infrastructure"
)

type testServer struct {
	router   *gin.Engine
	identity *infrastructure.JWTIdentityProvider
	worker   *app.FulfillmentWorker
}

func setupTestServer(t *testing.T, latency time.Duration) *testServer {
	t.Helper()

	db, err := infrastructure.OpenDatabase(&domain.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "api.db"),
	})
	require.NoError(t, err)

	subs := infrastructure.NewGormSubscriptionStore(db)
	require.NoError(t, subs.SetPlan(context.Background(), "pro-user", domain.PlanPro, domain.SubscriptionActive))

	identity, err := infrastructure.NewJWTIdentityProvider("test-secret", "mediagrab")
	require.NoError(t, err)

	repo := infrastructure.NewGormJobRepository(db)
	queue := infrastructure.NewMemoryJobQueue(16)
	log := zap.NewNop()

	orch := app.NewOrchestrator(identity, subs, domain.NewPolicyEvaluator(), repo, queue, log, nil)
	fetchers := infrastructure.NewFetchers(infrastructure.SimulationConfig{Latency: latency}, log)
	worker := app.NewFulfillmentWorker(repo, queue, nil, fetchers,
		&domain.FulfillmentConfig{Concurrency: 2, PerPlatformLimit: 1, MaxRetries: 1, RetryDelay: time.Millisecond, MaxRetryDelay: time.Millisecond},
		&domain.QueueConfig{CheckInterval: time.Hour, RequeueAfter: time.Minute, PendingTTL: time.Hour},
		log, nil)
	require.NoError(t, worker.Start(context.Background()))

	t.Cleanup(func() {
		worker.Stop(context.Background())
		queue.Close()
		infrastructure.CloseDatabase(db)
	})

	return &testServer{
		router:   SetupRouter(orch, worker, 10*time.Millisecond, log),
		identity: identity,
		worker:   worker,
	}
}

func (s *testServer) token(t *testing.T, userID string, linked ...domain.LinkedIdentity) string {
	t.Helper()
	token, err := s.identity.IssueToken(userID, linked, time.Hour)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func (s *testServer) submit(t *testing.T, token string, body map[string]string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/downloads", token, body)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	id, _ := decodeBody(t, w)["job_id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestSubmit_Unauthorized(t *testing.T) {
	s := setupTestServer(t, 0)
	body := map[string]string{"url": "https://youtu.be/abc", "media_type": "video"}

	w := s.do(t, http.MethodPost, "/api/v1/downloads", "", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Unauthorized", decodeBody(t, w)["error"])

	w = s.do(t, http.MethodPost, "/api/v1/downloads", "forged.token.value", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSubmit_BadRequests(t *testing.T) {
	s := setupTestServer(t, 0)
	token := s.token(t, "pro-user")

	tests := []struct {
		name string
		body interface{}
		code string
	}{
		{"malformed json", "{not json", "InvalidRequest"},
		{"unknown host", map[string]string{"url": "https://example.com/x", "media_type": "video"}, "InvalidUrl"},
		{"empty url", map[string]string{"media_type": "video"}, "InvalidUrl"},
		{"missing media type", map[string]string{"url": "https://youtu.be/abc"}, "InvalidMediaType"},
		{"photo type on video platform", map[string]string{"url": "https://youtu.be/abc", "media_type": "reel"}, "InvalidMediaType"},
		{"unknown quality", map[string]string{"url": "https://youtu.be/abc", "media_type": "video", "quality": "8K"}, "InvalidQuality"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/v1/downloads", token, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.code, decodeBody(t, w)["error"])
		})
	}
}

func TestSubmit_Forbidden(t *testing.T) {
	s := setupTestServer(t, 0)

	w := s.do(t, http.MethodPost, "/api/v1/downloads", s.token(t, "free-user"),
		map[string]string{"url": "https://www.youtube.com/watch?v=abc", "media_type": "video", "quality": "4K"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Forbidden", body["error"])
	assert.Equal(t, "RequiresProPlan", body["reason"])

	w = s.do(t, http.MethodPost, "/api/v1/downloads", s.token(t, "pro-user"),
		map[string]string{"url": "https://instagram.com/stories/someone", "media_type": "story"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "RequiresLinkedIdentity", decodeBody(t, w)["reason"])

	list := s.do(t, http.MethodGet, "/api/v1/jobs", s.token(t, "free-user"), nil)
	assert.Equal(t, "[]", strings.TrimSpace(list.Body.String()), "denied requests create no job")
}

func TestSubmitAndGet_ProAudioCompletes(t *testing.T) {
	s := setupTestServer(t, 0)
	token := s.token(t, "pro-user")

	id := s.submit(t, token, map[string]string{
		"url":        "https://youtu.be/dQw4w9WgXcQ",
		"media_type": "audio",
		"quality":    "320kbps",
	})

	var body map[string]interface{}
	require.Eventually(t, func() bool {
		w := s.do(t, http.MethodGet, "/api/v1/jobs/"+id, token, nil)
		if w.Code != http.StatusOK {
			return false
		}
		body = decodeBody(t, w)
		return body["status"] == "completed"
	}, 3*time.Second, 10*time.Millisecond)

	assert.Equal(t, id, body["id"])
	assert.Equal(t, "pro-user", body["owner_id"])
	assert.Equal(t, "youtube", body["platform"])
	assert.Equal(t, "audio", body["media_type"])
	assert.Equal(t, "320kbps", body["quality"])
	assert.Equal(t, "youtube_audio_320kbps.mp3", body["filename"])
	assert.Greater(t, body["file_size_bytes"], float64(0))

	errMsg, present := body["error_message"]
	assert.True(t, present, "unset fields serialize as explicit nulls")
	assert.Nil(t, errMsg)

	keys := make([]string, 0, len(body))
	for k := range body {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []string{
		"id", "owner_id", "platform", "source_url", "media_type", "quality",
		"status", "filename", "file_size_bytes", "error_message", "created_at",
	}, keys)
}

func TestGetJob_OtherOwnerIsNotFound(t *testing.T) {
	s := setupTestServer(t, 0)
	id := s.submit(t, s.token(t, "free-user"), map[string]string{"url": "https://youtu.be/abc", "media_type": "video"})

	w := s.do(t, http.MethodGet, "/api/v1/jobs/"+id, s.token(t, "someone-else"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NotFound", decodeBody(t, w)["error"])

	w = s.do(t, http.MethodGet, "/api/v1/jobs/does-not-exist", s.token(t, "free-user"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListJobs(t *testing.T) {
	s := setupTestServer(t, 0)
	token := s.token(t, "free-user")

	first := s.submit(t, token, map[string]string{"url": "https://youtu.be/one", "media_type": "video"})
	time.Sleep(5 * time.Millisecond)
	second := s.submit(t, token, map[string]string{"url": "https://www.instagram.com/p/Cabc/", "media_type": "post"})

	w := s.do(t, http.MethodGet, "/api/v1/jobs", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var jobs []domain.DownloadJob
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &jobs))
	require.Len(t, jobs, 2)
	assert.Equal(t, second, jobs[0].ID)
	assert.Equal(t, first, jobs[1].ID)
	assert.Nil(t, jobs[0].Quality)

	w = s.do(t, http.MethodGet, "/api/v1/jobs?owner=free-user", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/jobs?owner=pro-user", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestWatch_StreamsUntilTerminal(t *testing.T) {
	s := setupTestServer(t, 50*time.Millisecond)
	token := s.token(t, "free-user", domain.LinkedInstagram)
	id := s.submit(t, token, map[string]string{"url": "https://www.instagram.com/stories/someone/", "media_type": "story"})

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/jobs/" + id + "/watch?access_token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var last domain.DownloadJob
	for {
		conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		var snapshot domain.DownloadJob
		err := conn.ReadJSON(&snapshot)
		if err != nil {
			var closeErr *websocket.CloseError
			require.True(t, errors.As(err, &closeErr), "unexpected error: %v", err)
			assert.Equal(t, websocket.CloseNormalClosure, closeErr.Code)
			break
		}
		last = snapshot
	}

	assert.Equal(t, id, last.ID)
	assert.Equal(t, domain.StatusCompleted, last.Status)
	require.NotNil(t, last.Filename)
	assert.Equal(t, "instagram_story.mp4", *last.Filename)
}

func TestWatch_RequiresOwnership(t *testing.T) {
	s := setupTestServer(t, 0)
	id := s.submit(t, s.token(t, "free-user"), map[string]string{"url": "https://youtu.be/abc", "media_type": "video"})

	w := s.do(t, http.MethodGet, "/api/v1/jobs/"+id+"/watch", s.token(t, "intruder"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthAndReady(t *testing.T) {
	s := setupTestServer(t, 0)

	w := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["worker"].(map[string]interface{})["running"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = s.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, s.worker.Stop(context.Background()))
	w = s.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := setupTestServer(t, 0)

	w := s.do(t, http.MethodOptions, "/api/v1/downloads", "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
