package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killallgit/sermon-clips/api/types"
	"github.com/killallgit/sermon-clips/internal/database"
	"github.com/killallgit/sermon-clips/internal/models"
	"github.com/killallgit/sermon-clips/internal/services/clips"
	"github.com/killallgit/sermon-clips/internal/services/embeddings"
	"github.com/killallgit/sermon-clips/internal/services/jobs"
	"github.com/killallgit/sermon-clips/internal/services/sermons"
	"github.com/killallgit/sermon-clips/internal/services/suggestions"
)

const testVTT = `WEBVTT

00:00:00.000 --> 00:00:20.000
Good morning church.

00:00:20.000 --> 00:00:40.000
Grace is a gift you cannot earn.

00:00:40.000 --> 00:01:00.000
So receive it today.
`

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	storage, err := clips.NewLocalOutputStorage(t.TempDir())
	require.NoError(t, err)

	jobService := jobs.NewService(jobs.NewRepository(db.DB), jobs.DefaultBackoff())
	sermonService := sermons.NewService(sermons.NewRepository(db.DB), jobService, nil)
	deps := &types.Dependencies{
		DB:                db,
		JobService:        jobService,
		SermonService:     sermonService,
		SuggestionService: suggestions.NewService(suggestions.NewRepository(db.DB), sermonService, jobService, nil, nil, suggestions.DefaultSettings()),
		EmbeddingService:  embeddings.NewService(db.DB, sermonService, jobService, nil, 0),
		ClipService:       clips.NewService(clips.NewRepository(db.DB), sermonService, jobService, nil, storage),
		Version:           "test",
	}

	engine := gin.New()
	require.NoError(t, RegisterRoutes(engine, deps, nil))
	return engine
}

func do(t *testing.T, engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func createSermon(t *testing.T, engine *gin.Engine) *models.Sermon {
	t.Helper()
	w := do(t, engine, http.MethodPost, "/api/v1/sermons", map[string]any{
		"title":       "Grace Upon Grace",
		"source_url":  "https://media.example.com/grace.mp4",
		"duration_ms": 3_600_000,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[types.SermonResponse](t, w)
	require.NotNil(t, resp.Sermon)
	return resp.Sermon
}

func TestRegisterRoutes_RequiresDependencies(t *testing.T) {
	engine := gin.New()
	assert.Error(t, RegisterRoutes(engine, nil, nil))
	assert.Error(t, RegisterRoutes(engine, &types.Dependencies{}, nil))
}

func TestSermonFlow(t *testing.T) {
	engine := newTestRouter(t)
	sermon := createSermon(t, engine)
	assert.Equal(t, models.SermonStatusPending, sermon.Status)
	base := fmt.Sprintf("/api/v1/sermons/%d", sermon.ID)

	// Suggestions need a transcript first
	w := do(t, engine, http.MethodPost, base+"/suggest", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_STATE", decode[types.ErrorResponse](t, w).Code)

	w = do(t, engine, http.MethodPut, base+"/transcript", map[string]string{"content": testVTT, "format": "vtt"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.SermonStatusTranscribed, decode[types.SermonResponse](t, w).Sermon.Status)

	w = do(t, engine, http.MethodGet, base+"/segments", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, decode[types.SegmentsResponse](t, w).Count)

	w = do(t, engine, http.MethodPost, base+"/suggest?use_llm=false", nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	accepted := decode[types.JobAcceptedResponse](t, w)
	assert.Equal(t, types.StatusQueued, accepted.Status)
	assert.Equal(t, string(models.JobTypeSuggestion), accepted.Job.Type)

	// One active suggestion job per sermon
	w = do(t, engine, http.MethodPost, base+"/suggest", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", decode[types.ErrorResponse](t, w).Code)

	w = do(t, engine, http.MethodGet, fmt.Sprintf("/api/v1/jobs/%d", accepted.Job.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	status := decode[types.JobStatusResponse](t, w)
	assert.Equal(t, string(models.JobStatusPending), status.Status)
	assert.Equal(t, models.EntityKey(models.JobTypeSuggestion, "sermon", sermon.ID), status.EntityKey)

	w = do(t, engine, http.MethodGet, base+"/suggestions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[types.ClipsResponse](t, w).Count)

	w = do(t, engine, http.MethodGet, "/api/v1/sermons?page=1&limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[types.SermonsResponse](t, w)
	assert.Equal(t, int64(1), list.Total)
	assert.Equal(t, 5, list.Limit)
}

func TestSuggestValidation(t *testing.T) {
	engine := newTestRouter(t)
	sermon := createSermon(t, engine)
	base := fmt.Sprintf("/api/v1/sermons/%d", sermon.ID)

	tests := []struct {
		name   string
		path   string
		status int
		code   string
	}{
		{"unknown method", base + "/suggest?llm_method=vibes", http.StatusBadRequest, "VALIDATION"},
		{"unknown provider", base + "/suggest?llm_provider=acme", http.StatusBadRequest, "VALIDATION"},
		{"bad flag", base + "/suggest?use_llm=maybe", http.StatusBadRequest, "VALIDATION"},
		{"unknown sermon", "/api/v1/sermons/9999/suggest", http.StatusNotFound, "NOT_FOUND"},
		{"zero id", "/api/v1/sermons/0/suggest", http.StatusBadRequest, "VALIDATION"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, engine, http.MethodPost, tt.path, nil)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decode[types.ErrorResponse](t, w).Code)
		})
	}
}

func TestClipFlow(t *testing.T) {
	engine := newTestRouter(t)
	sermon := createSermon(t, engine)
	w := do(t, engine, http.MethodPut, fmt.Sprintf("/api/v1/sermons/%d/transcript", sermon.ID),
		map[string]string{"content": testVTT})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, engine, http.MethodPost, "/api/v1/clips", map[string]any{
		"sermon_id": sermon.ID, "start_ms": 0, "end_ms": 5000,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, engine, http.MethodPost, "/api/v1/clips", map[string]any{
		"sermon_id": sermon.ID, "start_ms": 0, "end_ms": 40000, "render_type": "final",
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	created := decode[types.ClipResponse](t, w)
	require.NotNil(t, created.Clip)
	require.NotNil(t, created.Job)
	assert.Equal(t, models.ClipSourceManual, created.Clip.Source)
	assert.Equal(t, models.QueueRenderFinal, created.Job.Queue)

	w = do(t, engine, http.MethodPost, fmt.Sprintf("/api/v1/clips/%d/render", created.Clip.ID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, engine, http.MethodGet, fmt.Sprintf("/api/v1/clips?sermon_id=%d", sermon.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[types.ClipsResponse](t, w).Count)

	w = do(t, engine, http.MethodGet, "/api/v1/clips/9999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReviewNotFound(t *testing.T) {
	engine := newTestRouter(t)

	for _, path := range []string{"/api/v1/suggestions/42/accept", "/api/v1/suggestions/42/reject", "/api/v1/suggestions/42/apply-trim"} {
		w := do(t, engine, http.MethodPost, path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
	w := do(t, engine, http.MethodGet, "/api/v1/jobs/42", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNotFoundHandler(t *testing.T) {
	engine := newTestRouter(t)

	w := do(t, engine, http.MethodGet, "/api/v2/nothing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := decode[types.ErrorResponse](t, w)
	assert.Equal(t, "NOT_FOUND", resp.Code)
	assert.Equal(t, "/api/v2/nothing", resp.Details["path"])
}

func TestEditAndDelete(t *testing.T) {
	engine := newTestRouter(t)
	sermon := createSermon(t, engine)
	base := fmt.Sprintf("/api/v1/sermons/%d", sermon.ID)

	w := do(t, engine, http.MethodPatch, base, map[string]any{"title": "Grace Alone"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Grace Alone", decode[types.SermonResponse](t, w).Sermon.Title)

	w = do(t, engine, http.MethodPatch, base, map[string]any{"title": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION", decode[types.ErrorResponse](t, w).Code)

	w = do(t, engine, http.MethodPut, base+"/transcript", map[string]any{"content": testVTT, "format": "vtt"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, engine, http.MethodPost, "/api/v1/clips", map[string]any{"sermon_id": sermon.ID, "start_ms": 0, "end_ms": 30000})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	clip := decode[types.ClipResponse](t, w).Clip
	clipPath := fmt.Sprintf("/api/v1/clips/%d", clip.ID)

	w = do(t, engine, http.MethodPatch, clipPath, map[string]any{"end_ms": 40000})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, int64(40000), decode[types.ClipResponse](t, w).Clip.EndMs)

	w = do(t, engine, http.MethodPatch, clipPath, map[string]any{"end_ms": 5000})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, engine, http.MethodDelete, clipPath, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, engine, http.MethodGet, clipPath, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, engine, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, engine, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, engine, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "sermon", decode[types.ErrorResponse](t, w).Details["resource"])
}
