package suggestions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killallgit/sermon-clips/internal/database"
	"github.com/killallgit/sermon-clips/internal/lifecycle"
	"github.com/killallgit/sermon-clips/internal/models"
	"github.com/killallgit/sermon-clips/internal/services/jobs"
	"github.com/killallgit/sermon-clips/internal/services/sermons"
	"github.com/killallgit/sermon-clips/internal/suggest"
	"github.com/killallgit/sermon-clips/internal/suggest/llm"
	"github.com/killallgit/sermon-clips/internal/suggest/strategy"
	"github.com/killallgit/sermon-clips/internal/suggest/trim"
)

type fakeChat struct {
	mu    sync.Mutex
	calls int
}

// Complete scores every candidate id a batch could hold.
func (f *fakeChat) Complete(_ context.Context, _ llm.Request) (llm.Response, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	results := make([]map[string]any, 0, 15)
	for i := 0; i < 15; i++ {
		results = append(results, map[string]any{"id": fmt.Sprintf("c%d", i), "score": 90 - i})
	}
	body, _ := json.Marshal(map[string]any{"results": results})
	return llm.Response{
		Content: string(body),
		Usage:   suggest.Usage{PromptTokens: 900, CompletionTokens: 100, TotalTokens: 1000},
	}, nil
}

type fixture struct {
	db      *database.DB
	sermons sermons.Service
	jobs    jobs.Service
	repo    Repository
	chat    *fakeChat
	svc     Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	jobService := jobs.NewService(jobs.NewRepository(db.DB), jobs.DefaultBackoff())
	sermonService := sermons.NewService(sermons.NewRepository(db.DB), jobService, nil)
	chat := &fakeChat{}
	router := strategy.NewRouter(strategy.DefaultSettings(), nil, func(llm.ProviderConfig) (llm.ChatClient, error) {
		return chat, nil
	})
	repo := NewRepository(db.DB)

	return &fixture{
		db:      db,
		sermons: sermonService,
		jobs:    jobService,
		repo:    repo,
		chat:    chat,
		svc:     NewService(repo, sermonService, jobService, nil, router, DefaultSettings()),
	}
}

// tenMinuteTranscript is ten one-minute segments with a question opening
// segment seven.
func tenMinuteTranscript() string {
	type cue struct {
		StartMs int64  `json:"start_ms"`
		EndMs   int64  `json:"end_ms"`
		Text    string `json:"text"`
	}
	cues := make([]cue, 10)
	for k := range cues {
		end := int64(k+1)*60000 - 1000
		if k == 4 {
			end = 295000
		}
		cues[k] = cue{
			StartMs: int64(k) * 60000,
			EndMs:   end,
			Text:    fmt.Sprintf("This is part %d of the message about faithful living.", k),
		}
	}
	cues[6].Text = "Have you ever asked why God seems silent when you need him most?"
	b, _ := json.Marshal(cues)
	return string(b)
}

func (f *fixture) transcribedSermon(t *testing.T) *models.Sermon {
	t.Helper()
	ctx := context.Background()
	sermon, err := f.sermons.Create(ctx, sermons.CreateRequest{Title: "Faithful Living", Preacher: "Pastor Lee"})
	require.NoError(t, err)
	sermon, n, err := f.sermons.ImportTranscript(ctx, sermon.ID, tenMinuteTranscript(), "json")
	require.NoError(t, err)
	require.Equal(t, 10, n)
	return sermon
}

// seed stores clips as the sermon's current suggestion set.
func (f *fixture) seed(t *testing.T, sermonID uint, clips ...models.Clip) []models.Clip {
	t.Helper()
	for i := range clips {
		clips[i].SermonID = sermonID
		clips[i].Source = models.ClipSourceAuto
	}
	run := &models.SuggestionRun{SermonID: sermonID, StartedAt: time.Now().UTC()}
	require.NoError(t, f.repo.ReplaceSuggestions(context.Background(), sermonID, run, clips))
	return clips
}

func ptr[T any](v T) *T { return &v }

func TestRunHeuristicOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sermon := f.transcribedSermon(t)

	result, err := f.svc.Run(ctx, sermon.ID, RunOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, result.Suggestions)
	assert.Equal(t, 0, f.chat.calls)

	assert.False(t, result.Run.UsedLLM)
	assert.Empty(t, result.Run.Method)
	assert.Equal(t, string(suggest.MethodScoring), result.Run.RequestedMethod)
	assert.Equal(t, len(result.Suggestions), result.Run.SuggestionCount)

	for _, c := range result.Suggestions {
		assert.False(t, c.UseLLM)
		assert.Nil(t, c.LLMMethod)
		assert.Equal(t, result.Run.ID, c.RunID)
		assert.GreaterOrEqual(t, c.DurationMs(), suggest.MinClipMs)
		assert.LessOrEqual(t, c.DurationMs(), suggest.MaxClipMs)
	}
	for i := 1; i < len(result.Suggestions); i++ {
		assert.GreaterOrEqual(t, result.Suggestions[i-1].Score, result.Suggestions[i].Score)
	}

	got, err := f.sermons.Get(ctx, sermon.ID)
	require.NoError(t, err)
	assert.True(t, got.Suggested)
	assert.Equal(t, models.SermonStatusTranscribed, got.Status)

	// A second run replaces the set
	second, err := f.svc.Run(ctx, sermon.ID, RunOptions{})
	require.NoError(t, err)
	listed, err := f.svc.List(ctx, sermon.ID)
	require.NoError(t, err)
	assert.Len(t, listed, len(second.Suggestions))
	for _, c := range listed {
		assert.Equal(t, second.Run.ID, c.RunID)
	}

	runs, err := f.svc.Runs(ctx, sermon.ID, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRunWithLLMScoring(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sermon := f.transcribedSermon(t)

	result, err := f.svc.Run(ctx, sermon.ID, RunOptions{UseLLM: ptr(true)})
	require.NoError(t, err)
	assert.Positive(t, f.chat.calls)
	assert.True(t, result.Run.UsedLLM)
	assert.Equal(t, string(suggest.MethodScoring), result.Run.Method)
	assert.Equal(t, string(suggest.ProviderDeepSeek), result.Run.Provider)
	assert.Equal(t, int64(1000*f.chat.calls), result.Run.TotalTokens)

	var llmClips int
	var total int64
	for _, c := range result.Suggestions {
		if !c.UseLLM {
			continue
		}
		llmClips++
		require.NotNil(t, c.LLMMethod)
		assert.Equal(t, string(suggest.MethodScoring), *c.LLMMethod)
		require.NotNil(t, c.LLMScore)
		total += c.Usage().TotalTokens
	}
	require.Positive(t, llmClips)
	assert.Equal(t, result.Run.TotalTokens, total)

	stats, err := f.svc.TokenStats(ctx, sermon.ID, "", "")
	require.NoError(t, err)
	require.Len(t, stats.Methods, 1)
	assert.Equal(t, string(suggest.MethodScoring), stats.Methods[0].Method)
	assert.Equal(t, llmClips, stats.Methods[0].Clips)
	assert.Nil(t, stats.Comparison)
}

func TestRunRequiresTranscript(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sermon, err := f.sermons.Create(ctx, sermons.CreateRequest{Title: "Pending"})
	require.NoError(t, err)

	_, err = f.svc.Run(ctx, sermon.ID, RunOptions{})
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)

	_, err = f.svc.Run(ctx, 9999, RunOptions{})
	assert.ErrorIs(t, err, sermons.ErrSermonNotFound)

	_, err = f.svc.Run(ctx, sermon.ID, RunOptions{Method: "vibes"})
	assert.Error(t, err)
}

func TestRunReadsSettingsSource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sermon := f.transcribedSermon(t)

	var loads int
	fail := false
	src := func() (Settings, strategy.Settings, error) {
		loads++
		if fail {
			return Settings{}, strategy.Settings{}, errors.New("config unreadable")
		}
		s := DefaultSettings()
		s.MinSuggestions = 1000
		return s, strategy.DefaultSettings(), nil
	}
	svc := NewService(f.repo, f.sermons, f.jobs, nil, nil, DefaultSettings(), WithSettingsSource(src))

	result, err := svc.Run(ctx, sermon.ID, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, loads)
	assert.Contains(t, result.Warning, "minimum 1000")

	// A failing source falls back to the startup settings
	fail = true
	result, err = svc.Run(ctx, sermon.ID, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, loads)
	assert.NotContains(t, result.Warning, "minimum 1000")
}

func TestFinalizeDedupesTrimmedRanges(t *testing.T) {
	segs := []suggest.Segment{
		{ID: 1, StartMs: 0, EndMs: 30000, Text: "we begin"},
		{ID: 2, StartMs: 30000, EndMs: 60000, Text: "the heart of it"},
		{ID: 3, StartMs: 60000, EndMs: 90000, Text: "we close"},
		{ID: 4, StartMs: 90000, EndMs: 150000, Text: "and pray together"},
	}
	startTrimmed := suggest.Candidate{
		StartMs: 0, EndMs: 60000, SegmentIDs: []uint{1, 2}, Score: 0.9, UseLLM: true,
		Trim: &suggest.TrimSuggestion{StartOffsetSec: 30, Confidence: 0.9},
	}
	endTrimmed := suggest.Candidate{
		StartMs: 30000, EndMs: 90000, SegmentIDs: []uint{2, 3}, Score: 0.8, UseLLM: true,
		Trim: &suggest.TrimSuggestion{EndOffsetSec: 30, Confidence: 0.9},
	}
	unsure := suggest.Candidate{
		StartMs: 90000, EndMs: 150000, SegmentIDs: []uint{4}, Score: 0.7, UseLLM: true,
		Trim: &suggest.TrimSuggestion{EndOffsetSec: 20, Confidence: 0.3},
	}
	require.LessOrEqual(t, suggest.IoU(startTrimmed.StartMs, startTrimmed.EndMs, endTrimmed.StartMs, endTrimmed.EndMs), 0.60)

	kept := finalize([]suggest.Candidate{startTrimmed, endTrimmed, unsure}, segs, nil, DefaultSettings())
	require.Len(t, kept, 2)

	assert.Equal(t, int64(30000), kept[0].StartMs)
	assert.Equal(t, int64(60000), kept[0].EndMs)
	assert.True(t, kept[0].TrimApplied)
	assert.Equal(t, []uint{2}, kept[0].SegmentIDs)
	assert.Equal(t, 0.9, kept[0].Score)

	assert.Equal(t, int64(90000), kept[1].StartMs)
	assert.Equal(t, int64(150000), kept[1].EndMs)
	assert.False(t, kept[1].TrimApplied)

	for i := range kept {
		for j := i + 1; j < len(kept); j++ {
			assert.LessOrEqual(t, suggest.IoU(kept[i].StartMs, kept[i].EndMs, kept[j].StartMs, kept[j].EndMs), 0.60)
		}
	}

	clip := models.ClipFromCandidate(1, "", kept[0])
	assert.True(t, clip.TrimApplied)
}

func TestEnqueue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sermon := f.transcribedSermon(t)

	job, err := f.svc.Enqueue(ctx, sermon.ID, RunOptions{UseLLM: ptr(true), Method: "selection"})
	require.NoError(t, err)
	assert.Equal(t, models.QueueSuggestion, job.Queue)

	opts := RunOptionsFromJob(job)
	require.NotNil(t, opts.UseLLM)
	assert.True(t, *opts.UseLLM)
	assert.Equal(t, "selection", opts.Method)
	assert.Empty(t, opts.Provider)

	_, err = f.svc.Enqueue(ctx, sermon.ID, RunOptions{})
	assert.ErrorIs(t, err, jobs.ErrJobInFlight)

	_, err = f.svc.Enqueue(ctx, sermon.ID, RunOptions{Provider: "nobody"})
	assert.Error(t, err)
}

func TestAcceptAndReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sermon := f.transcribedSermon(t)

	seeded := f.seed(t, sermon.ID,
		models.Clip{StartMs: 360000, EndMs: 419000, Score: 0.8, Theme: "silence"},
		models.Clip{StartMs: 60000, EndMs: 119000, Score: 0.5},
	)

	clip, err := f.svc.Accept(ctx, seeded[0].ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.ClipSourceManual, clip.Source)
	assert.Equal(t, models.ClipStatusPending, clip.Status)
	assert.Equal(t, models.RenderTypePreview, clip.RenderType)
	require.NotNil(t, clip.OriginClipID)
	assert.Equal(t, seeded[0].ID, *clip.OriginClipID)
	assert.Equal(t, int64(360000), clip.StartMs)
	assert.Equal(t, int64(419000), clip.EndMs)

	accepted, err := f.svc.Get(ctx, seeded[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.ClipStatusAccepted, accepted.Status)

	_, err = f.svc.Accept(ctx, seeded[0].ID, "user-1")
	assert.ErrorIs(t, err, ErrAlreadyReviewed)
	assert.ErrorIs(t, f.svc.Reject(ctx, seeded[0].ID, "user-1"), ErrAlreadyReviewed)

	require.NoError(t, f.svc.Reject(ctx, seeded[1].ID, "user-2"))
	_, err = f.svc.Get(ctx, seeded[1].ID)
	assert.ErrorIs(t, err, ErrSuggestionNotFound)

	var feedback []models.ClipFeedback
	require.NoError(t, f.db.Unscoped().Order("id").Find(&feedback).Error)
	require.Len(t, feedback, 2)
	assert.True(t, feedback[0].Accepted)
	assert.False(t, feedback[1].Accepted)
	assert.Equal(t, "user-2", feedback[1].UserID)
	assert.True(t, feedback[1].DeletedAt.Valid)

	// The manual clip outlives the suggestion set
	n, err := f.svc.DeleteAll(ctx, sermon.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	var manual int64
	require.NoError(t, f.db.Model(&models.Clip{}).Where("source = ?", models.ClipSourceManual).Count(&manual).Error)
	assert.Equal(t, int64(1), manual)

	_, err = f.svc.Accept(ctx, 9999, "")
	assert.ErrorIs(t, err, ErrSuggestionNotFound)
}

func TestApplyTrim(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sermon := f.transcribedSermon(t)

	trimmed := models.Clip{StartMs: 360000, EndMs: 479000}
	trimmed.SetTrim(&suggest.TrimSuggestion{EndOffsetSec: 59, Confidence: 0.5})
	tooShort := models.Clip{StartMs: 360000, EndMs: 419000}
	tooShort.SetTrim(&suggest.TrimSuggestion{StartOffsetSec: 50, Confidence: 0.9})
	bare := models.Clip{StartMs: 60000, EndMs: 119000}

	seeded := f.seed(t, sermon.ID, trimmed, tooShort, bare)

	clip, err := f.svc.ApplyTrim(ctx, seeded[0].ID)
	require.NoError(t, err)
	assert.True(t, clip.TrimApplied)
	assert.Equal(t, int64(360000), clip.StartMs)
	assert.Equal(t, int64(419000), clip.EndMs)
	assert.Equal(t, []uint{7}, clip.SegmentIDList())

	again, err := f.svc.ApplyTrim(ctx, seeded[0].ID)
	require.NoError(t, err)
	assert.Equal(t, clip.StartMs, again.StartMs)
	assert.Equal(t, clip.EndMs, again.EndMs)

	_, err = f.svc.ApplyTrim(ctx, seeded[1].ID)
	assert.ErrorIs(t, err, trim.ErrTrimInvalid)
	unchanged, err := f.svc.Get(ctx, seeded[1].ID)
	require.NoError(t, err)
	assert.False(t, unchanged.TrimApplied)
	assert.Equal(t, int64(360000), unchanged.StartMs)

	_, err = f.svc.ApplyTrim(ctx, seeded[2].ID)
	assert.ErrorIs(t, err, trim.ErrNoTrim)
}

func TestTokenStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sermon := f.transcribedSermon(t)

	withUsage := func(method suggest.Method, total int64, cost float64) models.Clip {
		c := models.Clip{StartMs: 0, EndMs: 59000, UseLLM: true}
		m, p := string(method), string(suggest.ProviderDeepSeek)
		c.LLMMethod, c.LLMProvider = &m, &p
		c.SetUsage(suggest.Usage{TotalTokens: total, CostUSD: cost})
		return c
	}
	f.seed(t, sermon.ID,
		withUsage(suggest.MethodScoring, 1000, 0.01),
		withUsage(suggest.MethodScoring, 1000, 0.01),
		withUsage(suggest.MethodSelection, 3000, 0.03),
		models.Clip{StartMs: 60000, EndMs: 119000},
	)

	stats, err := f.svc.TokenStats(ctx, sermon.ID, "", "")
	require.NoError(t, err)
	require.Len(t, stats.Methods, 2)
	require.NotNil(t, stats.Comparison)
	assert.Equal(t, string(suggest.MethodScoring), stats.Comparison.Base)
	assert.Equal(t, string(suggest.MethodSelection), stats.Comparison.Compare)
	assert.Equal(t, int64(1000), stats.Comparison.TokenDelta)
	require.NotNil(t, stats.Comparison.TokenPctIncrease)
	assert.InDelta(t, 50.0, *stats.Comparison.TokenPctIncrease, 1e-9)

	_, err = f.svc.TokenStats(ctx, sermon.ID, "scoring", "")
	assert.ErrorIs(t, err, ErrInvalidComparison)

	_, err = f.svc.TokenStats(ctx, sermon.ID, "scoring", "generation")
	assert.Error(t, err)
}
