package clips

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/killallgit/sermon-clips/internal/database"
	"github.com/killallgit/sermon-clips/internal/lifecycle"
	"github.com/killallgit/sermon-clips/internal/models"
	"github.com/killallgit/sermon-clips/internal/services/jobs"
	"github.com/killallgit/sermon-clips/internal/services/sermons"
	"github.com/killallgit/sermon-clips/pkg/ffmpeg"
)

// MockRenderer is a mock implementation of Renderer
type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) Render(ctx context.Context, req ffmpeg.RenderRequest) (ffmpeg.RenderResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(ffmpeg.RenderResult), args.Error(1)
}

// writeOutput behaves like the real renderer and leaves a file behind
func writeOutput(t *testing.T) func(mock.Arguments) {
	return func(args mock.Arguments) {
		req := args.Get(1).(ffmpeg.RenderRequest)
		require.NoError(t, os.MkdirAll(filepath.Dir(req.OutputPath), 0755))
		require.NoError(t, os.WriteFile(req.OutputPath, []byte("mp4"), 0644))
	}
}

const transcriptVTT = `WEBVTT

00:00:00.000 --> 00:00:20.000
Welcome this morning.

00:00:20.000 --> 00:00:40.000
Grace is not earned.

00:00:40.000 --> 00:01:00.000
It is received.
`

type fixture struct {
	db       *database.DB
	sermons  sermons.Service
	jobs     jobs.Service
	renderer *MockRenderer
	storage  *LocalOutputStorage
	svc      Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	storage, err := NewLocalOutputStorage(t.TempDir())
	require.NoError(t, err)

	jobService := jobs.NewService(jobs.NewRepository(db.DB), jobs.DefaultBackoff())
	sermonService := sermons.NewService(sermons.NewRepository(db.DB), jobService, nil)
	renderer := &MockRenderer{}
	return &fixture{
		db:       db,
		sermons:  sermonService,
		jobs:     jobService,
		renderer: renderer,
		storage:  storage,
		svc:      NewService(NewRepository(db.DB), sermonService, jobService, renderer, storage),
	}
}

func (f *fixture) sermon(t *testing.T, sourceURL string) *models.Sermon {
	t.Helper()
	ctx := context.Background()
	sermon, err := f.sermons.Create(ctx, sermons.CreateRequest{
		Title:      "Grace",
		SourceURL:  sourceURL,
		DurationMs: 3_600_000,
	})
	require.NoError(t, err)
	_, _, err = f.sermons.ImportTranscript(ctx, sermon.ID, transcriptVTT, "vtt")
	require.NoError(t, err)
	return sermon
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sermon := f.sermon(t, "https://media.example.com/grace.mp4")

	clip, job, err := f.svc.Create(ctx, CreateRequest{SermonID: sermon.ID, StartMs: 10000, EndMs: 50000, RenderType: "final"})
	require.NoError(t, err)
	assert.Equal(t, models.ClipSourceManual, clip.Source)
	assert.Equal(t, models.ClipStatusPending, clip.Status)
	assert.Equal(t, models.RenderTypeFinal, clip.RenderType)
	assert.Equal(t, models.QueueRenderFinal, job.Queue)
	assert.Equal(t, models.QueuePriority[models.QueueRenderFinal], job.Priority)

	listed, err := f.svc.List(ctx, sermon.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	// A second render while the first is queued is refused
	_, err = f.svc.Render(ctx, clip.ID, "")
	assert.ErrorIs(t, err, jobs.ErrJobInFlight)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sermon := f.sermon(t, "https://media.example.com/grace.mp4")
	silent := f.sermon(t, "")

	tests := []struct {
		name string
		req  CreateRequest
		err  error
	}{
		{"too short", CreateRequest{SermonID: sermon.ID, StartMs: 0, EndMs: 9999}, ErrInvalidRange},
		{"too long", CreateRequest{SermonID: sermon.ID, StartMs: 0, EndMs: 120001}, ErrInvalidRange},
		{"reversed", CreateRequest{SermonID: sermon.ID, StartMs: 50000, EndMs: 20000}, ErrInvalidRange},
		{"past sermon end", CreateRequest{SermonID: sermon.ID, StartMs: 3_590_000, EndMs: 3_610_000}, ErrInvalidRange},
		{"bad render type", CreateRequest{SermonID: sermon.ID, StartMs: 0, EndMs: 30000, RenderType: "4k"}, ErrInvalidRenderType},
		{"unknown sermon", CreateRequest{SermonID: 9999, StartMs: 0, EndMs: 30000}, sermons.ErrSermonNotFound},
		{"no source media", CreateRequest{SermonID: silent.ID, StartMs: 0, EndMs: 30000}, ErrNoSource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.svc.Create(ctx, tt.req)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	// Boundaries are inclusive
	_, _, err := f.svc.Create(ctx, CreateRequest{SermonID: sermon.ID, StartMs: 0, EndMs: 10000})
	assert.NoError(t, err)
}

func TestRenderClip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sermon := f.sermon(t, "https://media.example.com/grace.mp4")

	clip, _, err := f.svc.Create(ctx, CreateRequest{SermonID: sermon.ID, StartMs: 10000, EndMs: 50000})
	require.NoError(t, err)

	var first string
	f.renderer.On("Render", mock.Anything, mock.MatchedBy(func(req ffmpeg.RenderRequest) bool {
		return req.ClipID == clip.ID && req.Type == ffmpeg.RenderPreview
	})).Run(func(args mock.Arguments) {
		req := args.Get(1).(ffmpeg.RenderRequest)
		assert.Equal(t, "https://media.example.com/grace.mp4", req.SourceURL)
		assert.Equal(t, int64(10000), req.StartMs)
		assert.Equal(t, int64(50000), req.EndMs)
		assert.True(t, strings.HasPrefix(req.Captions, "1\n00:00:00,000 --> 00:00:10,000\nWelcome this morning.\n"))
		assert.Contains(t, req.Captions, "3\n00:00:30,000 --> 00:00:40,000\nIt is received.")
		assert.Contains(t, req.OutputPath, filepath.Join("clips", "1"))
		first = req.OutputPath
		writeOutput(t)(args)
	}).Return(ffmpeg.RenderResult{DurationMs: 40000, SizeBytes: 3}, nil).Once()

	done, err := f.svc.RenderClip(ctx, clip.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.ClipStatusDone, done.Status)
	assert.Equal(t, first, done.OutputURL)

	f.renderer.On("Render", mock.Anything, mock.Anything).
		Run(writeOutput(t)).
		Return(ffmpeg.RenderResult{DurationMs: 40000}, nil).Once()

	// Re-render of a done clip overwrites the output
	_, err = f.svc.RenderClip(ctx, clip.ID, "final")
	require.NoError(t, err)
	got, err := f.svc.Get(ctx, clip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RenderTypeFinal, got.RenderType)
	_, err = os.Stat(first)
	assert.True(t, os.IsNotExist(err), "previous render should be pruned")
	f.renderer.AssertExpectations(t)
}

func TestRenderClipFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sermon := f.sermon(t, "https://media.example.com/grace.mp4")

	clip, _, err := f.svc.Create(ctx, CreateRequest{SermonID: sermon.ID, StartMs: 0, EndMs: 30000})
	require.NoError(t, err)

	f.renderer.On("Render", mock.Anything, mock.Anything).
		Return(ffmpeg.RenderResult{}, errors.New("source too short")).Once()

	_, err = f.svc.RenderClip(ctx, clip.ID, "")
	assert.EqualError(t, err, "source too short")

	got, err := f.svc.Get(ctx, clip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ClipStatusError, got.Status)
	assert.Equal(t, "source too short", got.ErrorMessage)

	// Fail on an errored clip is a no-op
	assert.NoError(t, f.svc.Fail(ctx, clip.ID, "again"))

	_, err = f.svc.RenderClip(ctx, 9999, "")
	assert.ErrorIs(t, err, ErrClipNotFound)
}

func TestFail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sermon := f.sermon(t, "https://media.example.com/grace.mp4")

	clip, _, err := f.svc.Create(ctx, CreateRequest{SermonID: sermon.ID, StartMs: 0, EndMs: 30000})
	require.NoError(t, err)

	require.NoError(t, f.svc.Fail(ctx, clip.ID, "gave up"))
	got, err := f.svc.Get(ctx, clip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ClipStatusError, got.Status)

	require.NoError(t, lifecycle.TransitionClip(got, models.ClipStatusProcessing, ""))
}

func TestLocalOutputStoragePrune(t *testing.T) {
	storage, err := NewLocalOutputStorage(t.TempDir())
	require.NoError(t, err)

	a, b := storage.NewPath(7), storage.NewPath(7)
	assert.NotEqual(t, a, b)
	assert.Equal(t, ".mp4", filepath.Ext(a))

	require.NoError(t, os.MkdirAll(filepath.Dir(a), 0755))
	for _, p := range []string{a, b} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0644))
	}

	require.NoError(t, storage.Prune(7, b))
	_, err = os.Stat(a)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(b)
	assert.NoError(t, err)

	assert.NoError(t, storage.Prune(99, ""))
}

func int64Ptr(v int64) *int64 { return &v }

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sermon := f.sermon(t, "https://media.example.com/grace.mp4")

	clip, first, err := f.svc.Create(ctx, CreateRequest{SermonID: sermon.ID, StartMs: 10000, EndMs: 50000})
	require.NoError(t, err)

	// Still pending: the queued job picks up the new range
	moved, job, err := f.svc.Update(ctx, clip.ID, UpdateRequest{StartMs: int64Ptr(20000)})
	require.NoError(t, err)
	assert.Nil(t, job)
	assert.Equal(t, int64(20000), moved.StartMs)
	assert.Equal(t, int64(50000), moved.EndMs)

	_, _, err = f.svc.Update(ctx, clip.ID, UpdateRequest{EndMs: int64Ptr(25000)})
	assert.ErrorIs(t, err, ErrInvalidRange)
	bad := "4k"
	_, _, err = f.svc.Update(ctx, clip.ID, UpdateRequest{RenderType: &bad})
	assert.ErrorIs(t, err, ErrInvalidRenderType)

	claimed, err := f.jobs.ClaimNextJob(ctx, "w1", models.QueueRenderPreview)
	require.NoError(t, err)
	require.Equal(t, first.ID, claimed.ID)
	f.renderer.On("Render", mock.Anything, mock.Anything).
		Run(writeOutput(t)).
		Return(ffmpeg.RenderResult{DurationMs: 30000}, nil).Once()
	_, err = f.svc.RenderClip(ctx, clip.ID, "")
	require.NoError(t, err)
	require.NoError(t, f.jobs.CompleteJob(ctx, claimed.ID, nil))

	// A rendered clip that moves gets a fresh render
	final := "final"
	moved, job, err = f.svc.Update(ctx, clip.ID, UpdateRequest{EndMs: int64Ptr(60000), RenderType: &final})
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, models.QueueRenderFinal, job.Queue)
	assert.Equal(t, models.ClipStatusDone, moved.Status)
	assert.Equal(t, int64(60000), moved.EndMs)

	// Changing only the render type does not
	preview := "preview"
	_, job, err = f.svc.Update(ctx, clip.ID, UpdateRequest{RenderType: &preview})
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestUpdateAndDeleteRefuseRenderingClip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sermon := f.sermon(t, "https://media.example.com/grace.mp4")

	clip, _, err := f.svc.Create(ctx, CreateRequest{SermonID: sermon.ID, StartMs: 0, EndMs: 30000})
	require.NoError(t, err)
	require.NoError(t, f.db.DB.Model(&models.Clip{}).Where("id = ?", clip.ID).
		Update("status", models.ClipStatusProcessing).Error)

	_, _, err = f.svc.Update(ctx, clip.ID, UpdateRequest{EndMs: int64Ptr(40000)})
	assert.ErrorIs(t, err, ErrClipBusy)
	assert.ErrorIs(t, f.svc.Delete(ctx, clip.ID), ErrClipBusy)

	got, err := f.svc.Get(ctx, clip.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(30000), got.EndMs)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sermon := f.sermon(t, "https://media.example.com/grace.mp4")

	clip, _, err := f.svc.Create(ctx, CreateRequest{SermonID: sermon.ID, StartMs: 0, EndMs: 30000})
	require.NoError(t, err)
	f.renderer.On("Render", mock.Anything, mock.Anything).
		Run(writeOutput(t)).
		Return(ffmpeg.RenderResult{DurationMs: 30000}, nil).Once()
	done, err := f.svc.RenderClip(ctx, clip.ID, "")
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, clip.ID))

	_, err = f.svc.Get(ctx, clip.ID)
	assert.ErrorIs(t, err, ErrClipNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, clip.ID), ErrClipNotFound)
	_, err = os.Stat(done.OutputURL)
	assert.True(t, os.IsNotExist(err), "render should be removed")

	// The queued render finds the clip gone
	_, err = f.svc.RenderClip(ctx, clip.ID, "")
	assert.ErrorIs(t, err, ErrClipNotFound)
}

func TestPurgeRendersAfterSermonDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sermon := f.sermon(t, "https://media.example.com/grace.mp4")

	clip, _, err := f.svc.Create(ctx, CreateRequest{SermonID: sermon.ID, StartMs: 0, EndMs: 30000})
	require.NoError(t, err)
	f.renderer.On("Render", mock.Anything, mock.Anything).
		Run(writeOutput(t)).
		Return(ffmpeg.RenderResult{DurationMs: 30000}, nil).Once()
	done, err := f.svc.RenderClip(ctx, clip.ID, "")
	require.NoError(t, err)

	require.NoError(t, f.sermons.Delete(ctx, sermon.ID))
	_, err = f.svc.Get(ctx, clip.ID)
	assert.ErrorIs(t, err, ErrClipNotFound)

	require.NoError(t, f.svc.PurgeRenders(ctx, sermon.ID))
	_, err = os.Stat(done.OutputURL)
	assert.True(t, os.IsNotExist(err))
}
