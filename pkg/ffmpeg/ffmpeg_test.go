package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/killallgit/sermon-clips/pkg/download"
)

func TestNew(t *testing.T) {
	ff := New("ffmpeg", "ffprobe", 30*time.Second)
	if ff.ffmpegPath != "ffmpeg" {
		t.Errorf("Expected ffmpegPath to be 'ffmpeg', got %s", ff.ffmpegPath)
	}
	if ff.ffprobePath != "ffprobe" {
		t.Errorf("Expected ffprobePath to be 'ffprobe', got %s", ff.ffprobePath)
	}
	if ff.timeout != 30*time.Second {
		t.Errorf("Expected timeout to be 30s, got %v", ff.timeout)
	}
}

func TestPresetFor(t *testing.T) {
	preview, err := PresetFor(RenderPreview)
	if err != nil {
		t.Fatal(err)
	}
	if preview.Width != 540 || preview.Height != 960 {
		t.Errorf("Unexpected preview size %dx%d", preview.Width, preview.Height)
	}

	final, err := PresetFor(RenderFinal)
	if err != nil {
		t.Fatal(err)
	}
	if final.Width != 1080 || final.Height != 1920 {
		t.Errorf("Unexpected final size %dx%d", final.Width, final.Height)
	}

	if _, err := PresetFor("4k"); !errors.Is(err, ErrUnknownRenderType) {
		t.Errorf("Expected ErrUnknownRenderType, got %v", err)
	}
}

func argValue(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func TestBuildRenderArgs(t *testing.T) {
	tests := []struct {
		name       string
		opts       ClipOptions
		wantErr    error
		wantSS     string
		wantT      string
		wantFilter []string
		noFilter   string
		wantRate   string
	}{
		{
			name:       "preview with captions",
			opts:       ClipOptions{Input: "in.mp4", Output: "out.mp4", StartMs: 61500, EndMs: 91500, SubtitlesPath: "/tmp/cap.srt", Type: RenderPreview},
			wantSS:     "61.500",
			wantT:      "30.000",
			wantFilter: []string{"scale=540:960:force_original_aspect_ratio=increase", "crop=540:960", "subtitles='/tmp/cap.srt'"},
			wantRate:   "1500k",
		},
		{
			name:       "final without captions",
			opts:       ClipOptions{Input: "in.mp4", Output: "out.mp4", StartMs: 5, EndMs: 12005, Type: RenderFinal},
			wantSS:     "0.005",
			wantT:      "12.000",
			wantFilter: []string{"crop=1080:1920"},
			noFilter:   "subtitles",
			wantRate:   "6000k",
		},
		{
			name:    "empty range",
			opts:    ClipOptions{StartMs: 1000, EndMs: 1000, Type: RenderPreview},
			wantErr: ErrInvalidRange,
		},
		{
			name:    "unknown type",
			opts:    ClipOptions{StartMs: 0, EndMs: 1000, Type: "gif"},
			wantErr: ErrUnknownRenderType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := BuildRenderArgs(tt.opts)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildRenderArgs failed: %v", err)
			}

			if got := argValue(args, "-ss"); got != tt.wantSS {
				t.Errorf("-ss = %q, want %q", got, tt.wantSS)
			}
			if got := argValue(args, "-t"); got != tt.wantT {
				t.Errorf("-t = %q, want %q", got, tt.wantT)
			}
			filter := argValue(args, "-vf")
			for _, want := range tt.wantFilter {
				if !strings.Contains(filter, want) {
					t.Errorf("filter %q missing %q", filter, want)
				}
			}
			if tt.noFilter != "" && strings.Contains(filter, tt.noFilter) {
				t.Errorf("filter %q should not contain %q", filter, tt.noFilter)
			}
			if got := argValue(args, "-b:v"); got != tt.wantRate {
				t.Errorf("-b:v = %q, want %q", got, tt.wantRate)
			}
			if args[len(args)-1] != tt.opts.Output {
				t.Errorf("Expected output last, got %q", args[len(args)-1])
			}
		})
	}
}

func TestEscapeFilterPath(t *testing.T) {
	got := escapeFilterPath(`C:\caps\it's.srt`)
	want := `C\:\\caps\\it\'s.srt`
	if got != want {
		t.Errorf("escapeFilterPath = %q, want %q", got, want)
	}
}

func TestDoubleBitrate(t *testing.T) {
	if got := doubleBitrate("1500k"); got != "3000k" {
		t.Errorf("Expected 3000k, got %s", got)
	}
	if got := doubleBitrate("fast"); got != "fast" {
		t.Errorf("Expected passthrough, got %s", got)
	}
}

func TestParseMetadata(t *testing.T) {
	raw := []byte(`{
		"format": {"duration": "3600.5", "size": "1048576", "bit_rate": "2000000", "format_name": "mov,mp4", "tags": {"title": "Sunday"}},
		"streams": [
			{"codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080},
			{"codec_type": "audio", "codec_name": "aac"}
		]
	}`)

	meta, err := parseMetadata(raw, "in.mp4")
	if err != nil {
		t.Fatalf("parseMetadata failed: %v", err)
	}
	if meta.Duration != 3600.5 || meta.Size != 1048576 || meta.Bitrate != 2000000 {
		t.Errorf("Unexpected format values %+v", meta)
	}
	if !meta.HasVideo() || meta.Width != 1920 || meta.Height != 1080 || meta.AudioCodec != "aac" {
		t.Errorf("Unexpected stream values %+v", meta)
	}
	if meta.Title != "Sunday" {
		t.Errorf("Expected title Sunday, got %q", meta.Title)
	}

	streamOnly := []byte(`{"format": {}, "streams": [{"codec_type": "audio", "codec_name": "mp3", "duration": "12.5"}]}`)
	meta, err = parseMetadata(streamOnly, "in.mp3")
	if err != nil {
		t.Fatal(err)
	}
	if meta.Duration != 12.5 || meta.HasVideo() {
		t.Errorf("Unexpected audio-only metadata %+v", meta)
	}

	_, err = parseMetadata([]byte(`{"format": {}, "streams": []}`), "empty.mp4")
	if !errors.Is(err, ErrInvalidMedia) {
		t.Errorf("Expected ErrInvalidMedia, got %v", err)
	}
	var procErr *ProcessingError
	if !errors.As(err, &procErr) || procErr.Operation != "metadata_validation" {
		t.Errorf("Expected metadata_validation ProcessingError, got %v", err)
	}
}

func TestProcessingError(t *testing.T) {
	base := fmt.Errorf("exit status 1")
	err := NewProcessingError("render", "in.mp4", base, "bad input")
	if !errors.Is(err, base) {
		t.Error("Expected ProcessingError to unwrap")
	}
	if !strings.Contains(err.Error(), "stderr: bad input") {
		t.Errorf("Expected stderr in message, got %q", err.Error())
	}
}

type fakeFetcher struct {
	path    string
	err     error
	cleaned bool
}

func (f *fakeFetcher) Fetch(ctx context.Context, source, label string) (*download.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &download.Result{FilePath: f.path, Cleanup: func() error { f.cleaned = true; return nil }}, nil
}

func TestClipRendererErrors(t *testing.T) {
	dir := t.TempDir()
	ff := New("ffmpeg", filepath.Join(dir, "no-ffprobe"), time.Second)

	t.Run("missing output path", func(t *testing.T) {
		r := NewClipRenderer(ff, &fakeFetcher{}, dir)
		if _, err := r.Render(context.Background(), RenderRequest{}); err == nil {
			t.Error("Expected error without output path")
		}
	})

	t.Run("fetch failure", func(t *testing.T) {
		r := NewClipRenderer(ff, &fakeFetcher{err: errors.New("404")}, dir)
		_, err := r.Render(context.Background(), RenderRequest{OutputPath: filepath.Join(dir, "o.mp4"), EndMs: 20000, Type: RenderPreview})
		if err == nil || !strings.Contains(err.Error(), "failed to fetch source") {
			t.Errorf("Expected fetch error, got %v", err)
		}
	})

	t.Run("probe failure cleans up source", func(t *testing.T) {
		fetcher := &fakeFetcher{path: filepath.Join(dir, "src.mp4")}
		r := NewClipRenderer(ff, fetcher, dir)
		_, err := r.Render(context.Background(), RenderRequest{OutputPath: filepath.Join(dir, "o.mp4"), EndMs: 20000, Type: RenderPreview})
		var procErr *ProcessingError
		if !errors.As(err, &procErr) {
			t.Errorf("Expected ProcessingError, got %v", err)
		}
		if !fetcher.cleaned {
			t.Error("Expected source cleanup")
		}
	})
}

// Only runs if ffmpeg/ffprobe are installed
func TestValidateBinaries(t *testing.T) {
	ff := New("ffmpeg", "ffprobe", 30*time.Second)
	if err := ff.ValidateBinaries(); err != nil {
		t.Skipf("ffmpeg/ffprobe not available: %v", err)
	}

	missing := New("/nonexistent/ffmpeg", "ffprobe", time.Second)
	if err := missing.ValidateBinaries(); !errors.Is(err, ErrFFmpegNotFound) {
		t.Errorf("Expected ErrFFmpegNotFound, got %v", err)
	}
}
