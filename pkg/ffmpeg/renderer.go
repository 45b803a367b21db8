package ffmpeg

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/killallgit/sermon-clips/pkg/download"
)

// SourceFetcher resolves a source URL or path to a local file
type SourceFetcher interface {
	Fetch(ctx context.Context, source, label string) (*download.Result, error)
}

// ClipRenderer renders vertical clips with burned-in captions
type ClipRenderer struct {
	ff      *FFmpeg
	fetcher SourceFetcher
	tempDir string
}

func NewClipRenderer(ff *FFmpeg, fetcher SourceFetcher, tempDir string) *ClipRenderer {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &ClipRenderer{ff: ff, fetcher: fetcher, tempDir: tempDir}
}

// Render fetches the source, writes captions to a temp file and encodes the clip
func (r *ClipRenderer) Render(ctx context.Context, req RenderRequest) (RenderResult, error) {
	if req.OutputPath == "" {
		return RenderResult{}, fmt.Errorf("output path is required")
	}

	src, err := r.fetcher.Fetch(ctx, req.SourceURL, fmt.Sprintf("clip-%d", req.ClipID))
	if err != nil {
		return RenderResult{}, fmt.Errorf("failed to fetch source: %w", err)
	}
	defer func() {
		if err := src.Cleanup(); err != nil {
			log.Printf("[WARN] Failed to remove source for clip %d: %v", req.ClipID, err)
		}
	}()

	if _, err := r.ff.ValidateSource(ctx, src.FilePath, req.EndMs); err != nil {
		return RenderResult{}, err
	}

	var subtitles string
	if req.Captions != "" {
		subtitles, err = r.writeCaptions(req.ClipID, req.Captions)
		if err != nil {
			return RenderResult{}, err
		}
		defer os.Remove(subtitles)
	}

	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0755); err != nil {
		return RenderResult{}, fmt.Errorf("failed to create output dir: %w", err)
	}

	log.Printf("[INFO] Rendering clip %d (%s) %d-%dms to %s", req.ClipID, req.Type, req.StartMs, req.EndMs, req.OutputPath)
	err = r.ff.RenderClip(ctx, ClipOptions{
		Input:         src.FilePath,
		Output:        req.OutputPath,
		StartMs:       req.StartMs,
		EndMs:         req.EndMs,
		SubtitlesPath: subtitles,
		Type:          req.Type,
	})
	if err != nil {
		os.Remove(req.OutputPath)
		return RenderResult{}, err
	}

	result := RenderResult{OutputPath: req.OutputPath, DurationMs: req.EndMs - req.StartMs}
	if meta, err := r.ff.GetMetadata(ctx, req.OutputPath); err == nil {
		result.DurationMs = int64(meta.Duration * 1000)
		result.SizeBytes = meta.Size
	} else {
		log.Printf("[WARN] Could not probe rendered clip %d: %v", req.ClipID, err)
	}
	return result, nil
}

func (r *ClipRenderer) writeCaptions(clipID uint, srt string) (string, error) {
	f, err := os.CreateTemp(r.tempDir, fmt.Sprintf("%scaptions_%d_*.srt", download.TempPrefix, clipID))
	if err != nil {
		return "", fmt.Errorf("failed to create captions file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(srt); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write captions: %w", err)
	}
	return f.Name(), nil
}
