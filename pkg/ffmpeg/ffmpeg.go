package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// FFmpeg wraps ffmpeg and ffprobe functionality
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
	timeout     time.Duration
}

// New creates a new FFmpeg instance
func New(ffmpegPath, ffprobePath string, timeout time.Duration) *FFmpeg {
	return &FFmpeg{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		timeout:     timeout,
	}
}

// ValidateBinaries checks if ffmpeg and ffprobe are available
func (f *FFmpeg) ValidateBinaries() error {
	if _, err := exec.LookPath(f.ffmpegPath); err != nil {
		return fmt.Errorf("%w: %s", ErrFFmpegNotFound, f.ffmpegPath)
	}
	if _, err := exec.LookPath(f.ffprobePath); err != nil {
		return fmt.Errorf("%w: %s", ErrFFprobeNotFound, f.ffprobePath)
	}
	return nil
}

// ClipOptions are the inputs to a single local encode
type ClipOptions struct {
	Input         string
	Output        string
	StartMs       int64
	EndMs         int64
	SubtitlesPath string
	Type          RenderType
}

// BuildRenderArgs returns the ffmpeg arguments that cut [StartMs, EndMs) from
// the input, fill a vertical frame and optionally burn in subtitles.
func BuildRenderArgs(opts ClipOptions) ([]string, error) {
	if opts.StartMs < 0 || opts.EndMs <= opts.StartMs {
		return nil, fmt.Errorf("%w: %d-%d", ErrInvalidRange, opts.StartMs, opts.EndMs)
	}
	preset, err := PresetFor(opts.Type)
	if err != nil {
		return nil, err
	}

	filters := []string{
		fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase", preset.Width, preset.Height),
		fmt.Sprintf("crop=%d:%d", preset.Width, preset.Height),
	}
	if opts.SubtitlesPath != "" {
		filters = append(filters, fmt.Sprintf(
			"subtitles='%s':force_style='FontSize=%d,Alignment=2,MarginV=%d,Outline=2'",
			escapeFilterPath(opts.SubtitlesPath), preset.FontSize, preset.Height/12))
	}

	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", msToSeconds(opts.StartMs),
		"-i", opts.Input,
		"-t", msToSeconds(opts.EndMs - opts.StartMs),
		"-vf", strings.Join(filters, ","),
		"-c:v", "libx264",
		"-preset", preset.X264Preset,
		"-b:v", preset.VideoBitrate,
		"-maxrate", preset.VideoBitrate,
		"-bufsize", doubleBitrate(preset.VideoBitrate),
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", preset.AudioBitrate,
		"-movflags", "+faststart",
		opts.Output,
	}, nil
}

// RenderClip encodes one clip from a local input file
func (f *FFmpeg) RenderClip(ctx context.Context, opts ClipOptions) error {
	args, err := BuildRenderArgs(opts)
	if err != nil {
		return err
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return NewProcessingError("render", opts.Input, ErrProcessingTimeout, stderr.String())
		}
		return NewProcessingError("render", opts.Input, err, stderr.String())
	}
	return nil
}

func msToSeconds(ms int64) string {
	return fmt.Sprintf("%d.%03d", ms/1000, ms%1000)
}

// doubleBitrate turns "1500k" into "3000k"
func doubleBitrate(rate string) string {
	var n int
	var unit string
	if _, err := fmt.Sscanf(rate, "%d%s", &n, &unit); err != nil {
		return rate
	}
	return fmt.Sprintf("%d%s", n*2, unit)
}

// escapeFilterPath escapes a path for use inside a quoted filtergraph option
func escapeFilterPath(path string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`)
	return r.Replace(path)
}
