package download

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// TempPrefix starts the name of every file the downloader creates.
const TempPrefix = "source_"

// Options configures the download behavior
type Options struct {
	TempDir       string        // Directory for temporary files
	MaxSize       int64         // Maximum file size in bytes (0 = no limit)
	Timeout       time.Duration // Download timeout
	ProgressFunc  ProgressFunc  // Optional progress callback
	UserAgent     string
	ValidateMedia bool // Reject responses that are not audio or video
}

// ProgressFunc is called during download to report progress
type ProgressFunc func(downloaded, total int64)

func DefaultOptions() Options {
	return Options{
		TempDir:       os.TempDir(),
		MaxSize:       4 << 30,
		Timeout:       10 * time.Minute,
		UserAgent:     "SermonClips/1.0",
		ValidateMedia: true,
	}
}

// Result describes a downloaded or local source file. Cleanup removes the
// file when the downloader created it and is a no-op otherwise.
type Result struct {
	FilePath      string
	ContentType   string
	ContentLength int64
	Cleanup       func() error
}

// Downloader fetches sermon media into temporary storage
type Downloader struct {
	client  *http.Client
	options Options
}

func NewDownloader(options Options) *Downloader {
	return &Downloader{
		client: &http.Client{
			Timeout: options.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				DisableCompression:  true,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		options: options,
	}
}

// IsRemote reports whether source must be fetched over HTTP.
func IsRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Fetch returns a local path for source, downloading it first when it is a
// URL. label is used in the temp file name.
func (d *Downloader) Fetch(ctx context.Context, source, label string) (*Result, error) {
	if source == "" {
		return nil, fmt.Errorf("empty source")
	}
	if !IsRemote(source) {
		info, err := os.Stat(source)
		if err != nil {
			return nil, fmt.Errorf("source not readable: %w", err)
		}
		return &Result{FilePath: source, ContentLength: info.Size(), Cleanup: func() error { return nil }}, nil
	}
	return d.DownloadToTemp(ctx, source, label)
}

// DownloadToTemp downloads a URL to a temporary file
func (d *Downloader) DownloadToTemp(ctx context.Context, url, label string) (*Result, error) {
	log.Printf("[DEBUG] Starting download from %s for %s", url, label)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", d.options.UserAgent)
	req.Header.Set("Accept", "video/*,audio/*,*/*")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	if d.options.ValidateMedia && !isMediaContentType(contentType) {
		return nil, fmt.Errorf("invalid content type: %s", contentType)
	}
	if d.options.MaxSize > 0 && resp.ContentLength > d.options.MaxSize {
		return nil, fmt.Errorf("file too large: %d bytes (max %d)", resp.ContentLength, d.options.MaxSize)
	}

	if err := os.MkdirAll(d.options.TempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	tempFile, err := os.CreateTemp(d.options.TempDir, TempPrefix+sanitize(label)+"_*"+extension(url))
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	written, err := d.copyBody(resp.Body, tempFile, resp.ContentLength)
	tempPath := tempFile.Name()
	tempFile.Close()
	if err != nil {
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to download: %w", err)
	}
	if d.options.MaxSize > 0 && written > d.options.MaxSize {
		os.Remove(tempPath)
		return nil, fmt.Errorf("file too large: more than %d bytes", d.options.MaxSize)
	}

	log.Printf("[DEBUG] Downloaded %d bytes to %s", written, tempPath)

	return &Result{
		FilePath:      tempPath,
		ContentType:   contentType,
		ContentLength: written,
		Cleanup:       func() error { return CleanupTempFile(tempPath) },
	}, nil
}

// StatusError is a non-200 response from the media host.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned status %d", e.StatusCode)
}

// Temporary reports whether retrying the download may help.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

func (d *Downloader) copyBody(src io.Reader, dst *os.File, totalSize int64) (int64, error) {
	reader := src
	if d.options.ProgressFunc != nil && totalSize > 0 {
		reader = &progressReader{reader: src, total: totalSize, callback: d.options.ProgressFunc}
	}
	if d.options.MaxSize > 0 {
		// One extra byte detects bodies longer than the limit.
		reader = io.LimitReader(reader, d.options.MaxSize+1)
	}
	return io.Copy(dst, reader)
}

// CleanupTempFile removes a temporary file
func CleanupTempFile(path string) error {
	if path == "" {
		return nil
	}
	log.Printf("[DEBUG] Cleaning up temp file: %s", path)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// CleanupOldTempFiles removes downloader temp files older than maxAge and
// returns how many were removed.
func CleanupOldTempFiles(tempDir string, maxAge time.Duration) (int, error) {
	files, err := filepath.Glob(filepath.Join(tempDir, TempPrefix+"*"))
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	var removed int
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(file); err == nil {
				removed++
			}
		}
	}

	if removed > 0 {
		log.Printf("[DEBUG] Cleaned up %d old temp files", removed)
	}
	return removed, nil
}

func isMediaContentType(contentType string) bool {
	contentType = strings.ToLower(contentType)
	return strings.HasPrefix(contentType, "video/") ||
		strings.HasPrefix(contentType, "audio/") ||
		strings.HasPrefix(contentType, "application/octet-stream") ||
		strings.HasPrefix(contentType, "application/vnd.apple.mpegurl")
}

var mediaExtensions = map[string]bool{
	"mp4": true, "mov": true, "mkv": true, "webm": true, "m4v": true,
	"mp3": true, "m4a": true, "aac": true, "wav": true, "ogg": true,
}

// extension keeps a known media extension from the URL path, defaulting to .mp4
func extension(url string) string {
	p := url
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(p)), ".")
	if mediaExtensions[ext] {
		return "." + ext
	}
	return ".mp4"
}

func sanitize(label string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '_'
		}
	}, label)
}

// progressReader wraps a reader to report progress
type progressReader struct {
	reader     io.Reader
	total      int64
	downloaded int64
	callback   ProgressFunc
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.downloaded += int64(n)
		pr.callback(pr.downloaded, pr.total)
	}
	return n, err
}
