package transcript

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// FetchOptions configures transcript fetching behavior
type FetchOptions struct {
	Timeout   time.Duration
	UserAgent string
	MaxSize   int64 // bytes
}

func DefaultFetchOptions() FetchOptions {
	return FetchOptions{
		Timeout:   30 * time.Second,
		UserAgent: "SermonClips/1.0",
		MaxSize:   10 * 1024 * 1024,
	}
}

// Fetcher downloads transcripts produced by an external speech-to-text
// service.
type Fetcher struct {
	client  *http.Client
	options FetchOptions
}

func NewFetcher(options FetchOptions) *Fetcher {
	if options.Timeout <= 0 {
		options.Timeout = DefaultFetchOptions().Timeout
	}
	if options.MaxSize <= 0 {
		options.MaxSize = DefaultFetchOptions().MaxSize
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: options.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        5,
				IdleConnTimeout:     30 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		options: options,
	}
}

// Result is a fetched document and its detected format
type Result struct {
	Content     string
	Format      Format
	ContentType string
	Size        int64
}

// Fetch downloads url. When hint is empty the format is detected from the
// URL, the content type and finally the content itself.
func (f *Fetcher) Fetch(ctx context.Context, url string, hint Format) (*Result, error) {
	if url == "" {
		return nil, fmt.Errorf("empty transcript URL")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if f.options.UserAgent != "" {
		req.Header.Set("User-Agent", f.options.UserAgent)
	}
	req.Header.Set("Accept", "text/vtt,application/x-subrip,application/json,*/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transcript: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: url}
	}
	if resp.ContentLength > f.options.MaxSize {
		return nil, fmt.Errorf("transcript too large: %d bytes (max: %d)", resp.ContentLength, f.options.MaxSize)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.options.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}
	if int64(len(body)) > f.options.MaxSize {
		return nil, fmt.Errorf("transcript exceeds %d bytes", f.options.MaxSize)
	}

	content := string(body)
	contentType := resp.Header.Get("Content-Type")
	format := hint
	if format == "" {
		format = DetectFormat(url, contentType, content)
	}

	return &Result{
		Content:     content,
		Format:      format,
		ContentType: contentType,
		Size:        int64(len(body)),
	}, nil
}

// StatusError is a non-2xx response from the transcript host.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("transcript host returned status %d", e.StatusCode)
}

// Temporary reports whether a later attempt may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusRequestTimeout
}

// DetectFormat guesses a transcript format, defaulting to SRT.
func DetectFormat(url, contentType, content string) Format {
	path := strings.ToLower(url)
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	switch {
	case strings.HasSuffix(path, ".vtt"):
		return FormatVTT
	case strings.HasSuffix(path, ".srt"):
		return FormatSRT
	case strings.HasSuffix(path, ".json"):
		return FormatJSON
	}

	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "vtt"):
		return FormatVTT
	case strings.Contains(ct, "subrip"), strings.Contains(ct, "srt"):
		return FormatSRT
	case strings.Contains(ct, "json"):
		return FormatJSON
	}

	head := strings.TrimSpace(strings.TrimPrefix(content, "\ufeff"))
	switch {
	case strings.HasPrefix(head, "WEBVTT"):
		return FormatVTT
	case strings.HasPrefix(head, "{"), strings.HasPrefix(head, "["):
		return FormatJSON
	default:
		return FormatSRT
	}
}
