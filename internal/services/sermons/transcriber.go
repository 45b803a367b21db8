package sermons

import (
	"context"
	"fmt"

	"github.com/killallgit/sermon-clips/internal/models"
	"github.com/killallgit/sermon-clips/internal/suggest"
	"github.com/killallgit/sermon-clips/pkg/transcript"
)

// TranscriptFetcher is the default Transcriber. It downloads the transcript
// the speech-to-text service left at the sermon's transcript URL.
type TranscriptFetcher struct {
	fetcher *transcript.Fetcher
}

func NewTranscriptFetcher(fetcher *transcript.Fetcher) *TranscriptFetcher {
	return &TranscriptFetcher{fetcher: fetcher}
}

func (t *TranscriptFetcher) Transcribe(ctx context.Context, sermon *models.Sermon) ([]suggest.Segment, error) {
	if sermon.TranscriptURL == "" {
		return nil, ErrNoTranscriptSource
	}

	var hint transcript.Format
	if sermon.TranscriptFormat != "" {
		f, err := transcript.ParseFormat(sermon.TranscriptFormat)
		if err != nil {
			return nil, err
		}
		hint = f
	}

	res, err := t.fetcher.Fetch(ctx, sermon.TranscriptURL, hint)
	if err != nil {
		return nil, err
	}
	parsed, err := transcript.Parse(res.Content, res.Format)
	if err != nil {
		return nil, fmt.Errorf("parsing %s transcript: %w", res.Format, err)
	}
	return segmentsFromCues(parsed.Cues), nil
}
