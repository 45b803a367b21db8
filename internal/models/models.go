package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/killallgit/sermon-clips/internal/suggest"
)

// SermonStatus is the processing stage of a sermon.
type SermonStatus string

const (
	SermonStatusPending     SermonStatus = "pending"
	SermonStatusUploaded    SermonStatus = "uploaded"
	SermonStatusProcessing  SermonStatus = "processing"
	SermonStatusTranscribed SermonStatus = "transcribed"
	SermonStatusError       SermonStatus = "error"
)

// Sermon is a long-form recording that clips are cut from
type Sermon struct {
	gorm.Model
	Title            string       `json:"title" gorm:"not null"`
	Preacher         string       `json:"preacher"`
	SourceURL        string       `json:"source_url" gorm:"size:1000"`
	TranscriptURL    string       `json:"transcript_url,omitempty" gorm:"size:1000"`
	TranscriptFormat string       `json:"transcript_format,omitempty" gorm:"size:10"`
	DurationMs       int64        `json:"duration_ms"`
	Status           SermonStatus `json:"status" gorm:"default:'pending';index"`
	ErrorMessage     string       `json:"error_message,omitempty" gorm:"size:1000"`

	// Independent flags, set after transcription
	Suggested   bool       `json:"suggested" gorm:"default:false"`
	SuggestedAt *time.Time `json:"suggested_at,omitempty"`
	Embedded    bool       `json:"embedded" gorm:"default:false"`
	EmbeddedAt  *time.Time `json:"embedded_at,omitempty"`

	// Defaults used when a suggestion request does not name them
	UseLLM      bool   `json:"use_llm" gorm:"default:false"`
	LLMMethod   string `json:"llm_method,omitempty" gorm:"size:20"`
	LLMProvider string `json:"llm_provider,omitempty" gorm:"size:20"`

	Segments []TranscriptSegment `json:"-" gorm:"foreignKey:SermonID"`
}

// TranscriptSegment is one timestamped line of a sermon transcript. Segments
// are written once and never updated.
type TranscriptSegment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	SermonID  uint      `json:"sermon_id" gorm:"not null;index:idx_segments_sermon_order"`
	Index     int       `json:"index" gorm:"not null;index:idx_segments_sermon_order"`
	StartMs   int64     `json:"start_ms" gorm:"not null"`
	EndMs     int64     `json:"end_ms" gorm:"not null"`
	Text      string    `json:"text" gorm:"type:text"`
}

func (TranscriptSegment) TableName() string {
	return "transcript_segments"
}

func (s TranscriptSegment) ToSuggest() suggest.Segment {
	return suggest.Segment{ID: s.ID, StartMs: s.StartMs, EndMs: s.EndMs, Text: s.Text}
}

// SegmentsToSuggest converts stored segments for the suggestion pipeline.
func SegmentsToSuggest(segs []TranscriptSegment) []suggest.Segment {
	out := make([]suggest.Segment, 0, len(segs))
	for _, s := range segs {
		out = append(out, s.ToSuggest())
	}
	return out
}

// SegmentEmbedding is the vector for one transcript segment.
type SegmentEmbedding struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	SegmentID uint      `json:"segment_id" gorm:"not null;uniqueIndex"`
	SermonID  uint      `json:"sermon_id" gorm:"not null;index"`
	Model     string    `json:"model" gorm:"size:100"`
	Vector    []float32 `json:"vector" gorm:"serializer:json"`
}

func (SegmentEmbedding) TableName() string {
	return "segment_embeddings"
}

// EmbeddingMap indexes vectors by segment id.
func EmbeddingMap(rows []SegmentEmbedding) map[uint][]float32 {
	out := make(map[uint][]float32, len(rows))
	for _, r := range rows {
		if len(r.Vector) > 0 {
			out[r.SegmentID] = r.Vector
		}
	}
	return out
}
