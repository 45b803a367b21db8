package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/killallgit/sermon-clips/internal/suggest"
)

// Clip sources
const (
	ClipSourceAuto   = "auto"   // Suggestion produced by a run
	ClipSourceManual = "manual" // Created by a user or accepted from a suggestion
)

// Clip status constants
const (
	ClipStatusSuggested  = "suggested"  // Auto suggestion awaiting review
	ClipStatusAccepted   = "accepted"   // Suggestion accepted, manual copy created
	ClipStatusPending    = "pending"    // Manual clip awaiting render
	ClipStatusProcessing = "processing" // Render in progress
	ClipStatusDone       = "done"
	ClipStatusError      = "error"
)

// Render types
const (
	RenderTypePreview = "preview"
	RenderTypeFinal   = "final"
)

// Clip is either an auto suggestion (Source "auto") or a renderable manual
// clip (Source "manual"). Suggestions are soft-deleted when superseded.
type Clip struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	UUID      string         `json:"uuid" gorm:"uniqueIndex;not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	SermonID uint   `json:"sermon_id" gorm:"not null;index:idx_clips_sermon_source"`
	Source   string `json:"source" gorm:"size:10;not null;index:idx_clips_sermon_source"`
	RunID    string `json:"run_id,omitempty" gorm:"size:36;index"`

	StartMs int64 `json:"start_ms" gorm:"not null"`
	EndMs   int64 `json:"end_ms" gorm:"not null"`

	// Suggestion fields
	SegmentIDs     datatypes.JSON `json:"segment_ids,omitempty"`
	Score          float64        `json:"score"`
	HeuristicScore float64        `json:"heuristic_score"`
	LLMScore       *float64       `json:"llm_score,omitempty"`
	SegmentType    string         `json:"segment_type,omitempty" gorm:"size:20"`
	Hooks          datatypes.JSON `json:"hooks,omitempty"`
	Rationale      string         `json:"rationale,omitempty" gorm:"type:text"`
	Theme          string         `json:"theme,omitempty" gorm:"size:200"`
	UseLLM         bool           `json:"use_llm" gorm:"default:false"`
	LLMMethod      *string        `json:"llm_method" gorm:"size:20"`
	LLMProvider    *string        `json:"llm_provider" gorm:"size:20"`

	// Trim suggested by the LLM; offsets move edges inward
	TrimStartOffsetSec *float64 `json:"trim_start_offset_sec,omitempty"`
	TrimEndOffsetSec   *float64 `json:"trim_end_offset_sec,omitempty"`
	TrimConfidence     *float64 `json:"trim_confidence,omitempty"`
	TrimApplied        bool     `json:"trim_applied" gorm:"default:false"`

	// Share of the run's token usage
	LLMPromptTokens     *int64   `json:"llm_prompt_tokens,omitempty"`
	LLMCompletionTokens *int64   `json:"llm_completion_tokens,omitempty"`
	LLMCacheHitTokens   *int64   `json:"llm_cache_hit_tokens,omitempty"`
	LLMCacheMissTokens  *int64   `json:"llm_cache_miss_tokens,omitempty"`
	LLMTotalTokens      *int64   `json:"llm_total_tokens,omitempty"`
	LLMEstimatedCostUSD *float64 `json:"llm_estimated_cost_usd,omitempty"`

	// Render fields
	Status       string `json:"status" gorm:"size:20;index"`
	RenderType   string `json:"render_type,omitempty" gorm:"size:10"`
	OutputURL    string `json:"output_url,omitempty" gorm:"size:1000"`
	ErrorMessage string `json:"error_message,omitempty" gorm:"size:1000"`
	OriginClipID *uint  `json:"origin_clip_id,omitempty" gorm:"index"`
}

// BeforeCreate generates a UUID before creating a new clip
func (c *Clip) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == "" {
		c.UUID = uuid.New().String()
	}
	if c.Status == "" {
		if c.Source == ClipSourceAuto {
			c.Status = ClipStatusSuggested
		} else {
			c.Status = ClipStatusPending
		}
	}
	return nil
}

func (Clip) TableName() string {
	return "clips"
}

func (c *Clip) DurationMs() int64 {
	return c.EndMs - c.StartMs
}

func (c *Clip) IsSuggestion() bool {
	return c.Source == ClipSourceAuto
}

// Trim returns the stored trim suggestion, or nil.
func (c *Clip) Trim() *suggest.TrimSuggestion {
	if c.TrimStartOffsetSec == nil && c.TrimEndOffsetSec == nil {
		return nil
	}
	t := &suggest.TrimSuggestion{}
	if c.TrimStartOffsetSec != nil {
		t.StartOffsetSec = *c.TrimStartOffsetSec
	}
	if c.TrimEndOffsetSec != nil {
		t.EndOffsetSec = *c.TrimEndOffsetSec
	}
	if c.TrimConfidence != nil {
		t.Confidence = *c.TrimConfidence
	}
	return t
}

func (c *Clip) SetTrim(t *suggest.TrimSuggestion) {
	if t == nil {
		c.TrimStartOffsetSec, c.TrimEndOffsetSec, c.TrimConfidence = nil, nil, nil
		return
	}
	start, end, conf := t.StartOffsetSec, t.EndOffsetSec, t.Confidence
	c.TrimStartOffsetSec, c.TrimEndOffsetSec, c.TrimConfidence = &start, &end, &conf
}

// Usage returns the token usage attributed to this clip.
func (c *Clip) Usage() suggest.Usage {
	var u suggest.Usage
	u.PromptTokens = deref(c.LLMPromptTokens)
	u.CompletionTokens = deref(c.LLMCompletionTokens)
	u.CacheHitTokens = deref(c.LLMCacheHitTokens)
	u.CacheMissTokens = deref(c.LLMCacheMissTokens)
	u.TotalTokens = deref(c.LLMTotalTokens)
	if c.LLMEstimatedCostUSD != nil {
		u.CostUSD = *c.LLMEstimatedCostUSD
	}
	return u
}

func (c *Clip) SetUsage(u suggest.Usage) {
	prompt, completion := u.PromptTokens, u.CompletionTokens
	hit, miss, total, cost := u.CacheHitTokens, u.CacheMissTokens, u.TotalTokens, u.CostUSD
	c.LLMPromptTokens = &prompt
	c.LLMCompletionTokens = &completion
	c.LLMCacheHitTokens = &hit
	c.LLMCacheMissTokens = &miss
	c.LLMTotalTokens = &total
	c.LLMEstimatedCostUSD = &cost
}

// SegmentIDList decodes SegmentIDs.
func (c *Clip) SegmentIDList() []uint {
	var ids []uint
	if len(c.SegmentIDs) > 0 {
		_ = json.Unmarshal(c.SegmentIDs, &ids)
	}
	return ids
}

// HookList decodes Hooks.
func (c *Clip) HookList() []suggest.HookKind {
	var hooks []suggest.HookKind
	if len(c.Hooks) > 0 {
		_ = json.Unmarshal(c.Hooks, &hooks)
	}
	return hooks
}

// ClipFromCandidate builds an auto suggestion row for a run.
func ClipFromCandidate(sermonID uint, runID string, cand suggest.Candidate) Clip {
	ids, _ := json.Marshal(cand.SegmentIDs)
	hooks := cand.Hooks
	if hooks == nil {
		hooks = []suggest.HookKind{}
	}
	hookJSON, _ := json.Marshal(hooks)

	c := Clip{
		SermonID:       sermonID,
		Source:         ClipSourceAuto,
		RunID:          runID,
		StartMs:        cand.StartMs,
		EndMs:          cand.EndMs,
		SegmentIDs:     datatypes.JSON(ids),
		Score:          cand.Score,
		HeuristicScore: cand.HeuristicScore,
		LLMScore:       cand.LLMScore,
		SegmentType:    string(cand.SegmentType),
		Hooks:          datatypes.JSON(hookJSON),
		Rationale:      cand.Rationale,
		Theme:          cand.Theme,
		UseLLM:         cand.UseLLM,
		Status:         ClipStatusSuggested,
	}
	if cand.UseLLM && cand.Method != "" {
		m, p := string(cand.Method), string(cand.Provider)
		c.LLMMethod, c.LLMProvider = &m, &p
	}
	c.SetTrim(cand.Trim)
	c.TrimApplied = cand.TrimApplied
	return c
}

// ClipFeedback records one accept or reject action on a suggestion.
type ClipFeedback struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
	ClipID    uint           `json:"clip_id" gorm:"not null;index"`
	Accepted  bool           `json:"accepted"`
	UserID    string         `json:"user_id,omitempty" gorm:"size:100"`
}

func (ClipFeedback) TableName() string {
	return "clip_feedback"
}

// SuggestionRun audits one suggestion run.
type SuggestionRun struct {
	ID                string     `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt         time.Time  `json:"created_at"`
	SermonID          uint       `json:"sermon_id" gorm:"not null;index"`
	RequestedMethod   string     `json:"requested_method" gorm:"size:20"`
	RequestedProvider string     `json:"requested_provider" gorm:"size:20"`
	Method            string     `json:"method,omitempty" gorm:"size:20"`
	Provider          string     `json:"provider,omitempty" gorm:"size:20"`
	UseLLM            bool       `json:"use_llm"`
	UsedLLM           bool       `json:"used_llm"`
	Partial           bool       `json:"partial"`
	FallbackReason    string     `json:"fallback_reason,omitempty" gorm:"size:1000"`
	CandidateCount    int        `json:"candidate_count"`
	SuggestionCount   int        `json:"suggestion_count"`
	PromptTokens      int64      `json:"prompt_tokens"`
	CompletionTokens  int64      `json:"completion_tokens"`
	CacheHitTokens    int64      `json:"cache_hit_tokens"`
	CacheMissTokens   int64      `json:"cache_miss_tokens"`
	TotalTokens       int64      `json:"total_tokens"`
	EstimatedCostUSD  float64    `json:"estimated_cost_usd"`
	StartedAt         time.Time  `json:"started_at"`
	FinishedAt        *time.Time `json:"finished_at,omitempty"`
}

func (r *SuggestionRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

func (SuggestionRun) TableName() string {
	return "suggestion_runs"
}

// SetUsage copies run totals onto the audit row.
func (r *SuggestionRun) SetUsage(u suggest.Usage) {
	r.PromptTokens = u.PromptTokens
	r.CompletionTokens = u.CompletionTokens
	r.CacheHitTokens = u.CacheHitTokens
	r.CacheMissTokens = u.CacheMissTokens
	r.TotalTokens = u.TotalTokens
	r.EstimatedCostUSD = u.CostUSD
}

func deref(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
