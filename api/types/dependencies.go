package types

import (
	"github.com/killallgit/sermon-clips/internal/database"
	"github.com/killallgit/sermon-clips/internal/services/clips"
	"github.com/killallgit/sermon-clips/internal/services/embeddings"
	"github.com/killallgit/sermon-clips/internal/services/jobs"
	"github.com/killallgit/sermon-clips/internal/services/sermons"
	"github.com/killallgit/sermon-clips/internal/services/suggestions"
)

// Dependencies holds all the dependencies needed by handlers
type Dependencies struct {
	DB                *database.DB
	JobService        jobs.Service
	SermonService     sermons.Service
	SuggestionService suggestions.Service
	EmbeddingService  embeddings.Service
	ClipService       clips.Service
	Version           string
}
