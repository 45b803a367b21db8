package cmd

import (
	"fmt"
	"log"

	"github.com/killallgit/sermon-clips/api/types"
	"github.com/killallgit/sermon-clips/internal/database"
	"github.com/killallgit/sermon-clips/internal/services/cleanup"
	"github.com/killallgit/sermon-clips/internal/services/clips"
	"github.com/killallgit/sermon-clips/internal/services/embeddings"
	"github.com/killallgit/sermon-clips/internal/services/jobs"
	"github.com/killallgit/sermon-clips/internal/services/sermons"
	"github.com/killallgit/sermon-clips/internal/services/suggestions"
	"github.com/killallgit/sermon-clips/internal/services/workers"
	"github.com/killallgit/sermon-clips/internal/suggest"
	"github.com/killallgit/sermon-clips/internal/suggest/classify"
	"github.com/killallgit/sermon-clips/internal/suggest/dedupe"
	"github.com/killallgit/sermon-clips/internal/suggest/heuristic"
	"github.com/killallgit/sermon-clips/internal/suggest/llm"
	"github.com/killallgit/sermon-clips/internal/suggest/strategy"
	"github.com/killallgit/sermon-clips/pkg/config"
	"github.com/killallgit/sermon-clips/pkg/download"
	"github.com/killallgit/sermon-clips/pkg/ffmpeg"
	"github.com/killallgit/sermon-clips/pkg/transcript"
)

// app holds the services one process runs
type app struct {
	db          *database.DB
	jobs        jobs.Service
	sermons     sermons.Service
	embeddings  embeddings.Service
	suggestions suggestions.Service
	clips       clips.Service
}

// openDatabase opens and migrates the configured database
func openDatabase(cfg *config.Config) (*database.DB, error) {
	db, err := database.Initialize(cfg.Database.Path, cfg.Database.Verbose)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.AutoMigrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func newApp(cfg *config.Config) (*app, error) {
	db, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}

	classifier, err := newClassifier(cfg.Suggestions.LexiconPath)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	jobService := jobs.NewService(jobs.NewRepository(db.DB), jobs.Backoff{
		Base:      cfg.Queues.BackoffBase,
		Max:       cfg.Queues.BackoffMax,
		MaxJitter: cfg.Queues.BackoffJitter,
	})

	fetcher := transcript.NewFetcher(transcript.FetchOptions{
		Timeout:   cfg.Transcription.Timeout,
		UserAgent: cfg.Transcription.UserAgent,
		MaxSize:   cfg.Transcription.MaxSize,
	})
	sermonService := sermons.NewService(sermons.NewRepository(db.DB), jobService, sermons.NewTranscriptFetcher(fetcher))

	var embedder embeddings.Embedder
	if e, err := embeddings.NewOpenAIEmbedder(embeddings.OpenAIConfig{
		APIKey:  cfg.Embeddings.APIKey,
		BaseURL: cfg.Embeddings.BaseURL,
		Model:   cfg.Embeddings.Model,
		Timeout: cfg.Embeddings.Timeout,
	}); err != nil {
		log.Printf("[WARN] Embeddings disabled: %v", err)
	} else {
		embedder = e
	}
	embeddingService := embeddings.NewService(db.DB, sermonService, jobService, embedder, cfg.Embeddings.BatchSize)

	settings, routing := suggestionSettings(cfg)
	suggestionService := suggestions.NewService(
		suggestions.NewRepository(db.DB), sermonService, jobService, classifier,
		strategy.NewRouter(routing, classifier, nil), settings,
		suggestions.WithSettingsSource(func() (suggestions.Settings, strategy.Settings, error) {
			current, err := config.GetConfig()
			if err != nil {
				return suggestions.Settings{}, strategy.Settings{}, err
			}
			s, r := suggestionSettings(current)
			return s, r, nil
		}),
	)

	storage, err := clips.NewLocalOutputStorage(cfg.Render.OutputDir)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	ff := ffmpeg.New(cfg.Render.FFmpegPath, cfg.Render.FFprobePath, cfg.Render.Timeout)
	if err := ff.ValidateBinaries(); err != nil {
		log.Printf("[WARN] %v; render jobs will fail until ffmpeg is installed", err)
	}
	downloader := download.NewDownloader(download.Options{
		TempDir:       cfg.Render.TempDir,
		MaxSize:       cfg.Render.MaxSourceBytes,
		Timeout:       cfg.Render.DownloadTimeout,
		UserAgent:     cfg.Transcription.UserAgent,
		ValidateMedia: true,
	})
	renderer := ffmpeg.NewClipRenderer(ff, downloader, cfg.Render.TempDir)
	clipService := clips.NewService(clips.NewRepository(db.DB), sermonService, jobService, renderer, storage)

	return &app{
		db:          db,
		jobs:        jobService,
		sermons:     sermonService,
		embeddings:  embeddingService,
		suggestions: suggestionService,
		clips:       clipService,
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

func (a *app) dependencies(version string) *types.Dependencies {
	return &types.Dependencies{
		DB:                a.db,
		JobService:        a.jobs,
		SermonService:     a.sermons,
		SuggestionService: a.suggestions,
		EmbeddingService:  a.embeddings,
		ClipService:       a.clips,
		Version:           version,
	}
}

// workerManager registers every processor on every queue pool
func (a *app) workerManager(cfg *config.Config) *workers.Manager {
	concurrency := make(map[string]int, len(cfg.Queues.Pools))
	for queue, pool := range cfg.Queues.Pools {
		concurrency[queue] = pool.Concurrency
	}
	return workers.NewManager(a.jobs, workers.ManagerConfig{
		PollInterval: cfg.Queues.PollInterval,
		Concurrency:  concurrency,
		StaleAfter:   cfg.Queues.StaleAfter,
	},
		workers.NewTranscriptionProcessor(a.jobs, a.sermons),
		workers.NewEmbeddingProcessor(a.embeddings),
		workers.NewSuggestionProcessor(a.suggestions),
		workers.NewRenderProcessor(a.clips),
	)
}

func (a *app) cleanupService(cfg *config.Config) *cleanup.Service {
	return cleanup.NewService(cleanup.Config{
		TempDir:      cfg.Render.TempDir,
		MaxFileAge:   cfg.Render.MaxTempAge,
		JobRetention: cfg.Queues.JobRetention,
		Interval:     cfg.Render.CleanupInterval,
	}, a.jobs)
}

func newClassifier(lexiconPath string) (*classify.Classifier, error) {
	if lexiconPath == "" {
		return classify.Default(), nil
	}
	lex, err := classify.LoadLexicon(lexiconPath)
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] Loaded classifier lexicon from %s", lexiconPath)
	return classify.New(lex), nil
}

// suggestionSettings maps the settings file onto the pipeline tuning
func suggestionSettings(cfg *config.Config) (suggestions.Settings, strategy.Settings) {
	sc, lc := cfg.Suggestions, cfg.LLM

	hc := heuristic.DefaultConfig()
	if sc.MaxCandidates > 0 {
		hc.MaxCandidates = sc.MaxCandidates
	}
	dc := dedupe.DefaultConfig()
	if sc.OverlapThreshold > 0 {
		dc.OverlapThreshold = sc.OverlapThreshold
	}
	if sc.SemanticDedupeThreshold > 0 {
		dc.SemanticThreshold = sc.SemanticDedupeThreshold
	}
	if sc.MaxSuggestions > 0 {
		dc.MaxResults = sc.MaxSuggestions
	}

	settings := suggestions.DefaultSettings()
	settings.Heuristic = hc
	settings.Dedupe = dc
	if sc.MinSuggestions > 0 {
		settings.MinSuggestions = sc.MinSuggestions
	}
	if sc.AutoTrimConfidence > 0 {
		settings.AutoTrimConfidence = sc.AutoTrimConfidence
	}
	settings.UseLLM = lc.UseLLM
	if m, err := suggest.ParseMethod(lc.DefaultMethod); err == nil && m != "" {
		settings.DefaultMethod = m
	}
	if p, err := suggest.ParseProvider(lc.DefaultProvider); err == nil && p != "" {
		settings.DefaultProvider = p
	}
	for name, pc := range lc.Providers {
		p, err := suggest.ParseProvider(name)
		if err != nil {
			log.Printf("[WARN] Ignoring provider settings for %q: %v", name, err)
			continue
		}
		settings.Providers[p] = llm.ProviderConfig{
			Provider:          p,
			APIKey:            pc.APIKey,
			BaseURL:           pc.BaseURL,
			Model:             pc.Model,
			Timeout:           pc.Timeout,
			MaxAttempts:       lc.MaxAttempts,
			BackoffBase:       lc.BackoffBase,
			BackoffMax:        lc.BackoffMax,
			RequestsPerMinute: pc.RequestsPerMinute,
			Temperature:       pc.Temperature,
			JSONMode:          pc.JSONMode,
		}
	}
	if len(lc.Pricing) > 0 {
		settings.Pricing = lc.Pricing
	}

	routing := strategy.Settings{
		MaxCandidates:       lc.MaxCandidates,
		ScoringBatchSize:    lc.ScoringBatchSize,
		Parallelism:         lc.Parallelism,
		HeuristicWeight:     lc.HeuristicWeight,
		SelectionTarget:     sc.SelectionTarget,
		WindowWords:         lc.WindowWords,
		WindowOverlapWords:  lc.WindowOverlapWords,
		CandidatesPerWindow: lc.CandidatesPerWindow,
		ChunkWords:          lc.ChunkWords,
		ClipsPerChunk:       lc.ClipsPerChunk,
		FullContextChars:    lc.FullContextChars,
		FullContextMinClips: lc.FullContextMinClips,
		FullContextMaxClips: lc.FullContextMaxClips,
	}
	return settings, routing
}
