// Package briefing runs the daily audio-briefing pipeline: gather the
// generated articles for a target list, write one announcer script,
// synthesize a single audio track with a per-article timeline, and
// persist the result.
package briefing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/team-leekim/newsnack-ai/internal/audio"
	"github.com/team-leekim/newsnack-ai/internal/config"
	"github.com/team-leekim/newsnack-ai/internal/logging"
	"github.com/team-leekim/newsnack-ai/internal/objstore"
	"github.com/team-leekim/newsnack-ai/internal/pipeline"
	"github.com/team-leekim/newsnack-ai/internal/providers"
	"github.com/team-leekim/newsnack-ai/internal/retry"
	"github.com/team-leekim/newsnack-ai/internal/store"
)

// Segment is one article's narration within the briefing.
type Segment struct {
	ArticleID    int64
	Title        string
	ThumbnailURL string
	Script       string
}

// State carries one briefing run's accumulated results.
type State struct {
	TargetIDs []int64

	Articles []*store.Article
	Segments []Segment
	Script   string
	Audio    []byte
	Duration float64
	Timeline []store.TimelineEntry

	Briefing *store.Briefing
}

// Builder owns the compiled briefing pipeline.
type Builder struct {
	store    *store.Store
	provider providers.Provider
	objects  objstore.Store
	retry    retry.Policy
	logger   *slog.Logger
	pipe     *pipeline.Pipeline[*State]
}

// Option configures optional Builder collaborators.
type Option func(*Builder)

// WithLogger attaches a logger for pipeline and node events.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New compiles a briefing builder from the configuration.
func New(cfg *config.Config, st *store.Store, provider providers.Provider, objects objstore.Store, opts ...Option) (*Builder, error) {
	b := &Builder{
		store:    st,
		provider: provider,
		objects:  objects,
		retry:    retry.FromConfig(cfg.Retry),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = logging.NewComponentLogger(b.logger, "briefing")

	pipe := pipeline.New[*State]("briefing-generation", pipeline.WithLogger(b.logger)).
		AddNode("fetch_candidates", b.fetchCandidates).
		AddNode("assemble_script", b.assembleScript).
		AddNode("synthesize_audio", b.synthesizeAudio).
		AddNode("persist", b.persist).
		AddEdge("fetch_candidates", "assemble_script").
		AddEdge("assemble_script", "synthesize_audio").
		AddEdge("synthesize_audio", "persist").
		AddEdge("persist", pipeline.End)
	if err := pipe.Compile(); err != nil {
		return nil, err
	}
	b.pipe = pipe
	return b, nil
}

// Run builds one briefing for the given work-item identifiers.
func (b *Builder) Run(ctx context.Context, targetIDs []int64) (*store.Briefing, error) {
	state := &State{TargetIDs: targetIDs}
	if err := b.pipe.Run(ctx, state); err != nil {
		return nil, err
	}
	return state.Briefing, nil
}

// fetchCandidates loads the generated article for each target work
// item, preserving the caller's order. Targets with no article are
// logged and skipped, never fatal.
func (b *Builder) fetchCandidates(ctx context.Context, state *State) error {
	if len(state.TargetIDs) == 0 {
		b.logger.Warn("no target work items provided")
		return nil
	}

	articles, err := b.store.ArticlesByWorkItemIDs(ctx, state.TargetIDs)
	if err != nil {
		return fmt.Errorf("fetch candidates: %w", err)
	}

	byItem := make(map[int64]*store.Article, len(articles))
	for _, article := range articles {
		byItem[article.WorkItemID] = article
	}
	for _, id := range state.TargetIDs {
		article, ok := byItem[id]
		if !ok {
			b.logger.Warn("no generated article for target work item",
				logging.Int64(logging.FieldItemID, id))
			continue
		}
		state.Articles = append(state.Articles, article)
	}

	b.logger.Info("fetched briefing candidates",
		logging.Int("requested", len(state.TargetIDs)),
		logging.Int("found", len(state.Articles)))
	return nil
}

type briefingResponse struct {
	Segments []struct {
		Script string `json:"script"`
	} `json:"segments"`
}

// assembleScript writes one narration segment per candidate article in
// the single announcer voice. A count mismatch from the model is
// logged; pairing stops at the shorter side.
func (b *Builder) assembleScript(ctx context.Context, state *State) error {
	if len(state.Articles) == 0 {
		return retry.Permanent(fmt.Errorf("assemble script: no candidate articles"))
	}

	content, err := b.provider.CompleteJSON(ctx, announcerSystemPrompt, briefingUserPrompt(state.Articles))
	if err != nil {
		return fmt.Errorf("assemble script: %w", err)
	}
	var decoded briefingResponse
	if err := providers.DecodeModelJSON(content, &decoded); err != nil {
		return fmt.Errorf("assemble script: %w", err)
	}
	if len(decoded.Segments) != len(state.Articles) {
		b.logger.Warn("segment count mismatch",
			logging.Int("requested", len(state.Articles)),
			logging.Int("returned", len(decoded.Segments)))
	}

	count := min(len(state.Articles), len(decoded.Segments))
	if count == 0 {
		return fmt.Errorf("assemble script: model returned no segments")
	}
	for i := 0; i < count; i++ {
		state.Segments = append(state.Segments, Segment{
			ArticleID:    state.Articles[i].ID,
			Title:        state.Articles[i].Title,
			ThumbnailURL: state.Articles[i].ThumbnailURL,
			Script:       decoded.Segments[i].Script,
		})
	}
	return nil
}

// synthesizeAudio renders one continuous track for the joined script
// and splits its measured duration across segments in proportion to
// their non-whitespace character counts.
func (b *Builder) synthesizeAudio(ctx context.Context, state *State) error {
	scripts := make([]string, len(state.Segments))
	for i, segment := range state.Segments {
		scripts[i] = segment.Script
	}
	state.Script = strings.Join(scripts, " ")

	audioBytes, err := retry.DoValue(ctx, b.retry, func(ctx context.Context) ([]byte, error) {
		return b.provider.Synthesize(ctx, ttsPrompt(state.Script))
	})
	if err != nil {
		return fmt.Errorf("synthesize audio: %w", err)
	}

	duration, err := audio.Duration(audioBytes)
	if err != nil {
		return fmt.Errorf("synthesize audio: measure duration: %w", err)
	}
	secs := duration.Seconds()
	if secs <= 0 {
		return fmt.Errorf("synthesize audio: invalid duration %f", secs)
	}

	weights := make([]int, len(state.Segments))
	for i, segment := range state.Segments {
		weights[i] = audio.CountSpokenChars(segment.Script)
	}
	spans := audio.AllocateTimeline(secs, weights)

	state.Audio = audioBytes
	state.Duration = secs
	state.Timeline = make([]store.TimelineEntry, len(state.Segments))
	for i, segment := range state.Segments {
		state.Timeline[i] = store.TimelineEntry{
			ArticleID:    segment.ArticleID,
			Title:        segment.Title,
			ThumbnailURL: segment.ThumbnailURL,
			Start:        spans[i].Start,
			End:          spans[i].End,
		}
	}

	b.logger.Info("briefing audio synthesized",
		logging.Float64("duration_seconds", secs),
		logging.Int("segments", len(state.Segments)))
	return nil
}

// persist uploads the track first and only then writes the briefing
// row; a failed upload is fatal for the run.
func (b *Builder) persist(ctx context.Context, state *State) error {
	key := fmt.Sprintf("briefings/%s.wav", time.Now().UTC().Format("2006-01-02T15-04-05"))
	audioURL, err := b.objects.PutBytes(ctx, key, state.Audio, "audio/wav")
	if err != nil {
		return fmt.Errorf("persist: upload audio: %w", err)
	}

	articleIDs := make([]int64, len(state.Segments))
	for i, segment := range state.Segments {
		articleIDs[i] = segment.ArticleID
	}

	briefing, err := b.store.AddBriefing(ctx, &store.Briefing{
		Title:           fmt.Sprintf("Daily briefing %s", time.Now().Format("2006-01-02")),
		AudioURL:        audioURL,
		Script:          state.Script,
		DurationSeconds: state.Duration,
		ArticleIDs:      articleIDs,
		Timeline:        state.Timeline,
	})
	if err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	state.Briefing = briefing

	b.logger.Info("briefing published",
		logging.Int64("briefing_id", briefing.ID),
		logging.String("audio_url", audioURL))
	return nil
}
