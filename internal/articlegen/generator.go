// Package articlegen runs the content-generation pipeline that turns a
// claimed work item into a published article: analysis, optional
// reference-image research and validation, editor assignment, drafting,
// a four-image render, and a single publishing transaction.
package articlegen

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/team-leekim/newsnack-ai/internal/breaker"
	"github.com/team-leekim/newsnack-ai/internal/config"
	"github.com/team-leekim/newsnack-ai/internal/logging"
	"github.com/team-leekim/newsnack-ai/internal/objstore"
	"github.com/team-leekim/newsnack-ai/internal/pipeline"
	"github.com/team-leekim/newsnack-ai/internal/providers"
	"github.com/team-leekim/newsnack-ai/internal/research"
	"github.com/team-leekim/newsnack-ai/internal/retry"
	"github.com/team-leekim/newsnack-ai/internal/store"
)

// State carries one run's accumulated results between nodes. Owned by a
// single run, never shared.
type State struct {
	Item       *store.WorkItem
	ContentKey string

	FinalTitle   string
	Summary      []string
	Format       store.ArticleFormat
	ReferenceURL string
	Editor       *store.Editor
	Body         string
	ImagePrompts []string
	ImageURLs    []string

	Article *store.Article
}

// Generator owns the compiled article pipeline and its collaborators.
type Generator struct {
	store    *store.Store
	provider providers.Provider
	objects  objstore.Store
	agent    *research.Agent
	circuit  *breaker.Breaker
	retry    retry.Policy

	providerName  string
	withReference bool
	fallbackModel string

	httpClient *http.Client
	logger     *slog.Logger
	pipe       *pipeline.Pipeline[*State]
}

// Option configures optional Generator collaborators.
type Option func(*Generator)

// WithResearchAgent enables the reference-image research node.
func WithResearchAgent(agent *research.Agent) Option {
	return func(g *Generator) { g.agent = agent }
}

// WithBreaker routes image generation through the circuit breaker.
func WithBreaker(b *breaker.Breaker) Option {
	return func(g *Generator) { g.circuit = b }
}

// WithLogger attaches a logger for pipeline and node events.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithHTTPClient overrides the client used to download reference images.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Generator) { g.httpClient = client }
}

// New compiles an article generator from the configuration.
func New(cfg *config.Config, st *store.Store, provider providers.Provider, objects objstore.Store, opts ...Option) (*Generator, error) {
	g := &Generator{
		store:         st,
		provider:      provider,
		objects:       objects,
		retry:         retry.FromConfig(cfg.Retry),
		providerName:  cfg.Provider.Name,
		withReference: cfg.Provider.Google.ImageWithReference,
		fallbackModel: cfg.Breaker.FallbackImageModel,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		logger:        logging.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = logging.NewComponentLogger(g.logger, "articlegen")

	pipe := pipeline.New[*State]("article-generation", pipeline.WithLogger(g.logger)).
		AddNode("analyze", g.analyze).
		AddNode("research", g.runResearch).
		AddNode("validate_image", g.validateReference).
		AddNode("select_editor", g.selectEditor).
		AddNode("draft", g.draft).
		AddNode("generate_images", g.generateImages).
		AddNode("persist", g.persist).
		AddConditionalEdges("analyze", g.routeResearch, map[string]string{
			"do_research":   "research",
			"skip_research": "select_editor",
		}).
		AddEdge("research", "validate_image").
		AddEdge("validate_image", "select_editor").
		AddEdge("select_editor", "draft").
		AddEdge("draft", "generate_images").
		AddEdge("generate_images", "persist").
		AddEdge("persist", pipeline.End)
	if err := pipe.Compile(); err != nil {
		return nil, err
	}
	g.pipe = pipe
	return g, nil
}

// researchActive reports whether the optional research branch runs:
// only the provider with reference-image support uses a researched
// image, and the agent must be configured.
func (g *Generator) researchActive() bool {
	return g.agent != nil && g.providerName == "google" && g.withReference
}

func (g *Generator) routeResearch(*State) string {
	if g.researchActive() {
		return "do_research"
	}
	return "skip_research"
}

// Run executes the full pipeline for one claimed work item and returns
// the published article.
func (g *Generator) Run(ctx context.Context, item *store.WorkItem) (*store.Article, error) {
	state := &State{Item: item, ContentKey: uuid.NewString()}
	ctx = logging.WithItemID(ctx, item.ID)
	if err := g.pipe.Run(ctx, state); err != nil {
		return nil, err
	}
	return state.Article, nil
}

// Debug runs only the analysis and research portion and returns the
// intermediate state without persisting anything.
func (g *Generator) Debug(ctx context.Context, item *store.WorkItem, validate bool) (*State, error) {
	state := &State{Item: item}
	ctx = logging.WithItemID(ctx, item.ID)
	if err := g.analyze(ctx, state); err != nil {
		return nil, err
	}
	if g.agent == nil {
		return state, nil
	}
	if err := g.runResearch(ctx, state); err != nil {
		return nil, err
	}
	if validate {
		if err := g.validateReference(ctx, state); err != nil {
			return nil, err
		}
	}
	return state, nil
}

type analysisResponse struct {
	Title       string   `json:"title"`
	Summary     []string `json:"summary"`
	ContentType string   `json:"content_type"`
}

func (g *Generator) analyze(ctx context.Context, state *State) error {
	if strings.TrimSpace(state.Item.Body) == "" {
		return retry.Permanent(fmt.Errorf("work item %d has no source text", state.Item.ID))
	}

	userPrompt := fmt.Sprintf("Original title: %s\nBody: %s", state.Item.Title, state.Item.Body)
	content, err := g.provider.CompleteJSON(ctx, analysisSystemPrompt, userPrompt)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	var decoded analysisResponse
	if err := providers.DecodeModelJSON(content, &decoded); err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	format, ok := store.ParseArticleFormat(decoded.ContentType)
	if !ok {
		return fmt.Errorf("analyze: unknown content type %q", decoded.ContentType)
	}
	if decoded.Title == "" || len(decoded.Summary) == 0 {
		return fmt.Errorf("analyze: model returned an empty title or summary")
	}

	state.FinalTitle = decoded.Title
	state.Summary = decoded.Summary
	state.Format = format
	return nil
}

// runResearch never fails the pipeline: an agent error just means no
// reference image.
func (g *Generator) runResearch(ctx context.Context, state *State) error {
	url, err := g.agent.Find(ctx, state.FinalTitle, strings.Join(state.Summary, " "))
	if err != nil {
		g.logger.Warn("image research failed, continuing without a reference",
			logging.Int64(logging.FieldItemID, state.Item.ID),
			logging.Error(err))
		state.ReferenceURL = ""
		return nil
	}
	state.ReferenceURL = url
	return nil
}

type validationResponse struct {
	Reason  string `json:"reason"`
	IsValid bool   `json:"is_valid"`
}

// validateReference asks a multimodal judge whether the researched URL
// is an on-topic depiction. Rejection and download failure both clear
// the URL rather than failing the run.
func (g *Generator) validateReference(ctx context.Context, state *State) error {
	url := strings.Trim(state.ReferenceURL, ".,;:'\"()[]{}<>")
	state.ReferenceURL = ""
	if url == "" {
		return nil
	}

	image, mimeType, err := g.downloadImage(ctx, url)
	if err != nil {
		g.logger.Warn("reference image download failed",
			logging.String("url", url),
			logging.Error(err))
		return nil
	}

	userPrompt := fmt.Sprintf("News context:\nTitle: %s\nSummary: %s",
		state.FinalTitle, strings.Join(state.Summary, " "))
	content, err := g.provider.CompleteJSONVision(ctx, validatorSystemPrompt, userPrompt, image, mimeType)
	if err != nil {
		g.logger.Warn("reference validation call failed",
			logging.String("url", url),
			logging.Error(err))
		return nil
	}
	var decoded validationResponse
	if err := providers.DecodeModelJSON(content, &decoded); err != nil {
		g.logger.Warn("reference validation returned unreadable output", logging.Error(err))
		return nil
	}
	if !decoded.IsValid {
		g.logger.Info("reference image rejected",
			logging.String("url", url),
			logging.String("reason", decoded.Reason))
		return nil
	}
	state.ReferenceURL = url
	return nil
}

func (g *Generator) selectEditor(ctx context.Context, state *State) error {
	editors, err := g.store.ListEditors(ctx, state.Item.Category)
	if err != nil {
		return fmt.Errorf("select editor: %w", err)
	}
	if len(editors) == 0 {
		editors, err = g.store.ListEditors(ctx, "")
		if err != nil {
			return fmt.Errorf("select editor: %w", err)
		}
		if len(editors) == 0 {
			return retry.Permanent(fmt.Errorf("no editors exist, seed editor personas first"))
		}
		// No category match: any persona will do.
		state.Editor = editors[rand.Intn(len(editors))]
	} else {
		state.Editor = editors[0]
	}

	g.logger.Info("editor assigned",
		logging.Int64(logging.FieldItemID, state.Item.ID),
		logging.String("editor", state.Editor.Name),
		logging.String("category", state.Item.Category))
	return nil
}

type draftResponse struct {
	FinalBody    string   `json:"final_body"`
	ImagePrompts []string `json:"image_prompts"`
}

func (g *Generator) draft(ctx context.Context, state *State) error {
	system := draftSystemPrompt(state.Editor.Persona, state.Format)
	userPrompt := fmt.Sprintf("Title: %s\nContent: %s", state.FinalTitle, state.Item.Body)

	content, err := g.provider.CompleteJSON(ctx, system, userPrompt)
	if err != nil {
		return fmt.Errorf("draft: %w", err)
	}
	var decoded draftResponse
	if err := providers.DecodeModelJSON(content, &decoded); err != nil {
		return fmt.Errorf("draft: %w", err)
	}
	if decoded.FinalBody == "" {
		return fmt.Errorf("draft: model returned an empty body")
	}
	if len(decoded.ImagePrompts) != imageCount {
		return fmt.Errorf("draft: expected %d image prompts, got %d", imageCount, len(decoded.ImagePrompts))
	}
	seen := make(map[string]struct{}, imageCount)
	for _, prompt := range decoded.ImagePrompts {
		if strings.TrimSpace(prompt) == "" {
			return fmt.Errorf("draft: model returned an empty image prompt")
		}
		seen[prompt] = struct{}{}
	}
	if len(seen) != imageCount {
		return fmt.Errorf("draft: image prompts are not distinct")
	}

	state.Body = decoded.FinalBody
	state.ImagePrompts = decoded.ImagePrompts
	return nil
}

func (g *Generator) persist(ctx context.Context, state *State) error {
	article := &store.Article{
		WorkItemID:   state.Item.ID,
		ContentKey:   state.ContentKey,
		Format:       state.Format,
		Title:        state.FinalTitle,
		Summary:      strings.Join(state.Summary, "\n"),
		Category:     state.Item.Category,
		Body:         state.Body,
		EditorID:     state.Editor.ID,
		ThumbnailURL: state.ImageURLs[0],
		ImageURLs:    state.ImageURLs,
		Citations: []store.Citation{{
			Title: state.Item.Title,
			Press: state.Item.Press,
			URL:   state.Item.OriginURL,
		}},
	}

	published, err := g.store.PublishArticle(ctx, article)
	if err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	state.Article = published

	g.logger.Info("article published",
		logging.Int64(logging.FieldItemID, state.Item.ID),
		logging.Int64("article_id", published.ID),
		logging.String("format", string(published.Format)))
	return nil
}

// downloadImage fetches a reference image, capped at 10 MiB.
func (g *Generator) downloadImage(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("GET %s: empty body", url)
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" || !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(data)
	}
	return data, mimeType, nil
}
