// Package research finds a single reference-image URL for a news item.
//
// An agent loop gives a chat model three lookup tools (company logo,
// person thumbnail, generic image search) and runs until the model
// answers with a URL or NONE, or the iteration cap is hit. Abstract
// subjects such as policies or statistics are expected to end in NONE.
package research

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/team-leekim/newsnack-ai/internal/config"
	"github.com/team-leekim/newsnack-ai/internal/logging"
	"github.com/team-leekim/newsnack-ai/internal/providers"
)

const systemPrompt = `You are an image researcher for a news service. Given a news title and summary, find the single best reference image URL for the story.

Rules:
- Identify the core entity of the story first: a company/brand, a named person, or an abstract subject.
- For a company or brand, call get_company_logo with its official ENGLISH name.
- For a named person, call get_person_thumbnail with the name exactly as written in the article.
- Call get_fallback_image only after an authoritative tool returned TOOL_FAILED or none of its candidates fit the story.
- For abstract subjects (policies, statistics, concepts, weather, markets in general) do not force an image. Answer NONE.
- Inspect tool results and pick the candidate that matches the article context.

When you are done, answer with exactly one image URL on its own, or the single word NONE.`

var urlPattern = regexp.MustCompile(`https?://[^\s'"<>{}]+`)

// Agent runs the bounded tool loop.
type Agent struct {
	chat          providers.ChatProvider
	tools         []Tool
	maxIterations int
	logger        *slog.Logger
}

// NewAgent wires the standard tool set from cfg. Pass a nil logger to
// discard agent logs.
func NewAgent(chat providers.ChatProvider, cfg config.Research, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = logging.NewNop()
	}
	client := newToolClient(cfg)
	return &Agent{
		chat: chat,
		tools: []Tool{
			&CompanyLogoTool{client: client, cfg: cfg},
			&PersonThumbnailTool{client: client, cfg: cfg},
			&FallbackImageTool{client: client, cfg: cfg},
		},
		maxIterations: cfg.MaxIterations,
		logger:        logger.With(logging.FieldComponent, "research"),
	}
}

// Find returns the chosen reference-image URL, or "" when the agent
// decides the story has no suitable image. Tool failures steer the
// model rather than fail the call; only transport errors from the chat
// provider itself surface as errors.
func (a *Agent) Find(ctx context.Context, title, summary string) (string, error) {
	a.logger.Info("starting image research", slog.String("title", title))

	specs := make([]providers.ToolSpec, len(a.tools))
	byName := make(map[string]Tool, len(a.tools))
	for i, tool := range a.tools {
		specs[i] = providers.ToolSpec{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  tool.Parameters(),
		}
		byName[tool.Name()] = tool
	}

	messages := []providers.Message{
		{Role: providers.RoleSystem, Content: systemPrompt},
		{Role: providers.RoleUser, Content: fmt.Sprintf(
			"Title: %s\nSummary: %s\nFind the best reference image URL for this news.", title, summary)},
	}

	for iteration := 0; iteration < a.maxIterations; iteration++ {
		result, err := a.chat.Chat(ctx, messages, specs)
		if err != nil {
			return "", fmt.Errorf("research: chat turn %d: %w", iteration, err)
		}

		if len(result.ToolCalls) == 0 {
			url := extractAnswer(result.Content)
			a.logger.Info("research finished",
				slog.String("title", title),
				slog.String("reference_url", url),
				slog.Int("iterations", iteration+1))
			return url, nil
		}

		messages = append(messages, providers.Message{
			Role:      providers.RoleAssistant,
			Content:   result.Content,
			ToolCalls: result.ToolCalls,
		})
		for _, call := range result.ToolCalls {
			output := a.runTool(ctx, byName, call)
			messages = append(messages, providers.Message{
				Role:       providers.RoleTool,
				ToolCallID: call.ID,
				Content:    output,
			})
		}
	}

	a.logger.Warn("research iteration cap reached without an answer",
		slog.String("title", title),
		slog.Int("max_iterations", a.maxIterations))
	return "", nil
}

func (a *Agent) runTool(ctx context.Context, byName map[string]Tool, call providers.ToolCall) string {
	tool, ok := byName[call.Name]
	if !ok {
		a.logger.Warn("model requested unknown tool", slog.String("tool", call.Name))
		return fmt.Sprintf("TOOL_FAILED: unknown tool %q.", call.Name)
	}
	a.logger.Debug("running tool",
		slog.String("tool", call.Name),
		slog.String("arguments", call.Arguments))
	return tool.Call(ctx, call.Arguments)
}

// extractAnswer pulls the final URL out of the model's closing message.
// NONE, or a message with no URL at all, means no reference image.
func extractAnswer(content string) string {
	trimmed := strings.TrimSpace(content)
	if strings.EqualFold(trimmed, "NONE") {
		return ""
	}
	return urlPattern.FindString(trimmed)
}
