package articlegen

import (
	"fmt"

	"github.com/team-leekim/newsnack-ai/internal/store"
)

const analysisSystemPrompt = `You are a news curation expert. Analyze the news below, optimize its title, and summarize it.

Guidelines:
1. title:
   - Produce a short, punchy title capturing the core of the story, around 15 characters.
   - Use clear keywords without exaggeration, in the register of an objective newsroom headline.
2. summary:
   - Exactly 3 lines, each a very short declarative statement of one key fact.
3. content_type:
   - WEBTOON when the story is narrative and dramatic: a clear time-ordered arc, a person's dramatic action or decision, conflict, reversal, emotion. The core question is "what happened".
   - CARD_NEWS when the story is informational: policy, service or technology explainers, numbers and statistics, plain announcements. The core question is "what is it, how does it work".
   - When storytelling dominates pick WEBTOON; when conveying information dominates pick CARD_NEWS.

Respond in JSON: {"title": string, "summary": [string, string, string], "content_type": "WEBTOON"|"CARD_NEWS"}`

const webtoonSystemPrompt = `Recompose this news story as a 4-page visual storyboard.

Mission:
1. Each entry in image_prompts must describe different visual content and composition.
2. Pages 1-4 form one narrative flow, but never repeat the same camera angle or composition.
3. Vary background, character placement, and camera distance dynamically to fit the story.

Respond in JSON: {"final_body": string, "image_prompts": [4 distinct visual descriptions in English forming the story's narrative flow]}`

const cardNewsSystemPrompt = `Recompose this news story as 4 card-news panels that each land at a glance.

Mission:
1. The 4 image_prompts visualize the story's key information step by step.
2. Vary the layout per panel to avoid visual repetition:
   - panel 1: a strong hook title with a symbolic icon
   - panel 2: a chart or diagram highlighting the key figure
   - panel 3: a step layout showing cause and effect
   - panel 4: a scannable summary list with a closing visual
3. Keep a modern and trendy social media aesthetic.

Respond in JSON: {"final_body": string, "image_prompts": [4 distinct visual descriptions in English]}`

const validatorSystemPrompt = `You judge whether a candidate reference image legitimately depicts the subject of a news story.

Accept any recognizable real photo or official logo of a named entity from the story, even if low quality.
Reject cartoons, illustrations, placeholders, watermark/stock-preview frames, and images of an unrelated subject.

Respond in JSON: {"reason": string, "is_valid": boolean}`

const webtoonImageStyle = "Modern digital webtoon art style, clean line art, vibrant cel-shading. " +
	"Character must have consistent hair and outfit from the reference."

const cardNewsImageStyle = "Minimalist flat vector illustration, Instagram aesthetic, solid pastel background. " +
	"Maintain exact same color palette and layout style."

func imageStyle(format store.ArticleFormat) string {
	if format == store.FormatWebtoon {
		return webtoonImageStyle
	}
	return cardNewsImageStyle
}

// buildImagePrompt assembles the final rendering prompt for one panel.
func buildImagePrompt(format store.ArticleFormat, prompt string) string {
	instruction := "Write all text for Korean readers. " +
		"Use Korean for general text, but keep proper nouns, brand names, " +
		"and English acronyms in English. Ensure all text is legible."
	if format == store.FormatCardNews {
		instruction += " Focus on infographic elements and consistent background color."
	}
	return fmt.Sprintf("%s %s. %s", imageStyle(format), prompt, instruction)
}

func draftSystemPrompt(persona string, format store.ArticleFormat) string {
	base := cardNewsSystemPrompt
	if format == store.FormatWebtoon {
		base = webtoonSystemPrompt
	}
	return persona + "\n" + base
}
