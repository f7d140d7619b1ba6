package mentor

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/MrWong99/gardencoach/pkg/provider/llm"
)

// Idea is one generated business idea.
type Idea struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// GenerateIdeas asks for three current business ideas for the given
// interests, grounded on web search. It returns an empty, non-nil slice when
// no interests are given or the answer cannot be obtained or parsed.
func (m *Mentor) GenerateIdeas(ctx context.Context, interests []string) []Idea {
	cleaned := make([]string, 0, len(interests))
	for _, in := range interests {
		if in = strings.TrimSpace(in); in != "" {
			cleaned = append(cleaned, in)
		}
	}
	if len(cleaned) == 0 {
		return []Idea{}
	}

	resp, err := m.complete(ctx, featureIdeas, m.text, llm.CompletionRequest{
		Messages:  []llm.Message{llm.UserMessage(ideasPrompt(cleaned, m.language))},
		Grounding: llm.Grounding{WebSearch: true},
	})
	if err != nil {
		return []Idea{}
	}

	ideas, err := ParseIdeas(resp.Content)
	if err != nil {
		m.metrics.RecordProviderError(ctx, "mentor", featureIdeas)
		m.log.Warn("mentor: unparseable ideas, returning none", "err", err)
		return []Idea{}
	}
	return ideas
}

// ParseIdeas decodes a JSON array of ideas from model output. Markdown code
// fences and text around the array are ignored; ideas without a title are
// dropped.
func ParseIdeas(text string) ([]Idea, error) {
	text = stripFences(text)
	if i := strings.IndexByte(text, '['); i > 0 {
		text = text[i:]
	}
	if j := strings.LastIndexByte(text, ']'); j >= 0 && j < len(text)-1 {
		text = text[:j+1]
	}

	var raw []Idea
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, err
	}
	ideas := make([]Idea, 0, len(raw))
	for _, idea := range raw {
		idea.Title = strings.TrimSpace(idea.Title)
		idea.Description = strings.TrimSpace(idea.Description)
		if idea.Title == "" {
			continue
		}
		ideas = append(ideas, idea)
	}
	return ideas, nil
}

func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
