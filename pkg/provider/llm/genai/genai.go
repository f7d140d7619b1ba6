// Package genai provides an LLM provider backed by the Gemini API through the
// official Google Gen AI Go SDK. It is the only backend that supports
// grounding: web search and map lookups are run by the service and the cited
// sources are returned with the response.
package genai

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/MrWong99/gardencoach/pkg/provider/llm"
)

var _ llm.Provider = (*Provider)(nil)

// DefaultModel is used when New receives an empty model.
const DefaultModel = "gemini-3-flash-preview"

// Option is a functional option for Provider.
type Option func(*Provider)

// WithBaseURL overrides the Gemini API endpoint.
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.baseURL = url }
}

// WithAPIVersion overrides the API version path segment.
func WithAPIVersion(v string) Option {
	return func(p *Provider) { p.apiVersion = v }
}

// Provider implements llm.Provider using Models.GenerateContent.
type Provider struct {
	apiKey     string
	model      string
	baseURL    string
	apiVersion string

	mu     sync.Mutex
	client *genai.Client
}

// New constructs a Gemini text provider.
func New(apiKey, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("genai: apiKey must not be empty")
	}
	if model == "" {
		model = DefaultModel
	}
	p := &Provider{apiKey: apiKey, model: model}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

func (p *Provider) clientFor(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    p.baseURL,
			APIVersion: p.apiVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("genai: new client: %w", err)
	}
	p.client = c
	return c, nil
}

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	client, err := p.clientFor(ctx)
	if err != nil {
		return nil, err
	}

	contents, err := convertMessages(req.Messages)
	if err != nil {
		return nil, err
	}
	resp, err := client.Models.GenerateContent(ctx, p.model, contents, buildConfig(req))
	if err != nil {
		return nil, fmt.Errorf("genai: generate content: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return nil, llm.ErrEmptyResponse
	}
	result := &llm.CompletionResponse{Content: text}
	if u := resp.UsageMetadata; u != nil {
		result.Usage = llm.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	if len(resp.Candidates) > 0 {
		result.Sources = sources(resp.Candidates[0].GroundingMetadata)
	}
	return result, nil
}

// Capabilities implements llm.Provider.
func (p *Provider) Capabilities() llm.ModelCapabilities {
	return modelCapabilities(p.model)
}

func modelCapabilities(model string) llm.ModelCapabilities {
	caps := llm.ModelCapabilities{
		ContextWindow:     1_048_576,
		MaxOutputTokens:   65_536,
		SupportsGrounding: true,
	}
	lower := strings.ToLower(model)
	switch {
	case strings.Contains(lower, "gemini-2.0-flash"):
		caps.MaxOutputTokens = 8_192
	case strings.Contains(lower, "gemini-1.5"):
		caps.MaxOutputTokens = 8_192
		caps.SupportsGrounding = false
	}
	return caps
}

// buildConfig maps the request options and grounding tools onto the SDK config.
func buildConfig(req llm.CompletionRequest) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if req.Temperature != 0 {
		cfg.Temperature = genai.Ptr(float32(req.Temperature))
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	g := req.Grounding
	if g.WebSearch {
		cfg.Tools = append(cfg.Tools, &genai.Tool{GoogleSearch: &genai.GoogleSearch{}})
	}
	if g.Maps {
		cfg.Tools = append(cfg.Tools, &genai.Tool{GoogleMaps: &genai.GoogleMaps{}})
		if g.Location != nil {
			cfg.ToolConfig = &genai.ToolConfig{
				RetrievalConfig: &genai.RetrievalConfig{
					LatLng: &genai.LatLng{
						Latitude:  genai.Ptr(g.Location.Latitude),
						Longitude: genai.Ptr(g.Location.Longitude),
					},
				},
			}
		}
	}
	return cfg
}

// convertMessages maps chat messages to SDK contents. System messages in the
// history are sent as user turns; the dedicated system prompt is preferred.
func convertMessages(msgs []llm.Message) ([]*genai.Content, error) {
	if len(msgs) == 0 {
		return nil, fmt.Errorf("genai: request has no messages")
	}
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case llm.RoleUser, llm.RoleSystem:
			out = append(out, genai.NewContentFromText(m.Content, genai.RoleUser))
		case llm.RoleAssistant:
			out = append(out, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			return nil, fmt.Errorf("genai: unknown message role %q", m.Role)
		}
	}
	return out, nil
}

// sources flattens web and map grounding chunks, skipping duplicates.
func sources(md *genai.GroundingMetadata) []llm.Source {
	if md == nil {
		return nil
	}
	var out []llm.Source
	seen := make(map[string]bool)
	add := func(title, uri string) {
		if uri == "" || seen[uri] {
			return
		}
		seen[uri] = true
		out = append(out, llm.Source{Title: title, URI: uri})
	}
	for _, c := range md.GroundingChunks {
		if c == nil {
			continue
		}
		if c.Web != nil {
			add(c.Web.Title, c.Web.URI)
		}
		if c.Maps != nil {
			add(c.Maps.Title, c.Maps.URI)
		}
	}
	return out
}
