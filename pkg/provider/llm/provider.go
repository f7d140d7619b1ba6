// Package llm defines the Provider interface for text-generation backends.
//
// An LLM provider wraps a remote or local model API (Gemini, OpenAI, Anthropic,
// a local Ollama instance, ...) and exposes a uniform interface for the mentor
// features: one-shot completions with optional grounding, and static model
// capabilities.
//
// Implementors must be safe for concurrent use.
package llm

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when the backend answers without any text.
var ErrEmptyResponse = errors.New("llm: empty response")

// Usage holds token accounting information returned by the LLM backend.
type Usage struct {
	// PromptTokens is the number of tokens consumed by the input messages and
	// system prompt.
	PromptTokens int

	// CompletionTokens is the number of tokens generated in the response.
	CompletionTokens int

	// TotalTokens is PromptTokens + CompletionTokens. Some providers return it
	// directly rather than computing it from the parts.
	TotalTokens int
}

// CompletionRequest carries everything the LLM needs to produce a response.
// At minimum Messages must be non-empty.
type CompletionRequest struct {
	// Messages is the ordered conversation. The last message is typically from
	// the user and drives the response.
	Messages []Message

	// SystemPrompt is an optional high-priority instruction. Providers without
	// a dedicated system field prepend it as a system-role message.
	SystemPrompt string

	// Temperature controls output randomness in the range [0.0, 2.0]. Zero
	// means the provider default.
	Temperature float64

	// MaxTokens caps the number of completion tokens. Zero means the provider
	// default.
	MaxTokens int

	// Grounding asks the model to back its answer with live search or map
	// data. Providers that cannot ground ignore it; check
	// Capabilities().SupportsGrounding first when it matters.
	Grounding Grounding
}

// Grounding selects the retrieval tools offered to the model.
type Grounding struct {
	// WebSearch enables web search grounding.
	WebSearch bool

	// Maps enables map grounding. Location, when set, biases results towards
	// the user's position.
	Maps bool

	// Location is the user's position for map grounding.
	Location *Location
}

// Enabled reports whether any grounding tool is requested.
func (g Grounding) Enabled() bool { return g.WebSearch || g.Maps }

// Location is a WGS84 coordinate.
type Location struct {
	Latitude  float64
	Longitude float64
}

// Source is one grounding reference attached to a response.
type Source struct {
	Title string
	URI   string
}

// CompletionResponse is returned by Complete.
type CompletionResponse struct {
	// Content is the full text of the assistant's reply.
	Content string

	// Sources lists the grounding references the model cited, if any.
	Sources []Source

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// Provider is the abstraction over any LLM backend.
//
// Implementations must be safe for concurrent use from multiple goroutines
// and must return promptly when ctx is cancelled.
type Provider interface {
	// Complete sends req to the model and waits for the full response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Capabilities returns static metadata describing what the underlying
	// model supports. The result is constant for the lifetime of the Provider.
	Capabilities() ModelCapabilities
}
