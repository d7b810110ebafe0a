// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// LLMService provides language model operations for conversion, chunk
// contextualisation, classification and chat.
//
// Implementations may include:
//   - Anthropic (Claude)
//   - Any Messages-API-compatible provider
type LLMService interface {
	// Generate produces text completion from a single prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// GenerateWithPDF produces a completion from a prompt accompanied by a PDF
	// document, for providers that accept document attachments.
	GenerateWithPDF(ctx context.Context, pdf []byte, prompt string, opts GenerateOptions) (string, error)

	// ChatStream conducts a conversation, invoking onDelta for each text
	// fragment as it arrives, in order. It returns the assembled reply.
	// A non-nil error from onDelta aborts the stream.
	ChatStream(ctx context.Context, messages []ChatMessage, opts ChatOptions, onDelta func(string) error) (string, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test
	// request. Used at startup so configuration errors fail before any work.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// System is the system prompt, when one applies.
	System string

	// Model overrides the service's default model for this call. The chunk
	// contextualisation and query classification stages use a faster model
	// than the main chat model.
	Model string
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// ChatOptions configures chat behaviour.
type ChatOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}
