package driving

import (
	"context"

	"github.com/soundbench/soundbench/internal/core/domain"
)

// AssistantService is the online, conversational surface of the system.
// One service instance may serve many independent sessions concurrently;
// each session carries its own history and entity memory.
type AssistantService interface {
	// Ping verifies the providers a chat session cannot run without.
	// Called before the interactive surface starts so configuration errors
	// surface immediately rather than on the first message.
	Ping(ctx context.Context) error

	// NewSession creates a session seeded with the assistant's system
	// contract.
	NewSession() *domain.Session

	// Classify determines which known brands/models a message references.
	// A failure is reported as an empty result with the error; callers treat
	// it as "no entities" and continue the turn.
	Classify(ctx context.Context, message string) (domain.QueryEntities, error)

	// Respond runs one conversation turn: classify, optionally retrieve,
	// generate. onDelta receives reply fragments in order as they stream.
	// On success the completed turn is appended to the session history; a
	// cancelled or failed turn leaves the history untouched.
	Respond(ctx context.Context, session *domain.Session, message string, onDelta func(string) error) (string, error)
}
