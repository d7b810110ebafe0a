package domain

// QueryEntities holds the brands and models the classifier matched in a user
// message. Both lists are empty when the message names no known equipment.
type QueryEntities struct {
	Brands []string
	Models []string
}

// Empty reports whether no entity was matched.
func (e QueryEntities) Empty() bool {
	return len(e.Brands) == 0 && len(e.Models) == 0
}

// Session is the per-conversation state of the assistant. Sessions are
// independent of each other; the only shared state between them is the
// read-only vector store.
type Session struct {
	// History is the conversation so far, in provider message order.
	History []Turn

	// Entities accumulates every brand/model matched in this session.
	// Retrieval happens only when at least one entity is known; once a user
	// mentions their synth, follow-up questions stay grounded in its manual.
	Entities QueryEntities
}

// AddEntities merges newly matched entities into the session, dropping
// duplicates.
func (s *Session) AddEntities(e QueryEntities) {
	s.Entities.Brands = appendUnique(s.Entities.Brands, e.Brands)
	s.Entities.Models = appendUnique(s.Entities.Models, e.Models)
}

func appendUnique(dst, src []string) []string {
	seen := make(map[string]struct{}, len(dst))
	for _, v := range dst {
		seen[v] = struct{}{}
	}
	for _, v := range src {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		dst = append(dst, v)
	}
	return dst
}

// Turn is one message in the conversation history.
type Turn struct {
	// Role is "user" or "assistant".
	Role string

	// Content is the message text. For user turns this is the full turn
	// template (retrieved documents + query), not the bare message.
	Content string
}

// KnownEntities is the store-wide inventory of brands and models present in
// the index, used to ground the classifier.
type KnownEntities struct {
	Brands []string
	Models []string
}
