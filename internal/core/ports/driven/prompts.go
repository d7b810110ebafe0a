package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible
	// default or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptPDFConvert instructs the LLM to convert a PDF page set to
	// Markdown inside <markdown_output> tags. No format placeholders.
	PromptPDFConvert = "pdf_convert"

	// PromptSituateChunk asks for a short context situating a chunk within
	// its document. Placeholders: %s (document), %s (chunk).
	PromptSituateChunk = "situate_chunk"

	// PromptClassifyManual extracts brand/model/product type/keywords from a
	// whole manual as JSON in <json_output> tags. Placeholder: %s (document).
	PromptClassifyManual = "classify_manual"

	// PromptClassifyQuery matches a user message against known brands and
	// models, answering in <brands>/<models> tags. Placeholders:
	// %s (brands), %s (models), %s (query).
	PromptClassifyQuery = "classify_query"

	// PromptChatSystem is the system prompt for the studio assistant.
	// No format placeholders.
	PromptChatSystem = "chat_system"

	// PromptChatIntro seeds a new session as the first user turn, laying out
	// responsibilities and response structure. No format placeholders.
	PromptChatIntro = "chat_intro"

	// PromptChatTurn is the per-turn template wrapping retrieved documents
	// and the user's query. Placeholders: %s (documents), %s (query).
	PromptChatTurn = "chat_turn"
)
