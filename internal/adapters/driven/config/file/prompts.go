package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/soundbench/soundbench/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads LLM prompts from user-editable files on disk.
// Prompts are loaded from a configurable directory with fallback to embedded defaults.
//
// The store uses lazy initialisation - files are only created when first accessed,
// not in the constructor. This makes testing easier and avoids unexpected I/O.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// defaultPrompts contains embedded default prompts.
// These are used when user files don't exist and as the initial content for new files.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptPDFConvert: `Please follow these instructions carefully:

1. Analyze the PDF content thoroughly.

2. Convert the content to markdown format, following these rules:
   - Ignore page headers at the top of each page and page footers at the bottom of each page. These often contain page numbers, document names, or section titles.
   - Preserve semantic markup such as headings, bold text, italics, and bullet points.
   - If you encounter pictures or diagrams, describe their purpose in markdown instead of including the actual images.
   - For multi-column layouts, treat the columns as one continuous page, maintaining the logical flow of the content.
   - Do not exclude any sections, summarize them, or truncate for length.

3. Before providing the final markdown output, wrap your analysis in a <pdf_analysis> tag to show your thought process and ensure you've addressed all requirements. In your analysis:
   - List the main sections or chapters of the PDF content.
   - Identify and quote examples of headers and footers you'll be ignoring.
   - List and describe any images or diagrams you've found.
   - Note any special formatting or semantic markup you've encountered.
   - Explain how you'll handle multi-column layouts, if present.
   - Double check that you didn't truncate any content.
   - Outline your plan for converting the content to markdown.

4. After your analysis, provide the converted markdown content in <markdown_output></markdown_output> tags without any additional commentary. Don't forget the closing tag.

Please proceed with your analysis and conversion of the PDF content.`,

	driven.PromptSituateChunk: `<document>
%s
</document>

Here is the chunk we want to situate within the whole document
<chunk>
%s
</chunk>

Please give a short succinct context to situate this chunk within the overall document for the purposes of improving search retrieval of the chunk.
Answer only with the succinct context and nothing else.`,

	driven.PromptClassifyManual: `You will be analyzing a technical manual for a product to extract specific information. The manual content is provided below:

<technical_manual>
%s
</technical_manual>

Your task is to carefully read through the manual and extract the following information:
1. Company name / brand
2. Model name of the product being documented
3. Type of product (e.g., synthesizer, guitar pedal, software plugin)
4. Keywords that describe the purpose and utility of the product

Follow these steps to complete the task:

1. Thoroughly read the entire technical manual.

2. Look for the company name or brand. This is often found on the cover page, in headers, or in copyright notices.

3. Identify the model name of the product. This is typically prominently displayed near the beginning of the manual or in product descriptions.

4. Determine the type of product based on the descriptions and features mentioned in the manual.

5. Extract keywords that describe the product's purpose and utility. Focus on terms that highlight its main features, functions, and applications.

6. Organize your findings into a JSON object with the following structure:
{
    "brand": "",
    "model": "",
    "product_type": "",
    "keywords": []
}

Important notes:
- If you cannot find a specific piece of information, use "Unknown" as the value.
- For the "keywords" field, include an array of relevant terms (at least 3, but no more than 10).
- Ensure that the extracted information is accurate and directly supported by the content in the manual.
- Leave out legal designations like LLC or TM.

Present your final output within <json_output> tags, formatted as a valid JSON object.`,

	driven.PromptClassifyQuery: `You will be given a list of brands and models, followed by a user's query. Your task is to determine if the user's query contains mentions of any of the brands or models from the list. Exact matches are not necessary; you should look for close matches or variations as well. Consider common misspellings, abbreviations, or partial matches.

First, here is the list of brands and models:
<brands>
%s
</brands>

<models>
%s
</models>

Now, here is the user's query:
<user_query>
%s
</user_query>

Provide your response in the following format:

<brands>
List the matched brands here, one per line. If no matches were found, write "none"
</brands>

<models>
List the matched models here, one per line. If no matches were found, write "none"
</models>`,

	driven.PromptChatSystem: `You are a specialized studio assistant for a busy music producer. Your primary purpose is to provide accurate, concise technical information to maximize the producer's efficiency in the studio. You have access to a RAG (Retrieval-Augmented Generation) system containing a comprehensive index of technical manuals for available studio equipment.`,

	driven.PromptChatIntro: `You can expect retrieved documents to be located in <retrieved_documents> tags and the user's query to be located in <user_query> tags.

Core Responsibilities:

1. Answer technical questions about studio equipment using the retrieved manual excerpts
2. Use your general knowledge and, if they're relevant, the retrieved documents, to answer questions about music theory and studio tasks like mixing and mastering.
3. Provide troubleshooting assistance based on technical documentation
4. Suggest optimal equipment settings and configurations
5. Offer workflow tips to improve productivity
6. Translate technical jargon into clear, actionable instructions

Interaction Guidelines:

- Keep responses brief and focused on the immediate need
- Prioritize actionable information over theoretical explanations
- Acknowledge when information is incomplete or unclear in the retrieved documents
- Use appropriate technical terminology but explain it when necessary
- Format responses for quick scanning (concise paragraphs, occasional bullet points)
- Include exact page/section references from manuals when relevant
- When suggesting alternatives, focus only on what's feasible with the existing equipment

Response Structure:

- Direct answer to the question (1-2 sentences)
- Supporting details from relevant manual(s)
- Practical next steps or troubleshooting sequence (when applicable)
- Optional: Quick tip for improved workflow

Remember, you can expect retrieved documents to be located in <retrieved_documents> tags and the user's query in <user_query> tags.`,

	driven.PromptChatTurn: `For this turn of the conversation, the following documents have been retrieved from a RAG (Retrieval-Augmented Generation) system:

<retrieved_documents>
%s
</retrieved_documents>

Here is the user's query for this turn of the conversation:

<user_query>
%s
</user_query>`,
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.soundbench/prompts/.
//
// The constructor does not perform any I/O - directory creation and
// file writes happen lazily on first Load() call.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(home, ".soundbench", "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt template for the given name.
// On first call, initialises the prompt directory and creates default files.
// Returns cached value if available, otherwise loads from file.
// Falls back to embedded default if file doesn't exist.
func (s *PromptStore) Load(name string) (string, error) {
	// Ensure directory and defaults exist (lazy init)
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		// Fall back to embedded defaults if init failed
		if prompt, ok := defaultPrompts[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	// Check cache first (read lock)
	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	// Load from file (no lock held during I/O)
	prompt, err := s.loadFromFile(name)
	if err != nil {
		// Fall back to embedded default
		if defaultPrompt, ok := defaultPrompts[name]; ok {
			return defaultPrompt, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	// Cache the result (write lock)
	// Use double-check pattern to avoid overwriting concurrent loads
	s.mu.Lock()
	if _, ok := s.cache[name]; !ok {
		s.cache[name] = prompt
	} else {
		// Another goroutine loaded it first, use their value
		prompt = s.cache[name]
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// initialise creates the prompt directory and default files.
// Called once via sync.Once on first Load().
func (s *PromptStore) initialise() {
	// Create directory
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	// Create default prompt files (only if they don't exist)
	for name, content := range defaultPrompts {
		path := filepath.Join(s.promptDir, name+".txt")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}

	// Create README
	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

// loadFromFile reads a prompt from disk.
func (s *PromptStore) loadFromFile(name string) (string, error) {
	path := filepath.Join(s.promptDir, name+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// createReadme writes a README file explaining the prompts directory.
func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil // Already exists or stat error (ignore)
	}

	content := `# Soundbench Prompts

This directory contains customisable prompts used by soundbench's LLM features.

## Files

- ` + "`pdf_convert.txt`" + ` - Converts PDF manuals to markdown
- ` + "`situate_chunk.txt`" + ` - Situates a chunk within its whole document
- ` + "`classify_manual.txt`" + ` - Extracts brand/model/type/keywords from a manual
- ` + "`classify_query.txt`" + ` - Matches a chat message against known brands and models
- ` + "`chat_system.txt`" + ` - System prompt for the studio assistant
- ` + "`chat_intro.txt`" + ` - First turn seeding the assistant's behaviour
- ` + "`chat_turn.txt`" + ` - Per-turn template wrapping retrieved documents

## Customisation

Edit any file to customise LLM behaviour. Changes take effect on the next
command or after restarting the chat.

## Format Placeholders

Some prompts use Go fmt placeholders:
- ` + "`%s`" + ` - String (e.g., the document, chunk, or query)

Ensure customised prompts maintain placeholders in the correct positions.
`
	return os.WriteFile(path, []byte(content), 0600)
}
