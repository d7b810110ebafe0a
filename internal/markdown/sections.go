// Package markdown parses converted manual text into heading-bounded
// sections, the raw material for retrieval chunks.
package markdown

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Section is a contiguous span of document content under one heading trail.
type Section struct {
	// HeadingPath is the trail of headings from the document root down to
	// this section, outermost first.
	HeadingPath []string

	// Content is the section body, headings excluded.
	Content string
}

var headingRe = regexp.MustCompile(`^(#{1,6})\s+(.*?)\s*#*\s*$`)

// ExtractTitle returns the document title: the first H1 heading, or the
// filename with separators spaced out when no H1 exists.
func ExtractTitle(content, filename string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}
	}

	name := filepath.Base(filename)
	if ext := filepath.Ext(name); ext != "" {
		name = strings.TrimSuffix(name, ext)
	}
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return name
}

// Split walks the document's heading hierarchy and emits one section per
// lowest-level heading: a heading with body text and no child headings closes
// a section. Content before the first heading becomes a section with an empty
// heading path. Sections whose body exceeds maxChars are split further along
// paragraph boundaries; maxChars <= 0 disables splitting.
//
// The walk is deterministic: the same input always yields the same sections
// in the same order, which keeps chunk identity stable across runs.
func Split(content string, maxChars int) []Section {
	lines := strings.Split(content, "\n")

	type frame struct {
		level int
		text  string
	}
	var stack []frame
	var body []string
	var sections []Section
	inFence := false

	flush := func() {
		text := strings.TrimSpace(strings.Join(body, "\n"))
		body = body[:0]
		if text == "" {
			return
		}
		path := make([]string, len(stack))
		for i, f := range stack {
			path[i] = f.text
		}
		for _, part := range splitParagraphs(text, maxChars) {
			sections = append(sections, Section{HeadingPath: path, Content: part})
		}
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		// Fenced code blocks may contain lines that look like headings.
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			body = append(body, line)
			continue
		}
		if inFence {
			body = append(body, line)
			continue
		}

		m := headingRe.FindStringSubmatch(line)
		if m == nil {
			body = append(body, line)
			continue
		}

		flush()
		level := len(m[1])
		for len(stack) > 0 && stack[len(stack)-1].level >= level {
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, frame{level: level, text: m[2]})
	}
	flush()

	return sections
}

// splitParagraphs breaks text into pieces no longer than maxChars, grouping
// whole paragraphs greedily. A single paragraph longer than maxChars is kept
// intact rather than cut mid-sentence.
func splitParagraphs(text string, maxChars int) []string {
	if maxChars <= 0 || len(text) <= maxChars {
		return []string{text}
	}

	paragraphs := regexp.MustCompile(`\n{2,}`).Split(text, -1)
	var parts []string
	var current strings.Builder

	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if current.Len() > 0 && current.Len()+len(p)+2 > maxChars {
			parts = append(parts, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	if len(parts) == 0 {
		return []string{text}
	}
	return parts
}
