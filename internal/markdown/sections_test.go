package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const manual = `# Minilogue XD Manual

Welcome to the manual.

## Oscillators

Two analogue VCOs with wave shaping.

## Effects

### Reverb

Hall, room and plate algorithms.

### Delay

Stereo delay with tempo sync.
`

func TestSplitEmitsLowestLevelSections(t *testing.T) {
	sections := Split(manual, 0)
	require.Len(t, sections, 4)

	assert.Equal(t, []string{"Minilogue XD Manual"}, sections[0].HeadingPath)
	assert.Equal(t, "Welcome to the manual.", sections[0].Content)

	assert.Equal(t, []string{"Minilogue XD Manual", "Oscillators"}, sections[1].HeadingPath)

	assert.Equal(t, []string{"Minilogue XD Manual", "Effects", "Reverb"}, sections[2].HeadingPath)
	assert.Equal(t, "Hall, room and plate algorithms.", sections[2].Content)

	assert.Equal(t, []string{"Minilogue XD Manual", "Effects", "Delay"}, sections[3].HeadingPath)
}

func TestSplitDeterministic(t *testing.T) {
	a := Split(manual, 0)
	b := Split(manual, 0)
	assert.Equal(t, a, b)
}

func TestSplitThreeHeadingLevels(t *testing.T) {
	// A document with H1, H2, H3 each carrying content yields three sections.
	doc := "# One\n\nalpha\n\n## Two\n\nbravo\n\n### Three\n\ncharlie\n"
	sections := Split(doc, 0)
	require.Len(t, sections, 3)
	for _, s := range sections {
		assert.NotEmpty(t, s.Content)
	}
	assert.Equal(t, []string{"One", "Two", "Three"}, sections[2].HeadingPath)
}

func TestSplitPreamble(t *testing.T) {
	sections := Split("intro text before any heading\n\n# Title\n\nbody\n", 0)
	require.Len(t, sections, 2)
	assert.Empty(t, sections[0].HeadingPath)
	assert.Equal(t, "intro text before any heading", sections[0].Content)
}

func TestSplitIgnoresHeadingsInCodeFences(t *testing.T) {
	doc := "# Setup\n\n```\n# not a heading\n```\n\ndone\n"
	sections := Split(doc, 0)
	require.Len(t, sections, 1)
	assert.Equal(t, []string{"Setup"}, sections[0].HeadingPath)
	assert.Contains(t, sections[0].Content, "# not a heading")
}

func TestSplitSiblingHeadingsPopStack(t *testing.T) {
	doc := "## A\n\none\n\n## B\n\ntwo\n"
	sections := Split(doc, 0)
	require.Len(t, sections, 2)
	assert.Equal(t, []string{"A"}, sections[0].HeadingPath)
	assert.Equal(t, []string{"B"}, sections[1].HeadingPath)
}

func TestSplitLongSectionByParagraphs(t *testing.T) {
	para := strings.Repeat("x", 400)
	doc := "# Big\n\n" + para + "\n\n" + para + "\n\n" + para + "\n"
	sections := Split(doc, 900)
	require.Len(t, sections, 2, "three 400-char paragraphs at max 900 -> 2+1")
	for _, s := range sections {
		assert.Equal(t, []string{"Big"}, s.HeadingPath)
		assert.LessOrEqual(t, len(s.Content), 900)
	}
}

func TestSplitOversizedParagraphKeptIntact(t *testing.T) {
	para := strings.Repeat("y", 500)
	sections := Split("# H\n\n"+para+"\n", 100)
	require.Len(t, sections, 1)
	assert.Len(t, sections[0].Content, 500)
}

func TestSplitEmptyDocument(t *testing.T) {
	assert.Empty(t, Split("", 0))
	assert.Empty(t, Split("# Heading only\n", 0))
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		filename string
		want     string
	}{
		{"from h1", "# JU-06A Manual\n\nbody", "ju06a.md", "JU-06A Manual"},
		{"no h1 falls back to filename", "## only h2", "space-echo_re-201.md", "space echo re 201"},
		{"empty content", "", "sh101.md", "sh101"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTitle(tt.content, tt.filename))
		})
	}
}
