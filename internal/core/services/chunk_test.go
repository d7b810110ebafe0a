package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundbench/soundbench/internal/core/domain"
	"github.com/soundbench/soundbench/internal/core/ports/driven"
)

const testManual = `# Minilogue XD Manual

Welcome to the manual.

## Oscillators

Two analogue VCOs with wave shaping.
`

const classifierResponse = `<json_output>
{"brand": "Korg", "model": "Minilogue XD", "product_type": "synthesizer", "keywords": ["analogue"]}
</json_output>`

// chunkTestLLM answers situate prompts with a fixed context and manual
// classification prompts with the canned response.
func chunkTestLLM() *mockLLM {
	return &mockLLM{
		generateFn: func(prompt string, _ driven.GenerateOptions) (string, error) {
			if strings.HasPrefix(prompt, "manual:") {
				return classifierResponse, nil
			}
			return "Situating context.", nil
		},
	}
}

func readChunkSetFile(t *testing.T, path string) domain.ChunkSet {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var set domain.ChunkSet
	require.NoError(t, json.Unmarshal(data, &set))
	return set
}

func TestChunkDir(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(inputDir, "minilogue_xd.md"), []byte(testManual), 0644))

	manifest := newMockManifest()
	svc := NewChunkService(chunkTestLLM(), manifest, &mockPrompts{}, testLimiter())

	result, err := svc.ChunkDir(context.Background(), inputDir, outputDir, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)

	set := readChunkSetFile(t, filepath.Join(outputDir, "minilogue_xd.json"))
	assert.Equal(t, "minilogue_xd.md", set.Document)
	assert.Equal(t, "Minilogue XD Manual", set.Title)
	assert.Equal(t, "korg", set.Manual.Brand, "classifier output is normalised to lowercase")
	require.Len(t, set.Chunks, 2)

	first := set.Chunks[0]
	assert.Equal(t, []string{"Minilogue XD Manual"}, first.HeadingPath)
	assert.Equal(t, "Welcome to the manual.", first.Text)
	assert.Equal(t, "Situating context.", first.Context)
	assert.Equal(t, 0, first.Position)

	// Chunk identity is derived, not random.
	assert.Equal(t, domain.ChunkID("minilogue_xd.md", first.HeadingPath, 0), first.ID)

	// Manual metadata lands in the manifest for later stages.
	manual, err := manifest.Manual(context.Background(), "minilogue_xd.md")
	require.NoError(t, err)
	assert.Equal(t, "minilogue xd", manual.Model)
}

func TestChunkDirDeterministicIDs(t *testing.T) {
	inputDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(inputDir, "m.md"), []byte(testManual), 0644))

	run := func() domain.ChunkSet {
		outputDir := t.TempDir()
		svc := NewChunkService(chunkTestLLM(), newMockManifest(), &mockPrompts{}, testLimiter())
		_, err := svc.ChunkDir(context.Background(), inputDir, outputDir, false)
		require.NoError(t, err)
		return readChunkSetFile(t, filepath.Join(outputDir, "m.json"))
	}

	a, b := run(), run()
	require.Equal(t, len(a.Chunks), len(b.Chunks))
	for i := range a.Chunks {
		assert.Equal(t, a.Chunks[i].ID, b.Chunks[i].ID)
	}
}

func TestChunkDirSkipsEmptyDocument(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(inputDir, "empty.md"), []byte("  \n"), 0644))

	llm := &mockLLM{}
	svc := NewChunkService(llm, newMockManifest(), &mockPrompts{}, testLimiter())

	result, err := svc.ChunkDir(context.Background(), inputDir, outputDir, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Zero(t, llm.generateCalls)
}

func TestChunkDirContextFailureDegrades(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(inputDir, "m.md"), []byte(testManual), 0644))

	llm := &mockLLM{
		generateFn: func(_ string, _ driven.GenerateOptions) (string, error) {
			return "", fmt.Errorf("provider down")
		},
	}
	svc := NewChunkService(llm, newMockManifest(), &mockPrompts{}, testLimiter())

	result, err := svc.ChunkDir(context.Background(), inputDir, outputDir, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed, "chunks survive without context or metadata")

	set := readChunkSetFile(t, filepath.Join(outputDir, "m.json"))
	require.NotEmpty(t, set.Chunks)
	assert.Empty(t, set.Chunks[0].Context)
	assert.Empty(t, set.Manual.Brand)
}

func TestChunkDirCancellationLeavesNoTrace(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(inputDir, "m.md"), []byte(testManual), 0644))

	ctx, cancel := context.WithCancel(context.Background())

	// The provider call dies because the run was cancelled, not because the
	// provider failed. This must not degrade to empty contexts.
	llm := &mockLLM{
		generateFn: func(_ string, _ driven.GenerateOptions) (string, error) {
			cancel()
			return "", context.Canceled
		},
	}
	manifest := newMockManifest()
	svc := NewChunkService(llm, manifest, &mockPrompts{}, testLimiter())

	result, err := svc.ChunkDir(ctx, inputDir, outputDir, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, result.Processed)

	assert.NoFileExists(t, filepath.Join(outputDir, "m.json"))
	done, err := manifest.StageDone(context.Background(), "m.md", driven.StageChunk)
	require.NoError(t, err)
	assert.False(t, done, "a resumed run must redo the document")
}

func TestChunkDirLLMUnreachable(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(inputDir, "m.md"), []byte(testManual), 0644))

	llm := &mockLLM{pingErr: fmt.Errorf("connection refused")}
	svc := NewChunkService(llm, newMockManifest(), &mockPrompts{}, testLimiter())

	_, err := svc.ChunkDir(context.Background(), inputDir, outputDir, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm service unreachable")
	assert.Zero(t, llm.generateCalls)
}

func TestChunkDirResume(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(inputDir, "m.md"), []byte(testManual), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(outputDir, "m.json"), []byte("{}"), 0644))

	manifest := newMockManifest()
	require.NoError(t, manifest.MarkStage(context.Background(), driven.StageRecord{
		Document: "m.md",
		Stage:    driven.StageChunk,
	}))

	llm := &mockLLM{}
	svc := NewChunkService(llm, manifest, &mockPrompts{}, testLimiter())

	result, err := svc.ChunkDir(context.Background(), inputDir, outputDir, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Zero(t, llm.generateCalls)
}
