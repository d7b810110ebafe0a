package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/soundbench/soundbench/internal/core/domain"
	"github.com/soundbench/soundbench/internal/core/ports/driven"
	"github.com/soundbench/soundbench/internal/core/ports/driving"
	"github.com/soundbench/soundbench/internal/logger"
	"github.com/soundbench/soundbench/internal/pdftext"
	"github.com/soundbench/soundbench/internal/ratelimit"
)

// Ensure ConvertService implements the interface.
var _ driving.ConvertService = (*ConvertService)(nil)

// convertSystemPrompt frames the conversion task for the LLM.
const convertSystemPrompt = "You are an advanced AI assistant specializing in PDF content analysis and conversion. Your task is to convert the provided PDF content into markdown format while adhering to specific guidelines."

// Conversion defaults.
const (
	DefaultConvertMaxTokens = 8192
	convertMaxAttempts      = 3
)

// ConvertService converts PDF manuals to Markdown via the LLM, with a local
// text extraction fallback for documents the API cannot handle.
type ConvertService struct {
	llm      driven.LLMService
	manifest driven.ManifestStore
	prompts  driven.PromptStore
	limiter  *ratelimit.Limiter

	maxTokens int
}

// NewConvertService creates a new conversion service.
func NewConvertService(
	llm driven.LLMService,
	manifest driven.ManifestStore,
	prompts driven.PromptStore,
	limiter *ratelimit.Limiter,
) *ConvertService {
	return &ConvertService{
		llm:       llm,
		manifest:  manifest,
		prompts:   prompts,
		limiter:   limiter,
		maxTokens: DefaultConvertMaxTokens,
	}
}

// SetMaxTokens overrides the generation budget for conversion responses.
func (s *ConvertService) SetMaxTokens(n int) {
	if n > 0 {
		s.maxTokens = n
	}
}

// ConvertDir converts every PDF under inputDir, writing one Markdown file per
// document to outputDir. Completed documents are skipped unless force is set.
// One failing file never aborts the rest.
func (s *ConvertService) ConvertDir(ctx context.Context, inputDir, outputDir string, force bool) (driving.StageResult, error) {
	var result driving.StageResult

	if err := s.llm.Ping(ctx); err != nil {
		return result, fmt.Errorf("llm service unreachable: %w", err)
	}

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return result, fmt.Errorf("read input directory: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return result, fmt.Errorf("create output directory: %w", err)
	}

	logger.Section("Convert")
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		document := documentID(entry.Name())
		outPath := filepath.Join(outputDir, document)

		if !force && s.converted(ctx, document, outPath) {
			logger.Debug("Already converted, skipping: %s", entry.Name())
			result.Skipped++
			continue
		}

		if err := s.convertFile(ctx, filepath.Join(inputDir, entry.Name()), document, outPath); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return result, err
			}
			if errors.Is(err, domain.ErrMalformedDocument) || errors.Is(err, domain.ErrEmptyDocument) {
				logger.Warn("Skipping %s: %v", entry.Name(), err)
				result.Skipped++
				continue
			}
			logger.Warn("Failed to convert %s: %v", entry.Name(), err)
			result.Failed++
			continue
		}
		result.Processed++
	}

	logger.Info("Converted %d documents (%d skipped, %d failed)",
		result.Processed, result.Skipped, result.Failed)
	return result, nil
}

// converted reports whether a document's conversion can be resumed past.
// The manifest record alone is not enough: the output file must still exist.
func (s *ConvertService) converted(ctx context.Context, document, outPath string) bool {
	done, err := s.manifest.StageDone(ctx, document, driven.StageConvert)
	if err != nil || !done {
		return false
	}
	_, err = os.Stat(outPath)
	return err == nil
}

// convertFile converts a single PDF, falling back to local text extraction
// when the API conversion fails.
func (s *ConvertService) convertFile(ctx context.Context, pdfPath, document, outPath string) error {
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return fmt.Errorf("read pdf: %w", err)
	}

	info, err := pdftext.Validate(data)
	if err != nil {
		return err
	}
	logger.Debug("Converting %s (%d pages)", filepath.Base(pdfPath), info.Pages)

	markdown, convErr := s.convertViaLLM(ctx, data)
	fallback := false
	if convErr != nil {
		// A cancelled run must not degrade to fallback output: the document
		// stays unconverted for the resumed run.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("API conversion failed for %s, extracting text locally: %v",
			filepath.Base(pdfPath), convErr)
		markdown, err = pdftext.ExtractText(data)
		if err != nil {
			return fmt.Errorf("fallback extraction: %w (conversion: %v)", err, convErr)
		}
		fallback = true
	}

	if err := os.WriteFile(outPath, []byte(markdown), 0644); err != nil {
		return fmt.Errorf("write markdown: %w", err)
	}

	return s.manifest.MarkStage(ctx, driven.StageRecord{
		Document: document,
		Stage:    driven.StageConvert,
		Items:    info.Pages,
		Fallback: fallback,
	})
}

// convertViaLLM sends the PDF to the LLM and extracts the markdown output.
// Transient failures and missing output tags are retried a bounded number of
// times.
func (s *ConvertService) convertViaLLM(ctx context.Context, pdf []byte) (string, error) {
	prompt, err := s.prompts.Load(driven.PromptPDFConvert)
	if err != nil {
		return "", fmt.Errorf("load conversion prompt: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= convertMaxAttempts; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", err
		}

		response, err := s.llm.GenerateWithPDF(ctx, pdf, prompt, driven.GenerateOptions{
			MaxTokens: s.maxTokens,
			System:    convertSystemPrompt,
		})
		if err != nil {
			if errors.Is(err, domain.ErrRateLimited) {
				s.limiter.RecordRateLimitError(0)
			}
			lastErr = err
			logger.Debug("Conversion attempt %d failed: %v", attempt, err)
			continue
		}

		markdown, ok := extractTagValue(response, "markdown_output")
		if !ok {
			lastErr = fmt.Errorf("no markdown_output tag in response")
			logger.Debug("Conversion attempt %d returned no markdown output", attempt)
			continue
		}
		return markdown, nil
	}
	return "", fmt.Errorf("conversion failed after %d attempts: %w", convertMaxAttempts, lastErr)
}

// documentID derives the document identifier from a PDF filename. The
// identifier doubles as the Markdown filename for all later stages.
func documentID(pdfName string) string {
	base := strings.TrimSuffix(pdfName, filepath.Ext(pdfName))
	return base + ".md"
}
