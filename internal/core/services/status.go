package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/soundbench/soundbench/internal/core/domain"
	"github.com/soundbench/soundbench/internal/core/ports/driven"
	"github.com/soundbench/soundbench/internal/core/ports/driving"
)

// Ensure StatusService implements the interface.
var _ driving.StatusService = (*StatusService)(nil)

// pipelineStages lists the offline stages in execution order.
var pipelineStages = []string{
	driven.StageConvert,
	driven.StageChunk,
	driven.StageEmbed,
	driven.StageIndex,
}

// StatusService reports per-document pipeline progress from the manifest.
type StatusService struct {
	manifest driven.ManifestStore
}

// NewStatusService creates a new status service.
func NewStatusService(manifest driven.ManifestStore) *StatusService {
	return &StatusService{manifest: manifest}
}

// Overview returns one entry per document known to the manifest, sorted by
// document ID.
func (s *StatusService) Overview(ctx context.Context) ([]driving.DocumentStatus, error) {
	documents, err := s.manifest.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	sort.Strings(documents)

	statuses := make([]driving.DocumentStatus, 0, len(documents))
	for _, document := range documents {
		status := driving.DocumentStatus{
			Document: document,
			Stages:   make(map[string]bool, len(pipelineStages)),
		}

		manual, err := s.manifest.Manual(ctx, document)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("load manual for %s: %w", document, err)
		}
		status.Brand = manual.Brand
		status.Model = manual.Model

		for _, stage := range pipelineStages {
			done, err := s.manifest.StageDone(ctx, document, stage)
			if err != nil {
				return nil, fmt.Errorf("stage %s for %s: %w", stage, document, err)
			}
			status.Stages[stage] = done
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}
