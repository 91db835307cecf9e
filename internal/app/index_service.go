package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"shoplens/internal/ai"
	"shoplens/internal/docsynth"
	"shoplens/internal/feature"
	"shoplens/internal/vecindex"
)

// DashScope and similar APIs often limit embedding batch size.
const embeddingBatchSize = 10

// ErrEmptyMatrix means the feature matrix exists but has zero rows; the
// rebuild refuses rather than producing a zero-entry index.
var ErrEmptyMatrix = errors.New("feature matrix has no rows")

// IndexService rebuilds the vector index + document pair from the
// feature matrix.
type IndexService struct {
	client     *ai.Client
	aiConfig   ai.Config
	store      *vecindex.Store
	logger     *zap.Logger
	matrixPath string
}

func NewIndexService(
	client *ai.Client,
	aiConfig ai.Config,
	store *vecindex.Store,
	logger *zap.Logger,
	matrixPath string,
) *IndexService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IndexService{
		client:     client,
		aiConfig:   aiConfig,
		store:      store,
		logger:     logger,
		matrixPath: matrixPath,
	}
}

type RebuildResult struct {
	Documents int    `json:"documents"`
	Dimension int    `json:"dimension"`
	Version   uint64 `json:"version"`
}

// Rebuild synthesizes one document per matrix row, embeds them, and
// atomically replaces the persisted index/document pair plus the
// in-memory snapshot.
func (s *IndexService) Rebuild(ctx context.Context) (*RebuildResult, error) {
	rows, err := feature.ReadMatrix(s.matrixPath)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmptyMatrix
	}

	documents := docsynth.SummarizeAll(rows)

	var embeddings [][]float32
	for i := 0; i < len(documents); i += embeddingBatchSize {
		end := i + embeddingBatchSize
		if end > len(documents) {
			end = len(documents)
		}
		batch, err := s.client.EmbedBatch(ctx, s.aiConfig, documents[i:end])
		if err != nil {
			return nil, fmt.Errorf("embed documents failed: %w", err)
		}
		embeddings = append(embeddings, batch...)
	}
	if len(embeddings) != len(documents) {
		return nil, fmt.Errorf("embedding count %d does not match document count %d", len(embeddings), len(documents))
	}

	idx, err := vecindex.New(len(embeddings[0]))
	if err != nil {
		return nil, err
	}
	for _, vec := range embeddings {
		if err := idx.Add(vec); err != nil {
			return nil, err
		}
	}

	if err := s.store.Rebuild(idx, documents); err != nil {
		return nil, err
	}

	s.logger.Info("index rebuilt",
		zap.Int("documents", idx.Len()), zap.Int("dimension", idx.Dim()), zap.Uint64("version", s.store.Version()))
	return &RebuildResult{
		Documents: idx.Len(),
		Dimension: idx.Dim(),
		Version:   s.store.Version(),
	}, nil
}
