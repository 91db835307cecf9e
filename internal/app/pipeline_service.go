package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"shoplens/internal/feature"
	"shoplens/internal/model"
	"shoplens/internal/scrape"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoProducts means the scrape found nothing to normalize.
	ErrNoProducts = errors.New("no products scraped")
)

// ScrapeRunRecorder persists pipeline run history.
type ScrapeRunRecorder interface {
	Create(run *model.ScrapeRun) error
}

// PipelineService runs the scrape → normalize → feature matrix pipeline.
// The steps are sequential and any failure aborts the remainder of the
// run without committing partial artifacts.
type PipelineService struct {
	scraper      *scrape.Scraper
	runRecorder  ScrapeRunRecorder
	logger       *zap.Logger
	productsPath string
	matrixPath   string
}

func NewPipelineService(
	scraper *scrape.Scraper,
	runRecorder ScrapeRunRecorder,
	logger *zap.Logger,
	productsPath, matrixPath string,
) *PipelineService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PipelineService{
		scraper:      scraper,
		runRecorder:  runRecorder,
		logger:       logger,
		productsPath: productsPath,
		matrixPath:   matrixPath,
	}
}

type RunInput struct {
	Keyword string
	Count   int
}

// RunResult reports one pipeline run. Valid == 0 is the empty-result
// condition: the matrix was not written and indexing must not follow.
type RunResult struct {
	Keyword    string        `json:"keyword"`
	Requested  int           `json:"requested"`
	Scraped    int           `json:"scraped"`
	Valid      int           `json:"valid"`
	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"duration_ms"`
}

// Run executes one scrape+normalize pipeline pass.
func (s *PipelineService) Run(ctx context.Context, input RunInput) (*RunResult, error) {
	keyword := strings.TrimSpace(input.Keyword)
	if keyword == "" {
		return nil, ErrInvalidInput
	}
	count := input.Count
	if count <= 0 {
		count = 10
	}
	started := time.Now()

	products, err := s.scraper.Run(ctx, keyword, count)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, ErrNoProducts
	}

	if err := scrape.WriteProducts(s.productsPath, products); err != nil {
		return nil, err
	}

	rows := feature.Filter(products)
	if len(rows) > 0 {
		if err := feature.WriteMatrix(s.matrixPath, rows); err != nil {
			return nil, err
		}
	} else {
		s.logger.Warn("no valid records after filtering; feature matrix left untouched",
			zap.String("keyword", keyword), zap.Int("scraped", len(products)))
	}

	result := &RunResult{
		Keyword:    keyword,
		Requested:  count,
		Scraped:    len(products),
		Valid:      len(rows),
		Duration:   time.Since(started),
		DurationMS: time.Since(started).Milliseconds(),
	}
	s.recordRun(result)
	return result, nil
}

// recordRun is best-effort; history persistence never fails a run.
func (s *PipelineService) recordRun(result *RunResult) {
	if s.runRecorder == nil {
		return
	}
	run := &model.ScrapeRun{
		Keyword:    result.Keyword,
		Requested:  result.Requested,
		Scraped:    result.Scraped,
		Valid:      result.Valid,
		DurationMS: result.DurationMS,
	}
	if err := s.runRecorder.Create(run); err != nil {
		s.logger.Warn("record scrape run failed", zap.Error(err))
	}
}
