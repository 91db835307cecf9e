package app

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"shoplens/internal/ai"
	"shoplens/internal/model"
	"shoplens/internal/vecindex"
)

const (
	defaultTopK = 10
	// When retrieval comes back empty the model still needs grounding
	// text; the first few stored documents stand in as context.
	fallbackContextDocs = 5

	// Disclaimer is the exact sentence the model must emit when the
	// context cannot answer the question.
	Disclaimer = "I'm sorry, but I can only provide information related to Amazon products and their details. Please refer to the listed sources to learn more about the products"
)

// The document template carries the identifier as a textual marker; if
// the template changes this match degrades to placeholders, it does not
// error.
var asinMarkerRe = regexp.MustCompile(`ASIN (\w+)`)

// AnswerCache caches served answers keyed by index version + question.
type AnswerCache interface {
	GetAnswer(ctx context.Context, version uint64, question string) (*model.AnswerResponse, bool, error)
	SetAnswer(ctx context.Context, version uint64, question string, resp *model.AnswerResponse) error
}

// AnswerLogPublisher enqueues served answers for asynchronous persistence.
type AnswerLogPublisher interface {
	Publish(ctx context.Context, entry model.AnswerLog) error
}

// AnswerService answers questions grounded in retrieved product
// documents: retrieve top-k, request structured output, degrade to a
// plain-text re-invocation when structured parsing fails.
type AnswerService struct {
	client    *ai.Client
	aiConfig  ai.Config
	store     *vecindex.Store
	cache     AnswerCache
	publisher AnswerLogPublisher
	logger    *zap.Logger
	topK      int
}

func NewAnswerService(
	client *ai.Client,
	aiConfig ai.Config,
	store *vecindex.Store,
	cache AnswerCache,
	publisher AnswerLogPublisher,
	logger *zap.Logger,
	topK int,
) *AnswerService {
	if topK <= 0 {
		topK = defaultTopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnswerService{
		client:    client,
		aiConfig:  aiConfig,
		store:     store,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
		topK:      topK,
	}
}

// Answer runs the retrieve-then-generate pipeline for one question.
func (s *AnswerService) Answer(ctx context.Context, question string) (*model.AnswerResponse, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrInvalidInput
	}

	snap, err := s.store.Snapshot()
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if cached, ok, err := s.cache.GetAnswer(ctx, snap.Version, question); err != nil {
			s.logger.Warn("answer cache read failed", zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	sources, err := s.retrieve(ctx, snap, question)
	if err != nil {
		return nil, err
	}

	contextBlock := s.contextBlock(snap, sources)
	messages := buildPrompt(question, contextBlock)

	answer, mode, err := s.generate(ctx, messages)
	if err != nil {
		return nil, err
	}

	resp := &model.AnswerResponse{
		Answer:  answer,
		Sources: sources,
		Mode:    mode,
	}

	if s.cache != nil {
		if err := s.cache.SetAnswer(ctx, snap.Version, question, resp); err != nil {
			s.logger.Warn("answer cache write failed", zap.Error(err))
		}
	}
	s.publishLog(ctx, question, resp)
	return resp, nil
}

// retrieve embeds the question and maps the nearest documents to cited
// sources. Positions outside the document list are skipped: that only
// happens when the artifacts disagree, and an explicit rebuild is the
// correction path.
func (s *AnswerService) retrieve(ctx context.Context, snap *vecindex.Snapshot, question string) ([]model.Source, error) {
	queryVec, err := s.client.Embed(ctx, s.aiConfig, question)
	if err != nil {
		return nil, fmt.Errorf("embed question failed: %w", err)
	}

	hits, err := snap.Index.Search(queryVec, s.topK)
	if err != nil {
		return nil, err
	}

	sources := make([]model.Source, 0, len(hits))
	for _, hit := range hits {
		if hit.Position >= len(snap.Documents) {
			continue
		}
		doc := snap.Documents[hit.Position]
		asin := fmt.Sprintf("ITEM-%d", hit.Position)
		if m := asinMarkerRe.FindStringSubmatch(doc); m != nil {
			asin = m[1]
		}
		sources = append(sources, model.Source{ASIN: asin, Snippet: doc})
	}
	return sources, nil
}

// contextBlock joins source snippets; with no retrieval hits the first
// stored documents become context, but they are not reported as sources.
func (s *AnswerService) contextBlock(snap *vecindex.Snapshot, sources []model.Source) string {
	if len(sources) > 0 {
		snippets := make([]string, len(sources))
		for i, src := range sources {
			snippets[i] = src.Snippet
		}
		return strings.Join(snippets, "\n")
	}
	n := fallbackContextDocs
	if n > len(snap.Documents) {
		n = len(snap.Documents)
	}
	return strings.Join(snap.Documents[:n], "\n")
}

// generate runs the two-state machine: the structured attempt first,
// then on any structured failure an independent plain-text re-invocation
// of the model. A failed fallback invocation is the only hard error.
func (s *AnswerService) generate(ctx context.Context, messages []ai.ChatMessage) (answer, mode string, err error) {
	output, err := s.client.Complete(ctx, s.aiConfig, messages)
	if err == nil {
		answer, perr := parseStructured(output)
		if perr == nil {
			return answer, model.AnswerModeStructured, nil
		}
		s.logger.Warn("structured output parse failed, falling back", zap.Error(perr))
	} else {
		s.logger.Warn("structured generation failed, falling back", zap.Error(err))
	}

	raw, err := s.client.Complete(ctx, s.aiConfig, messages)
	if err != nil {
		return "", "", fmt.Errorf("answer generation failed: %w", err)
	}
	return strings.TrimSpace(raw), model.AnswerModeFallback, nil
}

// parseStructured validates the model output against the required
// single-field schema.
func parseStructured(output string) (string, error) {
	trimmed := strings.TrimSpace(output)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var parsed struct {
		Answer string `json:"answer"`
	}
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return "", fmt.Errorf("output is not schema-valid json: %w", err)
	}
	answer := strings.TrimSpace(parsed.Answer)
	if answer == "" {
		return "", fmt.Errorf("output json has no answer field")
	}
	return answer, nil
}

func buildPrompt(question, contextBlock string) []ai.ChatMessage {
	system := `You are an expert in analyzing Amazon product listings and comparing their details.
Use ONLY the data provided in the context below to answer the question accurately.

Follow these strict output rules:
- Output ONLY valid JSON as described below.
- Do NOT include code fences, markdown, or any extra text.
- The JSON must match this schema: {"answer": "<a natural language sentence answering the user question>"}
- The "answer" value must be a clean, natural sentence.
- Mention the product's title, ASIN, rating, and price if available.
- If multiple products qualify, summarize the best one briefly.
- If the data is insufficient, set the answer exactly to:
  "` + Disclaimer + `"`

	user := "Question: " + question + "\n\nContext:\n" + contextBlock
	return []ai.ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
}

// publishLog is best-effort; the answer is already served.
func (s *AnswerService) publishLog(ctx context.Context, question string, resp *model.AnswerResponse) {
	if s.publisher == nil {
		return
	}
	entry := model.AnswerLog{
		Question:    question,
		Answer:      resp.Answer,
		Mode:        resp.Mode,
		SourceCount: len(resp.Sources),
	}
	if err := s.publisher.Publish(ctx, entry); err != nil {
		s.logger.Warn("publish answer log failed", zap.Error(err))
	}
}
