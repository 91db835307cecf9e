package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shoplens/internal/ai"
	"shoplens/internal/model"
	"shoplens/internal/vecindex"
)

// fakeProvider serves OpenAI-compatible /embeddings and /chat/completions
// endpoints with scripted behavior.
type fakeProvider struct {
	mu          sync.Mutex
	embed       func(text string) []float32
	completions []string // popped per call; empty string means HTTP 500
	chatCalls   int
	lastPrompt  []ai.ChatMessage
}

func (p *fakeProvider) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input json.RawMessage `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		var texts []string
		if err := json.Unmarshal(req.Input, &texts); err != nil {
			var single string
			_ = json.Unmarshal(req.Input, &single)
			texts = []string{single}
		}
		data := make([]map[string]interface{}, len(texts))
		for i, t := range texts {
			data[i] = map[string]interface{}{"embedding": p.embed(t)}
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
	})
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		var req struct {
			Messages []ai.ChatMessage `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		p.lastPrompt = req.Messages
		p.chatCalls++
		var reply string
		if len(p.completions) > 0 {
			reply = p.completions[0]
			p.completions = p.completions[1:]
		}
		p.mu.Unlock()

		if reply == "" {
			http.Error(w, "upstream broken", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": reply}},
			},
		})
	})
	return mux
}

func writeLines(t *testing.T, path string, lines []string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

// charCountEmbedding is deterministic: identical texts embed identically,
// so searching with a stored document's text hits its own position.
func charCountEmbedding(text string) []float32 {
	vec := make([]float32, 8)
	for i, r := range text {
		vec[i%8] += float32(r%13) / 13
	}
	return vec
}

func newAnswerFixture(t *testing.T, provider *fakeProvider, docs []string) (*AnswerService, *vecindex.Store) {
	t.Helper()
	srv := httptest.NewServer(provider.handler())
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	store := vecindex.NewStore(filepath.Join(dir, "index.bin"), filepath.Join(dir, "documents.txt"))
	if len(docs) > 0 {
		idx, err := vecindex.New(8)
		require.NoError(t, err)
		for _, d := range docs {
			require.NoError(t, idx.Add(provider.embed(d)))
		}
		require.NoError(t, store.Rebuild(idx, docs))
	}

	cfg := ai.Config{BaseURL: srv.URL, Model: "chat", EmbeddingModel: "embed"}
	return NewAnswerService(ai.NewClient(), cfg, store, nil, nil, nil, 3), store
}

func TestAnswerStructuredSuccess(t *testing.T) {
	docs := []string{
		"Product 'Widget' (ASIN B000X) by Acme is listed on Amazon. It is rated 4.5 out of 5 stars based on 2300 customer reviews and priced at $84676.80.",
		"Product 'Gizmo' (ASIN B001Y) by Unknown brand is listed on Amazon. It is rated 3.9 out of 5 stars based on 15 customer reviews and priced at $19.99.",
	}
	provider := &fakeProvider{
		embed:       charCountEmbedding,
		completions: []string{`{"answer": "The Widget (ASIN B000X) is rated 4.5 and costs $84676.80."}`},
	}
	svc, _ := newAnswerFixture(t, provider, docs)

	resp, err := svc.Answer(context.Background(), "what is the best widget?")
	require.NoError(t, err)
	assert.Equal(t, model.AnswerModeStructured, resp.Mode)
	assert.Equal(t, "The Widget (ASIN B000X) is rated 4.5 and costs $84676.80.", resp.Answer)
	assert.Equal(t, 1, provider.chatCalls)

	require.Len(t, resp.Sources, 2)
	asins := []string{resp.Sources[0].ASIN, resp.Sources[1].ASIN}
	assert.ElementsMatch(t, []string{"B000X", "B001Y"}, asins)
}

func TestAnswerFallbackOnParseFailure(t *testing.T) {
	docs := []string{"Product 'Widget' (ASIN B000X) by Acme is listed on Amazon. It is rated 4.5 out of 5 stars based on 2300 customer reviews and priced at $84676.80."}
	provider := &fakeProvider{
		embed: charCountEmbedding,
		completions: []string{
			"Sure! Here is what I found about the widget.", // schema violation
			"The Widget is rated 4.5 out of 5.",            // independent re-invocation
		},
	}
	svc, _ := newAnswerFixture(t, provider, docs)

	resp, err := svc.Answer(context.Background(), "tell me about the widget")
	require.NoError(t, err)
	assert.Equal(t, model.AnswerModeFallback, resp.Mode)
	assert.Equal(t, "The Widget is rated 4.5 out of 5.", resp.Answer)
	assert.Equal(t, 2, provider.chatCalls)
}

func TestAnswerHardFailurePropagates(t *testing.T) {
	docs := []string{"Product 'Widget' (ASIN B000X) by Acme is listed on Amazon. It is no rating available with no review data and priced at Price not listed."}
	provider := &fakeProvider{embed: charCountEmbedding} // every chat call 500s
	svc, _ := newAnswerFixture(t, provider, docs)

	_, err := svc.Answer(context.Background(), "anything?")
	require.Error(t, err)
	assert.Equal(t, 2, provider.chatCalls)
}

func TestAnswerNotLoadedIndex(t *testing.T) {
	provider := &fakeProvider{embed: charCountEmbedding}
	svc, _ := newAnswerFixture(t, provider, nil)

	_, err := svc.Answer(context.Background(), "question")
	assert.ErrorIs(t, err, vecindex.ErrNotLoaded)
}

func TestAnswerEmptyQuestion(t *testing.T) {
	provider := &fakeProvider{embed: charCountEmbedding}
	svc, _ := newAnswerFixture(t, provider, nil)

	_, err := svc.Answer(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAnswerZeroHitsUsesFallbackContextWithoutSources(t *testing.T) {
	// An empty index with a populated document list simulates zero
	// retrieval hits; the prompt still gets grounding documents but the
	// response cites nothing.
	provider := &fakeProvider{
		embed:       charCountEmbedding,
		completions: []string{`{"answer": "` + Disclaimer + `"}`},
	}
	srv := httptest.NewServer(provider.handler())
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	indexPath := filepath.Join(dir, "index.bin")
	docsPath := filepath.Join(dir, "documents.txt")
	empty, err := vecindex.New(8)
	require.NoError(t, err)
	require.NoError(t, empty.WriteFile(indexPath))
	writeLines(t, docsPath, []string{
		"Product 'Widget' (ASIN B000X) by Acme is listed on Amazon. It is no rating available with no review data and priced at Price not listed.",
		"Product 'Gizmo' (ASIN B001Y) by Acme is listed on Amazon. It is no rating available with no review data and priced at Price not listed.",
	})
	store := vecindex.NewStore(indexPath, docsPath)
	require.NoError(t, store.Load())

	cfg := ai.Config{BaseURL: srv.URL, Model: "chat", EmbeddingModel: "embed"}
	svc := NewAnswerService(ai.NewClient(), cfg, store, nil, nil, nil, 3)

	resp, err := svc.Answer(context.Background(), "what do you have?")
	require.NoError(t, err)
	assert.Empty(t, resp.Sources)
	assert.Equal(t, Disclaimer, resp.Answer)

	// The grounding documents were injected into the user prompt.
	require.Len(t, provider.lastPrompt, 2)
	assert.Contains(t, provider.lastPrompt[1].Content, "ASIN B000X")
}

func TestRetrieveSkipsOutOfBoundsPositions(t *testing.T) {
	// Index with three entries but only one stored document: positions 1
	// and 2 are skipped defensively instead of failing.
	provider := &fakeProvider{embed: charCountEmbedding}
	srv := httptest.NewServer(provider.handler())
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	indexPath := filepath.Join(dir, "index.bin")
	docsPath := filepath.Join(dir, "documents.txt")
	idx, err := vecindex.New(8)
	require.NoError(t, err)
	for _, text := range []string{"doc zero text", "doc one text", "doc two text"} {
		require.NoError(t, idx.Add(charCountEmbedding(text)))
	}
	require.NoError(t, idx.WriteFile(indexPath))
	writeLines(t, docsPath, []string{"Product 'Solo' (ASIN B000Z) by Acme is listed on Amazon. It is no rating available with no review data and priced at Price not listed."})
	store := vecindex.NewStore(indexPath, docsPath)
	require.NoError(t, store.Load())

	cfg := ai.Config{BaseURL: srv.URL, Model: "chat", EmbeddingModel: "embed"}
	svc := NewAnswerService(ai.NewClient(), cfg, store, nil, nil, nil, 10)

	snap, err := store.Snapshot()
	require.NoError(t, err)
	sources, err := svc.retrieve(context.Background(), snap, "doc zero text")
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "B000Z", sources[0].ASIN)
}

func TestRetrievePlaceholderWhenMarkerAbsent(t *testing.T) {
	provider := &fakeProvider{embed: charCountEmbedding}
	docs := []string{"a summary without the identifier marker anywhere"}
	svc, store := newAnswerFixture(t, provider, docs)

	snap, err := store.Snapshot()
	require.NoError(t, err)
	sources, err := svc.retrieve(context.Background(), snap, "anything")
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "ITEM-0", sources[0].ASIN)
}

func TestParseStructured(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"plain json", `{"answer": "hello"}`, "hello", false},
		{"fenced json", "```json\n{\"answer\": \"hello\"}\n```", "hello", false},
		{"whitespace", "  {\"answer\": \" hello \"}  ", "hello", false},
		{"not json", "hello there", "", true},
		{"missing field", `{"response": "hello"}`, "", true},
		{"empty answer", `{"answer": "  "}`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseStructured(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
