// Package rag wires the retrieval service and the completion endpoint into a
// single question answering flow with per-session chat history.
package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Enes830/testagentset/internal/models"
	"github.com/Enes830/testagentset/internal/types"
	"github.com/Enes830/testagentset/pkg/agentset"
	"github.com/Enes830/testagentset/pkg/apierr"
	"github.com/Enes830/testagentset/pkg/config"
	"github.com/Enes830/testagentset/pkg/fetch"
	"github.com/Enes830/testagentset/pkg/llm"
)

// Session owns one user's configuration and chat history. Sessions are
// independent of each other; only the owning session mutates its state.
type Session struct {
	retriever types.Retriever
	ingester  types.Ingester
	completer types.Completer
	fetcher   types.Fetcher

	mu        sync.Mutex
	retrieval types.RetrievalConfig
	history   []models.ChatTurn
}

// New builds a session with real Agentset and OpenAI clients from config.
func New(cfg *config.Config) (*Session, error) {
	client, err := agentset.NewWithConfig(agentset.ClientConfig{
		BaseURL:     cfg.Agentset.BaseURL,
		APIKey:      cfg.Agentset.APIKey,
		NamespaceID: cfg.Agentset.NamespaceID,
		Timeout:     time.Duration(cfg.Agentset.TimeoutSecs) * time.Second,
		TopK:        cfg.Retrieval.TopK,
		Rerank:      cfg.Retrieval.Rerank,
		RerankModel: cfg.Retrieval.RerankModel,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize retrieval client: %w", err)
	}

	chatEngine, err := llm.NewWithConfig(llm.ChatConfig{
		APIKey:       cfg.OpenAI.APIKey,
		Model:        cfg.OpenAI.Model,
		Temperature:  cfg.OpenAI.Temperature,
		MaxTokens:    cfg.OpenAI.MaxTokens,
		SystemPrompt: cfg.OpenAI.SystemPrompt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat engine: %w", err)
	}

	return NewWithClients(
		types.RetrievalConfig{TopK: cfg.Retrieval.TopK, MinScore: cfg.Retrieval.MinScore},
		client, client, chatEngine, fetch.New(),
	), nil
}

// NewWithClients builds a session from explicit collaborators.
func NewWithClients(retrieval types.RetrievalConfig, retriever types.Retriever, ingester types.Ingester, completer types.Completer, fetcher types.Fetcher) *Session {
	if retrieval.TopK <= 0 {
		retrieval.TopK = 10
	}
	return &Session{
		retriever: retriever,
		ingester:  ingester,
		completer: completer,
		fetcher:   fetcher,
		retrieval: retrieval,
	}
}

// Ask runs the full RAG pipeline for one question: retrieve, filter, answer.
// The turn is appended to history only when the whole pipeline succeeds.
func (s *Session) Ask(ctx context.Context, question string) (models.ChatTurn, error) {
	if strings.TrimSpace(question) == "" {
		return models.ChatTurn{}, &apierr.ValidationError{Field: "question", Message: "question is empty"}
	}

	rc := s.Retrieval()

	passages, err := s.retriever.Search(ctx, question, rc)
	if err != nil {
		return models.ChatTurn{}, err
	}

	retained := filterPassages(passages, rc)

	answer, err := s.completer.Complete(ctx, question, retained)
	if err != nil {
		return models.ChatTurn{}, err
	}

	turn := models.ChatTurn{
		Question: question,
		Answer:   answer,
		Context:  retained,
	}

	s.mu.Lock()
	s.history = append(s.history, turn)
	s.mu.Unlock()

	return turn, nil
}

// filterPassages enforces the retrieval invariants locally regardless of what
// the service returned: passages below min_score are dropped, the rest are
// ordered by descending score and capped at top_k.
func filterPassages(passages []models.Passage, rc types.RetrievalConfig) []models.Passage {
	retained := make([]models.Passage, 0, len(passages))
	for _, p := range passages {
		if p.Score >= rc.MinScore {
			retained = append(retained, p)
		}
	}

	sort.SliceStable(retained, func(i, j int) bool {
		return retained[i].Score > retained[j].Score
	})

	if len(retained) > rc.TopK {
		retained = retained[:rc.TopK]
	}
	return retained
}

// History returns a copy of the chat history so far.
func (s *Session) History() []models.ChatTurn {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.ChatTurn, len(s.history))
	copy(out, s.history)
	return out
}

// Reset clears the chat history.
func (s *Session) Reset() {
	s.mu.Lock()
	s.history = nil
	s.mu.Unlock()
}

// Retrieval returns the session's current retrieval parameters.
func (s *Session) Retrieval() types.RetrievalConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retrieval
}

// SetRetrieval updates the retrieval parameters for subsequent questions.
func (s *Session) SetRetrieval(rc types.RetrievalConfig) error {
	if rc.TopK < 1 {
		return &apierr.ValidationError{Field: "top_k", Message: "top_k must be positive"}
	}
	if rc.MinScore < 0 || rc.MinScore > 1 {
		return &apierr.ValidationError{Field: "min_score", Message: "min_score must be between 0 and 1"}
	}

	s.mu.Lock()
	s.retrieval = rc
	s.mu.Unlock()
	return nil
}
