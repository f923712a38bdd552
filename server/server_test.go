package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Enes830/testagentset/internal/models"
	"github.com/Enes830/testagentset/internal/types"
	"github.com/Enes830/testagentset/pkg/apierr"
)

type stubSession struct {
	askTurn   models.ChatTurn
	askErr    error
	ingestJob models.IngestJob
	ingestErr error
	gotDoc    models.Document
	history   []models.ChatTurn
	retrieval types.RetrievalConfig
}

func (s *stubSession) Ask(ctx context.Context, question string) (models.ChatTurn, error) {
	if s.askErr != nil {
		return models.ChatTurn{}, s.askErr
	}
	return s.askTurn, nil
}

func (s *stubSession) Ingest(ctx context.Context, doc models.Document) (models.IngestJob, error) {
	s.gotDoc = doc
	if s.ingestErr != nil {
		return models.IngestJob{}, s.ingestErr
	}
	return s.ingestJob, nil
}

func (s *stubSession) WaitForJob(ctx context.Context, jobID string, onStatus func(models.IngestJob)) (models.IngestJob, error) {
	return models.IngestJob{ID: jobID, Status: models.JobCompleted}, nil
}

func (s *stubSession) History() []models.ChatTurn { return s.history }
func (s *stubSession) Reset()                     { s.history = nil }

func (s *stubSession) Retrieval() types.RetrievalConfig { return s.retrieval }

func (s *stubSession) SetRetrieval(rc types.RetrievalConfig) error {
	if rc.TopK < 1 {
		return &apierr.ValidationError{Field: "top_k", Message: "top_k must be positive"}
	}
	s.retrieval = rc
	return nil
}

func newTestServer(session Session) *Server {
	return NewWithSession(":0", session)
}

func TestHandleAsk(t *testing.T) {
	stub := &stubSession{askTurn: models.ChatTurn{
		Question: "q?",
		Answer:   "a",
		Context:  []models.Passage{{Text: "p", Score: 0.9, Source: "doc"}},
	}}
	srv := newTestServer(stub)

	body := strings.NewReader(`{"question": "q?"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/ask", body)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool            `json:"success"`
		Turn    models.ChatTurn `json:"turn"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "a", resp.Turn.Answer)
	require.Len(t, resp.Turn.Context, 1)
	assert.Equal(t, 0.9, resp.Turn.Context[0].Score)
}

func TestHandleAskErrorStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{"validation", &apierr.ValidationError{Field: "question", Message: "empty"}, http.StatusBadRequest, "validation"},
		{"authentication", &apierr.AuthenticationError{Service: "openai"}, http.StatusUnauthorized, "authentication"},
		{"rate limit", &apierr.RateLimitError{Service: "agentset"}, http.StatusTooManyRequests, "rate_limit"},
		{"service", &apierr.ServiceError{Service: "agentset", StatusCode: 500}, http.StatusBadGateway, "service"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&stubSession{askErr: tt.err})

			req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"question":"q"}`))
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp struct {
				Success bool   `json:"success"`
				Kind    string `json:"kind"`
			}
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantKind, resp.Kind)
		})
	}
}

func TestHandleAskMethodNotAllowed(t *testing.T) {
	srv := newTestServer(&stubSession{})

	req := httptest.NewRequest(http.MethodGet, "/api/ask", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleIngestJSON(t *testing.T) {
	stub := &stubSession{ingestJob: models.IngestJob{ID: "job_1", Status: models.JobQueued}}
	srv := newTestServer(stub)

	body := strings.NewReader(`{"source_type": "text", "name": "notes", "content": "hello"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/ingest", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, models.SourceText, stub.gotDoc.Source)
	assert.Equal(t, "notes", stub.gotDoc.Name)
	assert.Equal(t, "hello", stub.gotDoc.Content)
}

func TestHandleIngestMultipart(t *testing.T) {
	stub := &stubSession{ingestJob: models.IngestJob{ID: "job_2", Status: models.JobQueued}}
	srv := newTestServer(stub)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	fw.Write([]byte("file content"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/ingest", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, models.SourceFile, stub.gotDoc.Source)
	assert.Equal(t, "notes.txt", stub.gotDoc.Name)
	assert.Equal(t, []byte("file content"), stub.gotDoc.Data)
}

func TestHandleIngestValidationError(t *testing.T) {
	stub := &stubSession{ingestErr: &apierr.ValidationError{Field: "content", Message: "document content is empty"}}
	srv := newTestServer(stub)

	body := strings.NewReader(`{"source_type": "text", "content": ""}`)
	req := httptest.NewRequest(http.MethodPost, "/api/ingest", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHistory(t *testing.T) {
	stub := &stubSession{history: []models.ChatTurn{{Question: "q", Answer: "a"}}}
	srv := newTestServer(stub)

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		History []models.ChatTurn `json:"history"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.History, 1)
	assert.Equal(t, "q", resp.History[0].Question)

	// DELETE clears it
	req = httptest.NewRequest(http.MethodDelete, "/api/history", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, stub.history)
}

func TestHandleConfig(t *testing.T) {
	stub := &stubSession{retrieval: types.RetrievalConfig{TopK: 10, MinScore: 0.5}}
	srv := newTestServer(stub)

	req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Retrieval types.RetrievalConfig `json:"retrieval"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 10, resp.Retrieval.TopK)

	// Update settings
	body := strings.NewReader(`{"top_k": 3, "min_score": 0.7}`)
	req = httptest.NewRequest(http.MethodPut, "/api/config", body)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.RetrievalConfig{TopK: 3, MinScore: 0.7}, stub.retrieval)

	// Invalid settings are rejected
	body = strings.NewReader(`{"top_k": 0, "min_score": 0.7}`)
	req = httptest.NewRequest(http.MethodPut, "/api/config", body)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndIndex(t *testing.T) {
	srv := newTestServer(&stubSession{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "RAG Playground")

	req = httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
