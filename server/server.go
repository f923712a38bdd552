// Package server exposes the RAG session over a small web UI: a websocket
// chat endpoint plus a JSON HTTP API for ingestion, history and settings.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Enes830/testagentset/internal/models"
	"github.com/Enes830/testagentset/internal/types"
	"github.com/Enes830/testagentset/pkg/apierr"
	"github.com/Enes830/testagentset/pkg/config"
	"github.com/Enes830/testagentset/pkg/rag"
)

//go:embed static/index.html
var staticFS embed.FS

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

// Session is the part of the RAG session the server needs.
type Session interface {
	Ask(ctx context.Context, question string) (models.ChatTurn, error)
	Ingest(ctx context.Context, doc models.Document) (models.IngestJob, error)
	WaitForJob(ctx context.Context, jobID string, onStatus func(models.IngestJob)) (models.IngestJob, error)
	History() []models.ChatTurn
	Reset()
	Retrieval() types.RetrievalConfig
	SetRetrieval(types.RetrievalConfig) error
}

// Message is one websocket frame. Type is one of ask, ingest_text,
// ingest_url, reset for requests and status, context, answer, ingested,
// error for responses.
type Message struct {
	Type    string      `json:"type"`
	Content string      `json:"content"`
	Name    string      `json:"name,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type Server struct {
	addr       string
	session    Session
	newSession func() (Session, error)
}

// New builds a server backed by real clients. The HTTP API shares one
// session; every websocket connection gets an independent one.
func New(cfg *config.Config) (*Server, error) {
	factory := func() (Session, error) {
		return rag.New(cfg)
	}

	session, err := factory()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}

	return &Server{
		addr:       cfg.Server.Addr,
		session:    session,
		newSession: factory,
	}, nil
}

// NewWithSession builds a server over an existing session. Websocket
// connections share it as well.
func NewWithSession(addr string, session Session) *Server {
	return &Server{
		addr:    addr,
		session: session,
		newSession: func() (Session, error) {
			return session, nil
		},
	}
}

// Handler returns the routing table for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/api/ask", s.handleAsk)
	mux.HandleFunc("/api/ingest", s.handleIngest)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		page, err := staticFS.ReadFile("static/index.html")
		if err != nil {
			http.Error(w, "page unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(page)
	})
	return mux
}

// Run starts the HTTP server and blocks.
func (s *Server) Run() error {
	log.Printf("Starting server on %s", s.addr)
	return http.ListenAndServe(s.addr, s.Handler())
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &apierr.ValidationError{Field: "body", Message: "invalid request body"})
		return
	}

	turn, err := s.session.Ask(r.Context(), req.Question)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"turn":    turn,
	})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	doc, err := documentFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	job, err := s.session.Ingest(r.Context(), doc)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"success": true,
		"job":     job,
	})
}

func documentFromRequest(r *http.Request) (models.Document, error) {
	contentType := r.Header.Get("Content-Type")

	// File uploads arrive as multipart forms, everything else as JSON.
	if err := r.ParseMultipartForm(32 << 20); err == nil && r.MultipartForm != nil {
		file, header, err := r.FormFile("file")
		if err != nil {
			return models.Document{}, &apierr.ValidationError{Field: "file", Message: "file field is required"}
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return models.Document{}, &apierr.ValidationError{Field: "file", Message: "failed to read uploaded file"}
		}

		return models.Document{
			Source: models.SourceFile,
			Name:   header.Filename,
			Data:   data,
		}, nil
	} else if contentType != "" && contentType != "application/json" &&
		!jsonContentType(contentType) {
		return models.Document{}, &apierr.ValidationError{Field: "body", Message: "expected JSON or multipart form"}
	}

	var req struct {
		SourceType string `json:"source_type"`
		Name       string `json:"name"`
		Content    string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return models.Document{}, &apierr.ValidationError{Field: "body", Message: "invalid request body"}
	}

	return models.Document{
		Source:  models.SourceType(req.SourceType),
		Name:    req.Name,
		Content: req.Content,
	}, nil
}

func jsonContentType(ct string) bool {
	return len(ct) >= 16 && ct[:16] == "application/json"
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"history": s.session.History(),
		})
	case http.MethodDelete:
		s.session.Reset()
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":   true,
			"retrieval": s.session.Retrieval(),
		})
	case http.MethodPut:
		var rc types.RetrievalConfig
		if err := json.NewDecoder(r.Body).Decode(&rc); err != nil {
			writeError(w, &apierr.ValidationError{Field: "body", Message: "invalid request body"})
			return
		}
		if err := s.session.SetRetrieval(rc); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":   true,
			"retrieval": s.session.Retrieval(),
		})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apierr.HTTPStatus(err), map[string]interface{}{
		"success": false,
		"error":   err.Error(),
		"kind":    errorKind(err),
	})
}

func errorKind(err error) string {
	switch {
	case apierr.IsValidation(err):
		return "validation"
	case apierr.IsAuthentication(err):
		return "authentication"
	default:
		if _, ok := apierr.IsRateLimit(err); ok {
			return "rate_limit"
		}
		return "service"
	}
}
