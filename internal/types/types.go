package types

import (
	"context"

	"github.com/Enes830/testagentset/internal/models"
)

// Core interfaces
type Retriever interface {
	Search(ctx context.Context, query string, rc RetrievalConfig) ([]models.Passage, error)
}

type Ingester interface {
	IngestText(ctx context.Context, name, text string) (models.IngestJob, error)
	IngestFileURL(ctx context.Context, name, fileURL string) (models.IngestJob, error)
	IngestUpload(ctx context.Context, name string, data []byte) (models.IngestJob, error)
	JobStatus(ctx context.Context, jobID string) (models.IngestJob, error)
}

type Completer interface {
	Complete(ctx context.Context, question string, passages []models.Passage) (string, error)
}

// Fetcher verifies URLs and extracts readable text from HTML pages.
type Fetcher interface {
	Check(ctx context.Context, rawURL string) (contentType string, err error)
	Page(ctx context.Context, rawURL string) (title, text string, err error)
}

// RetrievalConfig holds the per-session retrieval parameters.
type RetrievalConfig struct {
	TopK     int     `json:"top_k"`
	MinScore float64 `json:"min_score"`
}
