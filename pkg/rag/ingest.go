package rag

import (
	"context"
	"strings"
	"time"

	"github.com/Enes830/testagentset/internal/models"
	"github.com/Enes830/testagentset/pkg/apierr"
)

const (
	jobPollInterval = 2 * time.Second
	jobPollTimeout  = 5 * time.Minute
)

// Ingest validates a document and submits it to the retrieval service. The
// document is checked before any network call so that bad input never touches
// the external index. Returns the ingestion job to poll for completion.
func (s *Session) Ingest(ctx context.Context, doc models.Document) (models.IngestJob, error) {
	switch doc.Source {
	case models.SourceText:
		if strings.TrimSpace(doc.Content) == "" {
			return models.IngestJob{}, &apierr.ValidationError{Field: "content", Message: "document content is empty"}
		}
		name := doc.Name
		if name == "" {
			name = "text-content"
		}
		return s.ingester.IngestText(ctx, name, doc.Content)

	case models.SourceURL:
		return s.ingestURL(ctx, doc)

	case models.SourceFile:
		if len(doc.Data) == 0 {
			return models.IngestJob{}, &apierr.ValidationError{Field: "file", Message: "document content is empty"}
		}
		if doc.Name == "" {
			return models.IngestJob{}, &apierr.ValidationError{Field: "file", Message: "file name is required"}
		}
		return s.ingester.IngestUpload(ctx, doc.Name, doc.Data)

	default:
		return models.IngestJob{}, &apierr.ValidationError{
			Field:   "source_type",
			Message: "source type must be one of text, url, file",
		}
	}
}

// ingestURL verifies the URL is reachable first. HTML pages are fetched and
// ingested as extracted text; anything else is handed to the service as a
// file URL to download itself.
func (s *Session) ingestURL(ctx context.Context, doc models.Document) (models.IngestJob, error) {
	rawURL := strings.TrimSpace(doc.Content)
	if rawURL == "" {
		return models.IngestJob{}, &apierr.ValidationError{Field: "url", Message: "document URL is empty"}
	}

	contentType, err := s.fetcher.Check(ctx, rawURL)
	if err != nil {
		return models.IngestJob{}, err
	}

	if strings.Contains(contentType, "text/html") {
		title, text, err := s.fetcher.Page(ctx, rawURL)
		if err != nil {
			return models.IngestJob{}, err
		}
		name := doc.Name
		if name == "" {
			name = title
		}
		if name == "" {
			name = rawURL
		}
		return s.ingester.IngestText(ctx, name, text)
	}

	name := doc.Name
	if name == "" {
		name = rawURL
	}
	return s.ingester.IngestFileURL(ctx, name, rawURL)
}

// WaitForJob polls the ingestion job until it reaches a terminal state. The
// onStatus callback, if set, fires on every status change.
func (s *Session) WaitForJob(ctx context.Context, jobID string, onStatus func(models.IngestJob)) (models.IngestJob, error) {
	ctx, cancel := context.WithTimeout(ctx, jobPollTimeout)
	defer cancel()

	ticker := time.NewTicker(jobPollInterval)
	defer ticker.Stop()

	var lastStatus string
	for {
		job, err := s.ingester.JobStatus(ctx, jobID)
		if err != nil {
			return models.IngestJob{}, err
		}

		if job.Status != lastStatus {
			lastStatus = job.Status
			if onStatus != nil {
				onStatus(job)
			}
		}

		if job.Terminal() {
			if job.Status != models.JobCompleted {
				msg := job.Error
				if msg == "" {
					msg = "ingestion job " + job.Status
				}
				return job, &apierr.ServiceError{Service: "agentset", Message: msg}
			}
			return job, nil
		}

		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}
