package agentset

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/Enes830/testagentset/internal/models"
	"github.com/Enes830/testagentset/pkg/apierr"
)

type ingestPayload struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	FileName string `json:"fileName,omitempty"`
	FileURL  string `json:"fileUrl,omitempty"`
	Key      string `json:"key,omitempty"`
}

type ingestRequest struct {
	Name    string        `json:"name,omitempty"`
	Payload ingestPayload `json:"payload"`
}

type jobData struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error"`
}

type jobResponse struct {
	Data jobData `json:"data"`
}

// IngestText submits raw text for indexing under the namespace.
func (c *Client) IngestText(ctx context.Context, name, text string) (models.IngestJob, error) {
	if strings.TrimSpace(text) == "" {
		return models.IngestJob{}, &apierr.ValidationError{Field: "text", Message: "document content is empty"}
	}

	req := ingestRequest{
		Payload: ingestPayload{Type: "TEXT", Text: text, FileName: name},
	}
	return c.createJob(ctx, req)
}

// IngestFileURL asks the service to download and index a document from a URL.
func (c *Client) IngestFileURL(ctx context.Context, name, fileURL string) (models.IngestJob, error) {
	if strings.TrimSpace(fileURL) == "" {
		return models.IngestJob{}, &apierr.ValidationError{Field: "url", Message: "document URL is empty"}
	}

	req := ingestRequest{
		Name:    name,
		Payload: ingestPayload{Type: "FILE", FileURL: fileURL},
	}
	return c.createJob(ctx, req)
}

// IngestUpload uploads file bytes through a presigned URL, then creates an
// ingestion job for the stored object.
func (c *Client) IngestUpload(ctx context.Context, name string, data []byte) (models.IngestJob, error) {
	if len(data) == 0 {
		return models.IngestJob{}, &apierr.ValidationError{Field: "file", Message: "document content is empty"}
	}

	contentType := contentTypeFor(name)

	var upload struct {
		Data struct {
			URL string `json:"url"`
			Key string `json:"key"`
		} `json:"data"`
	}
	uploadReq := map[string]interface{}{
		"fileName":    name,
		"fileSize":    len(data),
		"contentType": contentType,
	}
	url := fmt.Sprintf("%s/namespace/%s/uploads", c.config.BaseURL, c.config.NamespaceID)
	if err := c.postJSON(ctx, url, uploadReq, &upload); err != nil {
		return models.IngestJob{}, err
	}

	if err := c.putFile(ctx, upload.Data.URL, contentType, data); err != nil {
		return models.IngestJob{}, err
	}

	req := ingestRequest{
		Payload: ingestPayload{Type: "MANAGED_FILE", Key: upload.Data.Key, FileName: name},
	}
	return c.createJob(ctx, req)
}

// JobStatus fetches the current state of an ingestion job.
func (c *Client) JobStatus(ctx context.Context, jobID string) (models.IngestJob, error) {
	var resp jobResponse
	url := fmt.Sprintf("%s/namespace/%s/ingest-jobs/%s", c.config.BaseURL, c.config.NamespaceID, jobID)
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return models.IngestJob{}, err
	}
	return jobFromData(resp.Data), nil
}

func (c *Client) createJob(ctx context.Context, req ingestRequest) (models.IngestJob, error) {
	var resp jobResponse
	url := fmt.Sprintf("%s/namespace/%s/ingest-jobs", c.config.BaseURL, c.config.NamespaceID)
	if err := c.postJSON(ctx, url, req, &resp); err != nil {
		return models.IngestJob{}, err
	}

	job := jobFromData(resp.Data)
	if job.Status == "" {
		job.Status = models.JobQueued
	}
	return job, nil
}

func (c *Client) putFile(ctx context.Context, url, contentType string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build upload request: %v", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return &apierr.ServiceError{Service: serviceName, Message: "file upload failed: " + err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return &apierr.ServiceError{
			Service:    serviceName,
			StatusCode: resp.StatusCode,
			Message:    "file upload failed: " + string(body),
		}
	}
	return nil
}

func jobFromData(d jobData) models.IngestJob {
	return models.IngestJob{
		ID:     d.ID,
		Name:   d.Name,
		Status: d.Status,
		Error:  d.Error,
	}
}

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
