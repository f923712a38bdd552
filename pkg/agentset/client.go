// Package agentset is a minimal REST client for the Agentset namespace API.
// It covers semantic search, ingestion jobs and presigned file uploads. All
// wire formats are dictated by the hosted service.
package agentset

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/Enes830/testagentset/internal/models"
	"github.com/Enes830/testagentset/internal/types"
	"github.com/Enes830/testagentset/pkg/apierr"
)

const serviceName = "agentset"

type ClientConfig struct {
	BaseURL     string
	APIKey      string
	NamespaceID string
	Timeout     time.Duration

	// Fallback top-k plus rerank settings sent with every search request.
	// The per-request minimum score and top-k come from the caller.
	TopK        int
	Rerank      bool
	RerankModel string
}

type Client struct {
	config ClientConfig
	client *http.Client
}

func NewWithConfig(config ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, &apierr.AuthenticationError{Service: serviceName, Message: "missing API key"}
	}
	if config.NamespaceID == "" {
		return nil, &apierr.ValidationError{Field: "namespace_id", Message: "namespace ID is required"}
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.agentset.ai/v1"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.TopK == 0 {
		config.TopK = 10
	}
	if config.RerankModel == "" {
		config.RerankModel = "zeroentropy:zerank-2"
	}

	return &Client{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}, nil
}

type searchRequest struct {
	Query           string  `json:"query"`
	TopK            int     `json:"topK"`
	MinScore        float64 `json:"minScore"`
	Rerank          bool    `json:"rerank"`
	RerankLimit     int     `json:"rerankLimit,omitempty"`
	RerankModel     string  `json:"rerankModel,omitempty"`
	Mode            string  `json:"mode"`
	IncludeMetadata bool    `json:"includeMetadata"`
}

type searchResult struct {
	ID       string                 `json:"id"`
	Text     string                 `json:"text"`
	Score    float64                `json:"score"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Search retrieves passages relevant to the query from the configured
// namespace. The caller's retrieval parameters are sent with the request so
// that settings changed mid-session take effect on the wire; the
// construction-time values only back-fill an unset top-k. Results are
// returned in descending score order.
func (c *Client) Search(ctx context.Context, query string, rc types.RetrievalConfig) ([]models.Passage, error) {
	topK := rc.TopK
	if topK <= 0 {
		topK = c.config.TopK
	}

	req := searchRequest{
		Query:           query,
		TopK:            topK,
		MinScore:        rc.MinScore,
		Rerank:          c.config.Rerank,
		Mode:            "semantic",
		IncludeMetadata: true,
	}
	if req.Rerank {
		req.RerankLimit = topK
		req.RerankModel = c.config.RerankModel
	}

	var resp struct {
		Data []searchResult `json:"data"`
	}
	url := fmt.Sprintf("%s/namespace/%s/search", c.config.BaseURL, c.config.NamespaceID)
	if err := c.postJSON(ctx, url, req, &resp); err != nil {
		return nil, err
	}

	passages := make([]models.Passage, 0, len(resp.Data))
	for _, r := range resp.Data {
		passages = append(passages, models.Passage{
			Text:   r.Text,
			Score:  r.Score,
			Source: sourceReference(r),
		})
	}
	sort.SliceStable(passages, func(i, j int) bool {
		return passages[i].Score > passages[j].Score
	})

	return passages, nil
}

func sourceReference(r searchResult) string {
	for _, key := range []string{"source", "fileName", "file_name", "documentName"} {
		if v, ok := r.Metadata[key].(string); ok && v != "" {
			return v
		}
	}
	return r.ID
}

func (c *Client) postJSON(ctx context.Context, url string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return &apierr.ServiceError{Service: serviceName, Message: err.Error()}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return &apierr.ServiceError{Service: serviceName, Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apierr.FromStatus(serviceName, resp.StatusCode, errorMessage(payload), retryAfter(resp))
	}

	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return &apierr.ServiceError{Service: serviceName, Message: "invalid response body"}
		}
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return &apierr.ServiceError{Service: serviceName, Message: err.Error()}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return &apierr.ServiceError{Service: serviceName, Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apierr.FromStatus(serviceName, resp.StatusCode, errorMessage(payload), retryAfter(resp))
	}

	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return &apierr.ServiceError{Service: serviceName, Message: "invalid response body"}
		}
	}
	return nil
}

// errorMessage extracts the service's error description from a failure body,
// falling back to the raw body when it isn't the usual JSON envelope.
func errorMessage(payload []byte) string {
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &envelope); err == nil {
		if envelope.Error != "" {
			return envelope.Error
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	return string(payload)
}

func retryAfter(resp *http.Response) time.Duration {
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}
