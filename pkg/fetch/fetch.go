package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/Enes830/testagentset/pkg/apierr"
)

type FetcherConfig struct {
	RateLimit float64 // requests per second
	Timeout   time.Duration
}

// Fetcher verifies that URLs are reachable and extracts the readable text of
// HTML pages so they can be ingested as plain documents.
type Fetcher struct {
	config  FetcherConfig
	client  *http.Client
	limiter *rate.Limiter
}

func NewWithConfig(config FetcherConfig) *Fetcher {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2 // 2 requests per second by default
	}

	return &Fetcher{
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

func New() *Fetcher {
	return NewWithConfig(FetcherConfig{})
}

// Check verifies the URL is well formed and reachable, returning the content
// type the server reports. Unreachable or non-2xx URLs are validation
// failures: the user supplied a bad URL, not the service.
func (f *Fetcher) Check(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", &apierr.ValidationError{Field: "url", Message: fmt.Sprintf("invalid URL: %s", rawURL)}
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &apierr.ValidationError{Field: "url", Message: fmt.Sprintf("invalid URL: %s", rawURL)}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &apierr.ValidationError{Field: "url", Message: fmt.Sprintf("unreachable URL: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &apierr.ValidationError{
			Field:   "url",
			Message: fmt.Sprintf("URL returned status %d: %s", resp.StatusCode, rawURL),
		}
	}

	return resp.Header.Get("Content-Type"), nil
}

// Page downloads an HTML page and returns its title and main text content.
func (f *Fetcher) Page(ctx context.Context, rawURL string) (string, string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", "", &apierr.ValidationError{Field: "url", Message: fmt.Sprintf("invalid URL: %s", rawURL)}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", "", &apierr.ValidationError{Field: "url", Message: fmt.Sprintf("unreachable URL: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", &apierr.ValidationError{
			Field:   "url",
			Message: fmt.Sprintf("URL returned status %d: %s", resp.StatusCode, rawURL),
		}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", "", &apierr.ValidationError{Field: "url", Message: "failed to parse page HTML"}
	}

	title := strings.TrimSpace(doc.Find("title").Text())
	content := extractMainContent(doc)
	if content == "" {
		return "", "", &apierr.ValidationError{Field: "url", Message: "page has no readable text"}
	}

	return title, content, nil
}

func extractMainContent(doc *goquery.Document) string {
	// Try to find main content area
	selectors := []string{
		"main",
		"article",
		".content",
		"#content",
		".documentation",
		"#documentation",
	}

	var content string
	for _, selector := range selectors {
		if selected := doc.Find(selector); selected.Length() > 0 {
			content = selected.Text()
			break
		}
	}

	// Fallback to body if no main content found
	if content == "" {
		content = doc.Find("body").Text()
	}

	return cleanContent(content)
}

func cleanContent(content string) string {
	// Remove extra whitespace
	content = strings.Join(strings.Fields(content), " ")

	// Remove common noise
	noisePatterns := []string{
		"Cookie Policy",
		"Accept Cookies",
		"Privacy Policy",
		"Terms of Service",
	}

	for _, pattern := range noisePatterns {
		content = strings.ReplaceAll(content, pattern, "")
	}

	return strings.TrimSpace(content)
}
