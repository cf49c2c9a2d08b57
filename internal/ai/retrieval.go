package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	cache "github.com/patrickmn/go-cache"

	"printdesk/internal/resilience"
)

// Retriever fetches grounding passages for a query from the retrieval
// service. Responses are cached briefly: customers ask the same handful of
// questions all day and the catalog behind the service changes rarely.
type Retriever struct {
	baseURL string
	client  *http.Client
	cache   *cache.Cache
}

// NewRetriever builds the client. cacheTTL <= 0 defaults to 5 minutes.
func NewRetriever(baseURL string, timeout, cacheTTL time.Duration) *Retriever {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Retriever{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		cache:   cache.New(cacheTTL, 10*time.Minute),
	}
}

// GetContext returns grounding text for the query, empty when the service
// has nothing relevant. Failures come back classified as retrieval errors.
func (r *Retriever) GetContext(ctx context.Context, query, language string) (string, error) {
	key := language + "|" + query
	if cached, found := r.cache.Get(key); found {
		return cached.(string), nil
	}

	endpoint := fmt.Sprintf("%s/context?q=%s&lang=%s",
		r.baseURL, url.QueryEscape(query), url.QueryEscape(language))
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return "", resilience.Wrap(resilience.KindRetrieval, "failed to create request", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", resilience.Wrap(resilience.KindRetrieval, "context fetch failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", resilience.Wrap(resilience.KindRetrieval,
			fmt.Sprintf("context fetch returned HTTP %d", resp.StatusCode),
			fmt.Errorf("%s", body))
	}

	var result struct {
		Context string `json:"context"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", resilience.Wrap(resilience.KindRetrieval, "failed to decode response", err)
	}

	r.cache.Set(key, result.Context, cache.DefaultExpiration)
	return result.Context, nil
}
