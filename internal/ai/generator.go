// Package ai holds the HTTP clients for the two external collaborators of
// the resolution pipeline: the generation backend and the retrieval service.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"printdesk/internal/models"
	"printdesk/internal/resilience"
)

// GeneratorConfig configures the OpenAI-compatible chat-completions client.
type GeneratorConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration // per-call bound, default 30s
	Temperature float64
	RateLimit   float64 // outbound requests per second, default 2
}

// Generator calls an OpenAI-compatible /chat/completions endpoint
// synchronously. All calls are context-bound and paced by a shared rate
// limiter so a burst of users cannot exhaust the provider quota.
type Generator struct {
	config  GeneratorConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewGenerator validates credentials and builds the client.
func NewGenerator(config GeneratorConfig) (*Generator, error) {
	if config.BaseURL == "" || config.APIKey == "" || config.Model == "" {
		return nil, resilience.New(resilience.KindConfiguration,
			"generation backend requires base URL, API key and model")
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit <= 0 {
		config.RateLimit = 2
	}
	return &Generator{
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), int(config.RateLimit*2)+1),
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature,omitempty"`
}

// Generate sends the system instruction and conversation turns and returns
// the first choice's text. Failures come back classified.
func (g *Generator) Generate(ctx context.Context, system string, turns []models.Turn) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", resilience.Classify(err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	messages := make([]chatMessage, 0, len(turns)+1)
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	for _, turn := range turns {
		messages = append(messages, chatMessage{Role: turn.Role, Content: turn.Content})
	}

	reqJSON, err := json.Marshal(chatRequest{
		Model:       g.config.Model,
		Messages:    messages,
		Stream:      false,
		Temperature: g.config.Temperature,
	})
	if err != nil {
		return "", resilience.Wrap(resilience.KindBackendCall, "failed to marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST",
		g.config.BaseURL+"/chat/completions", bytes.NewBuffer(reqJSON))
	if err != nil {
		return "", resilience.Wrap(resilience.KindBackendCall, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.config.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", resilience.Classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", resilience.ClassifyStatus(resp.StatusCode, string(body))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", resilience.Wrap(resilience.KindBackendCall, "failed to decode response", err)
	}
	if len(result.Choices) == 0 {
		return "", resilience.New(resilience.KindBackendCall, "no choices in response")
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

// String identifies the backend for logs without leaking the key.
func (g *Generator) String() string {
	return fmt.Sprintf("%s (model %s)", g.config.BaseURL, g.config.Model)
}
