package scanning

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
)

const ollamaTimeout = 120 * time.Second

// Ollama implements the Provider interface using a local Ollama server
type Ollama struct {
	client *api.Client
	model  string
}

// NewOllama creates a new Ollama Provider instance
// Recommended vision models for grocery photos:
//   - llava:1.6 (best balance of accuracy and speed)
//   - llama3.2-vision (better at counting items)
//   - minicpm-v (small, good at reading labels)
func NewOllama(baseURL string, modelName string) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if modelName == "" {
		modelName = "llava"
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama URL: %w", err)
	}

	// Drop any path such as /api/chat, the client adds it
	base := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}

	return &Ollama{
		client: api.NewClient(base, &http.Client{Timeout: ollamaTimeout}),
		model:  modelName,
	}, nil
}

// Name returns the provider name
func (o *Ollama) Name() string {
	return "ollama"
}

// DetectItems sends the photo to the Ollama chat API and parses the item list
func (o *Ollama) DetectItems(ctx context.Context, photo *Photo) (*Detection, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ollamaTimeout)
		defer cancel()
	}

	stream := false
	req := &api.ChatRequest{
		Model: o.model,
		Messages: []api.Message{
			{
				Role:    "system",
				Content: groceryScanSystemPrompt,
			},
			{
				Role:    "user",
				Content: groceryScanPrompt,
				Images:  []api.ImageData{api.ImageData(photo.Data)},
			},
		},
		Stream: &stream,
	}

	var responseContent string
	err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		responseContent += resp.Message.Content
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("calling ollama API: %w", err)
	}

	if responseContent == "" {
		return nil, fmt.Errorf("empty response from ollama")
	}

	detection, err := parseItemsJSON(responseContent)
	if err != nil {
		return nil, fmt.Errorf("parsing grocery items: %w", err)
	}

	return detection, nil
}

// Close closes the Ollama client (no-op for HTTP client)
func (o *Ollama) Close() error {
	return nil
}
