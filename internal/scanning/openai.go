package scanning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const openAITimeout = 60 * time.Second

// OpenAI implements the Provider interface using the OpenAI chat completions API
type OpenAI struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewOpenAI creates a new OpenAI Provider instance
func NewOpenAI(apiKey string, baseURL string, modelName string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	if modelName == "" {
		modelName = "gpt-4o"
	}

	return &OpenAI{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   modelName,
		client: &http.Client{
			Timeout: openAITimeout,
		},
	}, nil
}

// openAIChatRequest represents the request body for the chat completions API
type openAIChatRequest struct {
	Model     string          `json:"model"`
	Messages  []openAIMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type openAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// openAIChatResponse represents the response from the chat completions API
type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Name returns the provider name
func (o *OpenAI) Name() string {
	return "openai"
}

// DetectItems sends the photo to the chat completions API and parses the item list
func (o *OpenAI) DetectItems(ctx context.Context, photo *Photo) (*Detection, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, openAITimeout)
		defer cancel()
	}

	reqBody := openAIChatRequest{
		Model:     o.model,
		MaxTokens: 1000,
		Messages: []openAIMessage{
			{
				Role:    "system",
				Content: groceryScanSystemPrompt,
			},
			{
				Role: "user",
				Content: []openAIContentPart{
					{Type: "text", Text: groceryScanPrompt},
					{Type: "image_url", ImageURL: &openAIImageURL{URL: photo.DataURL(), Detail: "high"}},
				},
			},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/chat/completions", o.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling openai API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("openai API error (status %d): %s", resp.StatusCode, string(body))
	}

	var chatResp openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("no response from openai")
	}

	detection, err := parseItemsJSON(chatResp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("parsing grocery items: %w", err)
	}

	return detection, nil
}

// Close closes the OpenAI client (no-op for HTTP client)
func (o *OpenAI) Close() error {
	return nil
}
