package scanning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const geminiTimeout = 30 * time.Second

// Gemini implements the Provider interface using Google Gemini
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini Provider instance
func NewGemini(ctx context.Context, apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)

	return &Gemini{
		client: client,
		model:  model,
	}, nil
}

// Name returns the provider name
func (g *Gemini) Name() string {
	return "gemini"
}

// DetectItems sends the photo to Gemini and parses the item list
func (g *Gemini) DetectItems(ctx context.Context, photo *Photo) (*Detection, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, geminiTimeout)
		defer cancel()
	}

	// genai.ImageData expects just the format suffix (e.g., "jpeg"), not the full MIME type
	format := strings.TrimPrefix(photo.MIMEType, "image/")
	parts := []genai.Part{
		genai.Text(groceryScanPrompt),
		genai.ImageData(format, photo.Data),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	text, err := geminiResponseText(resp)
	if err != nil {
		return nil, err
	}

	detection, err := parseItemsJSON(text)
	if err != nil {
		return nil, fmt.Errorf("parsing grocery items: %w", err)
	}

	return detection, nil
}

// geminiResponseText joins the text parts of the first candidate
func geminiResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}
	return responseText.String(), nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
