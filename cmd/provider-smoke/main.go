// provider-smoke sends a generated test photo to every configured vision
// provider and reports which ones answer.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/disintegration/imaging"
	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/grocery-tracker/internal/scanning"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	fs := ff.NewFlagSet("provider-smoke")
	var (
		openAIKey         = fs.StringLong("openai-key", "", "OpenAI API key (or set OPENAI_API_KEY env var)")
		openAIModel       = fs.StringLong("openai-model", "gpt-4o", "OpenAI model name")
		openAIURL         = fs.StringLong("openai-url", "https://api.openai.com", "OpenAI API base URL")
		geminiKey         = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel       = fs.StringLong("gemini-model", "gemini-1.5-flash", "Google Gemini model name")
		ollamaURL         = fs.StringLong("ollama-url", "", "Ollama API base URL (optional)")
		ollamaModel       = fs.StringLong("ollama-model", "llava", "Ollama model name")
		rekognitionRegion = fs.StringLong("rekognition-region", "", "AWS region for Rekognition (optional)")
		timeout           = fs.DurationLong("timeout", 2*time.Minute, "Timeout for each provider")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("GROCERY_TRACKER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	providers, err := scanning.NewProviders(ctx, scanning.ProviderConfig{
		OpenAIKey:         firstNonEmpty(*openAIKey, os.Getenv("OPENAI_API_KEY")),
		OpenAIURL:         *openAIURL,
		OpenAIModel:       *openAIModel,
		GeminiKey:         firstNonEmpty(*geminiKey, os.Getenv("GEMINI_API_KEY")),
		GeminiModel:       *geminiModel,
		OllamaURL:         *ollamaURL,
		OllamaModel:       *ollamaModel,
		RekognitionRegion: *rekognitionRegion,
	})
	failed := err != nil
	if err != nil {
		slog.Error("Some vision providers could not be initialized", "error", err)
	}
	if len(providers) == 0 {
		slog.Error("No vision provider is configured. Set OPENAI_API_KEY, GEMINI_API_KEY, --ollama-url or --rekognition-region")
		os.Exit(1)
	}

	photo, err := testPhoto()
	if err != nil {
		slog.Error("Failed to generate test photo", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tSTATUS\tLATENCY\tITEMS\tDETAIL")
	for _, p := range providers {
		pctx, cancel := context.WithTimeout(ctx, *timeout)
		start := time.Now()
		detection, err := p.DetectItems(pctx, photo)
		latency := time.Since(start).Round(time.Millisecond)
		cancel()

		if err != nil {
			failed = true
			fmt.Fprintf(w, "%s\tFAIL\t%s\t-\t%v\n", p.Name(), latency, err)
		} else {
			fmt.Fprintf(w, "%s\tOK\t%s\t%d\t%d rejected\n", p.Name(), latency, len(detection.Records), len(detection.Rejected))
		}

		if err := p.Close(); err != nil {
			slog.Warn("Failed to close provider", "provider", p.Name(), "error", err)
		}
	}
	w.Flush()

	if failed {
		os.Exit(1)
	}
}

// testPhoto draws a small still life: a yellow banana shape and a white carton
func testPhoto() (*scanning.Photo, error) {
	img := imaging.New(640, 480, color.NRGBA{R: 235, G: 235, B: 225, A: 255})
	banana := imaging.New(220, 60, color.NRGBA{R: 245, G: 210, B: 40, A: 255})
	carton := imaging.New(120, 240, color.NRGBA{R: 250, G: 250, B: 250, A: 255})
	img = imaging.Paste(img, imaging.Rotate(banana, 20, color.Transparent), image.Pt(60, 200))
	img = imaging.Paste(img, carton, image.Pt(420, 140))

	buf := &bytes.Buffer{}
	if err := imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encoding test photo: %w", err)
	}
	return &scanning.Photo{Data: buf.Bytes(), MIMEType: "image/jpeg"}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
