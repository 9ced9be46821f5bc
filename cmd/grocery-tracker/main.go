package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/grocery-tracker/internal/pantry"
	"github.com/zombor/grocery-tracker/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// A missing .env file is fine
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	fs := ff.NewFlagSet("grocery-tracker")
	var (
		port              = fs.IntLong("port", 8080, "HTTP server port")
		dbDriver          = fs.StringLong("db-driver", "bolt", "Database driver: 'bolt' or 'sqlite'")
		dbPath            = fs.StringLong("db", "grocery-tracker.db", "Database file path")
		storagePath       = fs.StringLong("storage", "./photos", "Photo storage directory path")
		s3Bucket          = fs.StringLong("s3-bucket", "", "Store photos in this S3 bucket instead of the storage directory")
		s3Prefix          = fs.StringLong("s3-prefix", "photos", "Key prefix for photos in the S3 bucket")
		s3Region          = fs.StringLong("s3-region", "", "AWS region of the S3 bucket (defaults to the AWS config)")
		openAIKey         = fs.StringLong("openai-key", "", "OpenAI API key (or set OPENAI_API_KEY env var)")
		openAIModel       = fs.StringLong("openai-model", "gpt-4o", "OpenAI model name")
		openAIURL         = fs.StringLong("openai-url", "https://api.openai.com", "OpenAI API base URL")
		geminiKey         = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel       = fs.StringLong("gemini-model", "gemini-1.5-flash", "Google Gemini model name")
		ollamaURL         = fs.StringLong("ollama-url", "", "Ollama API base URL, e.g. http://localhost:11434 (optional)")
		ollamaModel       = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, llava-phi3, bakllava, qwen2-vl)")
		rekognitionRegion = fs.StringLong("rekognition-region", "", "AWS region for Rekognition label detection (optional)")
		minConfidence     = fs.Float64Long("min-confidence", 0, "Drop detected items below this confidence (0 keeps everything)")
		authUser          = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass          = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion       = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("GROCERY_TRACKER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if *minConfidence < 0 || *minConfidence > 1 {
		slog.Error("Minimum confidence must be between 0 and 1", "min_confidence", *minConfidence)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	slog.Info("Initializing database...", "driver", *dbDriver, "path", *dbPath)
	var db pantry.DB
	var err error
	switch *dbDriver {
	case "bolt":
		db, err = pantry.NewBoltDB(*dbPath)
	case "sqlite":
		db, err = pantry.NewSQLiteDB(*dbPath)
	default:
		slog.Error("Invalid database driver", "driver", *dbDriver, "valid", "bolt or sqlite")
		os.Exit(1)
	}
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize vision providers; any of them may be missing
	cfg := scanning.ProviderConfig{
		OpenAIKey:         firstNonEmpty(*openAIKey, os.Getenv("OPENAI_API_KEY")),
		OpenAIURL:         *openAIURL,
		OpenAIModel:       *openAIModel,
		GeminiKey:         firstNonEmpty(*geminiKey, os.Getenv("GEMINI_API_KEY")),
		GeminiModel:       *geminiModel,
		OllamaURL:         *ollamaURL,
		OllamaModel:       *ollamaModel,
		RekognitionRegion: *rekognitionRegion,
	}
	providers, err := scanning.NewProviders(ctx, cfg)
	if err != nil {
		slog.Warn("Some vision providers could not be initialized", "error", err)
	}
	gateway := scanning.NewGateway(providers, *minConfidence)
	defer gateway.Close()

	if len(providers) == 0 {
		slog.Warn("No vision provider configured, scans will return sample items")
	} else {
		slog.Info("Vision providers configured", "providers", gateway.Providers())
	}

	// Initialize storage
	var store pantry.Storage
	if *s3Bucket != "" {
		slog.Info("Initializing S3 storage...", "bucket", *s3Bucket, "prefix", *s3Prefix)
		store, err = pantry.NewS3Storage(ctx, *s3Bucket, *s3Prefix, *s3Region)
	} else {
		slog.Info("Initializing storage...", "path", *storagePath)
		store, err = pantry.NewLocalStorage(*storagePath)
	}
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	service := pantry.NewService(db, gateway, store)

	basicAuth := pantry.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := pantry.NewServer(service, basicAuth, version)

	addr := fmt.Sprintf(":%d", *port)
	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	if err := server.Run(ctx, addr); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	slog.Info("Shutting down...")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
