package supermaya

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Options controls Core initialization. Missing model credentials do not
// fail startup; the corresponding handler degrades instead.
type Options struct {
	DBPath string
	Logger *slog.Logger

	GroqAPIKey      string
	GroqBaseURL     string
	GroqModel       string
	AnthropicAPIKey string
	AnthropicModel  string
	GeminiAPIKey    string
	GeminiModel     string

	// TextProvider selects the language-model backend: "groq" (default)
	// or "anthropic".
	TextProvider string

	HTTPTimeout   time.Duration
	ModelTimeout  time.Duration
	MarketTimeout time.Duration

	// Injection seams for tests; nil selects the real clients.
	MarketData   MarketDataClient
	TextClient   TextModelClient
	VisionClient VisionModelClient
}

// Core provides access to SuperMaya business logic and storage: user
// accounts, chat persistence, and the intent-routing orchestrator.
type Core struct {
	db           *sql.DB
	logger       *slog.Logger
	orchestrator *Orchestrator
	dbPath       string
}

// Open initializes a Core using the provided database path.
func Open(dbPath string) (*Core, error) {
	return OpenWithOptions(Options{DBPath: dbPath})
}

// OpenWithOptions initializes a Core using the provided options.
func OpenWithOptions(opts Options) (*Core, error) {
	if opts.DBPath == "" {
		return nil, errors.New("db path is required")
	}
	cleanPath := filepath.Clean(opts.DBPath)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", cleanPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite performs best with a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logger.Warn("pragma busy_timeout failed", "err", err)
	}

	if err := initDatabase(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init database: %w", err)
	}

	market := opts.MarketData
	if market == nil {
		market = newYahooClient(yahooClientOptions{
			Logger:      logger,
			HTTPTimeout: defaultDuration(opts.HTTPTimeout, 10*time.Second),
		})
	}

	textClient := opts.TextClient
	if textClient == nil {
		textClient = buildTextClient(opts, logger)
	}

	visionClient := opts.VisionClient
	if visionClient == nil && opts.GeminiAPIKey != "" {
		visionClient = newGeminiClient(opts.GeminiAPIKey, opts.GeminiModel)
	}
	if visionClient == nil {
		logger.Warn("vision model credential missing; image queries will degrade")
	}

	orchestrator := newOrchestrator(orchestratorOptions{
		Market:        market,
		TextClient:    textClient,
		VisionClient:  visionClient,
		Logger:        logger,
		ModelTimeout:  opts.ModelTimeout,
		MarketTimeout: opts.MarketTimeout,
	})

	return &Core{
		db:           db,
		logger:       logger,
		orchestrator: orchestrator,
		dbPath:       cleanPath,
	}, nil
}

func buildTextClient(opts Options, logger *slog.Logger) TextModelClient {
	switch opts.TextProvider {
	case "anthropic":
		if opts.AnthropicAPIKey == "" {
			logger.Warn("anthropic credential missing; text queries will degrade")
			return nil
		}
		return newAnthropicClient(opts.AnthropicAPIKey, opts.AnthropicModel)
	default:
		if opts.GroqAPIKey == "" {
			logger.Warn("groq credential missing; text queries will degrade")
			return nil
		}
		return newGroqClient(opts.GroqAPIKey, opts.GroqBaseURL, opts.GroqModel)
	}
}

// Close releases database resources.
func (c *Core) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// DBPath returns the underlying database path.
func (c *Core) DBPath() string {
	return c.dbPath
}

// Logger returns the core's logger.
func (c *Core) Logger() *slog.Logger {
	return c.logger
}

// Orchestrator exposes the intent router, mainly for direct use in tests.
func (c *Core) Orchestrator() *Orchestrator {
	return c.orchestrator
}

// ChatText runs a text-only conversational turn for the user: classify,
// dispatch, serialize the envelope, persist the exchange.
func (c *Core) ChatText(ctx context.Context, user *User, query string) (*Interaction, error) {
	envelope := c.orchestrator.ClassifyAndRun(ctx, query, user.SystemPrompt)
	return c.storeTurn(user.ID, query, envelope)
}

// ChatImage runs an image-bearing turn. The caller has already validated the
// upload bytes into an Image.
func (c *Core) ChatImage(ctx context.Context, user *User, query string, image Image) (*Interaction, error) {
	envelope := c.orchestrator.RunVision(ctx, query, image, user.SystemPrompt)
	return c.storeTurn(user.ID, query, envelope)
}

func (c *Core) storeTurn(ownerID int64, query string, envelope Envelope) (*Interaction, error) {
	serialized, err := envelope.MarshalEnvelope()
	if err != nil {
		return nil, err
	}
	return c.CreateInteraction(ownerID, query, serialized)
}
