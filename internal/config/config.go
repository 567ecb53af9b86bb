package config

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Environment variable names consumed at startup.
const (
	EnvDataDir         = "SUPERMAYA_DATA_DIR"
	EnvDBPath          = "SUPERMAYA_DB_PATH"
	EnvGroqAPIKey      = "SUPERMAYA_GROQ_API_KEY"
	EnvGroqBaseURL     = "SUPERMAYA_GROQ_BASE_URL"
	EnvGroqModel       = "SUPERMAYA_GROQ_MODEL"
	EnvAnthropicAPIKey = "SUPERMAYA_ANTHROPIC_API_KEY"
	EnvAnthropicModel  = "SUPERMAYA_ANTHROPIC_MODEL"
	EnvGeminiAPIKey    = "SUPERMAYA_GEMINI_API_KEY"
	EnvGeminiModel     = "SUPERMAYA_GEMINI_MODEL"
	EnvTextProvider    = "SUPERMAYA_TEXT_PROVIDER"
	EnvSecretKey       = "SUPERMAYA_SECRET_KEY"
	EnvTokenTTLMinutes = "SUPERMAYA_TOKEN_TTL_MINUTES"
)

const defaultDBName = "supermaya.db"

// Settings holds process-wide configuration resolved once at startup. Model
// credentials are optional; a missing one only degrades that handler.
type Settings struct {
	DataDir string
	DBPath  string

	GroqAPIKey      string
	GroqBaseURL     string
	GroqModel       string
	AnthropicAPIKey string
	AnthropicModel  string
	GeminiAPIKey    string
	GeminiModel     string
	TextProvider    string

	SecretKey          string
	GeneratedSecretKey bool
	TokenTTL           time.Duration
}

// Load resolves settings from the environment. dataDirFlag, when non-empty,
// overrides the environment data directory.
func Load(dataDirFlag string) (Settings, error) {
	dataDir, err := resolveDataDir(dataDirFlag)
	if err != nil {
		return Settings{}, err
	}

	dbPath := strings.TrimSpace(os.Getenv(EnvDBPath))
	if dbPath == "" {
		dbPath = filepath.Join(dataDir, defaultDBName)
	}

	settings := Settings{
		DataDir:         dataDir,
		DBPath:          dbPath,
		GroqAPIKey:      strings.TrimSpace(os.Getenv(EnvGroqAPIKey)),
		GroqBaseURL:     strings.TrimSpace(os.Getenv(EnvGroqBaseURL)),
		GroqModel:       strings.TrimSpace(os.Getenv(EnvGroqModel)),
		AnthropicAPIKey: strings.TrimSpace(os.Getenv(EnvAnthropicAPIKey)),
		AnthropicModel:  strings.TrimSpace(os.Getenv(EnvAnthropicModel)),
		GeminiAPIKey:    strings.TrimSpace(os.Getenv(EnvGeminiAPIKey)),
		GeminiModel:     strings.TrimSpace(os.Getenv(EnvGeminiModel)),
		TextProvider:    strings.ToLower(strings.TrimSpace(os.Getenv(EnvTextProvider))),
		SecretKey:       strings.TrimSpace(os.Getenv(EnvSecretKey)),
		TokenTTL:        resolveTokenTTL(),
	}

	if settings.SecretKey == "" {
		// Tokens signed with a generated key do not survive a restart;
		// main logs a warning so operators set a real secret.
		generated, err := randomSecret()
		if err != nil {
			return Settings{}, err
		}
		settings.SecretKey = generated
		settings.GeneratedSecretKey = true
	}
	return settings, nil
}

func resolveDataDir(flagValue string) (string, error) {
	dir := strings.TrimSpace(flagValue)
	if dir == "" {
		dir = strings.TrimSpace(os.Getenv(EnvDataDir))
	}
	if dir == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			home, homeErr := os.UserHomeDir()
			if homeErr != nil {
				return "", homeErr
			}
			configDir = filepath.Join(home, ".config")
		}
		dir = filepath.Join(configDir, "supermaya")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func resolveTokenTTL() time.Duration {
	value := strings.TrimSpace(os.Getenv(EnvTokenTTLMinutes))
	if value == "" {
		return 60 * time.Minute
	}
	minutes, err := strconv.Atoi(value)
	if err != nil || minutes <= 0 {
		return 60 * time.Minute
	}
	return time.Duration(minutes) * time.Minute
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
