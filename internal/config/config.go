package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds application configuration
type Config struct {
	// Server settings
	ListenAddr string `json:"listen_addr"`
	Debug      bool   `json:"debug"`

	// Report branding
	BusinessName string `json:"business_name"`

	// Directories
	DataDirectory    string `json:"data_directory"`
	UploadsDirectory string `json:"uploads_directory"`
	ExportsDirectory string `json:"exports_directory"`

	// Receipt extraction
	GeminiAPIKey string `json:"-"`
	GeminiModel  string `json:"gemini_model"`

	// Storage passphrase supplied via environment, empty when interactive
	Passphrase string `json:"-"`
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}

	return &Config{
		ListenAddr:       ":8080",
		Debug:            false,
		BusinessName:     "PocketMoney",
		DataDirectory:    filepath.Join(wd, "data"),
		UploadsDirectory: filepath.Join(wd, "data", "uploads"),
		ExportsDirectory: filepath.Join(wd, "data", "exports"),
		GeminiModel:      "gemini-2.0-flash",
	}
}

// Load loads configuration from a .env file (when present) and the environment
func Load() *Config {
	// Missing .env is fine, the environment alone is enough
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if addr := os.Getenv("POCKETMONEY_LISTEN_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	if debug := os.Getenv("POCKETMONEY_DEBUG"); debug == "true" || debug == "1" {
		cfg.Debug = true
	}
	if name := os.Getenv("POCKETMONEY_BUSINESS_NAME"); name != "" {
		cfg.BusinessName = name
	}
	if dataDir := os.Getenv("POCKETMONEY_DATA_DIR"); dataDir != "" {
		cfg.DataDirectory = dataDir
		cfg.UploadsDirectory = filepath.Join(dataDir, "uploads")
		cfg.ExportsDirectory = filepath.Join(dataDir, "exports")
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.GeminiAPIKey = key
	}
	if model := os.Getenv("POCKETMONEY_GEMINI_MODEL"); model != "" {
		cfg.GeminiModel = model
	}
	if pass := os.Getenv("POCKETMONEY_PASSPHRASE"); pass != "" {
		cfg.Passphrase = pass
	}

	cfg.ensureDirectories()

	return cfg
}

// ensureDirectories creates required directories if they don't exist
func (c *Config) ensureDirectories() {
	dirs := []string{
		c.DataDirectory,
		c.UploadsDirectory,
		c.ExportsDirectory,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("could not create directory")
		}
	}
}
