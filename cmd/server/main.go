package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/term"

	"pocketmoney/internal/config"
	analyticshandlers "pocketmoney/internal/handlers/analytics"
	"pocketmoney/internal/handlers/backup"
	"pocketmoney/internal/handlers/receipts"
	"pocketmoney/internal/handlers/records"
	"pocketmoney/internal/logger"
	"pocketmoney/internal/services/analytics"
	"pocketmoney/internal/services/extractor"
	"pocketmoney/internal/services/recordloader"
	"pocketmoney/internal/services/report"
	"pocketmoney/internal/services/storage"
	"pocketmoney/internal/version"
)

var (
	cfg    *config.Config
	store  *storage.Storage
	loader *recordloader.Loader
	log    zerolog.Logger
)

func main() {
	cfg = config.Load()
	log = logger.New(cfg.Debug)
	zlog.Logger = log

	log.Info().Str("version", version.Get().String()).Msg("starting pocketmoney server")
	log.Info().Str("addr", cfg.ListenAddr).Str("data_dir", cfg.DataDirectory).Msg("configuration loaded")

	var err error
	store, err = storage.New(cfg.DataDirectory)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize storage")
	}

	if store.IsEncrypted() {
		if err := unlockStorage(); err != nil {
			log.Fatal().Err(err).Msg("failed to unlock storage")
		}
		log.Info().Msg("storage unlocked")
	}

	if err := SetupDependencies(cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to set up dependencies")
	}

	r := SetupRouter()

	log.Info().Str("addr", cfg.ListenAddr).Msg("server listening")
	if err := http.ListenAndServe(cfg.ListenAddr, r); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

// unlockStorage obtains the passphrase from the environment or, on a
// terminal, by prompting
func unlockStorage() error {
	if cfg.Passphrase != "" {
		return store.Unlock(cfg.Passphrase)
	}

	if !term.IsTerminal(int(syscall.Stdin)) {
		return fmt.Errorf("data directory is encrypted; set POCKETMONEY_PASSPHRASE")
	}

	fmt.Fprint(os.Stderr, "Storage passphrase: ")
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to read passphrase: %w", err)
	}

	return store.Unlock(string(raw))
}

// SetupDependencies wires the services and handler packages for the given
// configuration. Storage must already be initialized.
func SetupDependencies(c *config.Config) error {
	cfg = c

	if store == nil {
		var err error
		store, err = storage.New(cfg.DataDirectory)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
	}

	loader = recordloader.New(cfg.DataDirectory, store, log)
	service := analytics.New()
	formatter := report.New(cfg.BusinessName)

	var ext extractor.ReceiptExtractor
	if cfg.GeminiAPIKey != "" {
		var err error
		ext, err = extractor.NewGemini(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return fmt.Errorf("failed to initialize receipt extractor: %w", err)
		}
	}

	analyticshandlers.Initialize(loader, service, formatter, cfg.ExportsDirectory)
	records.Initialize(loader, cfg, store)
	receipts.Initialize(ext, store, cfg.UploadsDirectory)
	backup.Initialize(cfg, store)

	return nil
}

// SetupRouter builds the chi router with middleware and all routes
func SetupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	analyticshandlers.RegisterRoutes(r)
	records.RegisterRoutes(r)
	receipts.RegisterRoutes(r)
	backup.RegisterRoutes(r)

	return r
}
