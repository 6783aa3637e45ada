// Command privacy-gateway runs the reference HTTP reverse-proxy binary:
// it terminates TLS (or plain HTTP) for one listener, decodes request
// bodies with internal/codec, drives wrapper.ProcessTurn, and re-encodes
// the response. Adapted from the teacher's cmd/proxy/main.go: the same
// flag handling, CA bootstrap, and signal-driven graceful shutdown, now
// wiring the privacy pipeline instead of the secret interceptor.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hfi/privacy-gateway/internal/audit"
	"github.com/hfi/privacy-gateway/internal/config"
	"github.com/hfi/privacy-gateway/internal/conversation"
	convbolt "github.com/hfi/privacy-gateway/internal/conversation/boltstore"
	convredis "github.com/hfi/privacy-gateway/internal/conversation/redisstore"
	"github.com/hfi/privacy-gateway/internal/detector"
	"github.com/hfi/privacy-gateway/internal/detector/regexdetector"
	"github.com/hfi/privacy-gateway/internal/detector/remotedetector"
	"github.com/hfi/privacy-gateway/internal/entity"
	entitybolt "github.com/hfi/privacy-gateway/internal/entity/boltstore"
	"github.com/hfi/privacy-gateway/internal/entity/encryptionstore"
	entityredis "github.com/hfi/privacy-gateway/internal/entity/redisstore"
	"github.com/hfi/privacy-gateway/internal/ingress"
	"github.com/hfi/privacy-gateway/internal/llm/anthropic"
	"github.com/hfi/privacy-gateway/internal/metrics"
	"github.com/hfi/privacy-gateway/internal/replacer"
	"github.com/hfi/privacy-gateway/internal/replacer/encryptionreplacer"
	"github.com/hfi/privacy-gateway/internal/replacer/hashreplacer"
	"github.com/hfi/privacy-gateway/internal/replacer/numbered"
	"github.com/hfi/privacy-gateway/internal/replacer/pseudonym"
	"github.com/hfi/privacy-gateway/internal/server"
	"github.com/hfi/privacy-gateway/internal/wrapper"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version":
			fmt.Printf("Privacy Gateway %s\n", Version)
			fmt.Printf("Git Commit: %s\n", GitCommit)
			fmt.Printf("Build Time: %s\n", BuildTime)
			os.Exit(0)
		case "generate-ca":
			certPath, keyPath := "./certs/ca.crt", "./certs/ca.key"
			if len(os.Args) > 2 {
				certPath = os.Args[2]
			}
			if len(os.Args) > 3 {
				keyPath = os.Args[3]
			}
			if err := ingress.GenerateCA(certPath, keyPath); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to generate CA: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("CA certificate generated:\n  Certificate: %s\n  Key: %s\n", certPath, keyPath)
			os.Exit(0)
		}
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	switch cfg.Logging.Level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	logger.Info().Str("version", Version).Str("commit", GitCommit).Msg("starting privacy gateway")

	ctx := context.Background()

	entityStore, closeEntity, err := buildEntityStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build entity store")
	}
	defer closeEntity()

	convStore, closeConv, err := buildConversationStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build conversation store")
	}
	defer closeConv()

	det, err := buildDetector(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build detector")
	}

	strategy, err := buildReplacerStrategy(cfg, entityStore)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build replacer strategy")
	}
	rep := replacer.New(strategy, entityStore)

	llmClient := anthropic.New(anthropic.Config{
		APIKey:    os.Getenv(cfg.LLM.APIKeyEnv),
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
	})

	auditLogger, err := buildAuditLogger(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build audit logger")
	}
	defer auditLogger.Close()

	w := &wrapper.Wrapper{
		Conversations: convStore,
		Detector:      det,
		Replacer:      rep,
		LLM:           llmClient,
		Metrics:       metrics.Stages{},
		Audit:         auditLogger,
	}

	mgmt := server.New(&server.Config{
		Addr:        fmt.Sprintf(":%d", cfg.Metrics.Port),
		MetricsPath: cfg.Metrics.Endpoint,
		Version:     Version,
	})
	mgmt.RegisterHealthCheck("entity_store", func() (bool, string) {
		if _, err := entityStore.GetPlaceholder(ctx, [16]byte{}, "", ""); err != nil && err != entity.ErrNotFound && err != entity.ErrUnsupportedByBackend {
			return false, err.Error()
		}
		return true, ""
	})
	mgmt.RegisterHealthCheck("conversation_store", func() (bool, string) {
		if _, err := convStore.Exists(ctx, [16]byte{}); err != nil {
			return false, err.Error()
		}
		return true, ""
	})

	if cfg.Metrics.Enabled {
		go func() {
			if err := mgmt.Start(); err != nil {
				logger.Error().Err(err).Msg("management server error")
			}
		}()
		logger.Info().Str("addr", mgmt.Addr()).Msg("management server started")
	}

	if _, err := os.Stat(cfg.TLS.CACert); os.IsNotExist(err) && cfg.TLS.CACert != "" {
		logger.Info().Msg("CA certificate not found, generating")
		if err := ingress.GenerateCA(cfg.TLS.CACert, cfg.TLS.CAKey); err != nil {
			logger.Fatal().Err(err).Msg("failed to generate CA certificate")
		}
	}

	ingressServer, err := ingress.New(ingress.Config{
		Listen:     cfg.Ingress.Listen,
		CACertPath: cfg.TLS.CACert,
		CAKeyPath:  cfg.TLS.CAKey,
	}, &ingress.Handler{Wrapper: w})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build ingress server")
	}

	go func() {
		if err := ingressServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("ingress server error")
		}
	}()
	logger.Info().Str("listen", cfg.Ingress.Listen).Msg("ingress server started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ingressServer.Stop(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error stopping ingress server")
	}
	if err := mgmt.Stop(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error stopping management server")
	}
	logger.Info().Msg("shutdown complete")
}

func buildEntityStore(ctx context.Context, cfg *config.Config) (entity.Store, func(), error) {
	switch cfg.EntityStore.Backend {
	case "redis":
		store, err := entityredis.New(ctx, entityredis.Config{
			Address: cfg.KV.Address, Password: cfg.KV.Password, DB: cfg.KV.DB,
			TTL: cfg.TTL.EntityStore,
		})
		if err != nil {
			return nil, func() {}, err
		}
		return store, func() { store.Close() }, nil
	case "encryption":
		master := []byte(os.Getenv(cfg.EntityStore.MasterKeyEnv))
		if len(master) == 0 {
			return nil, func() {}, fmt.Errorf("entity store: encryption backend requires %s", cfg.EntityStore.MasterKeyEnv)
		}
		store := encryptionstore.New(master)
		return store, func() {}, nil
	default:
		store, err := entitybolt.Open(cfg.EntityStore.Bbolt.Path)
		if err != nil {
			return nil, func() {}, err
		}
		return store, func() { store.Close() }, nil
	}
}

func buildConversationStore(ctx context.Context, cfg *config.Config) (conversation.Store, func(), error) {
	switch cfg.ConversationStore.Backend {
	case "redis":
		store, err := convredis.New(ctx, convredis.Config{
			Address: cfg.KV.Address, Password: cfg.KV.Password, DB: cfg.KV.DB,
			TTL: cfg.TTL.ConversationStore,
		})
		if err != nil {
			return nil, func() {}, err
		}
		return store, func() { store.Close() }, nil
	default:
		store, err := convbolt.Open(cfg.ConversationStore.Bbolt.Path)
		if err != nil {
			return nil, func() {}, err
		}
		return store, func() { store.Close() }, nil
	}
}

func buildDetector(ctx context.Context, cfg *config.Config) (detector.Detector, error) {
	switch cfg.Detector.Backend {
	case "remote":
		return remotedetector.New(ctx, remotedetector.Config{
			BaseURL:      cfg.Detector.Remote.BaseURL,
			APIKey:       os.Getenv(cfg.Detector.Remote.APIKeyEnv),
			Attempts:     cfg.Detector.Remote.Attempts,
			InitialDelay: cfg.Detector.Remote.InitialDelay,
			MaxDelay:     cfg.Detector.Remote.MaxDelay,
		})
	default:
		return regexdetector.New(cfg.Detector.Threshold), nil
	}
}

func buildReplacerStrategy(cfg *config.Config, store entity.Store) (replacer.Strategy, error) {
	switch cfg.Replacer.Strategy {
	case "pseudonym":
		return pseudonym.New(cfg.Pseudonym.Locale), nil
	case "hash":
		master := []byte(os.Getenv(cfg.Replacer.MasterKeyEnv))
		if len(master) == 0 {
			return nil, fmt.Errorf("replacer: hash strategy requires %s", cfg.Replacer.MasterKeyEnv)
		}
		return hashreplacer.New(master), nil
	case "encryption":
		encStore, ok := store.(*encryptionstore.Store)
		if !ok {
			return nil, fmt.Errorf("replacer: encryption strategy requires entity_store.backend: encryption")
		}
		return encryptionreplacer.New(encStore), nil
	default:
		return numbered.New(store), nil
	}
}

func buildAuditLogger(cfg *config.Config) (*audit.Logger, error) {
	return audit.NewLogger(&audit.Config{
		Enabled: cfg.Logging.Audit.Enabled,
		Level:   "standard",
		Output:  "stdout",
		Format:  "json",
	})
}
