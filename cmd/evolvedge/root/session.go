package root

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	aiservice "github.com/evolvedge/evolvedge/internal/ai"
	"github.com/evolvedge/evolvedge/internal/credential"
	"github.com/evolvedge/evolvedge/internal/model"
	"github.com/evolvedge/evolvedge/internal/remote"
	syncstore "github.com/evolvedge/evolvedge/internal/sync"
)

// openSession builds the backend client, the store session, and the AI
// services from the config file and keyring.
func openSession(logger *zap.Logger) (*syncstore.Session, *aiservice.Assistant, *aiservice.Advisor, *model.AppConfig, func(), error) {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}

	client, err := openClient(cfg, logger)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}

	session := syncstore.NewSession(client, logger, cfg.Profile.UserID)

	aiClient := loadAIClient(cfg, logger)
	advisor := aiservice.NewAdvisor(aiClient, logger)
	assistant := aiservice.NewAssistant(aiClient, session, advisor, logger)

	cleanup := func() {
		if err := session.Close(); err != nil {
			logger.Warn("closing session", zap.Error(err))
		}
	}
	return session, assistant, advisor, cfg, cleanup, nil
}

func openClient(cfg *model.AppConfig, logger *zap.Logger) (remote.Client, error) {
	switch cfg.Backend.Mode {
	case model.BackendModeRest:
		apiKey := os.Getenv("EVOLVEDGE_BACKEND_KEY")
		if apiKey == "" {
			apiKey, _ = credential.Get(credential.KeyBackendKey)
		}
		return remote.NewRESTClient(cfg.Backend.URL, apiKey), nil

	case model.BackendModeLocal:
		return remote.NewSQLiteClient(cfg.Backend.DBPath)

	default:
		return nil, fmt.Errorf("unknown backend mode %q", cfg.Backend.Mode)
	}
}

// loadAIClient creates the Gemini client from the environment variable or
// system keyring. Returns nil when no key is available; the assistant and
// advisor then run in fallback mode.
func loadAIClient(cfg *model.AppConfig, logger *zap.Logger) *aiservice.Client {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		var err error
		apiKey, err = credential.Get(credential.KeyGeminiAPIKey)
		if err != nil || apiKey == "" {
			logger.Info("no Gemini API key configured, assistant disabled")
			return nil
		}
	}

	client, err := aiservice.NewClient(apiKey, cfg.AI.Model, cfg.AI.MaxTokens)
	if err != nil {
		logger.Warn("creating AI client", zap.Error(err))
		return nil
	}
	return client
}
