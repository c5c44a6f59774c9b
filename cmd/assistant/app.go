package main

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"github.com/xaenox/bwe-assistant/internal/catalog"
	"github.com/xaenox/bwe-assistant/internal/classifier"
	"github.com/xaenox/bwe-assistant/internal/models"
	"github.com/xaenox/bwe-assistant/internal/remote"
	"github.com/xaenox/bwe-assistant/internal/storage"
	"github.com/xaenox/bwe-assistant/pkg/config"
	"go.uber.org/zap"
)

// app is the wired application shared by the subcommands.
type app struct {
	service *catalog.Service
	store   storage.Storage
}

func (r *app) Close() error {
	return r.store.Close()
}

func (c *cli) bootstrap(ctx context.Context) (*app, error) {
	store, err := openStorage(c.cfg.Storage, c.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	files, client := openRemote(ctx, c.cfg.OpenAI, c.logger)

	var clf classifier.Classifier = classifier.NewKeywordClassifier()
	if c.cfg.Classifier.UseAssistant && client != nil {
		c.logger.Info("Using assistant-backed classification", zap.String("model", c.cfg.OpenAI.Model))
		clf = classifier.NewGPTClassifier(
			client,
			c.cfg.OpenAI.Model,
			c.cfg.OpenAI.MaxTokens,
			c.cfg.OpenAI.Temperature,
			storedCategories(store),
			clf,
			c.logger,
		)
	}

	service := catalog.NewService(store, files, clf, nil, catalog.Options{
		UploadDir: c.cfg.Server.UploadDir,
	}, c.logger)

	return &app{service: service, store: store}, nil
}

// storedCategories offers the model the taxonomy as currently persisted, so
// categories added at runtime are candidates too.
func storedCategories(store storage.Storage) classifier.CategorySource {
	return func(ctx context.Context) ([]string, error) {
		state, err := store.Load(ctx)
		if err != nil {
			return nil, err
		}
		return state.Categories, nil
	}
}

func openStorage(cfg config.StorageConfig, logger *zap.Logger) (storage.Storage, error) {
	switch cfg.Backend {
	case "memory":
		logger.Info("Using in-memory storage")
		return storage.NewMemoryStorage(), nil
	case "postgres":
		logger.Info("Using PostgreSQL storage", zap.String("host", cfg.Database.Host))
		return storage.NewPostgresStorage(storage.DatabaseConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		}, logger)
	default:
		logger.Info("Using JSON file storage", zap.String("path", cfg.Path))
		return storage.NewFileStorage(cfg.Path, logger)
	}
}

// openRemote connects to OpenAI, falling back to the limited-mode store
// when it is disabled or unreachable.
func openRemote(ctx context.Context, cfg config.OpenAIConfig, logger *zap.Logger) (remote.FileStore, *openai.Client) {
	var samples []models.FileRecord
	if cfg.SampleData {
		samples = remote.SampleFiles()
	}

	if cfg.LimitedMode {
		logger.Warn("Limited mode enabled by configuration")
		return remote.NewLimitedStore(samples), nil
	}

	store, client, err := remote.Connect(ctx, remote.OpenAIConfig{
		APIKey:        cfg.APIKey,
		BaseURL:       cfg.BaseURL,
		AssistantID:   cfg.AssistantID,
		VectorStoreID: cfg.VectorStoreID,
	}, logger)
	if err != nil {
		logger.Error("OpenAI unavailable, running in limited mode", zap.Error(err))
		return remote.NewLimitedStore(samples), nil
	}
	return store, client
}
