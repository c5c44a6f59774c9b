package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/xaenox/bwe-assistant/internal/models"
	"go.uber.org/zap"
)

// PurposeAssistants marks files usable by assistants and file search.
const PurposeAssistants = "assistants"

// FilesAPI is the subset of *openai.Client used by OpenAIStore.
type FilesAPI interface {
	ListFiles(ctx context.Context) (openai.FilesList, error)
	CreateFile(ctx context.Context, request openai.FileRequest) (openai.File, error)
	DeleteFile(ctx context.Context, fileID string) error
	CreateVectorStoreFile(ctx context.Context, vectorStoreID string, request openai.VectorStoreFileRequest) (openai.VectorStoreFile, error)
	DeleteVectorStoreFile(ctx context.Context, vectorStoreID string, fileID string) error
}

type OpenAIConfig struct {
	APIKey        string
	BaseURL       string
	AssistantID   string
	VectorStoreID string
}

type OpenAIStore struct {
	api           FilesAPI
	vectorStoreID string
	logger        *zap.Logger
}

// Connect builds a client from config and checks that the API answers.
func Connect(ctx context.Context, config OpenAIConfig, logger *zap.Logger) (*OpenAIStore, *openai.Client, error) {
	if config.APIKey == "" || config.AssistantID == "" {
		return nil, nil, errors.New("missing OpenAI API key or assistant id")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	client := openai.NewClientWithConfig(clientConfig)

	if _, err := client.ListModels(ctx); err != nil {
		return nil, nil, fmt.Errorf("connecting to OpenAI: %w", err)
	}
	logger.Info("Connected to OpenAI API",
		zap.String("assistant_id", config.AssistantID),
		zap.String("vector_store_id", config.VectorStoreID))

	return NewOpenAIStore(client, config.VectorStoreID, logger), client, nil
}

func NewOpenAIStore(api FilesAPI, vectorStoreID string, logger *zap.Logger) *OpenAIStore {
	return &OpenAIStore{
		api:           api,
		vectorStoreID: vectorStoreID,
		logger:        logger,
	}
}

// List returns the assistant files, oldest first.
func (s *OpenAIStore) List(ctx context.Context) ([]models.FileRecord, error) {
	list, err := s.api.ListFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}

	files := make([]models.FileRecord, 0, len(list.Files))
	for _, f := range list.Files {
		if f.Purpose != PurposeAssistants {
			continue
		}
		files = append(files, toRecord(f))
	}
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].CreatedAt < files[j].CreatedAt
	})

	s.logger.Debug("Retrieved assistant files",
		zap.Int("total", len(list.Files)),
		zap.Int("assistant_files", len(files)))
	return files, nil
}

func (s *OpenAIStore) Upload(ctx context.Context, name, path string) (models.FileRecord, error) {
	f, err := s.api.CreateFile(ctx, openai.FileRequest{
		FileName: name,
		FilePath: path,
		Purpose:  PurposeAssistants,
	})
	if err != nil {
		return models.FileRecord{}, fmt.Errorf("uploading %s: %w", name, err)
	}
	s.logger.Info("File uploaded", zap.String("file_id", f.ID), zap.String("filename", f.FileName))

	if s.vectorStoreID != "" {
		if _, err := s.api.CreateVectorStoreFile(ctx, s.vectorStoreID, openai.VectorStoreFileRequest{FileID: f.ID}); err != nil {
			return toRecord(f), fmt.Errorf("attaching %s to vector store: %w", f.ID, err)
		}
	}

	return toRecord(f), nil
}

// Delete detaches the file from the vector store, then deletes it.
func (s *OpenAIStore) Delete(ctx context.Context, id string) error {
	if s.vectorStoreID != "" {
		if err := s.api.DeleteVectorStoreFile(ctx, s.vectorStoreID, id); err != nil && !isNotFound(err) {
			return fmt.Errorf("detaching %s from vector store: %w", id, err)
		}
	}

	if err := s.api.DeleteFile(ctx, id); err != nil {
		return fmt.Errorf("deleting %s: %w", id, err)
	}

	s.logger.Info("File deleted", zap.String("file_id", id))
	return nil
}

func (s *OpenAIStore) Limited() bool {
	return false
}

func toRecord(f openai.File) models.FileRecord {
	return models.FileRecord{
		ID:        f.ID,
		Filename:  f.FileName,
		CreatedAt: time.Unix(f.CreatedAt, 0).UTC().Format(models.CreatedAtLayout),
		Bytes:     int64(f.Bytes),
		Purpose:   f.Purpose,
	}
}

func isNotFound(err error) bool {
	var apiErr *openai.APIError
	return errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusNotFound
}
