package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/riasec-matcher/internal/embedding"
	"github.com/spigell/riasec-matcher/internal/logger"
	"github.com/spigell/riasec-matcher/internal/utils"
)

const (
	defaultModel      = "text-embedding-004"
	defaultDimension  = 768
	defaultMaxRetries = 3
	baseBackoff       = 500 * time.Millisecond
	maxLogLength      = 80
)

type embedContenter interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Embedder is an embedding.Provider backed by the Gemini API.
type Embedder struct {
	models     embedContenter
	model      string
	dim        int
	maxRetries int
	logger     *zap.Logger
}

var _ embedding.Provider = (*Embedder)(nil)

// Config describes the Gemini embedding backend.
type Config struct {
	APIKey     string
	Model      string
	Dimension  int
	MaxRetries int
}

// NewEmbedder creates an Embedder configured for the Gemini API backend.
func NewEmbedder(ctx context.Context, cfg Config, log *zap.Logger) (*Embedder, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newEmbedder(client.Models, cfg, log), nil
}

func newEmbedder(models embedContenter, cfg Config, log *zap.Logger) *Embedder {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	dim := cfg.Dimension
	if dim <= 0 {
		dim = defaultDimension
	}

	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}

	return &Embedder{
		models:     models,
		model:      model,
		dim:        dim,
		maxRetries: retries,
		logger:     logger.WithCommonFields(log, "gemini", model),
	}
}

func (e *Embedder) Dimension() int { return e.dim }

func (e *Embedder) Model() string { return e.model }

// Embed returns the embedding of text. Blank text yields a zero vector without
// calling the API. Temporary API failures are retried with linear backoff.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if embedding.IsBlank(text) {
		return embedding.Zero(e.dim), nil
	}

	dim := int32(e.dim)
	cfg := &genai.EmbedContentConfig{
		TaskType:             "SEMANTIC_SIMILARITY",
		OutputDimensionality: &dim,
	}

	var lastErr error
	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		e.logger.Debug("gemini embed content request",
			zap.Int("attempt", attempt),
			zap.Int("text_length", utf8.RuneCountInString(text)),
			zap.String("text_preview", utils.TruncateForLog(text, maxLogLength)),
		)

		resp, err := e.models.EmbedContent(ctx, e.model, genai.Text(text), cfg)
		if err == nil {
			return e.vector(resp)
		}

		lastErr = err
		if !isTemporary(err) || attempt == e.maxRetries {
			break
		}

		e.logger.Warn("retrying gemini embed content",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if err := utils.WaitFor(ctx, time.Duration(attempt)*baseBackoff); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("embed content: %w", lastErr)
}

func (e *Embedder) vector(resp *genai.EmbedContentResponse) ([]float32, error) {
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, errors.New("gemini api returned no embeddings")
	}

	values := resp.Embeddings[0].Values
	if len(values) == 0 {
		return nil, errors.New("gemini api returned an empty embedding")
	}

	out := embedding.Zero(e.dim)
	copy(out, values)
	return embedding.Normalize(out), nil
}

func isTemporary(err error) bool {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
}
