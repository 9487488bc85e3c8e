package providers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const OpenAIClientName = "openai"

// OpenAIConfig holds configuration for the OpenAI-compatible vision client.
// BaseURL points this client at any chat-completions-compatible server
// (vLLM, LM Studio, llamafile) instead of api.openai.com.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Timeout     time.Duration
	Temperature float64
	TopP        float64
	MaxTokens   int
	HTTPClient  *http.Client // Optional (tests)
}

// OpenAIClient implements VisionClient using the official OpenAI SDK against
// an OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	model       string
	temperature float64
	topP        float64
	maxTokens   int
	client      openai.Client
}

// NewOpenAIClient creates a new OpenAI-compatible vision client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = ollamaDefaultTimeout
	}
	if cfg.TopP == 0 {
		cfg.TopP = DefaultTopP
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultNumPredict
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		model:       cfg.Model,
		temperature: cfg.Temperature,
		topP:        cfg.TopP,
		maxTokens:   cfg.MaxTokens,
		client:      openai.NewClient(opts...),
	}
}

// Name returns the client identifier.
func (c *OpenAIClient) Name() string {
	return OpenAIClientName
}

// Model returns the configured model name.
func (c *OpenAIClient) Model() string {
	return c.model
}

// Extract runs a single vision chat completion over one page image.
func (c *OpenAIClient) Extract(ctx context.Context, prompt string, image []byte) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("empty page image")
	}

	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(image)

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: dataURL,
				}),
			}),
		},
		Temperature:         openai.Float(c.temperature),
		TopP:                openai.Float(c.topP),
		MaxCompletionTokens: openai.Int(int64(c.maxTokens)),
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", mapOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty choices in completion response")
	}

	return resp.Choices[0].Message.Content, nil
}

// Health verifies the backend is reachable and the API key is accepted.
func (c *OpenAIClient) Health(ctx context.Context) error {
	if _, err := c.client.Models.List(ctx); err != nil {
		return fmt.Errorf("models list failed: %w", mapOpenAIError(err))
	}
	return nil
}

// mapOpenAIError folds SDK transport failures into ErrModelUnavailable so
// callers retry them the same way as Ollama connectivity errors.
func mapOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= 500 || apiErr.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: status %d: %s", ErrModelUnavailable, apiErr.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("completion error (status %d): %s", apiErr.StatusCode, apiErr.Message)
	}
	if isTransportError(err) {
		return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	return err
}

var _ VisionClient = (*OpenAIClient)(nil)
var _ HealthChecker = (*OpenAIClient)(nil)
