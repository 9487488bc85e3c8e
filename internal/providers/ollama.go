package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"
)

const (
	OllamaClientName   = "ollama"
	OllamaDefaultURL   = "http://localhost:11434"
	OllamaDefaultModel = "llama3.2-vision"

	// ollamaDefaultTimeout bounds a single generation. Vision inference on
	// a dense report page runs tens of seconds on commodity hardware.
	ollamaDefaultTimeout = 60 * time.Second
)

// OllamaConfig holds configuration for the Ollama client.
type OllamaConfig struct {
	BaseURL       string
	Model         string
	Timeout       time.Duration
	Temperature   float64
	TopP          float64
	RepeatPenalty float64
	NumPredict    int
	HTTPClient    *http.Client // Optional (tests)
}

// OllamaClient implements VisionClient against a local Ollama daemon's
// generate API.
type OllamaClient struct {
	baseURL string
	model   string
	options generateOptions
	client  *http.Client
}

// generateRequest is the payload for POST /api/generate.
type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Images  []string        `json:"images"`
	Options generateOptions `json:"options"`
	Stream  bool            `json:"stream"`
}

type generateOptions struct {
	Temperature   float64 `json:"temperature"`
	TopP          float64 `json:"top_p"`
	RepeatPenalty float64 `json:"repeat_penalty"`
	NumPredict    int     `json:"num_predict"`
}

// generateResponse is the non-streaming reply from /api/generate.
type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// NewOllamaClient creates a new Ollama vision client.
func NewOllamaClient(cfg OllamaConfig) *OllamaClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = OllamaDefaultURL
	}
	if cfg.Model == "" {
		cfg.Model = OllamaDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = ollamaDefaultTimeout
	}
	if cfg.TopP == 0 {
		cfg.TopP = DefaultTopP
	}
	if cfg.RepeatPenalty == 0 {
		cfg.RepeatPenalty = DefaultRepeatPenalty
	}
	if cfg.NumPredict == 0 {
		cfg.NumPredict = DefaultNumPredict
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &OllamaClient{
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		options: generateOptions{
			Temperature:   cfg.Temperature,
			TopP:          cfg.TopP,
			RepeatPenalty: cfg.RepeatPenalty,
			NumPredict:    cfg.NumPredict,
		},
		client: httpClient,
	}
}

// Name returns the client identifier.
func (c *OllamaClient) Name() string {
	return OllamaClientName
}

// Model returns the configured model name.
func (c *OllamaClient) Model() string {
	return c.model
}

// Extract sends one page image with a prompt and returns the raw response
// text. Timeouts and connection failures map to ErrModelUnavailable.
func (c *OllamaClient) Extract(ctx context.Context, prompt string, image []byte) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("empty page image")
	}

	reqBody := generateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Images:  []string{base64.StdEncoding.EncodeToString(image)},
		Options: c.options,
		Stream:  false,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/generate", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if isTransportError(err) {
			return "", fmt.Errorf("%w: %v", ErrModelUnavailable, err)
		}
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %v", ErrModelUnavailable, err)
	}

	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("%w: ollama error (status %d): %s", ErrModelUnavailable, resp.StatusCode, string(respBody))
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal generate response: %w", err)
	}
	if genResp.Error != "" {
		return "", fmt.Errorf("ollama returned error: %s", genResp.Error)
	}

	return genResp.Response, nil
}

// Health verifies the Ollama daemon is reachable.
func (c *OllamaClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/version", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d", ErrModelUnavailable, resp.StatusCode)
	}
	return nil
}

// isTransportError reports whether an http.Client error is a connectivity or
// timeout failure rather than a programming error.
func isTransportError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

var _ VisionClient = (*OllamaClient)(nil)
var _ HealthChecker = (*OllamaClient)(nil)
