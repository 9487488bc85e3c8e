// Package providers contains clients for vision-capable model backends.
package providers

import (
	"context"
	"errors"
)

// ErrModelUnavailable indicates the model endpoint could not be reached or
// timed out. Transient: callers retry within their own bounds.
var ErrModelUnavailable = errors.New("model endpoint unavailable")

// Default decoding parameters. Extraction wants minimum variance: greedy
// decoding with a repetition penalty to suppress degenerate repeats, and a
// generation cap large enough for dense multi-test reports.
const (
	DefaultTemperature   = 0.0
	DefaultTopP          = 0.9
	DefaultRepeatPenalty = 1.1
	DefaultNumPredict    = 4096
)

// VisionClient sends one page image plus a prompt to a vision model and
// returns the raw response text. Implementations are stateless per call: no
// session or conversation state is carried between pages.
type VisionClient interface {
	// Extract runs a single vision completion over one page image.
	Extract(ctx context.Context, prompt string, image []byte) (string, error)

	// Name returns the client identifier (e.g. "ollama").
	Name() string
}

// HealthChecker is implemented by clients that can verify their backend is
// reachable. Used by the readiness endpoint.
type HealthChecker interface {
	Health(ctx context.Context) error
}
