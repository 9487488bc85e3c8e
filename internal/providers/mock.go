package providers

import (
	"context"
	"sync"
	"time"
)

const MockClientName = "mock"

// MockClient is a VisionClient for testing.
type MockClient struct {
	// Latency simulates inference time per call.
	Latency time.Duration
	// Responses are returned in order; the last one repeats once exhausted.
	Responses []string
	// Errs are returned in order before any responses; a nil entry means
	// the call at that position succeeds.
	Errs []error

	mu      sync.Mutex
	calls   int
	prompts []string
}

// NewMockClient creates a mock that always returns resp.
func NewMockClient(resp string) *MockClient {
	return &MockClient{Responses: []string{resp}}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// Extract returns the scripted error or response for this call position.
func (c *MockClient) Extract(ctx context.Context, prompt string, image []byte) (string, error) {
	c.mu.Lock()
	call := c.calls
	c.calls++
	c.prompts = append(c.prompts, prompt)
	c.mu.Unlock()

	if c.Latency > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.Latency):
		}
	}

	if call < len(c.Errs) && c.Errs[call] != nil {
		return "", c.Errs[call]
	}

	if len(c.Responses) == 0 {
		return "", nil
	}
	if call >= len(c.Responses) {
		return c.Responses[len(c.Responses)-1], nil
	}
	return c.Responses[call], nil
}

// Health always succeeds.
func (c *MockClient) Health(ctx context.Context) error {
	return nil
}

// Calls returns the number of Extract invocations.
func (c *MockClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Prompts returns the prompts seen so far, in call order.
func (c *MockClient) Prompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.prompts))
	copy(out, c.prompts)
	return out
}

var _ VisionClient = (*MockClient)(nil)
var _ HealthChecker = (*MockClient)(nil)
