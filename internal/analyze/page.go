// Package analyze orchestrates per-page model extraction and whole-document
// aggregation. Page failures are data, not exceptions: a page that exhausts
// its retries yields a failed PageResult and never aborts the document.
package analyze

import (
	"context"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/healthchain/medvision/internal/providers"
	"github.com/healthchain/medvision/internal/rasterize"
	"github.com/healthchain/medvision/internal/report"
	"github.com/healthchain/medvision/internal/sanitize"
)

const (
	// DefaultAttempts is the total model attempts per page, including the
	// first. From the second attempt on, the shorter fallback prompt asks
	// for a minimal field subset.
	DefaultAttempts = 3

	defaultRetryDelay = 2 * time.Second
)

// PageAnalyzerConfig holds configuration for a PageAnalyzer.
type PageAnalyzerConfig struct {
	Client    providers.VisionClient
	Sanitizer *sanitize.Sanitizer
	Attempts  uint
	// RetryDelay is the base backoff between attempts.
	RetryDelay time.Duration
	Logger     *slog.Logger
}

// PageAnalyzer runs model extraction for a single page with bounded retries.
type PageAnalyzer struct {
	client     providers.VisionClient
	sanitizer  *sanitize.Sanitizer
	attempts   uint
	retryDelay time.Duration
	logger     *slog.Logger
}

// NewPageAnalyzer creates a page analyzer.
func NewPageAnalyzer(cfg PageAnalyzerConfig) *PageAnalyzer {
	if cfg.Attempts == 0 {
		cfg.Attempts = DefaultAttempts
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &PageAnalyzer{
		client:     cfg.Client,
		sanitizer:  cfg.Sanitizer,
		attempts:   cfg.Attempts,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
	}
}

// AnalyzePage extracts structured data from one page image. It always
// returns a PageResult: model unavailability and unusable output are retried
// up to the configured bound, and exhaustion is recorded on the result
// rather than propagated.
func (a *PageAnalyzer) AnalyzePage(ctx context.Context, page rasterize.PageImage) report.PageResult {
	var rec *report.ExtractionRecord
	attempt := 0

	err := retry.Do(
		func() error {
			attempt++
			prompt := primaryPrompt
			if attempt > 1 {
				prompt = fallbackPrompt
			}

			raw, err := a.client.Extract(ctx, prompt, page.Data)
			if err != nil {
				return err
			}

			parsed, err := a.sanitizer.Sanitize(raw)
			if err != nil {
				return err
			}
			rec = parsed
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(a.attempts),
		retry.Delay(a.retryDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			a.logger.Warn("page extraction attempt failed, retrying with fallback prompt",
				"page", page.Number, "attempt", n+1, "error", err)
		}),
	)

	if err != nil {
		a.logger.Error("page extraction exhausted retries",
			"page", page.Number, "attempts", attempt, "error", err)
		return report.PageResult{
			PageNumber: page.Number,
			Status:     report.PageStatusFailed,
			Error:      err.Error(),
		}
	}

	result := report.PageResult{
		PageNumber:   page.Number,
		Status:       report.PageStatusOK,
		Record:       rec,
		UsedFallback: attempt > 1,
	}
	if len(rec.Tests) == 0 {
		// Valid terminal state, not a retry trigger: some pages carry
		// only letterhead or notes.
		result.Status = report.PageStatusNoTests
		a.logger.Warn("no tests found on page", "page", page.Number)
	}
	return result
}
