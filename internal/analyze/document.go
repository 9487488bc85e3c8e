package analyze

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/healthchain/medvision/internal/rasterize"
	"github.com/healthchain/medvision/internal/report"
)

// Rasterizer converts document bytes into an ordered page image sequence.
type Rasterizer interface {
	Rasterize(ctx context.Context, data []byte, mediaType string) ([]rasterize.PageImage, error)
}

// DocumentResult is the outcome of analyzing one document: exactly one
// PageResult per rasterized page, in ascending page order, plus counts the
// HTTP layer uses for observability and status-code decisions.
type DocumentResult struct {
	ID             string              `json:"id"`
	Pages          []report.PageResult `json:"pages"`
	TotalPages     int                 `json:"total_pages"`
	SucceededPages int                 `json:"succeeded_pages"`
	FailedPages    int                 `json:"failed_pages"`
	Elapsed        time.Duration       `json:"-"`
}

// AllPagesFailed reports whether not a single page produced a record.
func (r *DocumentResult) AllPagesFailed() bool {
	return r.TotalPages > 0 && r.FailedPages == r.TotalPages
}

// DocumentAnalyzer drives rasterization and sequential per-page analysis.
type DocumentAnalyzer struct {
	rasterizer Rasterizer
	pages      *PageAnalyzer
	logger     *slog.Logger
}

// NewDocumentAnalyzer creates a document analyzer.
func NewDocumentAnalyzer(rasterizer Rasterizer, pages *PageAnalyzer, logger *slog.Logger) *DocumentAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentAnalyzer{rasterizer: rasterizer, pages: pages, logger: logger}
}

// AnalyzeDocument rasterizes the document and analyzes each page in order.
// A rasterization failure aborts the whole operation; individual page
// failures are recorded and never stop later pages. Pages are processed
// strictly sequentially so at most one model call is outstanding per
// document, keeping load on the shared model endpoint bounded and failure
// attribution unambiguous.
func (d *DocumentAnalyzer) AnalyzeDocument(ctx context.Context, data []byte, mediaType string) (*DocumentResult, error) {
	start := time.Now()
	runID := uuid.New().String()
	log := d.logger.With("run_id", runID)

	pages, err := d.rasterizer.Rasterize(ctx, data, mediaType)
	if err != nil {
		return nil, err
	}
	log.Info("document rasterized", "pages", len(pages), "media_type", mediaType)

	result := &DocumentResult{
		ID:         runID,
		Pages:      make([]report.PageResult, 0, len(pages)),
		TotalPages: len(pages),
	}

	for _, page := range pages {
		pr := d.pages.AnalyzePage(ctx, page)
		result.Pages = append(result.Pages, pr)

		switch pr.Status {
		case report.PageStatusFailed:
			result.FailedPages++
		case report.PageStatusOK:
			result.SucceededPages++
		}

		// Observe cancellation between pages; an in-flight page always
		// runs to completion or retry exhaustion first.
		if ctx.Err() != nil && len(result.Pages) < result.TotalPages {
			log.Warn("document analysis cancelled", "completed_pages", len(result.Pages))
			break
		}
	}

	result.Elapsed = time.Since(start)
	log.Info("document analysis complete",
		"total_pages", result.TotalPages,
		"succeeded", result.SucceededPages,
		"failed", result.FailedPages,
		"elapsed", result.Elapsed)

	return result, nil
}
