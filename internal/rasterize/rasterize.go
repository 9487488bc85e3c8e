// Package rasterize converts uploaded documents into ordered page images.
// Raster images pass through unchanged; PDFs are rendered page by page with
// pdftoppm (poppler-utils), with pdfcpu supplying the page count.
package rasterize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// DefaultDPI is the render resolution for PDF pages. Lab reports are dense
// tables; 200 DPI keeps small reference-range text legible for the vision
// model without inflating payload size.
const DefaultDPI = 200

// ErrUnsupportedFormat is returned when the declared media type is neither a
// supported raster image nor a PDF.
var ErrUnsupportedFormat = errors.New("unsupported media type")

// RasterizationError indicates the document bytes could not be rendered.
// It aborts the whole request: partial rasterization of a corrupt document
// is not meaningful.
type RasterizationError struct {
	Page int // 0 when the failure is not page-specific
	Err  error
}

func (e *RasterizationError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("rasterization failed on page %d: %v", e.Page, e.Err)
	}
	return fmt.Sprintf("rasterization failed: %v", e.Err)
}

func (e *RasterizationError) Unwrap() error { return e.Err }

// PageImage is one rendered page. Number is 1-based and Data is the encoded
// image. Immutable once produced.
type PageImage struct {
	Number int
	Data   []byte
	Format string // "png", "jpeg", ...
}

// imageFormats maps supported raster media types to their format tag.
var imageFormats = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpeg",
	"image/bmp":  "bmp",
	"image/tiff": "tiff",
}

// extensionTypes maps accepted file extensions to media types.
var extensionTypes = map[string]string{
	"pdf":  "application/pdf",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
	"tif":  "image/tiff",
}

// MediaTypeForFilename maps a filename's extension onto the accepted media
// type allow-list. Returns ErrUnsupportedFormat for anything else.
func MediaTypeForFilename(name string) (string, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	mediaType, ok := extensionTypes[ext]
	if !ok {
		return "", fmt.Errorf("%w: file extension %q", ErrUnsupportedFormat, ext)
	}
	return mediaType, nil
}

// Config holds rasterizer settings.
type Config struct {
	// DPI is the PDF render resolution (default: 200).
	DPI int
	// Logger is an optional structured logger.
	Logger *slog.Logger
}

// Rasterizer renders documents into page image sequences.
type Rasterizer struct {
	dpi    int
	logger *slog.Logger
}

// New creates a rasterizer.
func New(cfg Config) *Rasterizer {
	if cfg.DPI <= 0 {
		cfg.DPI = DefaultDPI
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Rasterizer{dpi: cfg.DPI, logger: cfg.Logger}
}

// Rasterize converts document bytes into a non-empty ordered page sequence.
// A raster image yields exactly one page, unchanged. A PDF is rendered one
// PNG per page. The declared media type decides the path; unknown types fail
// with ErrUnsupportedFormat.
func (r *Rasterizer) Rasterize(ctx context.Context, data []byte, mediaType string) ([]PageImage, error) {
	if len(data) == 0 {
		return nil, &RasterizationError{Err: errors.New("empty document")}
	}

	mediaType = normalizeMediaType(mediaType)

	if format, ok := imageFormats[mediaType]; ok {
		return []PageImage{{Number: 1, Data: data, Format: format}}, nil
	}

	if mediaType == "application/pdf" {
		return r.rasterizePDF(ctx, data)
	}

	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, mediaType)
}

// rasterizePDF renders every page of a PDF to PNG at the configured DPI.
func (r *Rasterizer) rasterizePDF(ctx context.Context, data []byte) ([]PageImage, error) {
	pageCount, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return nil, &RasterizationError{Err: fmt.Errorf("failed to read PDF: %w", err)}
	}
	if pageCount == 0 {
		return nil, &RasterizationError{Err: errors.New("PDF has no pages")}
	}

	tmpDir, err := os.MkdirTemp("", "medvision-raster-*")
	if err != nil {
		return nil, &RasterizationError{Err: fmt.Errorf("failed to create temp dir: %w", err)}
	}
	defer os.RemoveAll(tmpDir)

	pdfPath := filepath.Join(tmpDir, "document.pdf")
	if err := os.WriteFile(pdfPath, data, 0o600); err != nil {
		return nil, &RasterizationError{Err: fmt.Errorf("failed to write PDF: %w", err)}
	}

	r.logger.Debug("rendering PDF pages", "pages", pageCount, "dpi", r.dpi)

	// Render pages concurrently; page analysis downstream is sequential,
	// but rendering is CPU-bound local work.
	type result struct {
		page int
		img  []byte
		err  error
	}

	results := make(chan result, pageCount)
	sem := make(chan struct{}, runtime.NumCPU())

	for page := 1; page <= pageCount; page++ {
		sem <- struct{}{} // acquire
		go func(page int) {
			defer func() { <-sem }() // release
			img, err := r.renderPage(ctx, pdfPath, tmpDir, page)
			results <- result{page: page, img: img, err: err}
		}(page)
	}

	pages := make([]PageImage, pageCount)
	for i := 0; i < pageCount; i++ {
		res := <-results
		if res.err != nil {
			return nil, &RasterizationError{Page: res.page, Err: res.err}
		}
		pages[res.page-1] = PageImage{Number: res.page, Data: res.img, Format: "png"}
	}

	return pages, nil
}

// renderPage renders a single PDF page using pdftoppm (poppler-utils).
func (r *Rasterizer) renderPage(ctx context.Context, pdfPath, tmpDir string, page int) ([]byte, error) {
	outputPrefix := filepath.Join(tmpDir, fmt.Sprintf("page_%04d", page))
	pageStr := strconv.Itoa(page)

	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", strconv.Itoa(r.dpi),
		"-singlefile",
		pdfPath,
		outputPrefix,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(output))
	}

	img, err := os.ReadFile(outputPrefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm did not create expected output: %w", err)
	}
	return img, nil
}

// normalizeMediaType lowercases and strips parameters ("; charset=...").
func normalizeMediaType(mediaType string) string {
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if i := strings.Index(mediaType, ";"); i >= 0 {
		mediaType = strings.TrimSpace(mediaType[:i])
	}
	// Common alias seen from browsers.
	if mediaType == "image/jpg" {
		mediaType = "image/jpeg"
	}
	return mediaType
}
