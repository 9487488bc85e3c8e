package endpoints

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/healthchain/medvision/internal/analyze"
	"github.com/healthchain/medvision/internal/providers"
	"github.com/healthchain/medvision/internal/rasterize"
	"github.com/healthchain/medvision/internal/report"
	"github.com/healthchain/medvision/internal/sanitize"
	"github.com/healthchain/medvision/internal/svcctx"
)

type stubRasterizer struct {
	pages []rasterize.PageImage
	err   error
}

func (f *stubRasterizer) Rasterize(ctx context.Context, data []byte, mediaType string) ([]rasterize.PageImage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pages, nil
}

func testServices(t *testing.T, rast analyze.Rasterizer, client providers.VisionClient) *svcctx.Services {
	t.Helper()
	s, err := sanitize.New()
	if err != nil {
		t.Fatalf("sanitize.New() error = %v", err)
	}
	pa := analyze.NewPageAnalyzer(analyze.PageAnalyzerConfig{
		Client:     client,
		Sanitizer:  s,
		RetryDelay: time.Millisecond,
	})
	logger := slog.New(slog.DiscardHandler)
	return &svcctx.Services{
		Analyzer:   analyze.NewDocumentAnalyzer(rast, pa, logger),
		Segregator: report.NewSegregator(nil),
		Logger:     logger,
	}
}

// multipartBody builds a multipart form with a single file field.
func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func doAnalyze(t *testing.T, svcs *svcctx.Services, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	req = req.WithContext(svcctx.WithServices(req.Context(), svcs))

	w := httptest.NewRecorder()
	ep := &AnalyzeEndpoint{}
	_, _, handler := ep.Route()
	handler(w, req)
	return w
}

func TestAnalyzeEndpoint_UnsupportedExtension(t *testing.T) {
	svcs := testServices(t, &stubRasterizer{}, providers.NewMockClient(""))

	w := doAnalyze(t, svcs, "report.docx", []byte("not supported"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid error body: %v", err)
	}
	if resp.Error == "" {
		t.Error("error body must name the rejected type")
	}
}

func TestAnalyzeEndpoint_MissingFile(t *testing.T) {
	svcs := testServices(t, &stubRasterizer{}, providers.NewMockClient(""))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("note", "no file here")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req = req.WithContext(svcctx.WithServices(req.Context(), svcs))

	w := httptest.NewRecorder()
	ep := &AnalyzeEndpoint{}
	_, _, handler := ep.Route()
	handler(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestAnalyzeEndpoint_SingleReportFlatPayload(t *testing.T) {
	rast := &stubRasterizer{pages: []rasterize.PageImage{{Number: 1, Data: []byte("img"), Format: "png"}}}
	client := providers.NewMockClient(`{"report_type": "blood_test", "patient_name": "Jane Roe", "tests": [{"test_name": "Hemoglobin", "value": "13.2", "reference_range": "12-16"}]}`)
	svcs := testServices(t, rast, client)

	w := doAnalyze(t, svcs, "report.png", []byte("img"))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var rep report.LogicalReport
	if err := json.Unmarshal(w.Body.Bytes(), &rep); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if rep.ReportType != "blood_test" {
		t.Errorf("ReportType = %q", rep.ReportType)
	}
	if len(rep.Tests) != 1 || rep.Tests[0].Status != "normal" {
		t.Errorf("unexpected tests: %+v", rep.Tests)
	}
}

func TestAnalyzeEndpoint_PartialFailureIsSuccess(t *testing.T) {
	rast := &stubRasterizer{pages: []rasterize.PageImage{
		{Number: 1, Data: []byte("a"), Format: "png"},
		{Number: 2, Data: []byte("b"), Format: "png"},
	}}
	client := &providers.MockClient{
		Errs: []error{
			nil,
			providers.ErrModelUnavailable, providers.ErrModelUnavailable, providers.ErrModelUnavailable,
		},
		Responses: []string{`{"report_type": "serology", "tests": [{"test_name": "HBsAg", "value": "Non-Reactive"}]}`},
	}
	svcs := testServices(t, rast, client)

	w := doAnalyze(t, svcs, "report.pdf", []byte("%PDF"))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 on partial success: %s", w.Code, w.Body.String())
	}

	var resp AnalyzeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if len(resp.Reports) != 1 {
		t.Fatalf("len(Reports) = %d, want 1", len(resp.Reports))
	}
	if len(resp.Summary.FailedPages) != 1 || resp.Summary.FailedPages[0] != 2 {
		t.Errorf("Summary.FailedPages = %v, want [2]", resp.Summary.FailedPages)
	}
}

func TestAnalyzeEndpoint_AllPagesFailed(t *testing.T) {
	rast := &stubRasterizer{pages: []rasterize.PageImage{{Number: 1, Data: []byte("a"), Format: "png"}}}
	client := &providers.MockClient{
		Errs: []error{providers.ErrModelUnavailable, providers.ErrModelUnavailable, providers.ErrModelUnavailable},
	}
	svcs := testServices(t, rast, client)

	w := doAnalyze(t, svcs, "report.png", []byte("a"))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500 when every page fails", w.Code)
	}
}

func TestAnalyzeEndpoint_RasterizationFailure(t *testing.T) {
	rast := &stubRasterizer{err: &rasterize.RasterizationError{Err: errors.New("pdftoppm exited 1")}}
	svcs := testServices(t, rast, providers.NewMockClient(""))

	w := doAnalyze(t, svcs, "report.pdf", []byte("corrupt"))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid error body: %v", err)
	}
	if resp.Error == "" {
		t.Error("error body must identify the failing stage")
	}
}

func TestHealthEndpoint(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	ep := &HealthEndpoint{}
	_, _, handler := ep.Route()
	handler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("Status = %q", resp.Status)
	}
}

func TestReadyEndpoint(t *testing.T) {
	t.Run("no registry", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ready", nil)
		w := httptest.NewRecorder()

		ep := &ReadyEndpoint{}
		_, _, handler := ep.Route()
		handler(w, req)

		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", w.Code)
		}
	})

	t.Run("healthy model", func(t *testing.T) {
		registry := providers.NewRegistry()
		registry.SetLogger(slog.New(slog.DiscardHandler))
		registry.Reload(providers.ClientConfig{Type: providers.MockClientName})

		req := httptest.NewRequest(http.MethodGet, "/ready", nil)
		req = req.WithContext(svcctx.WithServices(req.Context(), &svcctx.Services{Registry: registry}))
		w := httptest.NewRecorder()

		ep := &ReadyEndpoint{}
		_, _, handler := ep.Route()
		handler(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
	})
}

func TestStatusEndpoint(t *testing.T) {
	registry := providers.NewRegistry()
	registry.SetLogger(slog.New(slog.DiscardHandler))
	registry.Reload(providers.ClientConfig{Type: providers.MockClientName})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req = req.WithContext(svcctx.WithServices(req.Context(), &svcctx.Services{Registry: registry}))
	w := httptest.NewRecorder()

	ep := &StatusEndpoint{}
	_, _, handler := ep.Route()
	handler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if resp.Provider.Name != providers.MockClientName {
		t.Errorf("Provider.Name = %q", resp.Provider.Name)
	}
	if resp.Ollama.Container != "unmanaged" {
		t.Errorf("Ollama.Container = %q", resp.Ollama.Container)
	}
}

func TestInfoEndpoint(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	ep := &InfoEndpoint{}
	_, _, handler := ep.Route()
	handler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp InfoResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if resp.Service != "medvision" {
		t.Errorf("Service = %q", resp.Service)
	}
}
