package endpoints

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/healthchain/medvision/internal/api"
	"github.com/healthchain/medvision/internal/rasterize"
	"github.com/healthchain/medvision/internal/report"
	"github.com/healthchain/medvision/internal/svcctx"
)

// AnalyzeResponse wraps the multi-report result of a document analysis.
// Single-report documents skip the wrapper and return the LogicalReport
// directly.
type AnalyzeResponse struct {
	Reports []report.LogicalReport `json:"reports"`
	Summary report.Summary         `json:"summary"`
}

// AnalyzeEndpoint handles POST /api/analyze with a multipart file upload.
type AnalyzeEndpoint struct{}

var _ api.Endpoint = (*AnalyzeEndpoint)(nil)

func (e *AnalyzeEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/analyze", e.handler
}

func (e *AnalyzeEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Analyze a medical report document
//	@Description	Upload a PDF or image; pages are sent to the vision model and extracted results are grouped into logical reports
//	@Tags			analyze
//	@Accept			mpfd
//	@Produce		json
//	@Param			file	formData	file	true	"PDF or image of a medical report"
//	@Success		200		{object}	AnalyzeResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/analyze [post]
func (e *AnalyzeEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	const maxMemory = 100 << 20 // 100MB
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	// Reject unsupported extensions before reading the body
	mediaType, err := rasterize.MediaTypeForFilename(header.Filename)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read upload: %v", err))
		return
	}

	analyzer := svcctx.AnalyzerFrom(r.Context())
	segregator := svcctx.SegregatorFrom(r.Context())
	if analyzer == nil || segregator == nil {
		writeError(w, http.StatusServiceUnavailable, "analysis pipeline not initialized")
		return
	}

	result, err := analyzer.AnalyzeDocument(r.Context(), data, mediaType)
	if err != nil {
		if errors.Is(err, rasterize.ErrUnsupportedFormat) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("rasterization failed: %v", err))
		return
	}

	if result.AllPagesFailed() {
		writeError(w, http.StatusInternalServerError,
			fmt.Sprintf("page analysis failed for all %d pages", result.TotalPages))
		return
	}

	seg := segregator.Segregate(result.Pages)

	if logger := svcctx.LoggerFrom(r.Context()); logger != nil {
		logger.Info("document analyzed",
			"run_id", result.ID,
			"file", header.Filename,
			"pages", result.TotalPages,
			"failed_pages", result.FailedPages,
			"reports", seg.Summary.TotalReports,
			"elapsed", result.Elapsed)
	}

	// Single clean report is the common case; keep its payload flat
	if len(seg.Reports) == 1 && len(seg.Summary.FailedPages) == 0 {
		writeJSON(w, http.StatusOK, seg.Reports[0])
		return
	}

	writeJSON(w, http.StatusOK, AnalyzeResponse{
		Reports: seg.Reports,
		Summary: seg.Summary,
	})
}

func (e *AnalyzeEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <file>",
		Short: "Analyze a medical report file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp map[string]any
			if err := client.PostFile(cmd.Context(), "/api/analyze", "file", args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
