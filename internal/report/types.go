// Package report defines the structured results produced by document
// analysis and groups per-page results into logical reports.
package report

// ReportTypeUnknown is assigned when the model cannot classify a page.
const ReportTypeUnknown = "unknown"

// TestResult is a single extracted test row.
// TestName is a verbatim transcription from the source document; Value keeps
// qualitative text ("Non-Reactive") rather than coercing to a number.
type TestResult struct {
	TestName       string `json:"test_name"`
	Value          string `json:"value"`
	Unit           string `json:"unit"`
	ReferenceRange string `json:"reference_range"`
	Status         string `json:"status"`
	RiskScore      int    `json:"risk_score"`
}

// ExtractionRecord is the validated structured result for one page.
// Tests is always non-nil; missing source fields are backfilled with
// empty values by the sanitizer, never left undefined.
type ExtractionRecord struct {
	ReportType  string       `json:"report_type"`
	PatientName string       `json:"patient_name"`
	ReportDate  string       `json:"report_date"`
	Tests       []TestResult `json:"tests"`
}

// PageStatus describes the outcome of analyzing one page.
type PageStatus string

const (
	PageStatusOK      PageStatus = "ok"
	PageStatusNoTests PageStatus = "no_tests_found"
	PageStatusFailed  PageStatus = "failed"
)

// PageResult is the terminal outcome for one rasterized page.
// Exactly one of Record or Error is meaningful: a failed page carries the
// final error message and an empty record. Never mutated after creation.
type PageResult struct {
	PageNumber   int               `json:"page_number"`
	Status       PageStatus        `json:"status"`
	Record       *ExtractionRecord `json:"record,omitempty"`
	Error        string            `json:"error,omitempty"`
	UsedFallback bool              `json:"used_fallback,omitempty"`
}

// Failed reports whether the page produced no usable record.
func (p PageResult) Failed() bool {
	return p.Status == PageStatusFailed
}

// LogicalReport is the merged result of all pages sharing one report type.
type LogicalReport struct {
	ReportType  string       `json:"report_type"`
	PatientName string       `json:"patient_name"`
	ReportDate  string       `json:"report_date"`
	Tests       []TestResult `json:"tests"`
	PageNumbers []int        `json:"page_numbers"`
	RiskScore   int          `json:"risk_score"`
}

// Summary describes the overall outcome of segregating a document.
type Summary struct {
	ReportTypes    []string `json:"report_types"`
	TotalReports   int      `json:"total_reports"`
	TotalPages     int      `json:"total_pages"`
	AnalyzedPages  int      `json:"analyzed_pages"`
	FailedPages    []int    `json:"failed_pages,omitempty"`
	NoTestsPages   []int    `json:"no_tests_pages,omitempty"`
	TotalTestCount int      `json:"total_test_count"`
}

// Segregation is the final artifact returned to the caller: one or more
// logical reports plus a summary.
type Segregation struct {
	Reports []LogicalReport `json:"reports"`
	Summary Summary         `json:"summary"`
}
