package sanitize

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func newSanitizer(t *testing.T) *Sanitizer {
	t.Helper()
	s, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestSanitize_CleanJSON(t *testing.T) {
	s := newSanitizer(t)

	raw := `{
		"report_type": "blood_test",
		"patient_name": "Jane Doe",
		"report_date": "2024-10-17",
		"tests": [
			{"test_name": "Hemoglobin", "value": "14.5", "unit": "g/dL",
			 "reference_range": "12.0-16.0", "status": "normal"}
		]
	}`

	rec, err := s.Sanitize(raw)
	if err != nil {
		t.Fatalf("Sanitize() error = %v", err)
	}
	if rec.ReportType != "blood_test" {
		t.Errorf("ReportType = %q", rec.ReportType)
	}
	if rec.PatientName != "Jane Doe" {
		t.Errorf("PatientName = %q", rec.PatientName)
	}
	if len(rec.Tests) != 1 {
		t.Fatalf("len(Tests) = %d, want 1", len(rec.Tests))
	}
	if rec.Tests[0].Status != "normal" {
		t.Errorf("Status = %q", rec.Tests[0].Status)
	}
}

func TestSanitize_MarkdownFences(t *testing.T) {
	s := newSanitizer(t)

	raw := "```json\n{\"tests\":[]}\n```"
	rec, err := s.Sanitize(raw)
	if err != nil {
		t.Fatalf("Sanitize() error = %v", err)
	}
	if rec.Tests == nil {
		t.Fatal("Tests must be non-nil")
	}
	if len(rec.Tests) != 0 {
		t.Errorf("len(Tests) = %d, want 0", len(rec.Tests))
	}
}

func TestSanitize_ProseWrapped(t *testing.T) {
	s := newSanitizer(t)

	raw := `Here is the extracted data you asked for:

{"report_type": "urine_analysis", "tests": [{"test_name": "pH", "value": "6.0", "reference_range": "4.5-8.0"}]}

Let me know if you need anything else!`

	rec, err := s.Sanitize(raw)
	if err != nil {
		t.Fatalf("Sanitize() error = %v", err)
	}
	if rec.ReportType != "urine_analysis" {
		t.Errorf("ReportType = %q", rec.ReportType)
	}
	if len(rec.Tests) != 1 {
		t.Fatalf("len(Tests) = %d, want 1", len(rec.Tests))
	}
	if rec.Tests[0].Status != "normal" {
		t.Errorf("derived Status = %q, want normal", rec.Tests[0].Status)
	}
}

func TestSanitize_NoJSON(t *testing.T) {
	s := newSanitizer(t)

	_, err := s.Sanitize("I could not find any test results in this image.")
	var noJSON *NoJSONError
	if !errors.As(err, &noJSON) {
		t.Fatalf("expected NoJSONError, got %v", err)
	}
	if noJSON.Raw == "" {
		t.Error("NoJSONError should carry the original text")
	}
}

func TestSanitize_RepairTrailingComma(t *testing.T) {
	s := newSanitizer(t)

	raw := `{"report_type": "blood_test", "tests": [{"test_name": "WBC", "value": "7500"},]}`
	rec, err := s.Sanitize(raw)
	if err != nil {
		t.Fatalf("Sanitize() error = %v", err)
	}
	if len(rec.Tests) != 1 {
		t.Errorf("len(Tests) = %d, want 1", len(rec.Tests))
	}
}

func TestSanitize_RepairControlChars(t *testing.T) {
	s := newSanitizer(t)

	raw := "{\"patient_name\": \"Jane\nDoe\", \"tests\": []}"
	rec, err := s.Sanitize(raw)
	if err != nil {
		t.Fatalf("Sanitize() error = %v", err)
	}
	if !strings.Contains(rec.PatientName, "Jane") {
		t.Errorf("PatientName = %q", rec.PatientName)
	}
}

func TestSanitize_UnrepairableJSON(t *testing.T) {
	s := newSanitizer(t)

	_, err := s.Sanitize(`{"tests": [{"test_name": }`)
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestSanitize_SchemaViolations(t *testing.T) {
	s := newSanitizer(t)

	tests := []struct {
		name string
		raw  string
	}{
		{"tests is a string", `{"tests": "none found"}`},
		{"tests is an object", `{"tests": {"test_name": "Hb"}}`},
		{"tests items are scalars", `{"tests": ["Hemoglobin", "WBC"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Sanitize(tt.raw)
			var serr *SchemaError
			if !errors.As(err, &serr) {
				t.Errorf("expected SchemaError, got %v", err)
			}
		})
	}
}

func TestSanitize_BackfillsDefaults(t *testing.T) {
	s := newSanitizer(t)

	rec, err := s.Sanitize(`{"report_date": null}`)
	if err != nil {
		t.Fatalf("Sanitize() error = %v", err)
	}
	if rec.Tests == nil || len(rec.Tests) != 0 {
		t.Errorf("Tests = %v, want empty non-nil slice", rec.Tests)
	}
	if rec.PatientName != "" || rec.ReportDate != "" {
		t.Errorf("expected empty metadata, got %q / %q", rec.PatientName, rec.ReportDate)
	}
	if rec.ReportType != "unknown" {
		t.Errorf("ReportType = %q, want unknown", rec.ReportType)
	}
}

func TestSanitize_NumericValuesCoerced(t *testing.T) {
	s := newSanitizer(t)

	raw := `{"tests": [{"test_name": "Glucose", "value": 92.5, "reference_range": "70-110"}]}`
	rec, err := s.Sanitize(raw)
	if err != nil {
		t.Fatalf("Sanitize() error = %v", err)
	}
	if rec.Tests[0].Value != "92.5" {
		t.Errorf("Value = %q, want 92.5", rec.Tests[0].Value)
	}
	if rec.Tests[0].Status != "normal" {
		t.Errorf("Status = %q, want normal", rec.Tests[0].Status)
	}
}

func TestSanitize_QualitativeOverridesRatio(t *testing.T) {
	s := newSanitizer(t)

	// Serology rows often print a numeric ratio next to the textual result.
	// The text is authoritative.
	raw := `{"tests": [{"test_name": "HIV I & II", "value": "Non-Reactive",
		"reference_range": "< 1.0", "status": "high"}]}`
	rec, err := s.Sanitize(raw)
	if err != nil {
		t.Fatalf("Sanitize() error = %v", err)
	}
	if rec.Tests[0].Status != "normal" {
		t.Errorf("Status = %q, want normal", rec.Tests[0].Status)
	}
	if rec.Tests[0].Value != "Non-Reactive" {
		t.Errorf("Value = %q, want Non-Reactive preserved", rec.Tests[0].Value)
	}
}

func TestSanitize_VerbatimSpecializedNames(t *testing.T) {
	s := newSanitizer(t)

	raw := `{"tests": [
		{"test_name": "HBsAg", "value": "Negative"},
		{"test_name": "Hgb", "value": "13.1", "reference_range": "12.0-16.0"}
	]}`
	rec, err := s.Sanitize(raw)
	if err != nil {
		t.Fatalf("Sanitize() error = %v", err)
	}
	if rec.Tests[0].TestName != "HBsAg" {
		t.Errorf("TestName = %q, want HBsAg verbatim", rec.Tests[0].TestName)
	}
	if rec.Tests[1].TestName != "Hemoglobin" {
		t.Errorf("TestName = %q, want whitelisted Hgb expanded", rec.Tests[1].TestName)
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	s := newSanitizer(t)

	canonical := `{"report_type":"blood_test","patient_name":"Jane Doe","report_date":"2024-10-17","tests":[{"test_name":"Hemoglobin","value":"14.5","unit":"g/dL","reference_range":"12.0-16.0","status":"normal"}]}`

	first, err := s.Sanitize(canonical)
	if err != nil {
		t.Fatalf("first Sanitize() error = %v", err)
	}

	roundTripped, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal error = %v", err)
	}
	second, err := s.Sanitize(string(roundTripped))
	if err != nil {
		t.Fatalf("second Sanitize() error = %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("sanitize not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

// TestSanitize_NeverPanics drives the sanitizer with adversarial inputs and
// asserts the contract: a record or a typed error, never a panic.
func TestSanitize_NeverPanics(t *testing.T) {
	s := newSanitizer(t)

	inputs := []string{
		"",
		"{",
		"}",
		"{{{{",
		"}}}}{",
		`{"tests": [`,
		"```",
		"```json",
		"```json\n```",
		"\x00\x01\x02",
		`{"a": "b\`,
		strings.Repeat("{", 10000),
		strings.Repeat(`{"tests":[`, 500),
		`{"tests": [{]}`,
		"null",
		"[1,2,3]",
		`"just a string"`,
		`{"tests": 42}`,
	}

	for _, in := range inputs {
		rec, err := s.Sanitize(in)
		if err == nil && rec == nil {
			t.Errorf("input %q: nil record with nil error", in)
		}
		if err != nil {
			var noJSON *NoJSONError
			var perr *ParseError
			var serr *SchemaError
			if !errors.As(err, &noJSON) && !errors.As(err, &perr) && !errors.As(err, &serr) {
				t.Errorf("input %q: untyped error %v", in, err)
			}
		}
	}
}
