package report

import (
	"reflect"
	"testing"
)

func okPage(n int, reportType, patient, date string, tests ...TestResult) PageResult {
	return PageResult{
		PageNumber: n,
		Status:     PageStatusOK,
		Record: &ExtractionRecord{
			ReportType:  reportType,
			PatientName: patient,
			ReportDate:  date,
			Tests:       tests,
		},
	}
}

func namedTest(name, status string) TestResult {
	return TestResult{TestName: name, Status: status}
}

func TestSegregate_GroupsByTypeInFirstSeenOrder(t *testing.T) {
	// Pages 1-2 are one blood test, pages 3-5 a lipid profile.
	results := []PageResult{
		okPage(1, "blood_test", "Jane Roe", "2024-01-15", namedTest("Hemoglobin", "normal")),
		okPage(2, "blood_test", "", "", namedTest("Total Leukocyte Count", "normal")),
		okPage(3, "lipid_profile", "Jane Roe", "", namedTest("Total Cholesterol", "high")),
		okPage(4, "lipid_profile", "", "2024-01-16", namedTest("HDL", "low")),
		okPage(5, "lipid_profile", "", "", namedTest("LDL", "normal")),
	}

	seg := NewSegregator(nil).Segregate(results)

	if len(seg.Reports) != 2 {
		t.Fatalf("len(Reports) = %d, want 2", len(seg.Reports))
	}
	if seg.Reports[0].ReportType != "blood_test" || seg.Reports[1].ReportType != "lipid_profile" {
		t.Errorf("report order = [%s, %s], want first-seen order",
			seg.Reports[0].ReportType, seg.Reports[1].ReportType)
	}
	if got := seg.Reports[0].PageNumbers; !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("blood_test PageNumbers = %v, want [1 2]", got)
	}
	if got := seg.Reports[1].PageNumbers; !reflect.DeepEqual(got, []int{3, 4, 5}) {
		t.Errorf("lipid_profile PageNumbers = %v, want [3 4 5]", got)
	}

	total := 0
	for _, r := range seg.Reports {
		total += len(r.Tests)
	}
	if total != 5 {
		t.Errorf("total grouped tests = %d, want 5 (no tests lost or duplicated)", total)
	}
	if seg.Summary.TotalTestCount != 5 {
		t.Errorf("Summary.TotalTestCount = %d, want 5", seg.Summary.TotalTestCount)
	}
	if !reflect.DeepEqual(seg.Summary.ReportTypes, []string{"blood_test", "lipid_profile"}) {
		t.Errorf("Summary.ReportTypes = %v", seg.Summary.ReportTypes)
	}
}

func TestSegregate_CaseAndWhitespaceNormalization(t *testing.T) {
	results := []PageResult{
		okPage(1, "Blood Test", "", "", namedTest("Hemoglobin", "normal")),
		okPage(2, "blood_test", "", "", namedTest("Platelet Count", "normal")),
		okPage(3, "BLOOD  TEST", "", "", namedTest("Hematocrit", "normal")),
	}

	seg := NewSegregator(nil).Segregate(results)

	if len(seg.Reports) != 1 {
		t.Fatalf("len(Reports) = %d, want 1 (labels must collapse)", len(seg.Reports))
	}
	if seg.Reports[0].ReportType != "blood_test" {
		t.Errorf("ReportType = %q, want blood_test", seg.Reports[0].ReportType)
	}
	if len(seg.Reports[0].Tests) != 3 {
		t.Errorf("len(Tests) = %d, want 3", len(seg.Reports[0].Tests))
	}
}

func TestSegregate_FirstNonEmptyMetadataMerge(t *testing.T) {
	results := []PageResult{
		okPage(1, "serology", "", "", namedTest("HBsAg", "normal")),
		okPage(2, "serology", "John Q. Patient", "2024-03-01", namedTest("Anti-HCV", "normal")),
		okPage(3, "serology", "Someone Else", "2024-03-02", namedTest("VDRL", "normal")),
	}

	seg := NewSegregator(FirstNonEmpty).Segregate(results)

	rep := seg.Reports[0]
	if rep.PatientName != "John Q. Patient" {
		t.Errorf("PatientName = %q, want first non-empty value", rep.PatientName)
	}
	if rep.ReportDate != "2024-03-01" {
		t.Errorf("ReportDate = %q, want 2024-03-01", rep.ReportDate)
	}
}

func TestSegregate_LastNonEmptyPolicy(t *testing.T) {
	results := []PageResult{
		okPage(1, "serology", "John Q. Patient", "2024-03-01"),
		okPage(2, "serology", "Someone Else", ""),
	}

	seg := NewSegregator(PolicyByName("last_non_empty")).Segregate(results)

	rep := seg.Reports[0]
	if rep.PatientName != "Someone Else" {
		t.Errorf("PatientName = %q, want latest non-empty value", rep.PatientName)
	}
	if rep.ReportDate != "2024-03-01" {
		t.Errorf("ReportDate = %q, empty page values must not erase earlier ones", rep.ReportDate)
	}
}

func TestSegregate_FailedPagesExcludedButReported(t *testing.T) {
	results := []PageResult{
		okPage(1, "blood_test", "", "", namedTest("Hemoglobin", "normal")),
		{PageNumber: 2, Status: PageStatusFailed, Error: "model unavailable"},
		okPage(3, "blood_test", "", "", namedTest("Platelet Count", "normal")),
	}

	seg := NewSegregator(nil).Segregate(results)

	if len(seg.Reports) != 1 {
		t.Fatalf("len(Reports) = %d, want 1", len(seg.Reports))
	}
	if got := seg.Reports[0].PageNumbers; !reflect.DeepEqual(got, []int{1, 3}) {
		t.Errorf("PageNumbers = %v, want [1 3]", got)
	}
	if !reflect.DeepEqual(seg.Summary.FailedPages, []int{2}) {
		t.Errorf("Summary.FailedPages = %v, want [2]", seg.Summary.FailedPages)
	}
	if seg.Summary.AnalyzedPages != 2 || seg.Summary.TotalPages != 3 {
		t.Errorf("Analyzed/Total = %d/%d, want 2/3", seg.Summary.AnalyzedPages, seg.Summary.TotalPages)
	}
}

func TestSegregate_NoTestsPagesTracked(t *testing.T) {
	results := []PageResult{
		okPage(1, "blood_test", "", "", namedTest("Hemoglobin", "normal")),
		{
			PageNumber: 2,
			Status:     PageStatusNoTests,
			Record:     &ExtractionRecord{ReportType: "blood_test", Tests: []TestResult{}},
		},
	}

	seg := NewSegregator(nil).Segregate(results)

	if !reflect.DeepEqual(seg.Summary.NoTestsPages, []int{2}) {
		t.Errorf("Summary.NoTestsPages = %v, want [2]", seg.Summary.NoTestsPages)
	}
	// The page still belongs to its group even with zero tests.
	if got := seg.Reports[0].PageNumbers; !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("PageNumbers = %v, want [1 2]", got)
	}
}

func TestSegregate_RiskScoreSummed(t *testing.T) {
	results := []PageResult{
		okPage(1, "blood_test", "", "",
			namedTest("Hemoglobin", "low"),
			namedTest("Total Leukocyte Count", "high"),
			namedTest("Platelet Count", "normal")),
	}

	seg := NewSegregator(nil).Segregate(results)

	if seg.Reports[0].RiskScore != 2 {
		t.Errorf("RiskScore = %d, want 2", seg.Reports[0].RiskScore)
	}
}

func TestSegregate_UnknownTypeForEmptyLabel(t *testing.T) {
	results := []PageResult{
		okPage(1, "", "", "", namedTest("Hemoglobin", "normal")),
	}

	seg := NewSegregator(nil).Segregate(results)

	if seg.Reports[0].ReportType != ReportTypeUnknown {
		t.Errorf("ReportType = %q, want %q", seg.Reports[0].ReportType, ReportTypeUnknown)
	}
}

func TestSegregate_EmptyInput(t *testing.T) {
	seg := NewSegregator(nil).Segregate(nil)

	if len(seg.Reports) != 0 {
		t.Errorf("len(Reports) = %d, want 0", len(seg.Reports))
	}
	if seg.Summary.TotalReports != 0 || seg.Summary.TotalPages != 0 {
		t.Errorf("Summary = %+v, want zeroes", seg.Summary)
	}
}

func TestNormalizeLabel(t *testing.T) {
	cases := map[string]string{
		"Blood Test":    "blood_test",
		"  BLOOD  TEST": "blood_test",
		"lipid_profile": "lipid_profile",
		"":              "unknown",
		"   ":           "unknown",
	}
	for in, want := range cases {
		if got := NormalizeLabel(in); got != want {
			t.Errorf("NormalizeLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
