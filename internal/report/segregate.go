package report

import (
	"strings"

	"github.com/healthchain/medvision/internal/medical"
)

// MergePolicy decides which of two candidate metadata values to keep when
// merging pages into a logical report. It receives the value accumulated so
// far and the value from the next page, in ascending page order.
type MergePolicy func(current, next string) string

// FirstNonEmpty keeps the first non-empty value seen across pages.
// This is the default merge policy.
func FirstNonEmpty(current, next string) string {
	if strings.TrimSpace(current) != "" {
		return current
	}
	return strings.TrimSpace(next)
}

// LastNonEmpty prefers the most recent non-empty value.
func LastNonEmpty(current, next string) string {
	if strings.TrimSpace(next) != "" {
		return strings.TrimSpace(next)
	}
	return current
}

// PolicyByName resolves a merge policy from its config name.
// Unrecognized names fall back to FirstNonEmpty.
func PolicyByName(name string) MergePolicy {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "last_non_empty":
		return LastNonEmpty
	default:
		return FirstNonEmpty
	}
}

// Segregator groups page results into logical reports by report type.
type Segregator struct {
	merge MergePolicy
}

// NewSegregator creates a segregator with the given merge policy.
// A nil policy defaults to FirstNonEmpty.
func NewSegregator(policy MergePolicy) *Segregator {
	if policy == nil {
		policy = FirstNonEmpty
	}
	return &Segregator{merge: policy}
}

// Segregate groups the ordered page results by case-normalized report type.
// Groups appear in first-seen order; within a group test lists are
// concatenated in ascending page order and patient metadata is merged via
// the configured policy. Failed pages are excluded from grouping but
// reported in the summary.
func (s *Segregator) Segregate(results []PageResult) *Segregation {
	seg := &Segregation{
		Reports: []LogicalReport{},
		Summary: Summary{
			ReportTypes: []string{},
			TotalPages:  len(results),
		},
	}

	index := make(map[string]int) // report type -> position in seg.Reports

	for _, pr := range results {
		switch pr.Status {
		case PageStatusFailed:
			seg.Summary.FailedPages = append(seg.Summary.FailedPages, pr.PageNumber)
			continue
		case PageStatusNoTests:
			seg.Summary.NoTestsPages = append(seg.Summary.NoTestsPages, pr.PageNumber)
		}
		seg.Summary.AnalyzedPages++

		if pr.Record == nil {
			continue
		}

		label := NormalizeLabel(pr.Record.ReportType)
		i, ok := index[label]
		if !ok {
			i = len(seg.Reports)
			index[label] = i
			seg.Reports = append(seg.Reports, LogicalReport{
				ReportType:  label,
				Tests:       []TestResult{},
				PageNumbers: []int{},
			})
			seg.Summary.ReportTypes = append(seg.Summary.ReportTypes, label)
		}

		rep := &seg.Reports[i]
		rep.PatientName = s.merge(rep.PatientName, pr.Record.PatientName)
		rep.ReportDate = s.merge(rep.ReportDate, pr.Record.ReportDate)
		rep.Tests = append(rep.Tests, pr.Record.Tests...)
		rep.PageNumbers = append(rep.PageNumbers, pr.PageNumber)
	}

	for i := range seg.Reports {
		seg.Reports[i].RiskScore = reportRiskScore(seg.Reports[i].Tests)
		seg.Summary.TotalTestCount += len(seg.Reports[i].Tests)
	}
	seg.Summary.TotalReports = len(seg.Reports)

	return seg
}

// NormalizeLabel lowercases a report-type label and collapses whitespace to
// underscores so "Blood Test" and "blood_test" group together.
func NormalizeLabel(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return ReportTypeUnknown
	}
	return strings.Join(strings.Fields(label), "_")
}

// reportRiskScore sums per-test risk scores for a merged report.
func reportRiskScore(tests []TestResult) int {
	total := 0
	for _, t := range tests {
		total += medical.RiskScore(t.Status)
	}
	return total
}
