package medical

import (
	"regexp"
	"strconv"
	"strings"
)

// Status values derived for test results.
const (
	StatusNormal   = "normal"
	StatusHigh     = "high"
	StatusLow      = "low"
	StatusAbnormal = "abnormal"
	StatusUnknown  = "unknown"
)

// qualitativeStatus maps textual serology-style results to a status.
// For qualitative tests the text is authoritative over any adjacent numeric
// ratio printed next to it.
var qualitativeStatus = map[string]string{
	"non-reactive": StatusNormal,
	"non reactive": StatusNormal,
	"nonreactive":  StatusNormal,
	"negative":     StatusNormal,
	"not detected": StatusNormal,
	"absent":       StatusNormal,
	"nil":          StatusNormal,
	"reactive":     StatusAbnormal,
	"positive":     StatusAbnormal,
	"detected":     StatusAbnormal,
	"present":      StatusAbnormal,
}

var (
	numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	rangePattern  = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*(?:-|–|to)\s*(-?\d+(?:\.\d+)?)`)
	upperBound    = regexp.MustCompile(`^<\s*=?\s*(\d+(?:\.\d+)?)`)
	lowerBound    = regexp.MustCompile(`^>\s*=?\s*(\d+(?:\.\d+)?)`)
)

// DeriveStatus computes a result status from the transcribed value, the
// reference range, and the status the model itself reported, in that order
// of preference:
//
//  1. qualitative values resolve via the fixed textual mapping;
//  2. numeric values compare against a parseable reference range;
//  3. otherwise the model-reported status is normalized, or "unknown".
func DeriveStatus(value, referenceRange, reported string) string {
	if s, ok := qualitativeStatus[strings.ToLower(strings.TrimSpace(value))]; ok {
		return s
	}

	if num, ok := parseNumber(value); ok {
		if lo, hi, ok := parseRange(referenceRange); ok {
			switch {
			case num < lo:
				return StatusLow
			case num > hi:
				return StatusHigh
			default:
				return StatusNormal
			}
		}
		if hi, ok := parseUpperBound(referenceRange); ok {
			if num > hi {
				return StatusHigh
			}
			return StatusNormal
		}
		if lo, ok := parseLowerBound(referenceRange); ok {
			if num < lo {
				return StatusLow
			}
			return StatusNormal
		}
	}

	return normalizeReported(reported)
}

// RiskScore maps a status to a per-test risk contribution.
func RiskScore(status string) int {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case StatusHigh, StatusLow, StatusAbnormal:
		return 1
	default:
		return 0
	}
}

// parseNumber extracts the leading numeric token from a value string.
// Returns false for qualitative or empty values.
func parseNumber(value string) (float64, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, false
	}
	trimmed = strings.ReplaceAll(trimmed, ",", "")

	match := numberPattern.FindString(trimmed)
	if match == "" || !strings.HasPrefix(trimmed, match) {
		return 0, false
	}
	num, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return num, true
}

// parseRange parses a "low - high" reference range.
func parseRange(referenceRange string) (lo, hi float64, ok bool) {
	m := rangePattern.FindStringSubmatch(strings.ReplaceAll(referenceRange, ",", ""))
	if m == nil {
		return 0, 0, false
	}
	lo, err1 := strconv.ParseFloat(m[1], 64)
	hi, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil || lo > hi {
		return 0, 0, false
	}
	return lo, hi, true
}

// parseUpperBound parses "< x" style ranges.
func parseUpperBound(referenceRange string) (float64, bool) {
	m := upperBound.FindStringSubmatch(strings.TrimSpace(referenceRange))
	if m == nil {
		return 0, false
	}
	hi, err := strconv.ParseFloat(m[1], 64)
	return hi, err == nil
}

// parseLowerBound parses "> x" style ranges.
func parseLowerBound(referenceRange string) (float64, bool) {
	m := lowerBound.FindStringSubmatch(strings.TrimSpace(referenceRange))
	if m == nil {
		return 0, false
	}
	lo, err := strconv.ParseFloat(m[1], 64)
	return lo, err == nil
}

// normalizeReported maps a model-reported status onto the fixed status set.
func normalizeReported(reported string) string {
	switch strings.ToLower(strings.TrimSpace(reported)) {
	case StatusNormal:
		return StatusNormal
	case StatusHigh:
		return StatusHigh
	case StatusLow:
		return StatusLow
	case StatusAbnormal, "critical":
		return StatusAbnormal
	default:
		return StatusUnknown
	}
}
