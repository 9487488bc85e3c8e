// Package sanitize turns raw vision-model output into validated extraction
// records. Model output may be wrapped in prose or markdown fences,
// truncated, or subtly malformed; the sanitizer recovers what it can and
// returns a typed error otherwise. It never panics on malformed input.
package sanitize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/healthchain/medvision/internal/medical"
	"github.com/healthchain/medvision/internal/report"
)

// recordSchema validates shape only: the top level must be an object and
// tests, when present, must be an array of objects. Missing fields are
// tolerated and backfilled; type violations are not.
const recordSchema = `{
	"type": "object",
	"properties": {
		"report_type": {"type": ["string", "null"]},
		"patient_name": {"type": ["string", "null"]},
		"report_date": {"type": ["string", "null"]},
		"tests": {
			"type": ["array", "null"],
			"items": {"type": "object"}
		}
	}
}`

// Sanitizer extracts and validates JSON from model responses.
type Sanitizer struct {
	schema *jsonschema.Schema
}

// New creates a sanitizer with the record schema compiled.
func New() (*Sanitizer, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("record.json", bytes.NewReader([]byte(recordSchema))); err != nil {
		return nil, fmt.Errorf("failed to load record schema: %w", err)
	}
	schema, err := compiler.Compile("record.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile record schema: %w", err)
	}
	return &Sanitizer{schema: schema}, nil
}

// Sanitize extracts a JSON object from raw model output and returns a
// validated record. All failure modes return a typed error value
// (NoJSONError, ParseError, SchemaError) rather than panicking.
func (s *Sanitizer) Sanitize(raw string) (*report.ExtractionRecord, error) {
	text := stripCodeFences(strings.TrimSpace(raw))

	candidate, ok := extractObject(text)
	if !ok {
		return nil, &NoJSONError{Raw: raw}
	}

	parsed, err := parseWithRepair(candidate)
	if err != nil {
		return nil, err
	}

	doc, isObject := parsed.(map[string]any)
	if !isObject {
		return nil, &SchemaError{Detail: "top-level value is not an object"}
	}
	if err := s.schema.Validate(parsed); err != nil {
		return nil, &SchemaError{Detail: err.Error()}
	}

	return buildRecord(doc), nil
}

// stripCodeFences removes a surrounding markdown code fence, if present.
func stripCodeFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return text
	}
	// Drop the opening fence line (which may carry a language tag).
	lines = lines[1:]
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// extractObject locates the outermost balanced JSON object in text. If the
// braces never balance (truncated output), it falls back to slicing from the
// first '{' to the last '}' and lets the parser report what is wrong.
func extractObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}

	// Unbalanced: best-effort slice for the repair pass.
	end := strings.LastIndexByte(text, '}')
	if end <= start {
		return "", false
	}
	return text[start : end+1], true
}

var trailingComma = regexp.MustCompile(`,\s*([}\]])`)

// parseWithRepair parses candidate JSON, applying one best-effort repair
// pass (trailing commas, unescaped control characters) before giving up.
func parseWithRepair(candidate string) (any, error) {
	parsed, firstErr := parseJSON(candidate)
	if firstErr == nil {
		return parsed, nil
	}

	repaired := trailingComma.ReplaceAllString(candidate, "$1")
	repaired = escapeControlChars(repaired)

	parsed, err := parseJSON(repaired)
	if err != nil {
		// Report the original failure; the repair attempt is opportunistic.
		return nil, firstErr
	}
	return parsed, nil
}

func parseJSON(candidate string) (any, error) {
	var parsed any
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		perr := &ParseError{Detail: err.Error()}
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			perr.Offset = syntaxErr.Offset
		}
		return nil, perr
	}
	return parsed, nil
}

// escapeControlChars escapes raw control characters that appear inside JSON
// string literals, a common failure mode when models embed literal newlines.
func escapeControlChars(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	inString := false
	escaped := false
	for _, c := range []byte(text) {
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			case c == '\n':
				b.WriteString(`\n`)
				continue
			case c == '\r':
				b.WriteString(`\r`)
				continue
			case c == '\t':
				b.WriteString(`\t`)
				continue
			case c < 0x20:
				// Drop other raw control bytes.
				continue
			}
		} else if c == '"' {
			inString = true
		}
		b.WriteByte(c)
	}
	return b.String()
}

// buildRecord maps a validated document onto an ExtractionRecord, backing
// missing optional fields with defaults and deriving per-test status.
func buildRecord(doc map[string]any) *report.ExtractionRecord {
	rec := &report.ExtractionRecord{
		ReportType:  report.NormalizeLabel(asString(doc["report_type"])),
		PatientName: strings.TrimSpace(asString(doc["patient_name"])),
		ReportDate:  medical.NormalizeDate(asString(doc["report_date"])),
		Tests:       []report.TestResult{},
	}

	tests, _ := doc["tests"].([]any)
	for _, entry := range tests {
		row, ok := entry.(map[string]any)
		if !ok {
			continue
		}

		name := strings.TrimSpace(asString(row["test_name"]))
		value := strings.TrimSpace(asString(row["value"]))
		if name == "" && value == "" {
			// Header-like row with nothing usable.
			continue
		}

		unit := strings.TrimSpace(asString(row["unit"]))
		refRange := strings.TrimSpace(asString(row["reference_range"]))
		status := medical.DeriveStatus(value, refRange, asString(row["status"]))

		rec.Tests = append(rec.Tests, report.TestResult{
			TestName:       medical.StandardizeTestName(name),
			Value:          value,
			Unit:           unit,
			ReferenceRange: refRange,
			Status:         status,
			RiskScore:      medical.RiskScore(status),
		})
	}

	return rec
}

// asString coerces JSON scalar values to strings. Models occasionally emit
// numbers where the contract asks for strings; those are preserved as their
// literal text rather than rejected.
func asString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return ""
	default:
		return ""
	}
}
