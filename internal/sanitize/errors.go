package sanitize

import "fmt"

// NoJSONError indicates the model output contained no JSON object at all.
// Raw carries the original text for diagnostics.
type NoJSONError struct {
	Raw string
}

func (e *NoJSONError) Error() string {
	return "no JSON object found in model output"
}

// ParseError indicates the located JSON substring could not be parsed, even
// after the repair pass.
type ParseError struct {
	Offset int64 // byte offset reported by the parser, when available
	Detail string
}

func (e *ParseError) Error() string {
	if e.Offset > 0 {
		return fmt.Sprintf("invalid JSON at offset %d: %s", e.Offset, e.Detail)
	}
	return fmt.Sprintf("invalid JSON: %s", e.Detail)
}

// SchemaError indicates parsed JSON violated the expected shape: the top
// level was not an object, or "tests" was not an array of objects.
type SchemaError struct {
	Detail string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("model output does not match expected schema: %s", e.Detail)
}
