package assess

import "fmt"

// maxRawSnippet bounds how much raw model output an error carries.
const maxRawSnippet = 300

// MalformedOutputError reports that no JSON object could be extracted
// from the model reply. Raw holds a truncated snippet for diagnostics.
type MalformedOutputError struct {
	Raw string
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("no JSON object found in model output: %q", e.Raw)
}

// ValidationError reports a structurally valid score that violates the
// rubric. The offending field and its value are preserved verbatim;
// values are never clamped into range.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid score field %s=%v: %s", e.Field, e.Value, e.Reason)
}

func truncateRaw(raw string) string {
	runes := []rune(raw)
	if len(runes) > maxRawSnippet {
		return string(runes[:maxRawSnippet]) + "..."
	}
	return raw
}
