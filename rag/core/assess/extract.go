package assess

import (
	"encoding/json"
	"math"
)

// numericFields are the required integer fields of the rubric output, in
// validation order.
var numericFields = []struct {
	name string
	set  func(*Score, int)
}{
	{"score", func(s *Score, v int) { s.Total = v }},
	{"nutritional_impairment", func(s *Score, v int) { s.NutritionalImpairment = v }},
	{"disease_severity", func(s *Score, v int) { s.DiseaseSeverity = v }},
	{"age", func(s *Score, v int) { s.Age = v }},
}

// ExtractScore locates the first balanced JSON object in the model reply
// and decodes it as a Score. Chat models routinely wrap the object in
// prose or markdown fences, so decoding the whole reply directly is not
// an option. Every required field must be present and every numeric
// field must be an integer; a reply that parses but breaks those rules
// is a ValidationError naming the field, not a MalformedOutputError.
func ExtractScore(reply string) (*Score, error) {
	object, ok := extractJSONObject(reply)
	if !ok {
		return nil, &MalformedOutputError{Raw: truncateRaw(reply)}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(object), &fields); err != nil {
		return nil, &MalformedOutputError{Raw: truncateRaw(reply)}
	}

	var score Score
	for _, f := range numericFields {
		raw, present := fields[f.name]
		if !present {
			return nil, &ValidationError{
				Field:  f.name,
				Value:  nil,
				Reason: "required field is missing",
			}
		}
		var num float64
		if err := json.Unmarshal(raw, &num); err != nil {
			return nil, &ValidationError{
				Field:  f.name,
				Value:  string(raw),
				Reason: "must be a number",
			}
		}
		if num != math.Trunc(num) {
			return nil, &ValidationError{
				Field:  f.name,
				Value:  num,
				Reason: "must be an integer",
			}
		}
		f.set(&score, int(num))
	}

	rawBasis, present := fields["basis"]
	if !present {
		return nil, &ValidationError{
			Field:  "basis",
			Value:  nil,
			Reason: "required field is missing",
		}
	}
	if err := json.Unmarshal(rawBasis, &score.Basis); err != nil {
		return nil, &ValidationError{
			Field:  "basis",
			Value:  string(rawBasis),
			Reason: "must be a string",
		}
	}
	return &score, nil
}

// extractJSONObject scans for the first '{' and returns the substring up
// to its matching '}'. Braces inside JSON strings are skipped.
func extractJSONObject(s string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i, r := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			if start >= 0 {
				inString = true
			}
		case '{':
			if start < 0 {
				start = i
			}
			depth++
		case '}':
			if start < 0 {
				continue
			}
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
