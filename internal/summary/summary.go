// Package summary parses and validates structured-summary completions
// against the fixed five-field schema.
package summary

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/nubra-ai/nubra-chat/internal/session"
)

// Machine-readable validation error codes.
const (
	CodeInvalidJSON       = "SUMMARY_INVALID_JSON"
	CodeNotObject         = "SUMMARY_NOT_OBJECT"
	CodeMissingField      = "SUMMARY_MISSING_FIELD"
	CodeUserGoalInvalid   = "SUMMARY_USER_GOAL_INVALID"
	CodeArrayFieldInvalid = "SUMMARY_ARRAY_FIELD_INVALID"
)

// Fields is the required summary schema, in validation order.
var Fields = []string{
	"user_goal",
	"key_decisions",
	"constraints",
	"preferences",
	"unresolved_questions",
}

// Error is a summary validation failure carrying a machine-readable code.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

var fencedBlock = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)```")

// ParseAndValidate extracts, parses and validates a completion's raw text
// into a normalized Summary. On failure it returns a *Error whose Code is
// one of the SUMMARY_* constants.
//
// Validation short-circuits in schema order: object shape, field presence,
// user_goal type, then the four string-sequence fields.
func ParseAndValidate(rawText string) (*session.Summary, error) {
	parsed, ok := parseLoose(rawText)
	if !ok {
		return nil, &Error{Code: CodeInvalidJSON, Message: "summary response is not valid JSON"}
	}

	obj, ok := parsed.(map[string]any)
	if !ok {
		return nil, &Error{Code: CodeNotObject, Message: "summary must be a JSON object"}
	}

	for _, field := range Fields {
		if _, present := obj[field]; !present {
			return nil, &Error{
				Code:    CodeMissingField,
				Message: fmt.Sprintf("missing required summary field '%s'", field),
			}
		}
	}

	goal, ok := obj["user_goal"].(string)
	if !ok {
		return nil, &Error{Code: CodeUserGoalInvalid, Message: "user_goal must be a string"}
	}

	arrays := make(map[string][]string, len(Fields)-1)
	for _, field := range Fields[1:] {
		values, err := stringSlice(obj[field])
		if err != nil {
			return nil, &Error{
				Code:    CodeArrayFieldInvalid,
				Message: fmt.Sprintf("%s must be an array of strings", field),
			}
		}
		arrays[field] = values
	}

	return &session.Summary{
		UserGoal:            strings.TrimSpace(goal),
		KeyDecisions:        arrays["key_decisions"],
		Constraints:         arrays["constraints"],
		Preferences:         arrays["preferences"],
		UnresolvedQuestions: arrays["unresolved_questions"],
	}, nil
}

// parseLoose parses rawText as JSON, preferring the inner content of a
// fenced code block and falling back to slicing from the first '{' to the
// last '}' when a direct parse fails.
func parseLoose(rawText string) (any, bool) {
	candidate := strings.TrimSpace(rawText)
	if candidate == "" {
		return nil, false
	}

	if m := fencedBlock.FindStringSubmatch(candidate); m != nil {
		candidate = strings.TrimSpace(m[1])
		if candidate == "" {
			return nil, false
		}
	}

	var parsed any
	if err := json.Unmarshal([]byte(candidate), &parsed); err == nil {
		return parsed, true
	}

	start := strings.Index(candidate, "{")
	end := strings.LastIndex(candidate, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(candidate[start:end+1]), &parsed); err == nil {
			return parsed, true
		}
	}
	return nil, false
}

// stringSlice converts a decoded JSON value to a trimmed []string,
// failing if the value is not an array of strings.
func stringSlice(v any) ([]string, error) {
	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("not an array")
	}
	out := make([]string, len(arr))
	for i, item := range arr {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("element %d is not a string", i)
		}
		out[i] = strings.TrimSpace(s)
	}
	return out, nil
}
