// Package jsonutil decodes loosely-typed JSON fields produced by language models.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FlexibleStringValue converts a json.RawMessage to a string, handling cases where
// LLMs return numbers or booleans instead of strings. Returns empty string for null/empty.
func FlexibleStringValue(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strVal
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		if numVal == float64(int64(numVal)) {
			return fmt.Sprintf("%d", int64(numVal))
		}
		return fmt.Sprintf("%g", numVal)
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		return fmt.Sprintf("%t", boolVal)
	}

	return string(raw)
}

// OptionalString is FlexibleStringValue for fields where "absent" matters.
// Missing, null, blank and the literal string "null" all decode to nil.
func OptionalString(raw json.RawMessage) *string {
	s := strings.TrimSpace(FlexibleStringValue(raw))
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	return &s
}

// FlexibleBool decodes a boolean that may arrive as a JSON bool, a string such as
// "true" or "yes", or a number. It returns false for anything it cannot interpret.
func FlexibleBool(raw json.RawMessage) bool {
	if len(raw) == 0 || string(raw) == "null" {
		return false
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		return boolVal
	}

	switch strings.ToLower(strings.TrimSpace(FlexibleStringValue(raw))) {
	case "true", "yes", "y", "1", "si", "sí":
		return true
	}
	return false
}
