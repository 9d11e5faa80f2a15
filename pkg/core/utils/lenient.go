// Package utils holds decoding helpers for human-authored and machine-suggested inputs.
package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// DecodeStrict unmarshals standard JSON and rejects unknown keys.
// A misspelled key fails instead of decoding as a zero value.
func DecodeStrict(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("JSON_STRUCTURAL_ERROR: %v", err)
	}
	return nil
}

// RepairJSON fixes common JSON errors: missing quotes around keys, single quotes,
// trailing commas, comments and surrounding markdown code fences.
func RepairJSON(malformed string) (string, error) {
	repaired, err := jsonrepair.RepairJSON(malformed)
	if err != nil {
		return "", fmt.Errorf("JSON_REPAIR_FAILED: %v", err)
	}
	return repaired, nil
}

// HJSONToJSON parses Human JSON (comments, unquoted keys, optional commas) into standard JSON.
func HJSONToJSON(data []byte) ([]byte, error) {
	var result interface{}
	if err := hjson.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("HJSON_PARSE_ERROR: %v", err)
	}
	out, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("JSON_MARSHAL_ERROR: %v", err)
	}
	return out, nil
}

// DecodeLenient tries progressively more forgiving strategies:
// 1. Strict JSON
// 2. Hjson
// 3. JSON repair
func DecodeLenient(data []byte, v interface{}) error {
	if err := DecodeStrict(data, v); err == nil {
		return nil
	}

	if converted, err := HJSONToJSON(data); err == nil {
		if err := DecodeStrict(converted, v); err == nil {
			return nil
		}
	}

	if repaired, err := RepairJSON(stripFences(string(data))); err == nil {
		if err := DecodeStrict([]byte(repaired), v); err == nil {
			return nil
		}
	}

	return fmt.Errorf("SMART_PARSE_FAILED: all parsing strategies failed for input")
}

func stripFences(s string) string {
	cleaned := strings.TrimSpace(s)
	if strings.HasPrefix(cleaned, "```") && strings.HasSuffix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
	}
	return strings.TrimSpace(cleaned)
}
