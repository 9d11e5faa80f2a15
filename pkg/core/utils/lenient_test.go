package utils

import (
	"strings"
	"testing"
)

type sample struct {
	Ticker string  `json:"ticker"`
	WACC   float64 `json:"wacc"`
}

func TestDecodeLenient(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"strict", `{"ticker": "ACME", "wacc": 0.09}`},
		{"trailing comma", `{"ticker": "ACME", "wacc": 0.09,}`},
		{"code fence", "```json\n{\"ticker\": \"ACME\", \"wacc\": 0.09}\n```"},
		{"hjson", "{\n  # discount rate\n  ticker: ACME\n  wacc: 0.09\n}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s sample
			if err := DecodeLenient([]byte(tt.input), &s); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s.Ticker != "ACME" || s.WACC != 0.09 {
				t.Errorf("unexpected decode %+v", s)
			}
		})
	}
}

func TestDecodeStrict_UnknownField(t *testing.T) {
	var s sample
	err := DecodeStrict([]byte(`{"ticker": "ACME", "wac": 0.09}`), &s)
	if err == nil || !strings.HasPrefix(err.Error(), "JSON_STRUCTURAL_ERROR") {
		t.Errorf("expected structural error, got %v", err)
	}
}

func TestDecodeLenient_Unknown(t *testing.T) {
	var s sample
	err := DecodeLenient([]byte(`{"ticker": "ACME", "beta": 1.1}`), &s)
	if err == nil || !strings.HasPrefix(err.Error(), "SMART_PARSE_FAILED") {
		t.Errorf("expected misspelled keys to fail, got %v", err)
	}
}

func TestHJSONToJSON(t *testing.T) {
	out, err := HJSONToJSON([]byte("{a: 1}"))
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"a":1}` {
		t.Errorf("unexpected output %s", out)
	}
}
