package core

import (
	"encoding/json"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{"1.004", 100, true},
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	var v struct {
		A Money `json:"a"`
		B Money `json:"b"`
		C Money `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a": 12.5, "b": "7,25", "c": 0}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.A.Cents != 1250 || v.B.Cents != 725 || v.C.Cents != 0 {
		t.Fatalf("unexpected cents: %+v", v)
	}

	out, err := json.Marshal(Money{Cents: 123456})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != "1234.56" {
		t.Fatalf("expected 1234.56, got %s", out)
	}

	var m Money
	if err := json.Unmarshal([]byte(`-3`), &m); err == nil {
		t.Fatalf("expected error for negative amount")
	}
}
