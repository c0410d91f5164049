package core

import (
	"encoding/json"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{" 2.50 ", "2.5", true},
		{"0", "0", true},
		{"-1", "", false},
		{"+1", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{".", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestMoneyLenientJSON(t *testing.T) {
	cases := map[string]string{
		`12.5`:   "12.5",
		`"7"`:    "7",
		`null`:   "0",
		`""`:     "0",
		`"abc"`:  "0",
		`1e3`:    "1000",
		`"0.10"`: "0.1",
	}
	for in, want := range cases {
		var m Money
		if err := json.Unmarshal([]byte(in), &m); err != nil {
			t.Fatalf("%s: unexpected error %v", in, err)
		}
		if m.String() != want {
			t.Fatalf("%s: expected %s, got %s", in, want, m)
		}
	}

	out, err := json.Marshal(struct {
		Amount Money `json:"amount"`
	}{NewMoney(200)})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"amount":200}` {
		t.Fatalf("expected bare number, got %s", out)
	}
}

func TestMoneyFormat(t *testing.T) {
	cases := map[string]string{
		"0":        "$0.00",
		"12.5":     "$12.50",
		"1234.5":   "$1,234.50",
		"1000000":  "$1,000,000.00",
		"-250.125": "-$250.13",
	}
	for in, want := range cases {
		m, err := ParseAmount(trimSign(in))
		if err != nil {
			t.Fatalf("parse %s: %v", in, err)
		}
		if in[0] == '-' {
			m = Zero.Sub(m)
		}
		if got := m.Format(); got != want {
			t.Fatalf("%s: expected %s, got %s", in, want, got)
		}
	}
}

func TestMoneyNonNegative(t *testing.T) {
	if got := MoneyFromInt(5).Sub(MoneyFromInt(8)).NonNegative(); !got.IsZero() {
		t.Fatalf("expected 0, got %s", got)
	}
	if got := MoneyFromInt(8).Sub(MoneyFromInt(5)).NonNegative(); got.String() != "3" {
		t.Fatalf("expected 3, got %s", got)
	}
}

func trimSign(s string) string {
	if s != "" && s[0] == '-' {
		return s[1:]
	}
	return s
}
