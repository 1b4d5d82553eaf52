package core

import "testing"

func TestParseAmount(t *testing.T) {
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
		{" 2.50 ", 250, true},
		{"0", 0, true}, // down payments may be zero
		{".5", 50, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{123450, "1234.50"},
		{-205, "-2.05"},
		{0, "0.00"},
		{5, "0.05"},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.cents}).String(); got != tc.want {
			t.Fatalf("%d cents expected %q, got %q", tc.cents, tc.want, got)
		}
	}
}
