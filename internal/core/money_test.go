package core

import (
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"0", 0, true},
		{"100000", 100000, true},
		{" 250 ", 250, true},
		{"9007199254740992", MaxAmount, true},
		{"9007199254740993", 0, false},
		{"9223372036854775807", 0, false},
		{"-1", 0, false},
		{"1.5", 0, false},
		{"1,000", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
			continue
		}
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("%q expected validation error, got %v", tc.in, err)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	cases := map[int64]string{
		0:        "0",
		999:      "999",
		1000:     "1,000",
		75000:    "75,000",
		1250000:  "1,250,000",
		-1250000: "-1,250,000",
	}
	for in, want := range cases {
		if got := FormatAmount(in); got != want {
			t.Fatalf("%d: got %q want %q", in, got, want)
		}
	}
}
