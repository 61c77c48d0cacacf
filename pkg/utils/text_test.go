package utils

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxLen 0 returns as-is")
	}
	if got := Truncate("Grüße aus Köln", 5); got != "Grüße..." {
		t.Errorf("multibyte: got %s", got)
	}
}

func TestCountTokens(t *testing.T) {
	tests := map[string]int{
		"":                     0,
		"   ":                  0,
		"I think so. Really.":  4,
		" leading\tand\ntrail ": 3,
	}
	for in, want := range tests {
		if got := CountTokens(in); got != want {
			t.Errorf("CountTokens(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(0.5); got != "50.00%" {
		t.Errorf("Percent(0.5) = %s", got)
	}
	if got := Percent(-0.125); got != "-12.50%" {
		t.Errorf("Percent(-0.125) = %s", got)
	}
}
