package store

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalizeLabel(t *testing.T) {
	cases := map[string]string{
		"  cat  ":   "cat",
		"Cat":       "Cat",
		"big  dog ": "big  dog",
		"":          "",
		"  ":        "",
	}
	for in, expect := range cases {
		if got := NormalizeLabel(in); got != expect {
			t.Fatalf("normalize %q => %q, expected %q", in, got, expect)
		}
	}
}

func TestValidateLabel(t *testing.T) {
	if got, err := ValidateLabel(" cat "); err != nil || got != "cat" {
		t.Fatalf("expected cat, got %q err %v", got, err)
	}
	if _, err := ValidateLabel("   "); !errors.Is(err, ErrInvalidLabel) {
		t.Fatalf("expected ErrInvalidLabel for blank label, got %v", err)
	}
	if _, err := ValidateLabel(strings.Repeat("é", MaxLabelLength)); err != nil {
		t.Fatalf("255 runes should be accepted: %v", err)
	}
	if _, err := ValidateLabel(strings.Repeat("a", MaxLabelLength+1)); !errors.Is(err, ErrInvalidLabel) {
		t.Fatalf("expected ErrInvalidLabel for long label, got %v", err)
	}
	if _, err := ValidateLabel("bad\xffbyte"); !errors.Is(err, ErrInvalidLabel) {
		t.Fatalf("expected ErrInvalidLabel for invalid utf-8, got %v", err)
	}
	for _, bad := range []string{"../x", "a/b", `a\b`, "..", ".", "/"} {
		if _, err := ValidateLabel(bad); !errors.Is(err, ErrInvalidLabel) {
			t.Fatalf("expected ErrInvalidLabel for %q, got %v", bad, err)
		}
	}
	for _, ok := range []string{"..x", "x..", "100%", "a b"} {
		if _, err := ValidateLabel(ok); err != nil {
			t.Fatalf("%q should be accepted: %v", ok, err)
		}
	}
}
