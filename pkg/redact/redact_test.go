package redact

import (
	"strings"
	"testing"
)

func TestRedactDisabled(t *testing.T) {
	SetEnabled(false)
	in := "search a@b.com and call +91 98765 43210"
	if got := Text(in); got != in {
		t.Fatalf("expected no redaction, got %q", got)
	}
}

func TestRedactEnabled(t *testing.T) {
	SetEnabled(true)
	defer SetEnabled(false)
	in := "search a@b.com and call +91 98765 43210"
	got := Text(in)
	if got == in {
		t.Fatalf("expected redaction")
	}
	if want := "[REDACTED_EMAIL]"; !strings.Contains(got, want) {
		t.Fatalf("expected %q in output", want)
	}
	if want := "[REDACTED_PHONE]"; !strings.Contains(got, want) {
		t.Fatalf("expected %q in output", want)
	}
}

func TestTranscriptClipsRunes(t *testing.T) {
	SetEnabled(false)
	got := Transcript("यूट्यूब खोलो", 3)
	if got != "यूट"+"…" {
		t.Fatalf("unexpected clip %q", got)
	}
	if got := Transcript("open github", 0); got != "open github" {
		t.Fatalf("expected no clipping, got %q", got)
	}
}
