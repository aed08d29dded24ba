package lang

import "testing"

func TestDetectDevanagariIsHindi(t *testing.T) {
	d := NewDetector()
	if got := d.Detect("यूट्यूब खोलो"); got != Hindi {
		t.Fatalf("expected hindi, got %s", got)
	}
	if got := d.Detect("open यूट्यूब please"); got != Hindi {
		t.Fatalf("expected hindi for mixed script, got %s", got)
	}
}

func TestDetectHintWordIsHindi(t *testing.T) {
	d := NewDetector()
	if got := d.Detect("youtube kholo"); got != Hindi {
		t.Fatalf("expected hindi, got %s", got)
	}
	if got := d.Detect("please open youtube and samay batao"); got != Hindi {
		t.Fatalf("expected hindi with english words present, got %s", got)
	}
}

func TestDetectSubstringFalsePositive(t *testing.T) {
	d := NewDetector()
	// "ka" inside "kafka" still marks hindi.
	if got := d.Detect("search kafka docs"); got != Hindi {
		t.Fatalf("expected substring hint to fire, got %s", got)
	}
}

func TestDetectEnglish(t *testing.T) {
	d := NewDetector()
	if got := d.Detect("what time is it"); got != English {
		t.Fatalf("expected english, got %s", got)
	}
	if got := d.Detect(""); got != English {
		t.Fatalf("expected english for empty text, got %s", got)
	}
}

func TestCustomHints(t *testing.T) {
	d := NewDetector("  Suno ")
	if got := d.Detect("gaana suno"); got != Hindi {
		t.Fatalf("expected custom hint match, got %s", got)
	}
	if got := d.Detect("gaana chalao"); got != English {
		t.Fatalf("expected default hints replaced, got %s", got)
	}
	if hints := d.Hints(); len(hints) != 1 || hints[0] != "suno" {
		t.Fatalf("expected normalized hints, got %v", hints)
	}
}

func TestTagAndParse(t *testing.T) {
	if Hindi.Tag() != "hi-IN" || English.Tag() != "en-IN" {
		t.Fatalf("unexpected tags %s %s", Hindi.Tag(), English.Tag())
	}
	l, err := Parse("hi-IN")
	if err != nil || l != Hindi {
		t.Fatalf("expected hindi from tag, got %v %v", l, err)
	}
	if _, err := Parse("fr"); err == nil {
		t.Fatalf("expected error for unknown language")
	}
}
