// Package lang classifies a transcript as English or Hindi/Hinglish.
package lang

import (
	"fmt"
	"strings"
)

// Language is the two-valued result of detection.
type Language int

const (
	English Language = iota
	Hindi
)

func (l Language) String() string {
	switch l {
	case Hindi:
		return "hindi"
	default:
		return "english"
	}
}

// Tag returns the speech language tag used for synthesis and recognition.
func (l Language) Tag() string {
	if l == Hindi {
		return "hi-IN"
	}
	return "en-IN"
}

// Parse accepts "hindi", "hi", "hi-IN", "english", "en", "en-IN".
func Parse(value string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "hindi", "hi", "hi-in":
		return Hindi, nil
	case "english", "en", "en-in", "":
		return English, nil
	default:
		return English, fmt.Errorf("unknown language: %s", value)
	}
}

// DefaultHints are Hinglish words that mark romanized Hindi input.
var DefaultHints = []string{
	"kholo", "samay", "tarikh", "kaun", "tum", "namaste",
	"gaana", "chalao", "dikhao", "karo", "batao", "ka",
}

// Detector marks a transcript Hindi when it contains Devanagari or any hint
// as a plain substring. Short hints such as "ka" also fire inside English
// words; that is accepted behavior.
type Detector struct {
	hints []string
}

// NewDetector builds a detector; with no hints it uses DefaultHints.
func NewDetector(hints ...string) *Detector {
	if len(hints) == 0 {
		hints = DefaultHints
	}
	cleaned := make([]string, 0, len(hints))
	for _, h := range hints {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			cleaned = append(cleaned, h)
		}
	}
	return &Detector{hints: cleaned}
}

// Hints returns a copy of the configured hint words.
func (d *Detector) Hints() []string {
	out := make([]string, len(d.hints))
	copy(out, d.hints)
	return out
}

// Detect classifies text. It is pure and never fails.
func (d *Detector) Detect(text string) Language {
	if ContainsDevanagari(text) {
		return Hindi
	}
	lower := strings.ToLower(text)
	for _, h := range d.hints {
		if strings.Contains(lower, h) {
			return Hindi
		}
	}
	return English
}

// ContainsDevanagari reports whether any rune falls in U+0900..U+097F.
func ContainsDevanagari(text string) bool {
	for _, r := range text {
		if r >= 0x0900 && r <= 0x097F {
			return true
		}
	}
	return false
}
