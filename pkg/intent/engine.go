package intent

import (
	"fmt"
	"strings"

	"github.com/harunnryd/vaani/pkg/lang"
)

// Engine is a search destination.
type Engine string

const (
	EngineGoogle    Engine = "google"
	EngineYouTube   Engine = "youtube"
	EngineWikipedia Engine = "wikipedia"
	EngineTranslate Engine = "translate"
)

const (
	googleSearchURL  = "https://www.google.com/search?q="
	youtubeSearchURL = "https://www.youtube.com/results?search_query="
	wikipediaURL     = "https://en.wikipedia.org/wiki/"
	translateURL     = "https://translate.google.com/?sl=auto&tl=%s&text=%s&op=translate"
)

// Valid reports whether e is a known engine.
func (e Engine) Valid() bool {
	switch e {
	case EngineGoogle, EngineYouTube, EngineWikipedia, EngineTranslate:
		return true
	}
	return false
}

// URL builds the destination for query. speaker is the detected language of
// the command; translation targets the other language.
func (e Engine) URL(query string, speaker lang.Language) (string, error) {
	switch e {
	case EngineGoogle:
		return googleSearchURL + EscapeComponent(query), nil
	case EngineYouTube:
		return youtubeSearchURL + EscapeComponent(query), nil
	case EngineWikipedia:
		return wikipediaURL + EscapeComponent(strings.TrimSpace(query)), nil
	case EngineTranslate:
		target := "hi"
		if speaker == lang.Hindi {
			target = "en"
		}
		return fmt.Sprintf(translateURL, target, EscapeComponent(query)), nil
	default:
		return "", fmt.Errorf("unknown search engine: %q", string(e))
	}
}

// GoogleSearchURL is the fallback destination for unmatched commands.
func GoogleSearchURL(query string) string {
	return googleSearchURL + EscapeComponent(query)
}

const upperhex = "0123456789ABCDEF"

// EscapeComponent percent-encodes s so it is safe as a single URL component.
// Letters, digits and -_.!~*'() pass through; every other byte, including
// each byte of multi-byte UTF-8 and the space, becomes %XX.
func EscapeComponent(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
