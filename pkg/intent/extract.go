package intent

import "strings"

// ExtractArgument removes every occurrence of each phrase, in order, then
// collapses whitespace runs and trims. Removal is literal substring removal
// with no word boundaries, so a short phrase can eat part of a word.
func ExtractArgument(transcript string, phrases []string) string {
	out := transcript
	for _, p := range phrases {
		if p == "" {
			continue
		}
		out = strings.ReplaceAll(out, p, " ")
	}
	return strings.Join(strings.Fields(out), " ")
}
