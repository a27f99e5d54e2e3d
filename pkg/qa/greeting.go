package qa

import (
	"strings"
	"unicode"
)

var greetingWords = map[string]bool{
	"hi": true, "hello": true, "hey": true, "hiya": true, "howdy": true,
	"greetings": true, "good": true, "morning": true, "afternoon": true,
	"evening": true, "day": true, "there": true, "thanks": true, "thank": true,
	"you": true, "ok": true, "okay": true, "yo": true, "sup": true,
	"how": true, "are": true, "doing": true, "is": true, "it": true, "going": true,
}

var greetingOpeners = map[string]bool{
	"hi": true, "hello": true, "hey": true, "hiya": true, "howdy": true,
	"greetings": true, "good": true, "thanks": true, "thank": true, "yo": true, "sup": true,
}

// IsGreeting reports whether text is only a greeting or small talk.
func IsGreeting(text string) bool {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if len(words) == 0 || len(words) > 6 || !greetingOpeners[words[0]] {
		return false
	}
	for _, w := range words {
		if !greetingWords[w] {
			return false
		}
	}
	return true
}
