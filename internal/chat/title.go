package chat

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	autoTitleWords  = 6
	autoTitleLength = 60
)

// names a session after the opening words of its first message
func autoTitle(content string) string {
	words := strings.Fields(content)
	if len(words) == 0 {
		return ""
	}

	cut := len(words) > autoTitleWords
	title := strings.Join(words[:min(len(words), autoTitleWords)], " ")

	if utf8.RuneCountInString(title) > autoTitleLength {
		title = strings.TrimSpace(string([]rune(title)[:autoTitleLength-3]))
		cut = true
	}

	if cut {
		title = strings.TrimRight(title, ".,;:!?") + "..."
	}

	first, size := utf8.DecodeRuneInString(title)
	return string(unicode.ToUpper(first)) + title[size:]
}
