package quizgen

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultChunkSize is the chunk size used when the caller passes a non-positive one.
const DefaultChunkSize = 1000

// Chunk splits text into segments of at most maxSize runes on sentence or
// paragraph boundaries. A sentence longer than maxSize is emitted whole.
// Text that already fits is returned as a single trimmed chunk.
func Chunk(text string, maxSize int) []string {
	if maxSize <= 0 {
		maxSize = DefaultChunkSize
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if utf8.RuneCountInString(trimmed) <= maxSize {
		return []string{trimmed}
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	for _, sentence := range splitSentences(trimmed) {
		n := utf8.RuneCountInString(sentence)
		if currentLen > 0 && currentLen+1+n > maxSize {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
		if currentLen > 0 {
			current.WriteByte(' ')
			currentLen++
		}
		current.WriteString(sentence)
		currentLen += n
	}
	if currentLen > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// splitSentences breaks text after a '.' that is followed by whitespace or the
// end of input, and at blank-line paragraph breaks. Terminators are kept.
func splitSentences(text string) []string {
	var out []string
	start := 0
	emit := func(end int) {
		if s := strings.TrimSpace(text[start:end]); s != "" {
			out = append(out, s)
		}
		start = end
	}

	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.':
			if i+1 == len(text) {
				emit(i + 1)
				continue
			}
			r, _ := utf8.DecodeRuneInString(text[i+1:])
			if unicode.IsSpace(r) {
				emit(i + 1)
			}
		case '\n':
			if i+1 < len(text) && text[i+1] == '\n' {
				emit(i)
				i++
				start = i + 1
			}
		}
	}
	if start < len(text) {
		emit(len(text))
	}
	return out
}
