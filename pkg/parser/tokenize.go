package parser

import (
	"strings"
	"unicode"
)

// Normalize strips comments, trims the line and collapses whitespace
// outside double quotes. A word starting with '!' or '#' outside quotes
// starts a comment. Normalize is idempotent; an empty result means the
// line holds no command.
func Normalize(line string) string {
	var b strings.Builder
	inQuote, escaped, pendingSpace := false, false, false
	for _, r := range line {
		if inQuote {
			b.WriteRune(r)
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inQuote = false
			}
			continue
		}
		if unicode.IsSpace(r) {
			pendingSpace = b.Len() > 0
			continue
		}
		atWordStart := b.Len() == 0 || pendingSpace
		if atWordStart && (r == '!' || r == '#') {
			break
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		if r == '"' {
			inQuote = true
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Tokenize splits a line into words. Double-quoted text is one word with
// the quotes removed; inside quotes a backslash escapes '"', '\' and 'n'.
func Tokenize(line string) ([]string, error) {
	words, last, hasLast, open := split(Normalize(line))
	if open {
		return nil, &Error{Kind: ErrUnterminatedQuote, Word: last}
	}
	if hasLast {
		words = append(words, last)
	}
	return words, nil
}

// SplitPartial splits text typed so far into complete words and the word
// being typed, which is empty after trailing whitespace. An unterminated
// quote is part of the word being typed.
func SplitPartial(text string) (words []string, partial string) {
	words, partial, _, _ = split(text)
	return words, partial
}

// split tokenizes s. A word not yet ended by whitespace is returned
// separately, along with whether it ends inside a quote.
func split(s string) (words []string, last string, hasLast, open bool) {
	var cur strings.Builder
	inWord, inQuote, escaped := false, false, false
	for _, r := range s {
		switch {
		case inQuote && escaped:
			if r == 'n' {
				cur.WriteByte('\n')
			} else {
				cur.WriteRune(r)
			}
			escaped = false
		case inQuote && r == '\\':
			escaped = true
		case inQuote && r == '"':
			inQuote = false
		case inQuote:
			cur.WriteRune(r)
		case r == '"':
			inQuote, inWord = true, true
		case unicode.IsSpace(r):
			if inWord {
				words = append(words, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}
	if inWord {
		return words, cur.String(), true, inQuote
	}
	return words, "", false, false
}
