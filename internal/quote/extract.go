// Package quote turns the raw text returned by the quote source into numeric samples.
//
// Extraction is a plain substring scan, not a JSON decode. The upstream payload
// is small, flat and machine generated, so a field name is located by its first
// occurrence and the number after it is read directly. Nesting is ignored: a
// field name that appears inside another object still matches.
package quote

import (
	"errors"
	"strconv"
	"strings"
)

// Extract returns the number that follows the first occurrence of field in text.
// A missing field, or one not followed by a number, yields 0.
func Extract(text, field string) float64 {
	idx := strings.Index(text, field)
	if idx < 0 {
		return 0
	}

	rest := strings.TrimLeft(text[idx+len(field):], ` :"`)
	end := numericPrefix(rest)
	if end == 0 {
		return 0
	}

	value, err := strconv.ParseFloat(rest[:end], 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0
	}
	return value
}

// numericPrefix reports the length of the longest float literal at the start of s:
// optional sign, digits, optional fraction, optional exponent.
func numericPrefix(s string) int {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}

	intDigits := countDigits(s[i:])
	i += intDigits

	fracDigits := 0
	if i < len(s) && s[i] == '.' {
		fracDigits = countDigits(s[i+1:])
		if intDigits+fracDigits > 0 {
			i += 1 + fracDigits
		}
	}

	if intDigits+fracDigits == 0 {
		return 0
	}

	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if n := countDigits(s[j:]); n > 0 {
			i = j + n
		}
	}

	return i
}

func countDigits(s string) int {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	return n
}
