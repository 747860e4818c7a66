package order

import (
	"regexp"
	"strconv"
	"strings"
)

// trailingJunk is stripped from the end of a truncated title.
const trailingJunk = ",.-([]{}\\/|~!@#$%^&*_+=`'\" "

var leadingQuantity = regexp.MustCompile(`^\d+x `)

// TruncateTitle shortens title to roughly targetLength characters without
// splitting words. A word is kept while half its length still fits in the
// remaining budget. base, when given, is prepended and counts against the
// budget.
func TruncateTitle(title string, targetLength float64, base string) string {
	var words []string
	if base != "" {
		for _, w := range strings.Split(base, " ") {
			if w != "" {
				words = append(words, w)
			}
		}
		targetLength -= float64(len(base))
	}

	for _, word := range strings.Split(strings.TrimSpace(title), " ") {
		if float64(len(word))/2 >= targetLength {
			break
		}
		words = append(words, word)
		targetLength -= float64(len(word) + 1)
	}

	return strings.TrimRight(strings.Join(words, " "), trailingJunk)
}

// RemoveLeadingQuantity strips a "3x " quantity prefix from an item title.
func RemoveLeadingQuantity(title string) string {
	return leadingQuantity.ReplaceAllString(title, "")
}

// printableASCII drops everything except printable ASCII and ASCII whitespace.
func printableASCII(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 128 && (r >= ' ' && r <= '~' || strings.ContainsRune("\t\n\r\v\f", r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func quantityPrefix(qty int) string {
	if qty <= 1 {
		return ""
	}
	return strconv.Itoa(qty) + "x"
}
