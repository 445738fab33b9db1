package sift

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	numberToken = regexp.MustCompile(`\d[\d.,]*`)
	ratingToken = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	spacedGroup = regexp.MustCompile(`^[ \x{00A0}\x{202F}](\d+)([.,][\d.,]*)?`)
)

// ParsePrice converts locale-formatted price text to a number.
//
// A comma followed by exactly two trailing digits is a decimal comma, and
// dots are then thousands separators. Otherwise commas are thousands
// separators. Without a decimal comma, a single dot followed by exactly three
// digits is a thousands separator and any other single dot is a decimal
// point. The boolean is false when no number could be read.
func ParsePrice(raw string) (float64, bool) {
	tok := firstNumber(raw)
	if tok == "" {
		return 0, false
	}

	var s string
	if i := strings.LastIndex(tok, ","); i >= 0 && len(tok)-i-1 == 2 {
		s = strings.ReplaceAll(tok[:i], ".", "")
		s = strings.ReplaceAll(s, ",", "") + "." + tok[i+1:]
	} else {
		hadComma := strings.Contains(tok, ",")
		s = strings.ReplaceAll(tok, ",", "")
		switch n := strings.Count(s, "."); {
		case n > 1:
			s = strings.ReplaceAll(s, ".", "")
		case n == 1 && !hadComma && len(s)-strings.Index(s, ".")-1 == 3:
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseRating reads the first decimal number in raw, accepting a decimal
// comma ("4,6 de 5 estrellas" is 4.6).
func ParseRating(raw string) (float64, bool) {
	tok := ratingToken.FindString(raw)
	if tok == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.Replace(tok, ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseCount reads the first number in raw with every separator removed
// ("1.234 valoraciones" is 1234).
func ParseCount(raw string) (int, bool) {
	tok := firstNumber(raw)
	if tok == "" {
		return 0, false
	}
	tok = strings.NewReplacer(".", "", ",", "").Replace(tok)
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, false
	}
	return n, true
}

// firstNumber returns the first digit run of raw with its separators. A
// plain digit run continues across one space, NBSP or narrow NBSP when the
// next group is exactly three digits, so "1 234,56" reads as one token but
// "2 12,34" does not.
func firstNumber(raw string) string {
	loc := numberToken.FindStringIndex(raw)
	if loc == nil {
		return ""
	}
	tok, rest := raw[loc[0]:loc[1]], raw[loc[1]:]
	for isDigits(tok) {
		m := spacedGroup.FindStringSubmatch(rest)
		if m == nil || len(m[1]) != 3 {
			break
		}
		tok += m[1] + m[2]
		rest = rest[len(m[0]):]
	}
	return strings.TrimRight(tok, ".,")
}

func isDigits(s string) bool {
	return s != "" && strings.Trim(s, "0123456789") == ""
}

// Normalizer converts raw field text into display strings and numbers.
// A zero Normalizer formats numbers in English without a currency.
type Normalizer struct {
	Locale   language.Tag
	Currency string
}

// NewNormalizer returns a Normalizer for a BCP 47 locale such as "es-ES".
func NewNormalizer(locale, currency string) (*Normalizer, error) {
	n := &Normalizer{Locale: language.English, Currency: currency}
	if locale != "" {
		tag, err := language.Parse(locale)
		if err != nil {
			return nil, Errorf(EINVALID, "invalid locale %q", locale)
		}
		n.Locale = tag
	}
	return n, nil
}

// Price returns the display text and numeric value of a raw price.
// On parse failure the trimmed raw text is kept for display and num is 0.
func (n *Normalizer) Price(raw string) (display string, num float64) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == Unknown {
		return Unknown, 0
	}
	v, ok := ParsePrice(raw)
	if !ok || v <= 0 {
		return raw, 0
	}
	return n.FormatPrice(v), v
}

// FormatPrice renders v with the locale's separators and the currency code.
func (n *Normalizer) FormatPrice(v float64) string {
	p := message.NewPrinter(n.Locale)
	if n.Currency == "" {
		return p.Sprintf("%.2f", v)
	}
	return p.Sprintf("%.2f %s", v, n.Currency)
}

// Rating returns the display text and numeric value of a raw rating.
func (n *Normalizer) Rating(raw string) (display string, num float64) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == Unknown {
		return Unknown, 0
	}
	v, ok := ParseRating(raw)
	if !ok {
		return raw, 0
	}
	return raw, v
}

// Count returns the numeric value of a raw count, 0 when absent.
func (n *Normalizer) Count(raw string) int {
	if raw == Unknown {
		return 0
	}
	v, _ := ParseCount(raw)
	return v
}
