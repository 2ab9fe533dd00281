package scrape

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	priceChars = regexp.MustCompile(`[^\d,.]`)
	spaceRuns  = regexp.MustCompile(`\s+`)
)

// CleanText collapses whitespace in extracted element text.
func CleanText(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	return spaceRuns.ReplaceAllString(s, " ")
}

// NormalizePrice parses a raw price string into a positive float.
//
// Brazilian formatting is the canonical rule: comma is the decimal
// separator and periods are thousands separators ("R$ 1.234,56" -> 1234.56).
// Machine-formatted inputs without a comma fall under a best-effort
// secondary rule: a final period followed by one or two digits is treated
// as the decimal point ("199.90" -> 199.9, "1.234" -> 1234). When both
// separators appear, the rightmost one is the decimal separator, which also
// accepts American-formatted "1,234.56".
func NormalizePrice(raw string) (float64, bool) {
	cleaned := priceChars.ReplaceAllString(raw, "")
	if cleaned == "" {
		return 0, false
	}

	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")

	var normalized string
	switch {
	case lastComma >= 0 && lastDot > lastComma:
		// American format slipped through: periods after the comma win.
		normalized = strings.ReplaceAll(cleaned, ",", "")
	case lastComma >= 0:
		normalized = strings.ReplaceAll(cleaned, ".", "")
		normalized = strings.Replace(normalized, ",", ".", 1)
		// A second comma means the string was garbage.
		if strings.Contains(normalized, ",") {
			return 0, false
		}
	case lastDot >= 0:
		decimals := len(cleaned) - lastDot - 1
		if decimals >= 1 && decimals <= 2 && strings.Count(cleaned, ".") >= 1 {
			intPart := strings.ReplaceAll(cleaned[:lastDot], ".", "")
			normalized = intPart + "." + cleaned[lastDot+1:]
		} else {
			normalized = strings.ReplaceAll(cleaned, ".", "")
		}
	default:
		normalized = cleaned
	}

	price, err := strconv.ParseFloat(normalized, 64)
	if err != nil || price <= 0 {
		return 0, false
	}
	return price, true
}
