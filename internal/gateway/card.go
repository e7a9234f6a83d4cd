package gateway

import "regexp"

// The gateway does not report card brands back to us, so we detect them from
// the number at profile creation time.

var nonDigits = regexp.MustCompile(`[^\d]`)

var brandPatterns = []struct {
	brand   string
	pattern *regexp.Regexp
}{
	{"American Express", regexp.MustCompile(`^3[47][0-9]{13}$`)},
	{"Diners Club", regexp.MustCompile(`^3(?:0[0-5]|[68][0-9])[0-9]{11}$`)},
	{"Discover", regexp.MustCompile(`^6(?:011|5[0-9][0-9])[0-9]{12}$`)},
	{"JCB", regexp.MustCompile(`^(?:2131|1800|35\d{3})\d{11}$`)},
	{"MasterCard", regexp.MustCompile(`^5[1-5][0-9]{14}$`)},
	{"Visa", regexp.MustCompile(`^4[0-9]{12}(?:[0-9]{3})?$`)},
}

// DetectCardBrand returns the card brand for a number, or "Unknown".
func DetectCardBrand(number string) string {
	digits := nonDigits.ReplaceAllString(number, "")
	for _, candidate := range brandPatterns {
		if candidate.pattern.MatchString(digits) {
			return candidate.brand
		}
	}
	return "Unknown"
}

// LastFour returns the last four digits of a card number.
func LastFour(number string) string {
	digits := nonDigits.ReplaceAllString(number, "")
	if len(digits) < 4 {
		return digits
	}
	return digits[len(digits)-4:]
}
