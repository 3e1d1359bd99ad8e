package asset

import "regexp"

// serialPattern is 7 to 9 digits without a leading zero.
var serialPattern = regexp.MustCompile(`[1-9][0-9]{6,8}`)

// ExtractSerial returns the first serial-shaped substring of a barcode.
func ExtractSerial(raw string) (string, bool) {
	m := serialPattern.FindString(raw)
	return m, m != ""
}

// NormalizeSerial returns the canonical serial for a scanned barcode, or the
// input unchanged when it holds nothing serial-shaped.
func NormalizeSerial(raw string) string {
	if s, ok := ExtractSerial(raw); ok {
		return s
	}
	return raw
}
