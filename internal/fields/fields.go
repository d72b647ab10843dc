// Package fields parses the date and amount strings found in OCR'd
// statement cells.
package fields

import "strings"

// clean trims whitespace and any surrounding quote characters.
func clean(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `'"`)
	return strings.TrimSpace(s)
}
