package stepsheet

import (
	"regexp"
)

var sheetIDPattern = regexp.MustCompile(`/stepsheets/(\d+)(?:[/?#]|$)`)

// SheetID returns the numeric stepsheet id from a URL such as
// https://www.copperknob.co.uk/stepsheets/34792/power-jam, or "".
func SheetID(rawURL string) string {
	if m := sheetIDPattern.FindStringSubmatch(rawURL); m != nil {
		return m[1]
	}
	return ""
}
