package shared

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeCode trims a business code, joins inner whitespace with dashes and
// upper-cases it so codes compare equal regardless of how they were typed.
func NormalizeCode(code string) string {
	fields := strings.Fields(code)
	if len(fields) == 0 {
		return ""
	}
	return cases.Upper(language.Und).String(strings.Join(fields, "-"))
}
