package employee

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeValue applies the light clean-up done on interactive edits: names are title cased,
// email and status lowercased, everything else trimmed.
func NormalizeValue(f Field, v string) string {
	v = strings.TrimSpace(v)
	switch f {
	case FieldName:
		return cases.Title(language.English).String(strings.Join(strings.Fields(v), " "))
	case FieldEmail, FieldStatus:
		return strings.ToLower(v)
	default:
		return v
	}
}
