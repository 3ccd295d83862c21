package employee

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

type MatchKind string

const (
	MatchExact    MatchKind = "exact"
	MatchContains MatchKind = "contains"
	MatchPrefix   MatchKind = "prefix"
)

const (
	StatusMapped           = "✓ Mapped"
	StatusNotFound         = "✗ Not found"
	StatusNotFoundOptional = "✗ Not found (optional)"
)

const (
	prefixLen      = 3
	maxSuggestions = 3
)

// NormalizeHeader lowercases h and drops everything outside [a-z0-9].
func NormalizeHeader(h string) string {
	var b strings.Builder
	b.Grow(len(h))
	for _, r := range strings.ToLower(h) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

type normalizedField struct {
	CanonicalField
	normalized []string
}

var normalizedFields = func() []normalizedField {
	out := make([]normalizedField, len(CanonicalFields))
	for i, f := range CanonicalFields {
		vs := make([]string, 0, len(f.Variants))
		for _, v := range f.Variants {
			if n := NormalizeHeader(v); n != "" {
				vs = append(vs, n)
			}
		}
		out[i] = normalizedField{CanonicalField: f, normalized: vs}
	}
	return out
}()

type matcher func(header, variant string) bool

func exactMatch(header, variant string) bool {
	return header == variant
}

func containsMatch(header, variant string) bool {
	return strings.Contains(header, variant) || strings.Contains(variant, header)
}

func prefixMatch(header, variant string) bool {
	if len(header) < prefixLen || len(variant) < prefixLen {
		return false
	}
	return strings.Contains(variant, header[:prefixLen]) || strings.Contains(header, variant[:prefixLen])
}

var passes = []struct {
	kind  MatchKind
	match matcher
}{
	{MatchExact, exactMatch},
	{MatchContains, containsMatch},
	{MatchPrefix, prefixMatch},
}

type headerMatch struct {
	index int
	kind  MatchKind
}

// findColumn runs the three passes for one field. Within a pass the first column (sheet order)
// that matches any variant wins. Columns whose header normalizes to "" never match, and columns
// reserved by an exact hit on some field are only visible to the exact pass.
func findColumn(f normalizedField, headers []string, reserved []bool) (headerMatch, bool) {
	for _, pass := range passes {
		for i, h := range headers {
			if h == "" || (reserved[i] && pass.kind != MatchExact) {
				continue
			}
			for _, v := range f.normalized {
				if pass.match(h, v) {
					return headerMatch{index: i, kind: pass.kind}, true
				}
			}
		}
	}
	return headerMatch{}, false
}

var exactVariants = func() map[string]bool {
	out := make(map[string]bool)
	for _, f := range normalizedFields {
		for _, v := range f.normalized {
			out[v] = true
		}
	}
	return out
}()

// FieldMapping is one line of a MappingReport.
type FieldMapping struct {
	Field    Field     `json:"field"`
	Label    string    `json:"label"`
	Required bool      `json:"required"`
	Status   string    `json:"status"`
	Header   string    `json:"header,omitempty"`
	Match    MatchKind `json:"match,omitempty"`
}

func (m FieldMapping) Mapped() bool {
	return m.Header != ""
}

// UnmappedHeader is a sheet column no canonical field claimed.
type UnmappedHeader struct {
	Header      string  `json:"header"`
	Suggestions []Field `json:"suggestions,omitempty"`
}

type MappingReport struct {
	Fields   []FieldMapping   `json:"fields"`
	Unmapped []UnmappedHeader `json:"unmapped,omitempty"`
}

func (r MappingReport) Status(f Field) string {
	for _, m := range r.Fields {
		if m.Field == f {
			return m.Status
		}
	}
	return ""
}

// MissingRequired lists required fields no column was found for.
func (r MappingReport) MissingRequired() []Field {
	var out []Field
	for _, m := range r.Fields {
		if m.Required && !m.Mapped() {
			out = append(out, m.Field)
		}
	}
	return out
}

// MapHeaders maps row onto the canonical fields. Fields without a matching column take their
// default. Apart from exact reservations a column may feed more than one field.
func MapHeaders(row RawRow) (Record, MappingReport) {
	headers := make([]string, len(row))
	reserved := make([]bool, len(row))
	for i, c := range row {
		headers[i] = NormalizeHeader(c.Header)
		reserved[i] = exactVariants[headers[i]]
	}

	var rec Record
	report := MappingReport{Fields: make([]FieldMapping, 0, len(normalizedFields))}
	consumed := make([]bool, len(row))

	for _, f := range normalizedFields {
		entry := FieldMapping{Field: f.Field, Label: f.Label, Required: f.Required}
		value := f.Default

		if m, ok := findColumn(f, headers, reserved); ok {
			consumed[m.index] = true
			value = strings.TrimSpace(row[m.index].Value)
			entry.Status = StatusMapped
			entry.Header = row[m.index].Header
			entry.Match = m.kind
		} else if f.Required {
			entry.Status = StatusNotFound
		} else {
			entry.Status = StatusNotFoundOptional
		}

		rec.Set(f.Field, value)
		report.Fields = append(report.Fields, entry)
	}

	for i, c := range row {
		if consumed[i] || headers[i] == "" {
			continue
		}
		report.Unmapped = append(report.Unmapped, UnmappedHeader{
			Header:      c.Header,
			Suggestions: suggestFields(headers[i]),
		})
	}
	return rec, report
}

var variantIndex = func() ([]string, []Field) {
	var variants []string
	var owners []Field
	for _, f := range normalizedFields {
		for _, v := range f.normalized {
			variants = append(variants, v)
			owners = append(owners, f.Field)
		}
	}
	return variants, owners
}

// suggestFields ranks canonical fields whose variants fuzzily contain the header.
func suggestFields(normalized string) []Field {
	variants, owners := variantIndex()
	ranks := fuzzy.RankFindNormalizedFold(normalized, variants)
	sort.Sort(ranks)

	seen := make(map[Field]bool)
	var out []Field
	for _, r := range ranks {
		f := owners[r.OriginalIndex]
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}
