package sync

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrMissingIdentity is returned when the mandatory identity attribute is
// empty after mapping. Callers surface it as a validation problem instead of
// silently producing an unusable record.
var ErrMissingIdentity = errors.New("mapped record has empty identity attribute")

// tokenPattern matches template tokens of the form %column% or
// %column:modifier%.
var tokenPattern = regexp.MustCompile(`%([^%:]+)(?::(uppercase|lowercase|first))?%`)

// AttributeTemplate binds one target attribute to a template string. Tokens
// reference source columns; surrounding text is literal.
type AttributeTemplate struct {
	// Attribute is the target attribute name.
	Attribute string

	// Template is the template string, e.g. "%firstname:first%%lastname%".
	Template string
}

// MapperConfig describes how source rows map onto directory attributes.
type MapperConfig struct {
	// Templates is the ordered column-to-attribute mapping.
	Templates []AttributeTemplate

	// IdentityAttribute is the mandatory attribute carrying the entity
	// identifier. Empty after mapping is a validation error.
	IdentityAttribute string

	// IdentifierAttributes are normalized as identifiers: diacritics
	// stripped, lower-cased, spaces removed.
	IdentifierAttributes []string

	// DisplayAttributes are title-cased.
	DisplayAttributes []string

	// ContactAttributes are lower-cased.
	ContactAttributes []string
}

// Mapper performs the template-based column-to-attribute transformation.
// Mapping is pure: identical row and templates always yield the identical
// record, and missing columns render empty rather than failing.
type Mapper struct {
	templates   []AttributeTemplate
	identity    string
	identifiers map[string]struct{}
	displays    map[string]struct{}
	contacts    map[string]struct{}
}

// NewMapper creates a mapper from the given configuration.
func NewMapper(cfg MapperConfig) *Mapper {
	return &Mapper{
		templates:   cfg.Templates,
		identity:    canonicalAttr(cfg.IdentityAttribute),
		identifiers: attrSet(cfg.IdentifierAttributes),
		displays:    attrSet(cfg.DisplayAttributes),
		contacts:    attrSet(cfg.ContactAttributes),
	}
}

// IdentityAttribute returns the canonical name of the mandatory identity
// attribute.
func (m *Mapper) IdentityAttribute() string {
	return m.identity
}

// Map transforms one source row into a normalized record. It returns
// ErrMissingIdentity (wrapped) when the identity attribute renders empty; the
// partially mapped record is still returned for diagnosis.
func (m *Mapper) Map(row SourceRow) (Record, error) {
	rec := NewRecord()
	for _, t := range m.templates {
		attr := canonicalAttr(t.Attribute)
		value := m.render(t.Template, row)

		switch {
		case m.has(m.identifiers, attr):
			value = NormalizeIdentifier(value)
		case m.has(m.displays, attr):
			value = titleCase(value)
		case m.has(m.contacts, attr):
			value = strings.ToLower(value)
		}
		rec.Set(attr, value)
	}

	if m.identity != "" && rec.Get(m.identity) == "" {
		return rec, fmt.Errorf("%w: %q", ErrMissingIdentity, m.identity)
	}
	return rec, nil
}

// render substitutes every token in the template with the row value and trims
// the result. Unknown columns render as empty.
func (m *Mapper) render(template string, row SourceRow) string {
	out := tokenPattern.ReplaceAllStringFunc(template, func(token string) string {
		groups := tokenPattern.FindStringSubmatch(token)
		value, _ := row.Lookup(strings.TrimSpace(groups[1]))
		switch groups[2] {
		case "uppercase":
			value = strings.ToUpper(value)
		case "lowercase":
			value = strings.ToLower(value)
		case "first":
			value = firstRune(value)
		}
		return value
	})
	return strings.TrimSpace(out)
}

func (m *Mapper) has(set map[string]struct{}, attr string) bool {
	_, ok := set[attr]
	return ok
}

func attrSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[canonicalAttr(n)] = struct{}{}
	}
	return set
}

func firstRune(s string) string {
	for _, r := range s {
		return string(r)
	}
	return ""
}

// NormalizeIdentifier strips diacritics, lower-cases and removes all spaces,
// producing a stable login-safe identifier.
func NormalizeIdentifier(s string) string {
	// Transformers carry internal buffers, so build a fresh chain per call;
	// mapping must stay safe under parallel planning.
	remover := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(remover, s)
	if err != nil {
		stripped = s
	}
	stripped = strings.ToLower(stripped)
	return strings.Join(strings.Fields(stripped), "")
}

// titleCase renders a display-name-like value in title case.
func titleCase(s string) string {
	return cases.Title(language.Und).String(strings.ToLower(s))
}
