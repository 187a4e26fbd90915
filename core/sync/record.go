package sync

import "strings"

// Record is a normalized attribute map. Keys are case-folded to lower case at
// insertion, so lookups never depend on ambient casing.
type Record map[string]string

// NewRecord creates an empty record.
func NewRecord() Record {
	return make(Record)
}

// Set stores an attribute value under the canonical (lower-cased, trimmed)
// attribute name.
func (r Record) Set(name, value string) {
	r[canonicalAttr(name)] = value
}

// Get returns the attribute value, or "" when absent.
func (r Record) Get(name string) string {
	return r[canonicalAttr(name)]
}

// Has reports whether the attribute is present, even with an empty value.
func (r Record) Has(name string) bool {
	_, ok := r[canonicalAttr(name)]
	return ok
}

// Clone returns an independent copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func canonicalAttr(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
