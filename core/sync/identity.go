package sync

import (
	"errors"
	"strconv"
	"strings"
)

// Disambiguator detects natural-key collisions within one batch and rewrites
// the colliding source rows so the disambiguation propagates to every derived
// attribute. It runs once, before per-row attribute finalization, over the
// full ordered row set, and its output is reproducible given the same input
// order.
type Disambiguator struct {
	mapper          *Mapper
	firstNameColumn string
	lastNameColumn  string
	maxLen          int
}

// DisambiguationResult is the output of one disambiguation pass.
type DisambiguationResult struct {
	// Rows is the (possibly mutated) row collection, same order as input.
	Rows []SourceRow

	// Identifiers maps row index to the final identifier. Rows whose
	// identity could not be resolved map to "".
	Identifiers map[int]string
}

// NewDisambiguator creates a disambiguator deriving identifiers through the
// given mapper. maxLen caps identifier length; zero or negative disables the
// cap.
func NewDisambiguator(mapper *Mapper, firstNameColumn, lastNameColumn string, maxLen int) *Disambiguator {
	return &Disambiguator{
		mapper:          mapper,
		firstNameColumn: firstNameColumn,
		lastNameColumn:  lastNameColumn,
		maxLen:          maxLen,
	}
}

// Run processes the ordered row set. The first occurrence of a natural key
// keeps its row unmodified; later occurrences get a strictly increasing
// numeric suffix appended to the last-name source field, and every
// identity-bearing attribute is re-derived from the mutated row. When a
// generated identifier would exceed the configured maximum length, the base
// is truncated before the suffix and the result is re-checked against all
// identifiers issued so far.
func (d *Disambiguator) Run(rows []SourceRow) *DisambiguationResult {
	result := &DisambiguationResult{
		Rows:        make([]SourceRow, len(rows)),
		Identifiers: make(map[int]string, len(rows)),
	}

	occurrences := make(map[string]int)
	used := make(map[string]struct{})

	for i, row := range rows {
		mutated := row.Clone()

		first, _ := row.Lookup(d.firstNameColumn)
		last, _ := row.Lookup(d.lastNameColumn)
		naturalKey := NormalizeIdentifier(first) + "|" + NormalizeIdentifier(last)

		id, ok := d.deriveOnce(row, mutated, last, naturalKey, occurrences)
		if !ok {
			result.Rows[i] = mutated
			result.Identifiers[i] = ""
			continue
		}

		// A truncated identifier can still collide with one issued earlier;
		// keep bumping the suffix until it is unique. Once the suffix no
		// longer fits inside the length cap, truncation yields the same
		// string on every attempt; that row's identity is unresolvable.
		for {
			if _, taken := used[id]; !taken {
				break
			}
			prev := id
			mutated = row.Clone()
			id, ok = d.deriveOnce(row, mutated, last, naturalKey, occurrences)
			if !ok {
				break
			}
			if id == prev {
				id = ""
				break
			}
		}

		if id != "" {
			used[id] = struct{}{}
		}
		result.Rows[i] = mutated
		result.Identifiers[i] = id
	}

	return result
}

// deriveOnce consumes one occurrence of the natural key, mutates the row when
// a suffix is needed, and derives the identifier through the mapper so every
// identity-bearing attribute comes from the mutated source fields.
func (d *Disambiguator) deriveOnce(original, mutated SourceRow, last, naturalKey string, occurrences map[string]int) (string, bool) {
	n := occurrences[naturalKey]
	occurrences[naturalKey] = n + 1

	suffix := ""
	if n > 0 {
		suffix = strconv.Itoa(n + 1)
		mutated.Set(d.lastNameColumn, last+suffix)
	}

	rec, err := d.mapper.Map(mutated)
	if err != nil && errors.Is(err, ErrMissingIdentity) {
		return "", false
	}

	id := rec.Get(d.mapper.IdentityAttribute())
	if d.maxLen > 0 && len(id) > d.maxLen {
		// The planner reads the final identifier from the resolution map,
		// so truncation here reaches every consumer.
		id = truncateIdentifier(id, suffix, d.maxLen)
	}
	return id, id != ""
}

// truncateIdentifier shortens the identifier base while keeping the
// disambiguation suffix intact at the end.
func truncateIdentifier(id, suffix string, maxLen int) string {
	if suffix != "" && strings.HasSuffix(id, suffix) && maxLen > len(suffix) {
		return id[:maxLen-len(suffix)] + suffix
	}
	return id[:maxLen]
}
