package sync

import "strings"

// containerMarker is the hierarchy-level marker in qualified paths.
const containerMarker = "ou="

// Path is an ordered, root-relative container path. Containers are stored
// leaf-first; Root is the suffix the path is anchored to.
type Path struct {
	// Containers holds the container names, leaf first.
	Containers []string

	// Root is the path suffix, e.g. "OU=People,DC=example,DC=org".
	Root string
}

// BuildPath converts a raw hierarchical location value into a canonical
// container path. It is pure and idempotent on its own canonical output.
//
// A value that already looks fully qualified (contains hierarchy-level
// markers) keeps only its hierarchy components, verbatim and in order.
// Otherwise the value is split on "/" or "\", each segment is one container
// level ordered leaf to root (the reverse of the split order), and the
// default root is appended. Empty input yields the default root alone.
func BuildPath(raw, defaultRoot string) Path {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Path{Root: defaultRoot}
	}

	if isQualified(raw) {
		// Strip the default root suffix first so re-parsing a rendered path
		// never duplicates the root's own hierarchy components.
		root := strings.TrimSpace(defaultRoot)
		if root != "" {
			if pathsEqual(raw, root) {
				return Path{Root: defaultRoot}
			}
			if len(raw) > len(root) && strings.EqualFold(raw[len(raw)-len(root):], root) {
				raw = strings.TrimRight(strings.TrimSpace(raw[:len(raw)-len(root)]), ",")
			}
		}

		var containers []string
		for _, comp := range strings.Split(raw, ",") {
			comp = strings.TrimSpace(comp)
			if len(comp) > len(containerMarker) && strings.EqualFold(comp[:len(containerMarker)], containerMarker) {
				containers = append(containers, strings.TrimSpace(comp[len(containerMarker):]))
			}
		}
		return Path{Containers: containers, Root: defaultRoot}
	}

	segments := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '/' || r == '\\'
	})
	var containers []string
	for i := len(segments) - 1; i >= 0; i-- {
		seg := strings.TrimSpace(segments[i])
		if seg != "" {
			containers = append(containers, seg)
		}
	}
	return Path{Containers: containers, Root: defaultRoot}
}

// isQualified reports whether the raw value already carries hierarchy-level
// markers.
func isQualified(raw string) bool {
	return strings.Contains(strings.ToLower(raw), containerMarker)
}

// DN renders the canonical string form: one "OU=" component per container,
// leaf first, followed by the root.
func (p Path) DN() string {
	parts := make([]string, 0, len(p.Containers)+1)
	for _, c := range p.Containers {
		parts = append(parts, "OU="+c)
	}
	if p.Root != "" {
		parts = append(parts, p.Root)
	}
	return strings.Join(parts, ",")
}

// Leaf returns the leaf container name, or "" when the path is the bare root.
func (p Path) Leaf() string {
	if len(p.Containers) == 0 {
		return ""
	}
	return p.Containers[0]
}

// Depth returns the number of container levels above the root.
func (p Path) Depth() int {
	return len(p.Containers)
}

// pathDepth counts the hierarchy components in a rendered path, used to order
// cleanup candidates deepest first.
func pathDepth(dn string) int {
	depth := 0
	for _, comp := range strings.Split(dn, ",") {
		comp = strings.TrimSpace(comp)
		if len(comp) > len(containerMarker) && strings.EqualFold(comp[:len(containerMarker)], containerMarker) {
			depth++
		}
	}
	return depth
}

// leafName returns the value of the first hierarchy component of a rendered
// path, or "" when there is none.
func leafName(dn string) string {
	for _, comp := range strings.Split(dn, ",") {
		comp = strings.TrimSpace(comp)
		if len(comp) > len(containerMarker) && strings.EqualFold(comp[:len(containerMarker)], containerMarker) {
			return strings.TrimSpace(comp[len(containerMarker):])
		}
	}
	return ""
}

// pathsEqual compares rendered paths ignoring case.
func pathsEqual(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
