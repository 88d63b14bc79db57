package dag

import "sort"

// Changes lists the paths that differ between two manifests, each sorted.
type Changes struct {
	Added    []string
	Modified []string
	Removed  []string
}

// Empty reports whether no path changed.
func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Modified) == 0 && len(c.Removed) == 0
}

// DiffManifests compares two manifests (from is the older side).
func DiffManifests(from, to map[string]Hash) Changes {
	var ch Changes
	for path, h := range to {
		old, ok := from[path]
		switch {
		case !ok:
			ch.Added = append(ch.Added, path)
		case old != h:
			ch.Modified = append(ch.Modified, path)
		}
	}
	for path := range from {
		if _, ok := to[path]; !ok {
			ch.Removed = append(ch.Removed, path)
		}
	}
	sort.Strings(ch.Added)
	sort.Strings(ch.Modified)
	sort.Strings(ch.Removed)
	return ch
}

// UnionPaths returns every path present in any of the manifests, sorted.
func UnionPaths(manifests ...map[string]Hash) []string {
	seen := make(map[string]bool)
	for _, m := range manifests {
		for path := range m {
			seen[path] = true
		}
	}
	paths := make([]string, 0, len(seen))
	for path := range seen {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
