package dag

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNoCommonAncestor is returned when two commits share no history.
var ErrNoCommonAncestor = errors.New("no common ancestor")

// Entry pairs a commit with its hash.
type Entry struct {
	Hash   Hash
	Commit *Commit
}

// Graph answers ancestry questions over the commits in an ObjectStore.
// Parent references are hashes, so every walk keeps a visited set and
// terminates even if stored data were to contain a cycle.
type Graph struct {
	store *ObjectStore
}

// NewGraph returns a Graph over store.
func NewGraph(store *ObjectStore) *Graph {
	return &Graph{store: store}
}

// Log walks the first-parent chain from start, newest first, until the root
// or until limit entries have been collected (limit <= 0 means no limit).
func (g *Graph) Log(start Hash, limit int) ([]Entry, error) {
	var entries []Entry
	seen := make(map[Hash]bool)
	for current := start; current != "" && !seen[current]; {
		if limit > 0 && len(entries) >= limit {
			break
		}
		seen[current] = true
		c, err := g.store.GetCommit(current)
		if err != nil {
			return entries, err
		}
		entries = append(entries, Entry{Hash: current, Commit: c})
		current = c.FirstParent()
	}
	return entries, nil
}

// Ancestors returns every commit reachable from start (start included),
// mapped to its breadth-first distance from start.
func (g *Graph) Ancestors(start Hash) (map[Hash]int, error) {
	dist := map[Hash]int{start: 0}
	queue := []Hash{start}
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		c, err := g.store.GetCommit(h)
		if err != nil {
			return nil, err
		}
		for _, p := range c.Parents {
			if _, seen := dist[p]; !seen {
				dist[p] = dist[h] + 1
				queue = append(queue, p)
			}
		}
	}
	return dist, nil
}

// IsAncestor reports whether anc is reachable from desc (a commit is its own ancestor).
func (g *Graph) IsAncestor(anc, desc Hash) (bool, error) {
	ancestors, err := g.Ancestors(desc)
	if err != nil {
		return false, err
	}
	_, ok := ancestors[anc]
	return ok, nil
}

// MergeBase returns the best common ancestor of current and given: a common
// ancestor that is not itself an ancestor of another common ancestor.
// When several qualify (criss-cross histories) the one nearest to current
// wins, then the most recent, then the smallest hash.
func (g *Graph) MergeBase(current, given Hash) (Hash, error) {
	fromCurrent, err := g.Ancestors(current)
	if err != nil {
		return "", err
	}
	fromGiven, err := g.Ancestors(given)
	if err != nil {
		return "", err
	}

	var common []Hash
	for h := range fromCurrent {
		if _, ok := fromGiven[h]; ok {
			common = append(common, h)
		}
	}
	if len(common) == 0 {
		return "", fmt.Errorf("%w: %s and %s", ErrNoCommonAncestor, current.Short(), given.Short())
	}

	// Mark every proper ancestor of a common ancestor as dominated.
	dominated := make(map[Hash]bool)
	for _, h := range common {
		c, err := g.store.GetCommit(h)
		if err != nil {
			return "", err
		}
		stack := append([]Hash{}, c.Parents...)
		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if dominated[p] {
				continue
			}
			dominated[p] = true
			pc, err := g.store.GetCommit(p)
			if err != nil {
				return "", err
			}
			stack = append(stack, pc.Parents...)
		}
	}

	var best []Entry
	for _, h := range common {
		if dominated[h] {
			continue
		}
		c, err := g.store.GetCommit(h)
		if err != nil {
			return "", err
		}
		best = append(best, Entry{Hash: h, Commit: c})
	}
	sort.Slice(best, func(i, j int) bool {
		di, dj := fromCurrent[best[i].Hash], fromCurrent[best[j].Hash]
		if di != dj {
			return di < dj
		}
		if best[i].Commit.Timestamp != best[j].Commit.Timestamp {
			return best[i].Commit.Timestamp > best[j].Commit.Timestamp
		}
		return best[i].Hash < best[j].Hash
	})
	return best[0].Hash, nil
}

// Future returns the commits reachable from head that are strict descendants
// of base, parents before children. It is empty when head == base or when
// base is not an ancestor of head.
func (g *Graph) Future(head, base Hash) ([]Hash, error) {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[Hash]int)
	reaches := make(map[Hash]bool)
	var order []Hash

	var visit func(h Hash) (bool, error)
	visit = func(h Hash) (bool, error) {
		if h == base {
			return true, nil
		}
		switch state[h] {
		case done:
			return reaches[h], nil
		case visiting:
			return false, nil // cycle in corrupted data
		}
		state[h] = visiting
		c, err := g.store.GetCommit(h)
		if errors.Is(err, ErrObjectNotFound) {
			state[h] = done
			return false, nil
		}
		if err != nil {
			return false, err
		}
		r := false
		for _, p := range c.Parents {
			pr, err := visit(p)
			if err != nil {
				return false, err
			}
			r = r || pr
		}
		state[h] = done
		reaches[h] = r
		if r {
			order = append(order, h)
		}
		return r, nil
	}

	if _, err := visit(head); err != nil {
		return nil, err
	}
	return order, nil
}

// Reachable returns start and all of its ancestors, parents before children.
func (g *Graph) Reachable(start Hash) ([]Hash, error) {
	seen := make(map[Hash]bool)
	var order []Hash

	var visit func(h Hash) error
	visit = func(h Hash) error {
		if seen[h] {
			return nil
		}
		seen[h] = true
		c, err := g.store.GetCommit(h)
		if err != nil {
			return err
		}
		for _, p := range c.Parents {
			if err := visit(p); err != nil {
				return err
			}
		}
		order = append(order, h)
		return nil
	}

	if err := visit(start); err != nil {
		return nil, err
	}
	return order, nil
}
