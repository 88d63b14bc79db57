package dag

import (
	"sort"
	"strings"
	"sync"
	"unicode"
)

// MessageIndex is an in-memory index over commit messages: exact-message
// lookup for find, and an inverted term index for ranked search.
type MessageIndex struct {
	mu      sync.RWMutex
	exact   map[string][]Hash        // message -> commits, in insertion order
	terms   map[string]map[Hash]bool // term -> set of commits
	commits map[Hash]int64           // commit -> timestamp
}

// NewMessageIndex creates an empty MessageIndex.
func NewMessageIndex() *MessageIndex {
	return &MessageIndex{
		exact:   make(map[string][]Hash),
		terms:   make(map[string]map[Hash]bool),
		commits: make(map[Hash]int64),
	}
}

// BuildMessageIndex indexes every commit in store, in store order.
func BuildMessageIndex(store *ObjectStore) (*MessageIndex, error) {
	hashes, err := store.Commits()
	if err != nil {
		return nil, err
	}
	idx := NewMessageIndex()
	for _, h := range hashes {
		c, err := store.GetCommit(h)
		if err != nil {
			return nil, err
		}
		idx.Add(h, c)
	}
	return idx, nil
}

// tokenize splits text into lowercase terms.
func tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool)
	var result []string
	for _, w := range words {
		if len(w) < 2 || seen[w] {
			continue
		}
		seen[w] = true
		result = append(result, w)
	}
	return result
}

// Add indexes a commit.
func (idx *MessageIndex) Add(h Hash, c *Commit) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.commits[h]; ok {
		return
	}
	idx.commits[h] = c.Timestamp
	idx.exact[c.Message] = append(idx.exact[c.Message], h)
	for _, term := range tokenize(c.Message) {
		if idx.terms[term] == nil {
			idx.terms[term] = make(map[Hash]bool)
		}
		idx.terms[term][h] = true
	}
}

// Exact returns the commits whose message equals message.
func (idx *MessageIndex) Exact(message string) []Hash {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return append([]Hash(nil), idx.exact[message]...)
}

// Search returns commits ranked by the number of query terms their message
// contains, newest first among equal scores.
func (idx *MessageIndex) Search(query string, limit int) []Hash {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	terms := tokenize(query)
	if len(terms) == 0 {
		return nil
	}

	scores := make(map[Hash]int)
	for _, term := range terms {
		for h := range idx.terms[term] {
			scores[h]++
		}
	}

	type scored struct {
		hash  Hash
		score int
		ts    int64
	}
	results := make([]scored, 0, len(scores))
	for h, score := range scores {
		results = append(results, scored{h, score, idx.commits[h]})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		if results[i].ts != results[j].ts {
			return results[i].ts > results[j].ts
		}
		return results[i].hash < results[j].hash
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	hashes := make([]Hash, len(results))
	for i, r := range results {
		hashes[i] = r.hash
	}
	return hashes
}
