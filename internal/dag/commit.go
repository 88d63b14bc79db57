package dag

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
	"unicode/utf8"
)

// ErrInvalidUTF8 is returned when a commit message or manifest path is not
// valid UTF-8. JSON would replace the offending bytes, so distinct commits
// could encode identically.
var ErrInvalidUTF8 = errors.New("not valid UTF-8")

// CommitVersion is the encoding version stamped on every commit.
const CommitVersion = 1

// RootMessage is the message of the root commit every repository starts from.
const RootMessage = "initial commit"

// Commit is an immutable snapshot: message, timestamp, ordered parents, and a
// path -> blob manifest. Serialized via CanonicalJSON and stored under its hash.
type Commit struct {
	V         int             `json:"v"`
	Message   string          `json:"message"`
	Timestamp int64           `json:"timestamp"` // epoch seconds
	Parents   []Hash          `json:"parents"`   // first parent is the mainline
	Files     map[string]Hash `json:"files"`
}

// RootCommit returns the fixed root commit. Its hash is identical in every repository.
func RootCommit() *Commit {
	return &Commit{
		V:         CommitVersion,
		Message:   RootMessage,
		Timestamp: 0,
		Parents:   []Hash{},
		Files:     map[string]Hash{},
	}
}

// RootHash is the hash of RootCommit.
func RootHash() Hash {
	h, err := RootCommit().Hash()
	if err != nil {
		panic(err)
	}
	return h
}

// Encode returns the canonical serialization. Nil parents and manifest encode
// as empty values so the same logical commit always yields the same bytes.
func (c *Commit) Encode() ([]byte, error) {
	if !utf8.ValidString(c.Message) {
		return nil, fmt.Errorf("message: %w", ErrInvalidUTF8)
	}
	for p := range c.Files {
		if !utf8.ValidString(p) {
			return nil, fmt.Errorf("path %q: %w", p, ErrInvalidUTF8)
		}
	}
	norm := *c
	if norm.V == 0 {
		norm.V = CommitVersion
	}
	if norm.Parents == nil {
		norm.Parents = []Hash{}
	}
	if norm.Files == nil {
		norm.Files = map[string]Hash{}
	}
	return CanonicalJSON(&norm)
}

// Hash computes the commit's identity.
func (c *Commit) Hash() (Hash, error) {
	data, err := c.Encode()
	if err != nil {
		return "", fmt.Errorf("serialize commit: %w", err)
	}
	return Sum(data)
}

// DecodeCommit parses a serialized commit.
func DecodeCommit(data []byte) (*Commit, error) {
	var c Commit
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal commit: %w", err)
	}
	if c.V != CommitVersion {
		return nil, fmt.Errorf("unsupported commit version %d", c.V)
	}
	if c.Files == nil {
		c.Files = map[string]Hash{}
	}
	if c.Parents == nil {
		c.Parents = []Hash{}
	}
	return &c, nil
}

// Child starts a new commit on top of parent, copying its manifest.
func (c *Commit) Child(parent Hash, message string, ts time.Time) *Commit {
	files := make(map[string]Hash, len(c.Files))
	for path, h := range c.Files {
		files[path] = h
	}
	return &Commit{
		V:         CommitVersion,
		Message:   message,
		Timestamp: ts.Unix(),
		Parents:   []Hash{parent},
		Files:     files,
	}
}

// FirstParent returns the mainline parent, or "" for the root.
func (c *Commit) FirstParent() Hash {
	if len(c.Parents) == 0 {
		return ""
	}
	return c.Parents[0]
}

// IsMerge reports whether the commit has two parents.
func (c *Commit) IsMerge() bool { return len(c.Parents) > 1 }

// Blob returns the blob tracked at path.
func (c *Commit) Blob(path string) (Hash, bool) {
	h, ok := c.Files[path]
	return h, ok
}

// Tracks reports whether path is in the manifest.
func (c *Commit) Tracks(path string) bool {
	_, ok := c.Files[path]
	return ok
}

// Paths returns the manifest's paths, sorted.
func (c *Commit) Paths() []string {
	paths := make([]string, 0, len(c.Files))
	for p := range c.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Time returns the commit timestamp in UTC.
func (c *Commit) Time() time.Time { return time.Unix(c.Timestamp, 0).UTC() }
