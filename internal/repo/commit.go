package repo

import (
	"strings"
	"unicode/utf8"

	"github.com/systemshift/gitlite/internal/dag"
)

// Commit records the staged changes as a new commit on top of HEAD and
// advances the current branch, or HEAD itself when detached.
func (r *Repository) Commit(message string) (dag.Hash, error) {
	return r.commit("commit", message, "")
}

// commit builds the child of the current commit with the stage applied. A
// non-zero mergeParent becomes the second parent and allows an empty stage.
func (r *Repository) commit(op, message string, mergeParent dag.Hash) (dag.Hash, error) {
	if strings.TrimSpace(message) == "" {
		return "", newError(op, ErrEmptyMessage)
	}
	if !utf8.ValidString(message) {
		return "", newError(op, ErrInvalidMessage)
	}
	s, err := r.LoadStage()
	if err != nil {
		return "", newError(op, err)
	}
	if s.Empty() && mergeParent.IsZero() {
		return "", newError(op, ErrNothingToCommit)
	}
	curHash, cur, err := r.current()
	if err != nil {
		return "", newError(op, err)
	}

	c := cur.Child(curHash, message, r.now())
	c.Files = s.apply(cur.Files)
	if !mergeParent.IsZero() {
		c.Parents = append(c.Parents, mergeParent)
	}
	h, err := r.Store.PutCommit(c)
	if err != nil {
		return "", newError(op, err)
	}
	if err := r.clearStage(); err != nil {
		return "", newError(op, err)
	}
	if err := r.moveHead(h, op+": "+firstLine(message)); err != nil {
		return "", newError(op, err)
	}
	r.log.Info("committed", "commit", h.Short(), "parents", len(c.Parents), "files", len(c.Files))
	return h, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
