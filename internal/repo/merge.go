package repo

import (
	"bytes"
	"fmt"

	"github.com/systemshift/gitlite/internal/dag"
)

// Outcome is the result class of a merge.
type Outcome int

const (
	// AlreadyAncestor: the given commit is already in the current history.
	AlreadyAncestor Outcome = iota
	// FastForwarded: HEAD moved to the given commit without a merge commit.
	FastForwarded
	// MergeClean: a merge commit was created without conflicts.
	MergeClean
	// MergeConflict: a merge commit was created with conflict-marked files.
	MergeConflict
)

func (o Outcome) String() string {
	switch o {
	case AlreadyAncestor:
		return "already up to date"
	case FastForwarded:
		return "fast-forward"
	case MergeClean:
		return "merged"
	case MergeConflict:
		return "merged with conflicts"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// MergeResult describes a completed merge.
type MergeResult struct {
	Outcome   Outcome
	Base      dag.Hash
	Current   dag.Hash
	Given     dag.Hash
	Commit    dag.Hash // merge commit, or the new HEAD after a fast-forward
	Conflicts []string
}

type resolution int

const (
	keep resolution = iota
	take
	drop
	conflict
)

type mergeAction struct {
	path   string
	res    resolution
	cur    dag.Hash // blob on the current side, if present
	given  dag.Hash // blob on the given side, if present
	inCur  bool
	inGive bool
}

// resolve decides the fate of one path from its base, current and given
// blobs. An absent side is reported by the in* flags.
func resolve(b, c, g dag.Hash, inB, inC, inG bool) resolution {
	switch {
	case inC && inG && c == g:
		return keep
	case !inC && !inG:
		return keep
	case inB && inC && c == b:
		if inG {
			return take
		}
		return drop
	case inB && inG && g == b:
		return keep
	case !inB && !inC && inG:
		return take
	case !inB && inC && !inG:
		return keep
	default:
		return conflict
	}
}

// planMerge classifies every path of base, current and given. Paths that
// need no work are omitted.
func planMerge(base, cur, given *dag.Commit) []mergeAction {
	var plan []mergeAction
	for _, p := range dag.UnionPaths(base.Files, cur.Files, given.Files) {
		b, inB := base.Files[p]
		c, inC := cur.Files[p]
		g, inG := given.Files[p]
		res := resolve(b, c, g, inB, inC, inG)
		if res == keep {
			continue
		}
		plan = append(plan, mergeAction{path: p, res: res, cur: c, given: g, inCur: inC, inGive: inG})
	}
	return plan
}

// ConflictContent synthesizes the conflict-marked file for two sides. A
// missing side is nil. Each non-empty side is followed by exactly one
// newline before the next marker.
func ConflictContent(current, given []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("<<<<<<< HEAD\n")
	writeSide(&buf, current)
	buf.WriteString("=======\n")
	writeSide(&buf, given)
	buf.WriteString(">>>>>>>\n")
	return buf.Bytes()
}

func writeSide(buf *bytes.Buffer, data []byte) {
	if len(data) == 0 {
		return
	}
	buf.Write(data)
	if data[len(data)-1] != '\n' {
		buf.WriteByte('\n')
	}
}

// givenTip resolves a merge source: a local branch, or a remote-tracking
// ref such as "origin/master".
func (r *Repository) givenTip(name string) (dag.Hash, error) {
	if r.Branches.Has(name) {
		return r.Branches.Get(name)
	}
	if r.Tracking.Has(name) {
		return r.Tracking.Get(name)
	}
	return "", ErrNoSuchBranch
}

// Merge merges branch name into the current branch.
func (r *Repository) Merge(name string) (*MergeResult, error) {
	const op = "merge"
	s, err := r.LoadStage()
	if err != nil {
		return nil, newError(op, err)
	}
	if !s.Empty() {
		return nil, newError(op, ErrUncommittedChanges)
	}
	givenHash, err := r.givenTip(name)
	if err != nil {
		return nil, newError(op, err).withPath(name)
	}
	currentName, err := r.currentName()
	if err != nil {
		return nil, newError(op, err)
	}
	head, err := r.Head.Read()
	if err != nil {
		return nil, newError(op, err)
	}
	if !head.Detached() && head.Branch == name {
		return nil, newError(op, ErrSelfMerge).withPath(name)
	}
	curHash, cur, err := r.current()
	if err != nil {
		return nil, newError(op, err)
	}
	base, err := r.Graph.MergeBase(curHash, givenHash)
	if err != nil {
		return nil, newError(op, err)
	}

	res := &MergeResult{Base: base, Current: curHash, Given: givenHash}
	switch base {
	case givenHash:
		res.Outcome = AlreadyAncestor
		res.Commit = curHash
		r.log.Info("merge: already up to date", "given", name)
		return res, nil
	case curHash:
		if err := r.checkoutCommit(op, givenHash); err != nil {
			return nil, err
		}
		if err := r.moveHead(givenHash, "merge "+name+": fast-forward"); err != nil {
			return nil, newError(op, err)
		}
		res.Outcome = FastForwarded
		res.Commit = givenHash
		r.log.Info("merge: fast-forward", "given", name, "commit", givenHash.Short())
		return res, nil
	}

	baseCommit, err := r.Store.GetCommit(base)
	if err != nil {
		return nil, newError(op, err)
	}
	given, err := r.Store.GetCommit(givenHash)
	if err != nil {
		return nil, newError(op, err)
	}
	plan := planMerge(baseCommit, cur, given)

	var touched, writes []string
	for _, a := range plan {
		touched = append(touched, a.path)
		if a.res != drop {
			writes = append(writes, a.path)
		}
	}
	if err := r.checkPaths(op, touched); err != nil {
		return nil, err
	}
	untracked, err := r.untracked(cur, s)
	if err != nil {
		return nil, newError(op, err)
	}
	if hit := collisions(untracked, writes); len(hit) > 0 {
		return nil, collisionError(op, hit)
	}

	for _, a := range plan {
		if err := r.applyAction(s, a); err != nil {
			return nil, newError(op, err).withPath(a.path)
		}
		if a.res == conflict {
			res.Conflicts = append(res.Conflicts, a.path)
		}
	}
	if err := r.saveStage(s); err != nil {
		return nil, newError(op, err)
	}

	msg := fmt.Sprintf("Merged %s into %s.", name, currentName)
	h, err := r.commit(op, msg, givenHash)
	if err != nil {
		return nil, err
	}
	res.Commit = h
	res.Outcome = MergeClean
	if len(res.Conflicts) > 0 {
		res.Outcome = MergeConflict
		r.log.Warn("merge produced conflicts", "given", name, "files", res.Conflicts)
	}
	return res, nil
}

// applyAction writes one planned change to the working tree and stage.
func (r *Repository) applyAction(s *Stage, a mergeAction) error {
	switch a.res {
	case take:
		if err := r.writeBlob(a.path, a.given); err != nil {
			return err
		}
		s.add(a.path, a.given)
	case drop:
		if err := r.Tree.Remove(a.path); err != nil {
			return err
		}
		s.remove(a.path)
	case conflict:
		var curData, givenData []byte
		var err error
		if a.inCur {
			if curData, err = r.Store.GetBlob(a.cur); err != nil {
				return err
			}
		}
		if a.inGive {
			if givenData, err = r.Store.GetBlob(a.given); err != nil {
				return err
			}
		}
		content := ConflictContent(curData, givenData)
		h, err := r.Store.PutBlob(content)
		if err != nil {
			return err
		}
		if err := r.Tree.Write(a.path, content); err != nil {
			return err
		}
		s.add(a.path, h)
	}
	return nil
}
