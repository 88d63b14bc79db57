package repo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/systemshift/gitlite/internal/dag"
	"github.com/systemshift/gitlite/internal/worktree"
)

// Kind classifies a failure.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation: the request was rejected before any side effect.
	KindValidation
	// KindNotFound: a commit, blob, branch, remote or file does not exist.
	KindNotFound
	// KindConflict: the request collides with repository state; nothing was mutated.
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Sentinel errors, comparable with errors.Is.
var (
	ErrEmptyMessage        = errors.New("please enter a commit message")
	ErrNothingToCommit     = errors.New("no changes added to the commit")
	ErrFileNotFound        = errors.New("file does not exist")
	ErrNothingToRemove     = errors.New("no reason to remove the file")
	ErrNotInCommit         = errors.New("file does not exist in that commit")
	ErrNoSuchCommit        = errors.New("no commit with that id exists")
	ErrAmbiguousCommit     = errors.New("commit id is ambiguous")
	ErrNoSuchBranch        = errors.New("no such branch exists")
	ErrBranchExists        = errors.New("a branch with that name already exists")
	ErrInvalidName         = errors.New("invalid name")
	ErrInvalidPath         = errors.New("invalid file path")
	ErrInvalidMessage      = errors.New("commit message is not valid UTF-8")
	ErrAlreadyOnBranch     = errors.New("no need to checkout the current branch")
	ErrRemoveCurrentBranch = errors.New("cannot remove the current branch")
	ErrUncommittedChanges  = errors.New("you have uncommitted changes")
	ErrSelfMerge           = errors.New("cannot merge a branch with itself")
	ErrUntrackedCollision  = errors.New("there is an untracked file in the way; delete it, or add and commit it first")
	ErrNonFastForward      = errors.New("please pull down remote changes before pushing")
	ErrRemoteExists        = errors.New("a remote with that name already exists")
	ErrNoSuchRemote        = errors.New("a remote with that name does not exist")
	ErrRemoteUnreachable   = errors.New("remote directory not found")
	ErrNoSuchRemoteBranch  = errors.New("that remote does not have that branch")
	ErrNotFound            = errors.New("found no commit with that message")
	ErrNotRepository       = errors.New("not in an initialized gitlite directory")
	ErrAlreadyInitialized  = errors.New("a gitlite version-control system already exists in the current directory")
)

var kinds = map[error]Kind{
	ErrEmptyMessage:         KindValidation,
	ErrNothingToCommit:      KindValidation,
	ErrFileNotFound:         KindValidation,
	ErrNothingToRemove:      KindValidation,
	ErrInvalidName:          KindValidation,
	ErrInvalidPath:          KindValidation,
	ErrInvalidMessage:       KindValidation,
	dag.ErrInvalidUTF8:      KindValidation,
	worktree.ErrOutsideTree: KindValidation,
	worktree.ErrInvalidPath: KindValidation,
	ErrNotInCommit:          KindNotFound,
	ErrNoSuchCommit:         KindNotFound,
	ErrNoSuchBranch:         KindNotFound,
	ErrNoSuchRemote:         KindNotFound,
	ErrRemoteUnreachable:    KindNotFound,
	ErrNoSuchRemoteBranch:   KindNotFound,
	ErrNotFound:             KindNotFound,
	ErrNotRepository:        KindNotFound,
	ErrAmbiguousCommit:      KindConflict,
	ErrBranchExists:         KindConflict,
	ErrAlreadyOnBranch:      KindConflict,
	ErrRemoveCurrentBranch:  KindConflict,
	ErrUncommittedChanges:   KindConflict,
	ErrSelfMerge:            KindConflict,
	ErrUntrackedCollision:   KindConflict,
	ErrNonFastForward:       KindConflict,
	ErrRemoteExists:         KindConflict,
	ErrAlreadyInitialized:   KindConflict,
}

// Error describes a failed repository operation.
type Error struct {
	Op    string   // operation name, e.g. "checkout"
	Kind  Kind     // taxonomy class
	Path  string   // file, branch or remote the failure concerns, if any
	Paths []string // colliding files for ErrUntrackedCollision
	Err   error    // underlying sentinel or I/O error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}
	b.WriteString(e.Err.Error())
	if len(e.Paths) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(e.Paths, ", "))
	}
	return b.String()
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// newError wraps err for op, classifying it by the sentinel it carries.
func newError(op string, err error) *Error {
	return &Error{Op: op, Kind: classify(err), Err: err}
}

func (e *Error) withPath(p string) *Error {
	e.Path = p
	return e
}

func classify(err error) Kind {
	for sentinel, k := range kinds {
		if errors.Is(err, sentinel) {
			return k
		}
	}
	return KindUnknown
}

// KindOf reports the taxonomy class of err.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return classify(err)
}
