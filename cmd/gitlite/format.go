package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/systemshift/gitlite/internal/dag"
	"github.com/systemshift/gitlite/internal/repo"
)

const dateLayout = "Mon Jan 2 15:04:05 2006 -0700"

// formatEntry writes one log entry.
func formatEntry(w io.Writer, e dag.Entry, withCID bool) {
	fmt.Fprintln(w, "===")
	fmt.Fprintf(w, "commit %s\n", e.Hash)
	if withCID {
		fmt.Fprintf(w, "cid %s\n", e.Hash.CIDString())
	}
	if e.Commit.IsMerge() {
		fmt.Fprintf(w, "Merge: %s %s\n", e.Commit.Parents[0].Short(), e.Commit.Parents[1].Short())
	}
	fmt.Fprintf(w, "Date: %s\n", e.Commit.Time().Local().Format(dateLayout))
	fmt.Fprintln(w, e.Commit.Message)
	fmt.Fprintln(w)
}

func formatSection(w io.Writer, title string, lines []string) {
	fmt.Fprintf(w, "=== %s ===\n", title)
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
	fmt.Fprintln(w)
}

// formatStatus writes the five status sections.
func formatStatus(w io.Writer, st *repo.Status) {
	var branches []string
	if !st.Detached.IsZero() {
		branches = append(branches, fmt.Sprintf("(HEAD detached at %s)", st.Detached.Short()))
	}
	for _, b := range st.Branches {
		if b.Current {
			branches = append(branches, "*"+b.Name)
		} else {
			branches = append(branches, b.Name)
		}
	}
	formatSection(w, "Branches", branches)
	formatSection(w, "Staged Files", st.Staged)
	formatSection(w, "Removed Files", st.Removed)

	modified := make([]string, len(st.Modified))
	for i, m := range st.Modified {
		modified[i] = fmt.Sprintf("%s (%s)", m.Path, m.State)
	}
	formatSection(w, "Modifications Not Staged For Commit", modified)
	formatSection(w, "Untracked Files", st.Untracked)
}

// formatDetail writes a commit and the files it changed.
func formatDetail(w io.Writer, d *repo.Detail) {
	formatEntry(w, d.Entry, true)
	for _, p := range d.Changes.Added {
		fmt.Fprintf(w, "A  %s\n", p)
	}
	for _, p := range d.Changes.Modified {
		fmt.Fprintf(w, "M  %s\n", p)
	}
	for _, p := range d.Changes.Removed {
		fmt.Fprintf(w, "D  %s\n", p)
	}
}

// formatReflog writes one line per ref move, newest first.
func formatReflog(w io.Writer, entries []dag.ReflogEntry) {
	for _, e := range entries {
		old := strings.Repeat("0", dag.ShortLen)
		if !e.Old.IsZero() {
			old = e.Old.Short()
		}
		next := strings.Repeat("0", dag.ShortLen)
		if !e.New.IsZero() {
			next = e.New.Short()
		}
		fmt.Fprintf(w, "%s %s..%s %s: %s\n", e.Time.Local().Format("2006-01-02 15:04:05"), old, next, e.Ref, e.Action)
	}
}

// formatMerge writes the user-facing summary of a merge.
func formatMerge(w io.Writer, res *repo.MergeResult) {
	switch res.Outcome {
	case repo.AlreadyAncestor:
		fmt.Fprintln(w, "Given branch is an ancestor of the current branch.")
	case repo.FastForwarded:
		fmt.Fprintln(w, "Current branch fast-forwarded.")
	case repo.MergeConflict:
		fmt.Fprintln(w, "Encountered a merge conflict.")
		for _, p := range res.Conflicts {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
