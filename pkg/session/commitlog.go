package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatihusta/holo-cli/pkg/config"
)

// Commit is one successful commit of this session.
type Commit struct {
	// ID numbers the commits of the session from 1.
	ID      int
	Time    time.Time
	Comment string
	// Changes is what was sent to the daemon.
	Changes []config.Change
	// Previous is the running configuration the commit replaced.
	Previous *config.ConfigTree
}

// Summary counts the changes by operation, as in "2 updated, 1 deleted".
func (c *Commit) Summary() string {
	var upd, rep, del int
	for _, ch := range c.Changes {
		switch ch.Op {
		case config.OpUpdate:
			upd++
		case config.OpReplace:
			rep++
		case config.OpDelete:
			del++
		}
	}
	var parts []string
	for _, p := range []struct {
		n    int
		verb string
	}{{upd, "updated"}, {rep, "replaced"}, {del, "deleted"}} {
		if p.n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", p.n, p.verb))
		}
	}
	return strings.Join(parts, ", ")
}

// CommitLog records the commits of a session for "show commit history"
// and rollback. Only the last limit commits are kept, but IDs keep
// counting.
type CommitLog struct {
	commits []*Commit
	lastID  int
	limit   int
}

func newCommitLog(limit int) *CommitLog {
	return &CommitLog{limit: limit}
}

func (l *CommitLog) record(previous *config.ConfigTree, changes []config.Change, comment string, at time.Time) *Commit {
	l.lastID++
	c := &Commit{ID: l.lastID, Time: at, Comment: comment, Changes: changes, Previous: previous}
	l.commits = append(l.commits, c)
	if len(l.commits) > l.limit {
		l.commits = l.commits[len(l.commits)-l.limit:]
	}
	return c
}

// Previous returns the configuration replaced by the nth most recent
// commit, n starting at 1.
func (l *CommitLog) Previous(n int) (*config.ConfigTree, error) {
	if n < 1 || n > len(l.commits) {
		return nil, fmt.Errorf("rollback %d: no such configuration (%d in history)", n, len(l.commits))
	}
	return l.commits[len(l.commits)-n].Previous, nil
}

// Len returns the number of commits kept.
func (l *CommitLog) Len() int { return len(l.commits) }

// Commits returns the kept commits, most recent first.
func (l *CommitLog) Commits() []*Commit {
	out := make([]*Commit, len(l.commits))
	for i, c := range l.commits {
		out[len(l.commits)-1-i] = c
	}
	return out
}

// reset forgets every commit. Their configurations no longer match the
// schema after a reload.
func (l *CommitLog) reset() {
	l.commits = nil
}
