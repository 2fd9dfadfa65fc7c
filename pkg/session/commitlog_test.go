package session

import (
	"strings"
	"testing"
	"time"

	"github.com/fatihusta/holo-cli/pkg/config"
)

func TestCommitSummary(t *testing.T) {
	tests := []struct {
		name    string
		changes []config.Change
		want    string
	}{
		{"none", nil, ""},
		{"update", []config.Change{{Op: config.OpUpdate, Path: "/a"}}, "1 updated"},
		{"mixed", []config.Change{
			{Op: config.OpDelete, Path: "/a"},
			{Op: config.OpUpdate, Path: "/b"},
			{Op: config.OpUpdate, Path: "/c"},
			{Op: config.OpReplace, Path: "/d"},
		}, "2 updated, 1 replaced, 1 deleted"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Commit{Changes: tt.changes}
			if got := c.Summary(); got != tt.want {
				t.Errorf("Summary() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCommitLogLimit(t *testing.T) {
	l := newCommitLog(2)
	var trees []*config.ConfigTree
	for i := 0; i < 3; i++ {
		tree := config.New()
		trees = append(trees, tree)
		l.record(tree, []config.Change{{Op: config.OpUpdate, Path: "/x"}}, "", time.Now())
	}
	if l.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", l.Len())
	}
	commits := l.Commits()
	if commits[0].ID != 3 || commits[1].ID != 2 {
		t.Errorf("commit IDs = %d, %d, want 3, 2", commits[0].ID, commits[1].ID)
	}
	prev, err := l.Previous(2)
	if err != nil {
		t.Fatal(err)
	}
	if prev != trees[1] {
		t.Error("Previous(2) is not the configuration replaced by commit 2")
	}
	if _, err := l.Previous(3); err == nil || !strings.Contains(err.Error(), "no such configuration") {
		t.Errorf("Previous(3) err = %v", err)
	}

	l.reset()
	if l.Len() != 0 {
		t.Errorf("Len() after reset = %d", l.Len())
	}
	if c := l.record(nil, nil, "", time.Now()); c.ID != 4 {
		t.Errorf("ID after reset = %d, want 4", c.ID)
	}
}
