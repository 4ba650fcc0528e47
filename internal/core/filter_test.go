package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sampleTimeline() *Timeline {
	return Merge([]Record{
		rec("1", "alice", "2024-01-01T10:00:00", "a", "general"),
		rec("2", "bob", "2024-01-01T10:01:00", "b", "general"),
		rec("3", "alicia", "2024-01-01T10:02:00", "c", "general"),
		rec("4", "alice", "2024-01-01T10:03:00", "d", "random"),
		rec("5", "Bob", "2024-01-01T10:04:00", "e", "random"),
	}).Timeline
}

func TestFilter_EmptySelectionIsIdentity(t *testing.T) {
	tl := sampleTimeline()

	for _, users := range [][]string{nil, {}} {
		v := tl.Filter(users)
		if v.Filtered() {
			t.Error("empty selection should not filter")
		}
		if diff := cmp.Diff(tl.Records(), v.Records()); diff != "" {
			t.Errorf("empty filter mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestFilter_SetMembership(t *testing.T) {
	tl := sampleTimeline()

	tests := []struct {
		name  string
		users []string
		want  []string
	}{
		{"single user", []string{"alice"}, []string{"1", "4"}},
		{"no prefix match", []string{"ali"}, []string{}},
		{"case sensitive", []string{"bob"}, []string{"2"}},
		{"multiple users keep order", []string{"Bob", "alicia", "alice"}, []string{"1", "3", "4", "5"}},
		{"unknown user", []string{"zed"}, []string{}},
		{"duplicates in selection", []string{"bob", "bob"}, []string{"2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tl.Filter(tt.users)
			if diff := cmp.Diff(tt.want, ids(v)); diff != "" {
				t.Errorf("Filter(%v) mismatch (-want +got):\n%s", tt.users, diff)
			}
			selected := make(map[string]bool)
			for _, u := range tt.users {
				selected[u] = true
			}
			for _, r := range v.Records() {
				if !selected[r.User] {
					t.Errorf("record %s has user %q outside selection", r.ID, r.User)
				}
			}
		})
	}
}

func TestFilter_DoesNotMutateTimeline(t *testing.T) {
	tl := sampleTimeline()
	before := tl.Records()

	_ = tl.Filter([]string{"alice"})
	_ = tl.Filter([]string{"bob"}).Head(1)

	if diff := cmp.Diff(before, tl.Records()); diff != "" {
		t.Errorf("timeline changed after filtering (-before +after):\n%s", diff)
	}
}

func TestView_Head(t *testing.T) {
	tl := sampleTimeline()

	if got := ids(tl.All().Head(2)); !cmp.Equal(got, []string{"1", "2"}) {
		t.Errorf("All().Head(2) = %v", got)
	}
	if got := ids(tl.Filter([]string{"alice", "Bob"}).Head(2)); !cmp.Equal(got, []string{"1", "4"}) {
		t.Errorf("Filter().Head(2) = %v", got)
	}
	if got := tl.All().Head(0).Len(); got != 5 {
		t.Errorf("Head(0).Len() = %d, want 5", got)
	}
	if got := tl.All().Head(100).Len(); got != 5 {
		t.Errorf("Head(100).Len() = %d, want 5", got)
	}
}
