package core

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func rec(id, user, ts, msg, channel string) Record {
	return Record{ID: id, User: user, RawTimestamp: ts, Message: msg, Channel: channel}
}

func ids(seq Sequence) []string {
	out := make([]string, seq.Len())
	for i := range out {
		out[i] = seq.At(i).ID
	}
	return out
}

func TestMerge_OrdersAcrossSources(t *testing.T) {
	general := []Record{rec("1", "alice", "2024-01-01T10:00:00", "hi", "general")}
	random := []Record{rec("2", "bob", "2024-01-01T09:00:00", "yo", "random")}

	got := Merge(general, random)

	if got.Dropped != 0 {
		t.Errorf("Dropped = %d, want 0", got.Dropped)
	}
	if diff := cmp.Diff([]string{"2", "1"}, ids(got.Timeline)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	first := got.Timeline.At(0)
	if first.User != "bob" || first.Channel != "random" {
		t.Errorf("first record = %+v, want bob@random", first)
	}
	if first.Timestamp.Hour() != 9 {
		t.Errorf("first timestamp = %v, want 09:00", first.Timestamp)
	}
}

func TestMerge_StableTies(t *testing.T) {
	a := []Record{
		rec("a1", "alice", "2024-01-01T10:00:00", "", "a"),
		rec("a2", "alice", "2024-01-01T10:00:00", "", "a"),
	}
	b := []Record{
		rec("b1", "bob", "2024-01-01T10:00:00Z", "", "b"),
		rec("b0", "bob", "2024-01-01T09:59:59", "", "b"),
		rec("b2", "bob", "2024-01-01T11:00:00+01:00", "", "b"),
	}

	got := Merge(a, b)

	want := []string{"b0", "a1", "a2", "b1", "b2"}
	if diff := cmp.Diff(want, ids(got.Timeline)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge_DropsUnparseable(t *testing.T) {
	set := []Record{
		rec("h", "User", "Timestamp", "Message", "general"),
		rec("1", "alice", "2024-01-01T10:00:00", "hi", "general"),
		rec("2", "bob", "not-a-date", "yo", "general"),
		rec("3", "carol", "", "hey", "general"),
	}

	got := mergeLabeled([][]Record{set}, []string{"a.csv"}, [][]int{{1, 2, 4, 5}})

	if got.Timeline.Len() != 1 || got.Timeline.At(0).ID != "1" {
		t.Fatalf("timeline = %v, want only record 1", got.Timeline.Records())
	}
	if got.Dropped != 3 {
		t.Errorf("Dropped = %d, want 3", got.Dropped)
	}
	for _, s := range got.Skipped {
		if s.Kind != SkipTimestampParse {
			t.Errorf("Kind = %q, want %q", s.Kind, SkipTimestampParse)
		}
		if s.Source != "a.csv" {
			t.Errorf("Source = %q, want a.csv", s.Source)
		}
	}
	if got.Skipped[1].Data[2] != "not-a-date" {
		t.Errorf("skip data = %v", got.Skipped[1].Data)
	}
	var lines []int
	for _, s := range got.Skipped {
		lines = append(lines, s.Line)
	}
	if diff := cmp.Diff([]int{1, 4, 5}, lines); diff != "" {
		t.Errorf("skip lines (-want +got):\n%s", diff)
	}
}

func TestMerge_SortedProperty(t *testing.T) {
	var sets [][]Record
	for s := 0; s < 3; s++ {
		var set []Record
		for i := 0; i < 20; i++ {
			minute := (i*7 + s*13) % 11
			set = append(set, rec(fmt.Sprintf("%d-%d", s, i), "u", fmt.Sprintf("2024-01-01T10:%02d:00", minute), "", fmt.Sprint(s)))
		}
		sets = append(sets, set)
	}

	got := Merge(sets...)
	tl := got.Timeline

	if tl.Len() != 60 {
		t.Fatalf("Len = %d, want 60", tl.Len())
	}

	order := make(map[string]int)
	n := 0
	for _, set := range sets {
		for _, r := range set {
			order[r.ID] = n
			n++
		}
	}

	for i := 1; i < tl.Len(); i++ {
		prev, cur := tl.At(i-1), tl.At(i)
		if cur.Timestamp.Before(prev.Timestamp) {
			t.Fatalf("records %d and %d out of order: %v > %v", i-1, i, prev.Timestamp, cur.Timestamp)
		}
		if cur.Timestamp.Equal(prev.Timestamp) && order[cur.ID] < order[prev.ID] {
			t.Fatalf("tie between %s and %s not stable", prev.ID, cur.ID)
		}
	}
}

func TestMerge_Empty(t *testing.T) {
	got := Merge()
	if got.Timeline.Len() != 0 {
		t.Errorf("Len = %d, want 0", got.Timeline.Len())
	}
	if users := got.Timeline.Users(); len(users) != 0 {
		t.Errorf("Users = %v, want empty", users)
	}
	first, last := got.Timeline.Span()
	if !first.IsZero() || !last.IsZero() {
		t.Errorf("Span = %v..%v, want zero", first, last)
	}
}

func TestTimeline_Users(t *testing.T) {
	got := Merge([]Record{
		rec("1", "carol", "2024-01-01T10:00:00", "", "c"),
		rec("2", "alice", "2024-01-01T10:01:00", "", "c"),
		rec("3", "carol", "2024-01-01T10:02:00", "", "c"),
		rec("4", "bob", "2024-01-01T10:03:00", "", "c"),
	})

	want := []string{"alice", "bob", "carol"}
	if diff := cmp.Diff(want, got.Timeline.Users()); diff != "" {
		t.Errorf("Users mismatch (-want +got):\n%s", diff)
	}
}

func TestTimeline_RecordsIsCopy(t *testing.T) {
	got := Merge([]Record{rec("1", "alice", "2024-01-01T10:00:00", "hi", "c")})

	records := got.Timeline.Records()
	records[0].User = "mallory"

	if got.Timeline.At(0).User != "alice" {
		t.Error("mutating Records() changed the timeline")
	}
}
