package core

// View is a filtered window onto a Timeline. It stores positions into the
// timeline rather than copies, and never changes the timeline it reads.
type View struct {
	base *Timeline
	idx  []int // nil means every record of base
}

// Filter returns the records whose User is exactly one of users, in
// timeline order. An empty users list means no filter: the view covers the
// whole timeline.
func (t *Timeline) Filter(users []string) *View {
	if len(users) == 0 {
		return &View{base: t}
	}

	selected := make(map[string]struct{}, len(users))
	for _, u := range users {
		selected[u] = struct{}{}
	}

	idx := make([]int, 0)
	for i := 0; i < t.Len(); i++ {
		if _, ok := selected[t.records[i].User]; ok {
			idx = append(idx, i)
		}
	}
	return &View{base: t, idx: idx}
}

// All returns a view over the whole timeline.
func (t *Timeline) All() *View {
	return &View{base: t}
}

// Len returns the number of records in the view.
func (v *View) Len() int {
	if v == nil {
		return 0
	}
	if v.idx == nil {
		return v.base.Len()
	}
	return len(v.idx)
}

// At returns the i-th record of the view.
func (v *View) At(i int) Record {
	if v.idx == nil {
		return v.base.At(i)
	}
	return v.base.At(v.idx[i])
}

// Records returns a copy of the records in the view.
func (v *View) Records() []Record {
	n := v.Len()
	out := make([]Record, n)
	for i := 0; i < n; i++ {
		out[i] = v.At(i)
	}
	return out
}

// Filtered reports whether the view narrows its timeline.
func (v *View) Filtered() bool {
	return v != nil && v.idx != nil
}

// Head returns a view over at most the first n records. n <= 0 returns v.
func (v *View) Head(n int) *View {
	if n <= 0 || v.Len() <= n {
		return v
	}
	idx := make([]int, n)
	for i := 0; i < n; i++ {
		if v.idx == nil {
			idx[i] = i
		} else {
			idx[i] = v.idx[i]
		}
	}
	return &View{base: v.base, idx: idx}
}
