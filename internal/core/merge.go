package core

import (
	"sort"
	"time"
)

// Timeline is a merged, chronologically ordered record set.
// It is never modified after Merge returns it.
type Timeline struct {
	records []Record
}

// MergeResult is the output of Merge.
type MergeResult struct {
	Timeline *Timeline
	Skipped  []Skip // one entry per record dropped for an unparseable timestamp
	Dropped  int
}

// Merge concatenates the record sets in the order given, parses every
// timestamp, drops the records that fail to parse and sorts the rest by
// instant. Records with equal instants keep their concatenation order.
func Merge(sets ...[]Record) MergeResult {
	return mergeLabeled(sets, nil, nil)
}

// mergeLabeled is Merge with the source locator of each set and the source
// row of each record, used to attribute dropped records in skip reports.
func mergeLabeled(sets [][]Record, locators []string, lines [][]int) MergeResult {
	total := 0
	for _, set := range sets {
		total += len(set)
	}

	merged := make([]Record, 0, total)
	var skipped []Skip

	for n, set := range sets {
		source := ""
		if n < len(locators) {
			source = locators[n]
		}
		for i, rec := range set {
			ts, err := ParseTimestamp(rec.RawTimestamp)
			if err != nil {
				line := 0
				if n < len(lines) && i < len(lines[n]) {
					line = lines[n][i]
				}
				skipped = append(skipped, Skip{
					Kind:    SkipTimestampParse,
					Source:  source,
					Channel: rec.Channel,
					Line:    line,
					Reason:  err.Error(),
					Data:    []string{rec.ID, rec.User, rec.RawTimestamp, rec.Message},
				})
				continue
			}
			rec.Timestamp = ts
			merged = append(merged, rec)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})

	return MergeResult{
		Timeline: &Timeline{records: merged},
		Skipped:  skipped,
		Dropped:  len(skipped),
	}
}

// Len returns the number of records.
func (t *Timeline) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

// At returns the i-th record in chronological order.
func (t *Timeline) At(i int) Record {
	return t.records[i]
}

// Records returns a copy of the ordered records.
func (t *Timeline) Records() []Record {
	if t == nil {
		return nil
	}
	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}

// Users returns the distinct user values, sorted.
func (t *Timeline) Users() []string {
	if t == nil {
		return nil
	}
	seen := make(map[string]struct{})
	users := make([]string, 0)
	for _, rec := range t.records {
		if _, ok := seen[rec.User]; ok {
			continue
		}
		seen[rec.User] = struct{}{}
		users = append(users, rec.User)
	}
	sort.Strings(users)
	return users
}

// Span returns the first and last instants, or zero values when empty.
func (t *Timeline) Span() (first, last time.Time) {
	if t.Len() == 0 {
		return time.Time{}, time.Time{}
	}
	return t.records[0].Timestamp, t.records[len(t.records)-1].Timestamp
}
