package core

import (
	"fmt"
	"log/slog"
	"strings"
)

// Normalized is the output of Normalize for one source.
type Normalized struct {
	Records []Record
	Lines   []int // source row number of each record
	Skipped []Skip
	Report  SourceReport
}

// Normalize maps raw rows onto the canonical schema.
//
// Fields [0,1,2,3] become id, user, timestamp and message; anything past
// field 3 is ignored. Rows with fewer than MinFields fields are dropped and
// reported as malformed. Blank rows are csv artifacts and are skipped without
// a report. Every record receives desc.Channel unchanged.
//
// firstLine is the 1-based row number of rows[0] within the source, so that
// reports line up with the file when a header row was discarded.
func Normalize(desc SourceDescriptor, rows [][]string, firstLine int) Normalized {
	if firstLine < 1 {
		firstLine = 1
	}

	out := Normalized{
		Records: make([]Record, 0, len(rows)),
		Lines:   make([]int, 0, len(rows)),
		Report: SourceReport{
			Locator: desc.Locator,
			Channel: desc.Channel,
			Rows:    len(rows),
		},
	}

	for i, row := range rows {
		line := firstLine + i

		if isBlankRow(row) {
			continue
		}

		if len(row) < MinFields {
			out.Report.Malformed++
			out.Skipped = append(out.Skipped, Skip{
				Kind:    SkipMalformedRow,
				Source:  desc.Locator,
				Channel: desc.Channel,
				Line:    line,
				Reason:  fmt.Sprintf("%v: expected at least %d fields, got %d", ErrMalformedRow, MinFields, len(row)),
				Data:    row,
			})
			continue
		}

		if desc.Layout != LayoutAuto && len(row) != int(desc.Layout) {
			out.Report.Irregular++
			slog.Debug("row width differs from declared layout",
				"source", desc.Locator,
				"line", line,
				"layout", desc.Layout.String(),
				"fields", len(row),
			)
		}

		out.Records = append(out.Records, Record{
			ID:           row[0],
			User:         row[1],
			RawTimestamp: row[2],
			Message:      row[3],
			Channel:      desc.Channel,
		})
		out.Lines = append(out.Lines, line)
	}

	out.Report.Records = len(out.Records)
	return out
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
