package core

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
)

// ExportHeader is the first row of every exported payload.
var ExportHeader = []string{"ID", "User", "Timestamp", "Message", "Channel"}

// DefaultExportFileName is the download name used for exported payloads.
const DefaultExportFileName = "merged_logs.csv"

// ExportOptions controls how records are serialized.
type ExportOptions struct {
	// TimestampLayout, when set, renders the parsed instant with this
	// layout. When empty the source's raw timestamp text is written.
	TimestampLayout string
}

// WriteCSV writes the header and one row per record of seq to w.
// Fields containing commas, quotes or line breaks are quoted.
func WriteCSV(w io.Writer, seq Sequence, opts ExportOptions) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(ExportHeader); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}

	row := make([]string, len(ExportHeader))
	for i := 0; i < seq.Len(); i++ {
		rec := seq.At(i)
		row[0] = rec.ID
		row[1] = rec.User
		row[2] = formatTimestamp(rec, opts)
		row[3] = rec.Message
		row[4] = rec.Channel
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("export: write row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export: flush: %w", err)
	}
	return nil
}

// ExportCSV serializes seq into a byte payload. Downloads and persistent
// sinks both consume this payload, so their contents never diverge.
func ExportCSV(seq Sequence, opts ExportOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, seq, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatTimestamp(rec Record, opts ExportOptions) string {
	if opts.TimestampLayout == "" || rec.Timestamp.IsZero() {
		return rec.RawTimestamp
	}
	return rec.Timestamp.Format(opts.TimestampLayout)
}
