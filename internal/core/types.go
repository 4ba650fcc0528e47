package core

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Layout declares the column convention a source is expected to follow.
// The mapping onto the canonical schema is the same for every layout; the
// declared width only controls irregularity reporting.
type Layout int

const (
	LayoutAuto Layout = 0 // first four positional fields, no width expectation
	LayoutFour Layout = 4 // id,user,timestamp,message
	LayoutFive Layout = 5 // id,user,timestamp,message,<attachment placeholder>
)

// MinFields is the number of positional fields a row needs to be mapped.
const MinFields = 4

// String returns the layout name used in config, flags and JSON.
func (l Layout) String() string {
	switch l {
	case LayoutFour:
		return "four"
	case LayoutFive:
		return "five"
	default:
		return "auto"
	}
}

// ParseLayout converts a layout name ("auto", "four", "five", "4", "5") to a Layout.
func ParseLayout(s string) (Layout, error) {
	switch s {
	case "", "auto", "0":
		return LayoutAuto, nil
	case "four", "4":
		return LayoutFour, nil
	case "five", "5":
		return LayoutFive, nil
	default:
		return LayoutAuto, fmt.Errorf("unknown layout %q (want auto, four or five)", s)
	}
}

// SourceDescriptor identifies one queued source and the channel label its
// records receive. It is owned by the caller and passed into every run.
type SourceDescriptor struct {
	Locator   string // opaque to the core; resolved by an Opener
	Channel   string // assigned verbatim to every record
	Layout    Layout
	HasHeader bool   // drop the first row before normalization
	Data      []byte // in-memory payload; when non-nil Locator is a display name
}

// Opener resolves a descriptor to its raw bytes.
// Implementations live outside the core (local disk, Dropbox, uploads).
type Opener interface {
	Open(ctx context.Context, desc SourceDescriptor) (io.ReadCloser, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context, desc SourceDescriptor) (io.ReadCloser, error)

// Open implements Opener.
func (f OpenerFunc) Open(ctx context.Context, desc SourceDescriptor) (io.ReadCloser, error) {
	return f(ctx, desc)
}

// Record is one canonical chat message.
type Record struct {
	ID           string
	User         string
	RawTimestamp string
	Timestamp    time.Time // zero until the record has been merged
	Message      string
	Channel      string
}

// SkipKind classifies why a unit of input was left out of the timeline.
type SkipKind string

const (
	SkipSourceUnavailable SkipKind = "source_unavailable"
	SkipMalformedRow      SkipKind = "malformed_row"
	SkipTimestampParse    SkipKind = "timestamp_parse"
)

// Skip describes one skipped source, row or record.
type Skip struct {
	Kind    SkipKind `json:"kind"`
	Source  string   `json:"source"`
	Channel string   `json:"channel"`
	Line    int      `json:"line,omitempty"` // 1-based row number within the source, 0 for a whole source
	Reason  string   `json:"reason"`
	Data    []string `json:"data,omitempty"`
}

// SourceReport summarizes what happened to one source during a run.
type SourceReport struct {
	Locator   string `json:"locator"`
	Channel   string `json:"channel"`
	Rows      int    `json:"rows"`
	Records   int    `json:"records"`
	Malformed int    `json:"malformed"`
	Irregular int    `json:"irregular"`
	Err       string `json:"error,omitempty"`
}

// OK reports whether the source was read successfully.
func (r SourceReport) OK() bool {
	return r.Err == ""
}

// Sequence is a read-only ordered run of records. Both Timeline and View
// satisfy it, so export works on either.
type Sequence interface {
	Len() int
	At(i int) Record
}
