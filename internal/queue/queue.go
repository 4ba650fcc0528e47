// Package queue stores a list of sources to merge in a TOML file:
//
//	users = ["alice"]
//
//	[[source]]
//	locator = "dropbox:/chats/general.csv"
//	channel = "general"
//	layout  = "five"
//	header  = false
package queue

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/JonMunkholm/chatmerge/internal/core"
)

var (
	ErrEmptyLocator = errors.New("queue: locator is required")
	ErrEmptyChannel = errors.New("queue: channel is required")
	ErrOutOfRange   = errors.New("queue: entry out of range")
)

// Entry is one queued source.
type Entry struct {
	Locator string `toml:"locator"`
	Channel string `toml:"channel"`
	Layout  string `toml:"layout,omitempty"`
	Header  bool   `toml:"header,omitempty"`
}

// Queue is the caller-owned source list plus an optional default filter.
type Queue struct {
	Users   []string `toml:"users,omitempty"`
	Sources []Entry  `toml:"source"`
}

// Load reads a queue file. A missing file yields an empty queue.
func Load(path string) (*Queue, error) {
	q := &Queue{}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return q, nil
	}
	md, err := toml.DecodeFile(path, q)
	if err != nil {
		return nil, fmt.Errorf("parse queue %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parse queue %s: unknown keys %v", path, undecoded)
	}
	return q, nil
}

// Decode reads a queue from r.
func Decode(r io.Reader) (*Queue, error) {
	q := &Queue{}
	if _, err := toml.NewDecoder(r).Decode(q); err != nil {
		return nil, fmt.Errorf("parse queue: %w", err)
	}
	return q, nil
}

// Encode writes q as TOML.
func (q *Queue) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(q)
}

// Save writes q to path, creating parent directories.
func (q *Queue) Save(path string) error {
	var buf bytes.Buffer
	if err := q.Encode(&buf); err != nil {
		return fmt.Errorf("encode queue: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create queue dir: %w", err)
		}
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Add appends an entry. Locator and channel are both required, and the
// layout must be one core.ParseLayout accepts.
func (q *Queue) Add(e Entry) error {
	e.Locator = strings.TrimSpace(e.Locator)
	if e.Locator == "" {
		return ErrEmptyLocator
	}
	if e.Channel == "" {
		return ErrEmptyChannel
	}
	if _, err := core.ParseLayout(e.Layout); err != nil {
		return fmt.Errorf("queue: %w", err)
	}
	q.Sources = append(q.Sources, e)
	return nil
}

// Remove deletes the entry at 1-based position n.
func (q *Queue) Remove(n int) (Entry, error) {
	if n < 1 || n > len(q.Sources) {
		return Entry{}, fmt.Errorf("%w: %d (queue has %d)", ErrOutOfRange, n, len(q.Sources))
	}
	e := q.Sources[n-1]
	q.Sources = append(q.Sources[:n-1], q.Sources[n:]...)
	return e, nil
}

// Clear drops every entry and the default filter.
func (q *Queue) Clear() {
	q.Sources = nil
	q.Users = nil
}

// Descriptors converts the entries for core.Pipeline.Run. Channels are
// passed through untouched; an empty one is reported by the run itself.
func (q *Queue) Descriptors() ([]core.SourceDescriptor, error) {
	out := make([]core.SourceDescriptor, 0, len(q.Sources))
	for i, e := range q.Sources {
		layout, err := core.ParseLayout(e.Layout)
		if err != nil {
			return nil, fmt.Errorf("queue entry %d: %w", i+1, err)
		}
		out = append(out, core.SourceDescriptor{
			Locator:   e.Locator,
			Channel:   e.Channel,
			Layout:    layout,
			HasHeader: e.Header,
		})
	}
	return out, nil
}

// Lines renders the queue one entry per line as "N. channel - locator".
func (q *Queue) Lines() []string {
	lines := make([]string, len(q.Sources))
	for i, e := range q.Sources {
		lines[i] = fmt.Sprintf("%d. %s - %s", i+1, e.Channel, e.Locator)
	}
	return lines
}
