// Package sink stores exported CSV payloads.
package sink

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var (
	ErrUnknownSink    = errors.New("unknown sink")
	ErrExportNotFound = errors.New("export not found")
	ErrInvalidName    = errors.New("export: invalid name")
)

// Export is one payload handed to a sink.
type Export struct {
	Name    string
	Payload []byte
	Records int
	RunID   string
}

// Saved describes where a sink put an export.
type Saved struct {
	ID        string    `json:"id,omitempty"`
	Sink      string    `json:"sink"`
	Location  string    `json:"location"`
	Name      string    `json:"name"`
	Records   int       `json:"records"`
	Bytes     int       `json:"bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// Sink persists exports.
type Sink interface {
	Name() string
	Save(ctx context.Context, exp Export) (Saved, error)
}

// Registry maps sink names to configured sinks.
type Registry struct {
	sinks map[string]Sink
}

// NewRegistry registers every non-nil sink under its Name.
func NewRegistry(sinks ...Sink) *Registry {
	r := &Registry{sinks: map[string]Sink{}}
	for _, s := range sinks {
		if s != nil {
			r.sinks[s.Name()] = s
		}
	}
	return r
}

// Get returns the sink called name.
func (r *Registry) Get(name string) (Sink, error) {
	s, ok := r.sinks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (configured: %s)", ErrUnknownSink, name, strings.Join(r.Names(), ", "))
	}
	return s, nil
}

// Names returns the configured sink names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sinks))
	for n := range r.sinks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// CleanName reduces name to a safe base file name ending in .csv.
// The empty name becomes fallback.
func CleanName(name, fallback string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = fallback
	}
	name = filepath.Base(filepath.Clean("/" + name))
	if name == "/" || name == "." || name == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if !strings.EqualFold(filepath.Ext(name), ".csv") {
		name += ".csv"
	}
	return name, nil
}
