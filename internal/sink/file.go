package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// File writes exports into a local directory.
type File struct {
	Dir string
	now func() time.Time
}

// NewFile returns a File sink rooted at dir.
func NewFile(dir string) *File {
	return &File{Dir: dir, now: time.Now}
}

func (f *File) Name() string { return "file" }

// Save writes the payload to Dir/Name through a temp file and rename so a
// reader never sees a partial export.
func (f *File) Save(ctx context.Context, exp Export) (Saved, error) {
	if err := ctx.Err(); err != nil {
		return Saved{}, err
	}

	name, err := CleanName(exp.Name, "merged_logs.csv")
	if err != nil {
		return Saved{}, err
	}
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return Saved{}, fmt.Errorf("export: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(f.Dir, "."+name+".*")
	if err != nil {
		return Saved{}, fmt.Errorf("export: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(exp.Payload); err != nil {
		tmp.Close()
		return Saved{}, fmt.Errorf("export: write: %w", err)
	}
	// CreateTemp makes the file owner-only
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return Saved{}, fmt.Errorf("export: chmod: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Saved{}, fmt.Errorf("export: close: %w", err)
	}

	dest := filepath.Join(f.Dir, name)
	if err := os.Rename(tmpName, dest); err != nil {
		return Saved{}, fmt.Errorf("export: rename: %w", err)
	}

	abs, err := filepath.Abs(dest)
	if err != nil {
		abs = dest
	}
	return Saved{
		Sink:      f.Name(),
		Location:  abs,
		Name:      name,
		Records:   exp.Records,
		Bytes:     len(exp.Payload),
		CreatedAt: f.now().UTC(),
	}, nil
}
