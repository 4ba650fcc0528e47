package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned when a local path escapes the configured root.
var ErrOutsideRoot = errors.New("path is outside source root")

// Local opens files from the local filesystem, optionally confined to Root.
type Local struct {
	// Root confines every path when non-empty. Relative paths are joined to it.
	Root string
}

// Resolve returns the cleaned absolute path for p.
func (l *Local) Resolve(p string) (string, error) {
	if p == "" {
		return "", ErrEmptyLocator
	}

	if l.Root == "" {
		return filepath.Abs(p)
	}

	root, err := filepath.Abs(l.Root)
	if err != nil {
		return "", fmt.Errorf("resolve source root: %w", err)
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(root, p)
	}
	p = filepath.Clean(p)

	if !within(root, p) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, p)
	}

	// a symlink under root may still point elsewhere
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		realRoot = root
	}
	real, err := filepath.EvalSymlinks(p)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Open reports the missing file
	case err != nil:
		return "", fmt.Errorf("resolve %s: %w", p, err)
	case !within(realRoot, real):
		return "", fmt.Errorf("%w: %s links to %s", ErrOutsideRoot, p, real)
	}
	return p, nil
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Open implements Resolver.
func (l *Local) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := l.Resolve(p)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return os.Open(path)
}

// Home opens "~/" paths relative to the user's home directory, then defers
// to Local so the root restriction still applies.
type Home struct {
	Local *Local

	// HomeDir defaults to os.UserHomeDir.
	HomeDir func() (string, error)
}

// Open implements Resolver.
func (h *Home) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	homeDir := h.HomeDir
	if homeDir == nil {
		homeDir = os.UserHomeDir
	}
	home, err := homeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	local := h.Local
	if local == nil {
		local = &Local{}
	}
	return local.Open(ctx, expandHome(p, home))
}

func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		return filepath.Join(home, path[2:])
	}
	return path
}
