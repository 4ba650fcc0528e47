// Package source resolves source locators to readable streams.
//
// A locator's shape picks the resolver:
//
//	dropbox:/path, dropbox://path   Dropbox file
//	~/rel                           file under the user's home directory
//	file:///abs, plain path         local file
//
// In-memory sources never reach the router; core.ReadSource reads
// SourceDescriptor.Data directly.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/JonMunkholm/chatmerge/internal/core"
)

// Kind names a family of locators.
type Kind string

const (
	KindLocal   Kind = "local"
	KindHome    Kind = "home"
	KindDropbox Kind = "dropbox"
)

var (
	ErrNoResolver   = errors.New("no resolver for locator")
	ErrEmptyLocator = errors.New("empty locator")
)

// Resolver opens a locator of one Kind. The locator is passed with its
// scheme prefix stripped.
type Resolver interface {
	Open(ctx context.Context, locator string) (io.ReadCloser, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, locator string) (io.ReadCloser, error)

func (f ResolverFunc) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	return f(ctx, locator)
}

// Router dispatches descriptors to the resolver registered for their Kind.
// It implements core.Opener.
type Router struct {
	resolvers map[Kind]Resolver
}

// NewRouter returns an empty Router.
func NewRouter() *Router {
	return &Router{resolvers: map[Kind]Resolver{}}
}

// Options selects which resolvers New registers.
type Options struct {
	// AllowLocal registers the local and home resolvers.
	AllowLocal bool
	LocalRoot  string

	// Dropbox is registered when non-nil; *dropbox.Client satisfies it.
	Dropbox Resolver

	HomeDir func() (string, error)
}

// New builds a Router from opts.
func New(opts Options) *Router {
	r := NewRouter()
	if opts.AllowLocal {
		local := &Local{Root: opts.LocalRoot}
		r.Register(KindLocal, local)
		r.Register(KindHome, &Home{Local: local, HomeDir: opts.HomeDir})
	}
	if opts.Dropbox != nil {
		r.Register(KindDropbox, opts.Dropbox)
	}
	return r
}

// Register adds or replaces the resolver for kind.
func (r *Router) Register(kind Kind, res Resolver) {
	r.resolvers[kind] = res
}

// Kinds returns the registered kinds, sorted.
func (r *Router) Kinds() []Kind {
	kinds := make([]Kind, 0, len(r.resolvers))
	for k := range r.resolvers {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Open implements core.Opener.
func (r *Router) Open(ctx context.Context, desc core.SourceDescriptor) (io.ReadCloser, error) {
	kind, rest := Classify(desc.Locator)
	if rest == "" {
		return nil, ErrEmptyLocator
	}
	res, ok := r.resolvers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s (%s sources are not enabled)", ErrNoResolver, desc.Locator, kind)
	}
	return res.Open(ctx, rest)
}

// Classify returns the Kind of locator and the locator without its prefix.
func Classify(locator string) (Kind, string) {
	loc := strings.TrimSpace(locator)

	switch {
	case strings.HasPrefix(loc, "dropbox://"):
		return KindDropbox, "/" + strings.TrimLeft(strings.TrimPrefix(loc, "dropbox://"), "/")
	case strings.HasPrefix(loc, "dropbox:"):
		p := strings.TrimPrefix(loc, "dropbox:")
		if p == "" {
			return KindDropbox, ""
		}
		return KindDropbox, "/" + strings.TrimLeft(p, "/")
	case loc == "~" || strings.HasPrefix(loc, "~/"):
		return KindHome, loc
	case strings.HasPrefix(loc, "file://"):
		return KindLocal, strings.TrimPrefix(loc, "file://")
	default:
		return KindLocal, loc
	}
}
