// Package dropbox wraps the Dropbox SDK with what chatmerge needs:
// refresh-token authentication, file download and file upload.
package dropbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sdk "github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
	"golang.org/x/oauth2"
)

const (
	DefaultTokenURL   = "https://api.dropbox.com/oauth2/token"
	DefaultContentURL = "https://content.dropboxapi.com"

	defaultTimeout    = 60 * time.Second
	defaultMaxRetries = 3
)

// Config holds refresh-token credentials and endpoints.
type Config struct {
	AppKey       string
	Secret       string
	RefreshToken string

	TokenURL   string
	ContentURL string

	Timeout    time.Duration
	MaxRetries int
}

// Metadata is the subset of file metadata returned by upload.
type Metadata struct {
	ID          string
	Name        string
	PathDisplay string
	Size        int64
}

// Client downloads and uploads files with a cached access token.
type Client struct {
	cfg    Config
	tokens oauth2.TokenSource
	retry  *retryTransport
}

// New creates a Client. Missing endpoints and limits fall back to defaults.
func New(cfg Config) *Client {
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.ContentURL == "" {
		cfg.ContentURL = DefaultContentURL
	}
	cfg.ContentURL = strings.TrimRight(cfg.ContentURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = defaultMaxRetries
	}

	oauth := &oauth2.Config{
		ClientID:     cfg.AppKey,
		ClientSecret: cfg.Secret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	// the token source outlives any single request, so it gets its own client
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: cfg.Timeout})

	return &Client{
		cfg:    cfg,
		tokens: oauth.TokenSource(tokenCtx, &oauth2.Token{RefreshToken: cfg.RefreshToken}),
		retry: &retryTransport{
			base:       http.DefaultTransport,
			maxRetries: cfg.MaxRetries,
			backoff:    backoffDelay,
		},
	}
}

// Open downloads the file at path. The caller closes the body.
func (c *Client) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	p := NormalizePath(path)
	_, content, err := c.files(ctx).Download(files.NewDownloadArg(p))
	if err != nil {
		return nil, fmt.Errorf("dropbox: download %s: %w", p, err)
	}
	return content, nil
}

// Upload writes payload to path, overwriting any existing file.
func (c *Client) Upload(ctx context.Context, path string, payload []byte) (Metadata, error) {
	p := NormalizePath(path)
	arg := files.NewUploadArg(p)
	arg.Mode = &files.WriteMode{Tagged: sdk.Tagged{Tag: files.WriteModeOverwrite}}
	arg.Mute = true

	res, err := c.files(ctx).Upload(arg, bytes.NewReader(payload))
	if err != nil {
		return Metadata{}, fmt.Errorf("dropbox: upload %s: %w", p, err)
	}
	return Metadata{
		ID:          res.Id,
		Name:        res.Name,
		PathDisplay: res.PathDisplay,
		Size:        int64(res.Size),
	}, nil
}

// files returns an SDK client whose requests are bound to ctx. The SDK
// calls take no context, so cancellation rides on the transport.
func (c *Client) files(ctx context.Context) files.Client {
	return files.New(sdk.Config{
		Client: &http.Client{
			Timeout: c.cfg.Timeout,
			Transport: contextTransport{
				ctx: ctx,
				next: &oauth2.Transport{
					Source: c.tokens,
					Base:   c.retry,
				},
			},
		},
		URLGenerator: c.url,
	})
}

// url routes every call to the content host; download and upload are
// the only routes used.
func (c *Client) url(hostType, namespace, route string) string {
	return fmt.Sprintf("%s/2/%s/%s", c.cfg.ContentURL, namespace, route)
}

type contextTransport struct {
	ctx  context.Context
	next http.RoundTripper
}

func (t contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.next.RoundTrip(req.WithContext(t.ctx))
}

// NormalizePath makes p absolute within the Dropbox namespace.
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
