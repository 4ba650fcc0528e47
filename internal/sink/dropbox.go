package sink

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/JonMunkholm/chatmerge/internal/dropbox"
)

// Uploader is satisfied by *dropbox.Client.
type Uploader interface {
	Upload(ctx context.Context, path string, payload []byte) (dropbox.Metadata, error)
}

// Dropbox uploads exports into a Dropbox folder.
type Dropbox struct {
	client Uploader
	dir    string
	now    func() time.Time
}

// NewDropbox returns a sink that uploads into dir.
func NewDropbox(client Uploader, dir string) *Dropbox {
	return &Dropbox{client: client, dir: dropbox.NormalizePath(dir), now: time.Now}
}

func (d *Dropbox) Name() string { return "dropbox" }

func (d *Dropbox) Save(ctx context.Context, exp Export) (Saved, error) {
	name, err := CleanName(exp.Name, "merged_logs.csv")
	if err != nil {
		return Saved{}, err
	}

	md, err := d.client.Upload(ctx, path.Join(d.dir, name), exp.Payload)
	if err != nil {
		return Saved{}, fmt.Errorf("export: dropbox upload: %w", err)
	}

	return Saved{
		ID:        md.ID,
		Sink:      d.Name(),
		Location:  "dropbox:" + md.PathDisplay,
		Name:      name,
		Records:   exp.Records,
		Bytes:     len(exp.Payload),
		CreatedAt: d.now().UTC(),
	}, nil
}
