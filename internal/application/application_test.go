package application

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/JonMunkholm/chatmerge/internal/config"
	"github.com/JonMunkholm/chatmerge/internal/core"
	"github.com/JonMunkholm/chatmerge/internal/source"
)

func baseConfig(t *testing.T) *config.Config {
	return &config.Config{
		Merge: config.MergeConfig{
			MaxFileSize:   1 << 20,
			MaxConcurrent: 1,
			MaxWaitTime:   time.Second,
		},
		Source: config.SourceConfig{AllowLocal: true, LocalRoot: t.TempDir()},
		Export: config.ExportConfig{Dir: t.TempDir(), DropboxDir: "/chatmerge"},
	}
}

func TestNew_LocalOnly(t *testing.T) {
	cfg := baseConfig(t)
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	if diff := cmp.Diff([]string{"file"}, a.Sinks.Names()); diff != "" {
		t.Errorf("sinks (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]source.Kind{source.KindHome, source.KindLocal}, a.Sources.Kinds()); diff != "" {
		t.Errorf("source kinds (-want +got):\n%s", diff)
	}
	if a.Exports != nil || a.Dropbox != nil {
		t.Error("database and dropbox should stay unwired")
	}
}

func TestNew_Dropbox(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Source.AllowLocal = false
	cfg.Dropbox = config.DropboxConfig{AppKey: "k", Secret: "s", RefreshToken: "r", Timeout: time.Second}

	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	if diff := cmp.Diff([]string{"dropbox", "file"}, a.Sinks.Names()); diff != "" {
		t.Errorf("sinks (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]source.Kind{source.KindDropbox}, a.Sources.Kinds()); diff != "" {
		t.Errorf("source kinds (-want +got):\n%s", diff)
	}
}

func TestNew_BadDatabaseURL(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Database.URL = "://not a url"
	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatal("expected error for an unparsable database URL")
	}
}

func TestNew_PipelineReadsLocalRoot(t *testing.T) {
	cfg := baseConfig(t)
	path := filepath.Join(cfg.Source.LocalRoot, "a.csv")
	if err := os.WriteFile(path, []byte("1,alice,2024-01-01T10:00:00,hi\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	res, err := a.Pipeline.Run(context.Background(), []core.SourceDescriptor{{Locator: "a.csv", Channel: "general"}}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.View.Len() != 1 || res.View.At(0).Channel != "general" {
		t.Errorf("records = %+v", res.View.Records())
	}
}
