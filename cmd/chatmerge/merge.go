package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/chatmerge/internal/application"
	"github.com/JonMunkholm/chatmerge/internal/core"
	"github.com/JonMunkholm/chatmerge/internal/queue"
	"github.com/JonMunkholm/chatmerge/internal/sink"
)

var errNoQueue = errors.New("queue is empty")

// runFlags select the sources and filter of one run.
type runFlags struct {
	sources []string // LOCATOR=CHANNEL
	users   []string
	layout  string
	header  bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&f.sources, "source", "s", nil, "Source as LOCATOR=CHANNEL (repeatable; replaces the queue)")
	cmd.Flags().StringSliceVarP(&f.users, "user", "u", nil, "Only keep messages by these users (repeatable or comma-separated)")
	cmd.Flags().StringVar(&f.layout, "layout", "auto", "Column layout of --source files: auto, four or five")
	cmd.Flags().BoolVar(&f.header, "header", false, "--source files start with a header row")
}

// descriptors returns the --source flags, or the queue file when none are
// given. Users from the queue apply unless --user is set.
func (f *runFlags) descriptors(queuePath string) ([]core.SourceDescriptor, []string, error) {
	if len(f.sources) > 0 {
		layout, err := core.ParseLayout(strings.ToLower(f.layout))
		if err != nil {
			return nil, nil, err
		}
		out := make([]core.SourceDescriptor, 0, len(f.sources))
		for _, s := range f.sources {
			locator, channel, err := parseSourceFlag(s)
			if err != nil {
				return nil, nil, err
			}
			out = append(out, core.SourceDescriptor{
				Locator:   locator,
				Channel:   channel,
				Layout:    layout,
				HasHeader: f.header,
			})
		}
		return out, f.users, nil
	}

	q, err := queue.Load(queuePath)
	if err != nil {
		return nil, nil, err
	}
	if len(q.Sources) == 0 {
		return nil, nil, fmt.Errorf("%w: pass --source LOCATOR=CHANNEL or add entries with 'chatmerge queue add'", errNoQueue)
	}
	descs, err := q.Descriptors()
	if err != nil {
		return nil, nil, err
	}
	users := f.users
	if len(users) == 0 {
		users = q.Users
	}
	return descs, users, nil
}

// parseSourceFlag splits LOCATOR=CHANNEL at the last '='.
func parseSourceFlag(s string) (string, string, error) {
	i := strings.LastIndex(s, "=")
	if i <= 0 || i == len(s)-1 {
		return "", "", fmt.Errorf("invalid --source %q: want LOCATOR=CHANNEL", s)
	}
	return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:]), nil
}

// runPipeline wires the app and performs one run. An empty result is
// reported on stderr and returned as a nil App and Result with a nil error.
func runPipeline(cmd *cobra.Command, rf *runFlags, queuePath string) (*application.App, *core.Result, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	sources, users, err := rf.descriptors(queuePath)
	if err != nil {
		return nil, nil, err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := application.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Merge.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Merge.Timeout)
		defer cancel()
	}

	res, err := app.Pipeline.Run(ctx, sources, users)
	printSkipped(cmd.ErrOrStderr(), res)
	if core.IsEmptyResult(err) {
		fmt.Fprintln(cmd.ErrOrStderr(), "no data to display")
		app.Close()
		return nil, nil, nil
	}
	if err != nil {
		app.Close()
		return nil, nil, err
	}
	if res.View.Len() == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "no messages match the selected users")
	}
	return app, res, nil
}

func printSkipped(w io.Writer, res *core.Result) {
	if res == nil {
		return
	}
	for _, s := range res.Skipped {
		switch {
		case s.Line > 0:
			fmt.Fprintf(w, "skipped %s %s:%d: %s\n", s.Kind, s.Source, s.Line, s.Reason)
		default:
			fmt.Fprintf(w, "skipped %s %s: %s\n", s.Kind, s.Source, s.Reason)
		}
	}
}

func mergeCmd(opts *rootOptions) *cobra.Command {
	rf := &runFlags{}
	var out, tsFormat string

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge the queued sources and write the CSV",
		Long: `Reads every source, orders all messages by timestamp and writes
ID,User,Timestamp,Message,Channel rows. Unreadable sources and malformed rows
are reported on stderr and left out. With no --out the CSV goes to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, res, err := runPipeline(cmd, rf, opts.queuePath)
			if err != nil || res == nil {
				return err
			}
			defer app.Close()

			exportOpts := core.ExportOptions{TimestampLayout: app.Config.Export.TimestampFormat}
			if tsFormat != "" {
				exportOpts.TimestampLayout = tsFormat
			}

			if out == "" || out == "-" {
				return core.WriteCSV(cmd.OutOrStdout(), res.View, exportOpts)
			}
			payload, err := core.ExportCSV(res.View, exportOpts)
			if err != nil {
				return err
			}
			if dir := filepath.Dir(out); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
			}
			if err := os.WriteFile(out, payload, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d records to %s\n", res.View.Len(), out)
			return nil
		},
	}

	rf.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	cmd.Flags().StringVar(&tsFormat, "timestamp-format", "", "Go time layout for the Timestamp column (default: source text)")
	return cmd
}

func usersCmd(opts *rootOptions) *cobra.Command {
	rf := &runFlags{}

	cmd := &cobra.Command{
		Use:   "users",
		Short: "List the distinct users found in the queued sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rf.users = nil
			app, res, err := runPipeline(cmd, rf, opts.queuePath)
			if err != nil || res == nil {
				return err
			}
			defer app.Close()

			for _, u := range res.Timeline.Users() {
				fmt.Fprintln(cmd.OutOrStdout(), u)
			}
			return nil
		},
	}

	rf.register(cmd)
	cmd.Flags().Lookup("user").Hidden = true
	return cmd
}

func saveCmd(opts *rootOptions) *cobra.Command {
	rf := &runFlags{}
	var sinkName, name string

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Merge the queued sources and store the CSV in a sink",
		Long:  `Sinks: file (EXPORT_DIR), dropbox (EXPORT_DROPBOX_DIR, needs credentials) and postgres (needs DATABASE_URL).`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, res, err := runPipeline(cmd, rf, opts.queuePath)
			if err != nil || res == nil {
				return err
			}
			defer app.Close()

			dest, err := app.Sinks.Get(sinkName)
			if err != nil {
				return err
			}
			payload, err := core.ExportCSV(res.View, core.ExportOptions{TimestampLayout: app.Config.Export.TimestampFormat})
			if err != nil {
				return err
			}
			if name == "" {
				name = app.Config.Export.FileName
			}

			saved, err := dest.Save(cmd.Context(), sink.Export{
				Name:    name,
				Payload: payload,
				Records: res.View.Len(),
				RunID:   res.RunID,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "saved %d records to %s\n", saved.Records, saved.Location)
			return nil
		},
	}

	rf.register(cmd)
	cmd.Flags().StringVar(&sinkName, "sink", "file", "Destination sink (file, dropbox, postgres)")
	cmd.Flags().StringVar(&name, "name", "", "Export file name (default EXPORT_FILE_NAME)")
	return cmd
}
