// Package views renders the HTML pages and fragments of the web UI as templ
// components.
package views

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/chatmerge/internal/core"
)

// DashboardData configures the upload form.
type DashboardData struct {
	Slots       int // number of file/channel rows in the form
	PreviewRows int
	MaxFileSize int64
	Sinks       []string
}

// PreviewData is one merged run, cut down for display.
type PreviewData struct {
	RunID    string
	Records  []core.Record // at most PreviewRows records
	Total    int           // records in the merged timeline
	Selected int           // records after the user filter
	Users    []string      // every distinct user in the timeline
	Filter   []string      // the users that were selected
	Skipped  []core.Skip
	Dropped  int
}

// Empty reports whether nothing survived the merge.
func (p PreviewData) Empty() bool {
	return p.Total == 0
}

const pageHead = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s</title>
<style>
body{font-family:system-ui,sans-serif;margin:2rem;color:#1f2937}
table{border-collapse:collapse;width:100%%;font-size:.875rem}
th,td{border:1px solid #e5e7eb;padding:.25rem .5rem;text-align:left;vertical-align:top}
th{background:#f3f4f6}
.alert{border:1px solid #fca5a5;background:#fef2f2;padding:.75rem;margin:1rem 0}
.muted{color:#6b7280}
.slot{margin:.25rem 0}
</style>
</head>
<body>
`

const pageFoot = "</body>\n</html>\n"

// page writes markup to w, escaping every arg with templ.EscapeString.
type page struct {
	w   io.Writer
	err error
}

func (p *page) raw(s string) {
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.w, s)
}

func (p *page) printf(format string, args ...string) {
	escaped := make([]any, len(args))
	for i, a := range args {
		escaped[i] = templ.EscapeString(a)
	}
	p.raw(fmt.Sprintf(format, escaped...))
}

// Dashboard renders the upload form.
func Dashboard(d DashboardData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &page{w: w}
		p.printf(pageHead, "chatmerge")
		p.raw("<h1>chatmerge</h1>\n")
		p.raw(`<p class="muted">Add chat export CSV files, give each a channel name, then preview or download the merged timeline.</p>` + "\n")
		p.raw(`<form method="post" enctype="multipart/form-data" action="/preview">` + "\n")

		for i := 1; i <= d.Slots; i++ {
			n := fmt.Sprint(i)
			p.printf(`<div class="slot"><input type="file" name="file" accept=".csv,text/csv" aria-label="File %s"> `+
				`<input type="text" name="channel" placeholder="Channel name" aria-label="Channel %s"></div>`+"\n", n, n)
		}

		p.raw(`<p><label>Layout <select name="layout">` +
			`<option value="auto">auto</option><option value="four">four columns</option><option value="five">five columns</option>` +
			`</select></label> <label><input type="checkbox" name="header" value="true"> files have a header row</label></p>` + "\n")
		p.raw(`<p><label>Users (comma separated, empty for everyone) <input type="text" name="users"></label></p>` + "\n")
		p.raw(`<p><button type="submit">Preview</button> <button type="submit" formaction="/download">Download merged_logs.csv</button></p>` + "\n")
		p.raw("</form>\n")

		p.printf(`<p class="muted">Preview shows up to %s rows. Files up to %s bytes.`, fmt.Sprint(d.PreviewRows), fmt.Sprint(d.MaxFileSize))
		if len(d.Sinks) > 0 {
			p.printf(" Save destinations: %s.", strings.Join(d.Sinks, ", "))
		}
		p.raw("</p>\n")
		p.raw(pageFoot)
		return p.err
	})
}

// Preview renders the merged table with the skipped list.
func Preview(d PreviewData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &page{w: w}
		p.printf(pageHead, "chatmerge preview")
		p.raw(`<p><a href="/">Back</a></p>` + "\n")

		if d.Empty() {
			if err := ErrorAlert("No data to display", "Check the skipped sources and rows, then add more files", "RES001").Render(ctx, w); err != nil {
				return err
			}
		} else {
			p.printf(`<h2>Merged timeline</h2><p class="muted">Run %s: %s records, %s selected, %s shown`,
				d.RunID, fmt.Sprint(d.Total), fmt.Sprint(d.Selected), fmt.Sprint(len(d.Records)))
			if d.Dropped > 0 {
				p.printf(", %s dropped for unreadable timestamps", fmt.Sprint(d.Dropped))
			}
			p.raw(".</p>\n")

			if len(d.Filter) > 0 {
				p.printf(`<p>Filtered to: %s</p>`+"\n", strings.Join(d.Filter, ", "))
			}
			p.printf(`<p class="muted">Users: %s</p>`+"\n", strings.Join(d.Users, ", "))

			p.raw("<table>\n<thead><tr>")
			for _, h := range core.ExportHeader {
				p.printf("<th>%s</th>", h)
			}
			p.raw("</tr></thead>\n<tbody>\n")
			for _, r := range d.Records {
				p.printf("<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>\n",
					r.ID, r.User, r.RawTimestamp, r.Message, r.Channel)
			}
			p.raw("</tbody>\n</table>\n")
		}

		if len(d.Skipped) > 0 {
			p.printf("<h3>Skipped (%s)</h3>\n<ul>\n", fmt.Sprint(len(d.Skipped)))
			for _, s := range d.Skipped {
				where := s.Source
				if s.Line > 0 {
					where = fmt.Sprintf("%s line %d", s.Source, s.Line)
				}
				p.printf("<li>%s: %s (%s)</li>\n", where, s.Reason, string(s.Kind))
			}
			p.raw("</ul>\n")
		}

		p.raw(pageFoot)
		return p.err
	})
}

// ErrorAlert renders an error fragment with the support code.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &page{w: w}
		p.printf(`<div class="alert" role="alert"><strong>%s</strong>`, message)
		if action != "" {
			p.printf(`<div>%s</div>`, action)
		}
		if code != "" {
			p.printf(`<div class="muted">Code: %s</div>`, code)
		}
		p.raw("</div>\n")
		return p.err
	})
}
