package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/JonMunkholm/chatmerge/internal/core"
)

// SourceRequest is one source in a JSON request. Data carries the CSV text
// inline; otherwise Locator is resolved by the source router.
type SourceRequest struct {
	Locator string `json:"locator"`
	Channel string `json:"channel"`
	Layout  string `json:"layout,omitempty"`
	Header  bool   `json:"header,omitempty"`
	Data    string `json:"data,omitempty"`
}

// MergeRequest is the body of /api/merge, /api/export and /api/save.
type MergeRequest struct {
	Sources []SourceRequest `json:"sources"`
	Users   []string        `json:"users,omitempty"`

	// Save and export only
	Name string `json:"name,omitempty"`
	Sink string `json:"sink,omitempty"`
}

// RecordJSON is a merged record on the wire.
type RecordJSON struct {
	ID        string `json:"id"`
	User      string `json:"user"`
	Timestamp string `json:"timestamp"`
	Time      string `json:"time"` // parsed instant, RFC 3339 UTC
	Message   string `json:"message"`
	Channel   string `json:"channel"`
}

// MergeResponse is the JSON form of a pipeline result.
type MergeResponse struct {
	RunID    string              `json:"run_id"`
	Records  []RecordJSON        `json:"records"`
	Users    []string            `json:"users"`
	Total    int                 `json:"total"`
	Selected int                 `json:"selected"`
	Dropped  int                 `json:"dropped"`
	Skipped  []core.Skip         `json:"skipped"`
	Sources  []core.SourceReport `json:"sources"`
	Empty    bool                `json:"empty"`
	Message  string              `json:"message,omitempty"`
	Code     string              `json:"code,omitempty"`
}

func decodeMergeRequest(w http.ResponseWriter, r *http.Request, maxBytes int64) (MergeRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	var req MergeRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("%w: %v", errInvalidRequest, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return req, fmt.Errorf("%w: trailing data after JSON body", errInvalidRequest)
	}
	return req, nil
}

// descriptors validates req and converts its sources.
func (s *Server) descriptors(sources []SourceRequest) ([]core.SourceDescriptor, error) {
	if len(sources) == 0 {
		return nil, errNoSources
	}
	if max := s.cfg.Merge.MaxSources; max > 0 && len(sources) > max {
		return nil, fmt.Errorf("%w: %d (max %d)", errTooManySources, len(sources), max)
	}

	out := make([]core.SourceDescriptor, 0, len(sources))
	for i, src := range sources {
		layout, err := core.ParseLayout(strings.ToLower(src.Layout))
		if err != nil {
			return nil, fmt.Errorf("%w: source %d: %v", errInvalidRequest, i+1, err)
		}
		desc := core.SourceDescriptor{
			Locator:   src.Locator,
			Channel:   src.Channel,
			Layout:    layout,
			HasHeader: src.Header,
		}
		if src.Data != "" {
			desc.Data = []byte(src.Data)
			if desc.Locator == "" {
				desc.Locator = fmt.Sprintf("inline-%d", i+1)
			}
		}
		if desc.Locator == "" {
			return nil, fmt.Errorf("%w: source %d has neither locator nor data", errInvalidRequest, i+1)
		}
		out = append(out, desc)
	}
	return out, nil
}

// run executes one pipeline run inside a limiter slot. ErrEmptyResult is
// returned together with the result.
func (s *Server) run(ctx context.Context, sources []core.SourceDescriptor, users []string) (*core.Result, error) {
	var res *core.Result
	err := s.limiter.Do(ctx, func() error {
		if s.cfg.Merge.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.cfg.Merge.Timeout)
			defer cancel()
		}
		var err error
		res, err = s.pipeline.Run(ctx, sources, users)
		return err
	})
	return res, err
}

func (s *Server) exportOptions() core.ExportOptions {
	return core.ExportOptions{TimestampLayout: s.cfg.Export.TimestampFormat}
}

func newMergeResponse(res *core.Result) MergeResponse {
	resp := MergeResponse{
		RunID:    res.RunID,
		Records:  make([]RecordJSON, 0, res.View.Len()),
		Users:    res.Timeline.Users(),
		Total:    res.Timeline.Len(),
		Selected: res.View.Len(),
		Dropped:  res.Dropped,
		Skipped:  res.Skipped,
		Sources:  res.Sources,
	}
	if resp.Users == nil {
		resp.Users = []string{}
	}
	if resp.Skipped == nil {
		resp.Skipped = []core.Skip{}
	}
	for i := 0; i < res.View.Len(); i++ {
		r := res.View.At(i)
		resp.Records = append(resp.Records, RecordJSON{
			ID:        r.ID,
			User:      r.User,
			Timestamp: r.RawTimestamp,
			Time:      r.Timestamp.UTC().Format("2006-01-02T15:04:05Z07:00"),
			Message:   r.Message,
			Channel:   r.Channel,
		})
	}
	if res.Timeline.Len() == 0 {
		msg := core.MapError(core.ErrEmptyResult)
		resp.Empty = true
		resp.Message = msg.Message
		resp.Code = msg.Code
	}
	return resp
}
