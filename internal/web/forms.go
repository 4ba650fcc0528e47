package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/JonMunkholm/chatmerge/internal/core"
)

// maxFieldSize caps a non-file multipart field.
const maxFieldSize = 64 << 10

// uploadForm is a parsed multipart upload.
type uploadForm struct {
	Sources []core.SourceDescriptor
	Users   []string
}

type uploadedFile struct {
	name string
	data []byte
}

// readUploadForm streams a multipart body. The k-th "file" part is paired
// with the k-th "channel" part; empty file inputs keep their slot so the
// pairing survives a partly filled form. Layout and header apply to every
// file.
func (s *Server) readUploadForm(w http.ResponseWriter, r *http.Request) (*uploadForm, error) {
	maxSize := s.cfg.Merge.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidRequest, err)
	}

	var (
		files    []uploadedFile
		channels []string
		form     = &uploadForm{}
		layout   = core.LayoutAuto
		header   bool
	)

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, formReadError(err)
		}

		name := part.FormName()
		limit := int64(maxFieldSize)
		if name == "file" {
			limit = maxSize
		}
		data, err := io.ReadAll(io.LimitReader(part, limit+1))
		part.Close()
		if err != nil {
			return nil, formReadError(err)
		}
		if int64(len(data)) > limit {
			if name == "file" {
				return nil, fmt.Errorf("%w: %s", core.ErrSourceTooLarge, part.FileName())
			}
			return nil, fmt.Errorf("%w: field %s too long", errInvalidRequest, name)
		}

		switch name {
		case "file":
			files = append(files, uploadedFile{name: part.FileName(), data: data})
		case "channel":
			channels = append(channels, string(data))
		case "user":
			if u := strings.TrimSpace(string(data)); u != "" {
				form.Users = append(form.Users, u)
			}
		case "users":
			form.Users = append(form.Users, splitList(string(data))...)
		case "layout":
			l, err := core.ParseLayout(strings.ToLower(strings.TrimSpace(string(data))))
			if err != nil {
				return nil, fmt.Errorf("%w: %v", errInvalidRequest, err)
			}
			layout = l
		case "header":
			v := strings.ToLower(strings.TrimSpace(string(data)))
			header = v == "true" || v == "on" || v == "1"
		}
	}

	for i, f := range files {
		if f.name == "" && len(f.data) == 0 {
			continue
		}
		channel := ""
		if i < len(channels) {
			channel = channels[i]
		}
		locator := f.name
		if locator == "" {
			locator = fmt.Sprintf("upload-%d", i+1)
		}
		form.Sources = append(form.Sources, core.SourceDescriptor{
			Locator:   locator,
			Channel:   channel,
			Layout:    layout,
			HasHeader: header,
			Data:      f.data,
		})
	}

	if len(form.Sources) == 0 {
		return nil, errNoSources
	}
	if max := s.cfg.Merge.MaxSources; max > 0 && len(form.Sources) > max {
		return nil, fmt.Errorf("%w: %d (max %d)", errTooManySources, len(form.Sources), max)
	}
	return form, nil
}

func formReadError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Errorf("%w: upload exceeds %d bytes", core.ErrSourceTooLarge, maxErr.Limit)
	}
	return fmt.Errorf("%w: %v", errInvalidRequest, err)
}

// splitList splits a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
