package core

// reader.go turns one source descriptor into raw rows.
//
// The whole source is read into memory (bounded by the size limit) because
// the merge needs every record before it can order anything. Before parsing,
// the payload is cleaned of the two artifacts chat exports commonly carry:
//   - a UTF-8 byte order mark written by Windows tools
//   - invalid UTF-8 sequences, replaced with U+FFFD

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// DefaultMaxSourceSize caps a single source at 100MB.
const DefaultMaxSourceSize int64 = 100 * 1024 * 1024

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadSource resolves desc through opener and parses it into rows.
// Every failure is wrapped with ErrSourceUnavailable so callers can report
// it against the source and continue with the rest of the queue.
// maxSize <= 0 selects DefaultMaxSourceSize.
func ReadSource(ctx context.Context, opener Opener, desc SourceDescriptor, maxSize int64) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, desc.Locator, err)
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSourceSize
	}

	var data []byte
	if desc.Data != nil {
		data = desc.Data
		if int64(len(data)) > maxSize {
			return nil, fmt.Errorf("%w: %s: %w (%d bytes)", ErrSourceUnavailable, desc.Locator, ErrSourceTooLarge, len(data))
		}
	} else {
		if opener == nil {
			return nil, fmt.Errorf("%w: %s: no resolver configured", ErrSourceUnavailable, desc.Locator)
		}
		rc, err := opener.Open(ctx, desc)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, desc.Locator, err)
		}
		defer rc.Close()

		data, err = io.ReadAll(io.LimitReader(rc, maxSize+1))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: read: %w", ErrSourceUnavailable, desc.Locator, err)
		}
		if int64(len(data)) > maxSize {
			return nil, fmt.Errorf("%w: %s: %w (limit %d bytes)", ErrSourceUnavailable, desc.Locator, ErrSourceTooLarge, maxSize)
		}
	}

	rows, err := ParseRows(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, desc.Locator, err)
	}
	if desc.HasHeader && len(rows) > 0 {
		rows = rows[1:]
	}
	return rows, nil
}

// ParseRows parses a header-less CSV payload with no fixed row width.
func ParseRows(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	data = sanitizeUTF8(data)

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return nil, fmt.Errorf("invalid csv at line %d: %w", perr.Line, perr.Err)
		}
		return nil, fmt.Errorf("invalid csv: %w", err)
	}
	return rows, nil
}

// sanitizeUTF8 replaces each invalid byte with the replacement character.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune(utf8.RuneError)
		} else {
			buf.Write(data[:size])
		}
		data = data[size:]
	}

	return buf.Bytes()
}
