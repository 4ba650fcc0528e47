package core

import "errors"

var (
	// ErrSourceUnavailable wraps any failure to obtain a source's rows.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrMalformedRow marks a row with fewer than MinFields fields.
	ErrMalformedRow = errors.New("malformed row")

	// ErrTimestampParse marks a record whose timestamp could not be parsed.
	ErrTimestampParse = errors.New("timestamp parse failure")

	// ErrEmptyResult is returned with a valid, empty Result when every
	// source failed or every record was dropped.
	ErrEmptyResult = errors.New("empty result: no data to display")

	// ErrMergeInterrupted wraps the context error when a run's deadline
	// passed or its caller went away before the run finished.
	ErrMergeInterrupted = errors.New("merge interrupted")

	// ErrMissingChannel is reported for a descriptor without a channel label.
	ErrMissingChannel = errors.New("missing channel label")

	// ErrSourceTooLarge is reported when a source exceeds the size limit.
	ErrSourceTooLarge = errors.New("source too large")
)
