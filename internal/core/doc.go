// Package core merges chat-export CSV sources into one ordered timeline.
//
// The package has no transport, storage or UI dependencies. Web handlers,
// the CLI and tests drive it the same way.
//
// # Pipeline
//
// A caller passes a list of [SourceDescriptor] values (its own queue) to
// [Pipeline.Run]. For each source, in order:
//
//  1. [ReadSource] resolves the descriptor through an [Opener], strips a
//     BOM, repairs invalid UTF-8 and parses header-less CSV rows of any width.
//  2. [Normalize] maps fields 0-3 onto id, user, timestamp and message and
//     attaches the source's channel label.
//
// Then [Merge] parses timestamps, drops the ones it cannot read and sorts
// the rest stably by instant, producing an immutable [Timeline].
// [Timeline.Filter] narrows it to a set of users as a [View], and
// [ExportCSV] serializes either into the payload every sink receives.
//
// # Failure handling
//
// Nothing in a run is fatal. Unreadable sources, short rows and unparseable
// timestamps are recorded as [Skip] entries at the smallest granularity and
// the run continues. A run without surviving records returns
// [ErrEmptyResult] alongside its Result.
//
// # Error Handling
//
// [MapError] turns technical errors into a [UserMessage] with a support code.
package core
