// Package tasks runs the long operations behind the CLI and TUI, reporting progress over channels.
//
// # Library Sync
//
// [LibrarySync.Run] obtains a credential from the session and lists the remote library:
//
//   - a live credential is used as is; otherwise a stored one is resumed
//   - interactive syncs fall back to the consent prompt
//   - when the provider rejects the credential, the session is invalidated and an
//     interactive sync reconnects and retries exactly once
//
// # Playlist Export
//
// [Export] writes listings to csv, markdown, txt, or json with a bounded worker pool and
// finishes with export_manifest.json. Markdown exports download the cover of the first
// track, throttled with a rate limiter.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data.
// Updates use select with default to prevent blocking.
package tasks
