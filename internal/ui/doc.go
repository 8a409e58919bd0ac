// Package ui implements the interactive player using bubbletea's Elm architecture.
//
// The TUI is a single library screen with a few overlays:
//  1. [LibraryView] : Browse the current view, control playback, watch the visualizer
//  2. [SearchView] : Filter the current view as you type
//  3. [PlaylistsView] : Switch between the library and playlists, create or delete playlists
//  4. [NewPlaylistView] : Name a new playlist
//  5. [AddToPlaylistView] : Add the highlighted track to a playlist
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Sync progress flows through a channel from the library sync task, frames arrive from the audio engine's analyser,
// and a periodic tick refreshes the playback snapshot.
//
// Keyboard navigation uses vim-style bindings with contextual help displayed via charmbracelet/bubbles/help.
package ui
