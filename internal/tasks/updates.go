package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	Authenticate Phase = iota
	Reconnect
	ListTracks
	ExportPlaylist
)

func (p Phase) String() string {
	switch p {
	case Authenticate:
		return "authenticate"
	case Reconnect:
		return "reconnect"
	case ListTracks:
		return "list_tracks"
	case ExportPlaylist:
		return "export_playlist"
	default:
		return ""
	}
}

func authenticateUpdate(interactive bool) ProgressUpdate {
	msg := "Restoring saved session..."
	if interactive {
		msg = "Waiting for sign-in in your browser..."
	}
	return ProgressUpdate{Phase: Authenticate, Step: 1, Total: 1, Message: msg}
}

func reconnectUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   Reconnect,
		Step:    1,
		Total:   1,
		Message: "Session expired, signing in again...",
	}
}

func listTracksUpdate(step, total int, source string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ListTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Listing audio from %s...", source),
	}
}

func listedTracksUpdate(step, total, count int, source string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ListTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Found %d tracks in %s", count, source),
		Data:    count,
	}
}

func exportingPlaylistUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, name),
	}
}

func exportCompletedUpdate(step, total int, name string, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, name, filesCount),
	}
}

func exportFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
