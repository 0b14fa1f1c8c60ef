// Package logfields holds the canonical structured log field names so keys
// do not drift across packages.
package logfields

import "log/slog"

const (
	KeyBuildID    = "build_id"
	KeyTaskID     = "task_id"
	KeyTaskKind   = "kind"
	KeySection    = "section"
	KeyOwnerID    = "owner_id"
	KeyStyle      = "style"
	KeyPath       = "path"
	KeyEventType  = "type"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Helpers return slog.Attr so callers can compose them freely.
func BuildID(id string) slog.Attr      { return slog.String(KeyBuildID, id) }
func TaskID(id string) slog.Attr       { return slog.String(KeyTaskID, id) }
func TaskKind(kind string) slog.Attr   { return slog.String(KeyTaskKind, kind) }
func Section(id string) slog.Attr      { return slog.String(KeySection, id) }
func OwnerID(id string) slog.Attr      { return slog.String(KeyOwnerID, id) }
func Style(style string) slog.Attr     { return slog.String(KeyStyle, style) }
func Path(path string) slog.Attr       { return slog.String(KeyPath, path) }
func EventType(t string) slog.Attr     { return slog.String(KeyEventType, t) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
