package logfields

import (
	"errors"
	"log/slog"
	"testing"
)

// Key names are load-bearing for dashboards and alerts; lock them down.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name string
		key  string
		attr slog.Attr
		want string
	}{
		{"BuildID", KeyBuildID, BuildID("abc123"), "abc123"},
		{"TaskID", KeyTaskID, TaskID("skills"), "skills"},
		{"TaskKind", KeyTaskKind, TaskKind("section"), "section"},
		{"Section", KeySection, Section("hero"), "hero"},
		{"OwnerID", KeyOwnerID, OwnerID("u1"), "u1"},
		{"Style", KeyStyle, Style("modern"), "modern"},
		{"Path", KeyPath, Path("/index.html"), "/index.html"},
		{"EventType", KeyEventType, EventType("task_completed"), "task_completed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.attr.Key != tc.key {
				t.Errorf("key = %q, want %q", tc.attr.Key, tc.key)
			}
			if got := tc.attr.Value.String(); got != tc.want {
				t.Errorf("value = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestErrorAttr(t *testing.T) {
	if got := Error(errors.New("boom")).Value.String(); got != "boom" {
		t.Errorf("Error value = %q", got)
	}
	if got := Error(nil).Value.String(); got != "" {
		t.Errorf("nil Error value = %q", got)
	}
}
