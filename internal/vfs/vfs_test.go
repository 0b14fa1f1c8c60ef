package vfs

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/index.html", "/index.html"},
		{"index.html", "/index.html"},
		{"/styles/theme.css/", "/styles/theme.css"},
		{"\\components\\Hero.html", "/components/Hero.html"},
		{"/", "/"},
		{"///", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizePath(tt.in); got != tt.want {
				t.Errorf("NormalizePath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStore_WriteReadDelete(t *testing.T) {
	s := NewStore("b1")

	f := s.Write("/index.html", "<html></html>")
	assert.Equal(t, 1, f.Version)

	content, ok := s.Read("/index.html")
	require.True(t, ok)
	assert.Equal(t, "<html></html>", content)

	// Overwrite bumps version in place, no duplicate entry.
	f = s.Write("index.html", "<html>v2</html>")
	assert.Equal(t, 2, f.Version)
	assert.Equal(t, 1, s.Len())

	content, ok = s.Read("/index.html")
	require.True(t, ok)
	assert.Equal(t, "<html>v2</html>", content)

	require.True(t, s.Delete("/index.html"))
	_, ok = s.Read("/index.html")
	assert.False(t, ok)
	assert.False(t, s.Delete("/index.html"))
}

func TestStore_ExistsAndList(t *testing.T) {
	s := NewStore("b1")
	s.Write("/index.html", "a")
	s.Write("/styles/theme.css", "b")
	s.Write("/styles/hero.css", "c")

	assert.True(t, s.Exists("/styles/theme.css"))
	assert.False(t, s.Exists("/styles/missing.css"))

	assert.Equal(t, []string{"/styles/hero.css", "/styles/theme.css"}, s.ListFiles("/styles"))
	assert.Len(t, s.ListFiles("/"), 3)
	assert.Empty(t, s.ListFiles("/components"))
}

func TestStore_GetAllFiles(t *testing.T) {
	s := NewStore("b1")
	s.Write("/a", "1")
	s.Write("/b", "2")

	all := s.GetAllFiles()
	assert.Equal(t, map[string]string{"/a": "1", "/b": "2"}, all)

	// Returned map is a copy.
	all["/a"] = "mutated"
	content, _ := s.Read("/a")
	assert.Equal(t, "1", content)
}

func TestStore_SnapshotRollback(t *testing.T) {
	s := NewStore("b1")
	s.Write("/a", "1")

	idx := s.Snapshot()
	s.Write("/a", "2")
	s.Write("/b", "3")

	require.True(t, s.Rollback(idx))

	content, ok := s.Read("/a")
	require.True(t, ok)
	assert.Equal(t, "1", content)

	_, ok = s.Read("/b")
	assert.False(t, ok, "file created after snapshot must be discarded")
}

func TestStore_RollbackUnknownIndex(t *testing.T) {
	s := NewStore("b1")
	s.Snapshot()

	assert.False(t, s.Rollback(-1))
	assert.False(t, s.Rollback(5))
}

func TestStore_ConcurrentWrites(t *testing.T) {
	s := NewStore("b1")

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := range 50 {
				s.Write(fmt.Sprintf("/worker-%d/file-%d", n, j), "content")
				s.Write("/shared", fmt.Sprintf("writer-%d", n))
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 16*50+1, s.Len())

	// Last-writer-wins on the shared path; version reflects every write.
	f, ok := s.Stat("/shared")
	require.True(t, ok)
	assert.Equal(t, 16*50, f.Version)
}
