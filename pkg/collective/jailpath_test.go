package collective

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJailPath(t *testing.T) {
	assert.Equal(t, "appdata_abc123/collectives/42", JailPath("appdata_abc123/collectives", 42))
	assert.Equal(t, "appdata_abc123/collectives/7", JailPath("appdata_abc123/collectives", 7))
}

func TestJailPath_Injective(t *testing.T) {
	seen := make(map[string]int64)
	for id := int64(1); id <= 200; id++ {
		path := JailPath("appdata_abc123/collectives", id)
		prev, dup := seen[path]
		assert.False(t, dup, "ids %d and %d map to the same path %q", prev, id, path)
		seen[path] = id
	}
}

func TestStripJailPrefix(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"appdata_abc123/collectives/42/sub/file.md", "sub/file.md"},
		{"appdata_abc123/collectives/42/file.md", "file.md"},
		{"appdata_xyz9/collectives/101/deep/er/f.md", "deep/er/f.md"},
		// Already-stripped paths pass through unchanged.
		{"sub/file.md", "sub/file.md"},
		{"file.md", "file.md"},
		// The prefix only counts at the start of the path.
		{"docs/appdata_abc123/collectives/42/f.md", "docs/appdata_abc123/collectives/42/f.md"},
		// A container root path has nothing after the id to keep.
		{"appdata_abc123/collectives/42", "appdata_abc123/collectives/42"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, StripJailPrefix(tt.in))
		})
	}
}

func TestStripJailPrefix_Idempotent(t *testing.T) {
	once := StripJailPrefix("appdata_abc123/collectives/42/sub/file.md")
	twice := StripJailPrefix(once)
	assert.Equal(t, "sub/file.md", once)
	assert.Equal(t, once, twice)
}
