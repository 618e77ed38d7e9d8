package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoinFolder(t *testing.T) {
	assert.Equal(t, "/docs", JoinFolder("/", "docs"))
	assert.Equal(t, "/docs", JoinFolder("", "docs"))
	assert.Equal(t, "/docs/2024", JoinFolder("/docs", "2024"))
	assert.Equal(t, "/docs/2024", JoinFolder("/docs/", "2024"))
}

func TestParentFolder(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/", "/"},
		{"", "/"},
		{"/docs", "/"},
		{"/docs/2024", "/docs"},
		{"/a/b/c/", "/a/b"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, ParentFolder(tt.path))
		})
	}
}

func TestJoinThenParentRestoresPath(t *testing.T) {
	for _, start := range []string{"/", "/docs", "/docs/2024"} {
		assert.Equal(t, start, ParentFolder(JoinFolder(start, "x")))
	}
}

func TestCleanFolder(t *testing.T) {
	assert.Equal(t, "/", CleanFolder("  "))
	assert.Equal(t, "/a/b", CleanFolder("a//b/"))
	assert.Equal(t, []string{"a", "b"}, FolderSegments("/a/b"))
	assert.Nil(t, FolderSegments("/"))
}

func TestValidateEntryName(t *testing.T) {
	assert.NoError(t, ValidateEntryName("report.pdf"))
	for _, bad := range []string{"", "  ", "a/b", ".", ".."} {
		assert.ErrorIs(t, ValidateEntryName(bad), ErrInvalidName, "name %q", bad)
	}
}

func TestFileEntryAccessors(t *testing.T) {
	size := int64(12)
	mime := "text/plain"
	f := FileEntry{Type: KindFile, FileSize: &size, MimeType: &mime}
	assert.False(t, f.IsFolder())
	assert.Equal(t, int64(12), f.Size())
	assert.Equal(t, "text/plain", f.Mime())

	folder := FileEntry{Type: KindFolder}
	assert.True(t, folder.IsFolder())
	assert.Zero(t, folder.Size())
	assert.Empty(t, folder.Mime())
}
