package core

import (
	"errors"
	"strings"
)

// =============================================================================
// File store entries
// =============================================================================

// FileKind distinguishes folders from uploaded files.
type FileKind string

// File kinds.
const (
	KindFile   FileKind = "file"
	KindFolder FileKind = "folder"
)

// RootFolder is the path of the file store root.
const RootFolder = "/"

// FileEntry is one item in a folder listing.
type FileEntry struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Type     FileKind `json:"type"`
	FileSize *int64   `json:"file_size,omitempty"`
	MimeType *string  `json:"mime_type,omitempty"`
}

// IsFolder reports whether the entry is a folder.
func (f FileEntry) IsFolder() bool {
	return f.Type == KindFolder
}

// Size returns the advisory size or 0 when unknown.
func (f FileEntry) Size() int64 {
	if f.FileSize == nil {
		return 0
	}
	return *f.FileSize
}

// Mime returns the advisory mime type or "" when unknown.
func (f FileEntry) Mime() string {
	if f.MimeType == nil {
		return ""
	}
	return *f.MimeType
}

// Upload is a file about to be sent to the file store. Size and MimeType are
// advisory metadata supplied by the caller.
type Upload struct {
	Name         string
	ParentFolder string
	Data         []byte
	MimeType     string
	Size         int64
}

// Download is a file fetched from the file store.
type Download struct {
	Name     string
	MimeType string
	Data     []byte
}

// ErrInvalidName is returned for entry names that are empty or contain a slash.
var ErrInvalidName = errors.New("name must be non-empty and must not contain '/'")

// ValidateEntryName checks a folder or file name.
func ValidateEntryName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || strings.Contains(name, "/") {
		return ErrInvalidName
	}
	return nil
}

// JoinFolder appends a child name to a folder path: "/" + name at the root,
// folder + "/" + name everywhere else.
func JoinFolder(folder, name string) string {
	folder = CleanFolder(folder)
	if folder == RootFolder {
		return RootFolder + name
	}
	return folder + "/" + name
}

// ParentFolder returns the folder containing path. The parent of the root is
// the root.
func ParentFolder(path string) string {
	path = CleanFolder(path)
	if path == RootFolder {
		return RootFolder
	}
	idx := strings.LastIndex(path, "/")
	if idx <= 0 {
		return RootFolder
	}
	return path[:idx]
}

// CleanFolder normalizes a folder path: empty becomes the root, a leading
// slash is enforced and trailing slashes are dropped.
func CleanFolder(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return RootFolder
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	for len(path) > 1 && strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
	}
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}
	return path
}

// FolderSegments splits a folder path into its names. The root has none.
func FolderSegments(path string) []string {
	path = CleanFolder(path)
	if path == RootFolder {
		return nil
	}
	return strings.Split(strings.TrimPrefix(path, "/"), "/")
}
