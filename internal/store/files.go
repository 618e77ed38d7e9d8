package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/leapstack-labs/leapconsole/pkg/core"
)

// generateID creates a new file id.
func generateID() string {
	return uuid.New().String()
}

// ListFiles returns the entries of a folder: folders first, then by name.
func (s *Store) ListFiles(ctx context.Context, folder string) ([]core.FileEntry, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	b := &binder{d: s.dialect}
	//nolint:gosec // values are bound
	query := fmt.Sprintf(`SELECT id, name, type, file_size, mime_type FROM %s
		WHERE parent_folder = %s
		ORDER BY CASE WHEN type = 'folder' THEN 0 ELSE 1 END, name`,
		filesTable, b.bind(core.CleanFolder(folder)))

	rows, err := s.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := []core.FileEntry{}
	for rows.Next() {
		var (
			e    core.FileEntry
			kind string
			size sql.NullInt64
			mime sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Name, &kind, &size, &mime); err != nil {
			return nil, fmt.Errorf("failed to scan file entry: %w", err)
		}
		e.Type = core.FileKind(kind)
		if size.Valid {
			e.FileSize = &size.Int64
		}
		if mime.Valid {
			e.MimeType = &mime.String
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating files: %w", err)
	}
	return entries, nil
}

// CreateFolder creates a folder inside parent. The parent must exist.
func (s *Store) CreateFolder(ctx context.Context, name, parent string) (core.FileEntry, error) {
	name = strings.TrimSpace(name)
	parent = core.CleanFolder(parent)
	if err := s.checkNewEntry(ctx, name, parent); err != nil {
		return core.FileEntry{}, err
	}

	entry := core.FileEntry{ID: generateID(), Name: name, Type: core.KindFolder}
	b := &binder{d: s.dialect}
	//nolint:gosec // values are bound
	query := fmt.Sprintf(`INSERT INTO %s (id, name, type, parent_folder, created_at) VALUES (%s, %s, %s, %s, %s)`,
		filesTable, b.bind(entry.ID), b.bind(name), b.bind(string(core.KindFolder)), b.bind(parent), b.bind(s.now().Unix()))
	if _, err := s.db.ExecContext(ctx, query, b.args...); err != nil {
		return core.FileEntry{}, fmt.Errorf("failed to create folder: %w", err)
	}
	s.logger.Debug("folder created", slog.String("path", core.JoinFolder(parent, name)))
	return entry, nil
}

// SaveFile stores an uploaded file in its parent folder. Contents go to the
// blob store when one is configured.
func (s *Store) SaveFile(ctx context.Context, up core.Upload) (core.FileEntry, error) {
	name := strings.TrimSpace(up.Name)
	parent := core.CleanFolder(up.ParentFolder)
	if err := s.checkNewEntry(ctx, name, parent); err != nil {
		return core.FileEntry{}, err
	}

	size := up.Size
	if size == 0 {
		size = int64(len(up.Data))
	}
	mime := up.MimeType
	if mime == "" {
		mime = "application/octet-stream"
	}
	entry := core.FileEntry{ID: generateID(), Name: name, Type: core.KindFile, FileSize: &size, MimeType: &mime}

	var (
		content any = up.Data
		blobKey any
	)
	if s.blobs != nil {
		if err := s.blobs.Put(ctx, entry.ID, up.Data, mime); err != nil {
			return core.FileEntry{}, fmt.Errorf("failed to store file content: %w", err)
		}
		content, blobKey = nil, entry.ID
	}

	b := &binder{d: s.dialect}
	//nolint:gosec // values are bound
	query := fmt.Sprintf(`INSERT INTO %s (id, name, type, parent_folder, file_size, mime_type, content, blob_key, created_at)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s)`,
		filesTable, b.bind(entry.ID), b.bind(name), b.bind(string(core.KindFile)), b.bind(parent),
		b.bind(size), b.bind(mime), b.bind(content), b.bind(blobKey), b.bind(s.now().Unix()))
	if _, err := s.db.ExecContext(ctx, query, b.args...); err != nil {
		if s.blobs != nil {
			_ = s.blobs.Delete(ctx, entry.ID)
		}
		return core.FileEntry{}, fmt.Errorf("failed to save file: %w", err)
	}
	s.logger.Debug("file saved", slog.String("path", core.JoinFolder(parent, name)), slog.Int64("size", size))
	return entry, nil
}

// GetFile returns a file's content.
func (s *Store) GetFile(ctx context.Context, id string) (*core.Download, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	b := &binder{d: s.dialect}
	//nolint:gosec // values are bound
	query := fmt.Sprintf(`SELECT name, type, mime_type, content, blob_key FROM %s WHERE id = %s`, filesTable, b.bind(id))

	var (
		name, kind string
		mime       sql.NullString
		content    []byte
		blobKey    sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, b.args...).Scan(&name, &kind, &mime, &content, &blobKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("file %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if core.FileKind(kind) == core.KindFolder {
		return nil, fmt.Errorf("%s: %w", name, ErrIsFolder)
	}

	if blobKey.Valid && blobKey.String != "" {
		if s.blobs == nil {
			return nil, fmt.Errorf("file %s is stored externally but no blob store is configured", id)
		}
		content, err = s.blobs.Get(ctx, blobKey.String)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch file content: %w", err)
		}
	}
	if content == nil {
		content = []byte{}
	}
	return &core.Download{Name: name, MimeType: mime.String, Data: content}, nil
}

// DeleteFile removes a file, or a folder together with everything under it.
func (s *Store) DeleteFile(ctx context.Context, id string) error {
	if s.db == nil {
		return ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	b := &binder{d: s.dialect}
	//nolint:gosec // values are bound
	query := fmt.Sprintf(`SELECT name, type, parent_folder FROM %s WHERE id = %s`, filesTable, b.bind(id))
	var name, kind, parent string
	err = tx.QueryRowContext(ctx, query, b.args...).Scan(&name, &kind, &parent)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("file %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var blobKeys []string
	if core.FileKind(kind) == core.KindFolder {
		path := core.JoinFolder(parent, name)
		keys, err := s.deleteSubtree(ctx, tx, path)
		if err != nil {
			return err
		}
		blobKeys = keys
	}

	b = &binder{d: s.dialect}
	//nolint:gosec // values are bound
	query = fmt.Sprintf(`DELETE FROM %s WHERE id = %s RETURNING blob_key`, filesTable, b.bind(id))
	var key sql.NullString
	if err := tx.QueryRowContext(ctx, query, b.args...).Scan(&key); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	if key.Valid && key.String != "" {
		blobKeys = append(blobKeys, key.String)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}

	s.removeBlobs(ctx, blobKeys)
	s.logger.Debug("file deleted", slog.String("id", id), slog.String("type", kind))
	return nil
}

// deleteSubtree removes every entry under path and returns their blob keys.
func (s *Store) deleteSubtree(ctx context.Context, tx *sql.Tx, path string) ([]string, error) {
	prefix := path + "/"

	b := &binder{d: s.dialect}
	where := fmt.Sprintf("parent_folder = %s OR substr(parent_folder, 1, %s) = %s",
		b.bind(path), b.bind(utf8.RuneCountInString(prefix)), b.bind(prefix))

	//nolint:gosec // values are bound
	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`SELECT blob_key FROM %s WHERE (%s) AND blob_key IS NOT NULL`, filesTable, where), b.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list folder contents: %w", err)
	}
	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan blob key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("error iterating folder contents: %w", err)
	}
	_ = rows.Close()

	//nolint:gosec // values are bound
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s`, filesTable, where), b.args...); err != nil {
		return nil, fmt.Errorf("failed to delete folder contents: %w", err)
	}
	return keys, nil
}

func (s *Store) removeBlobs(ctx context.Context, keys []string) {
	if s.blobs == nil {
		return
	}
	for _, key := range keys {
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.logger.Warn("failed to delete file content", slog.String("key", key), slog.String("error", err.Error()))
		}
	}
}

// checkNewEntry validates a name and its parent folder and rejects a name
// already used in that folder.
func (s *Store) checkNewEntry(ctx context.Context, name, parent string) error {
	if s.db == nil {
		return ErrClosed
	}
	if err := core.ValidateEntryName(name); err != nil {
		return err
	}

	exists, err := s.entryExists(ctx, name, parent, "")
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%q in %s: %w", name, parent, ErrConflict)
	}

	if parent == core.RootFolder {
		return nil
	}
	ok, err := s.entryExists(ctx, pathBase(parent), core.ParentFolder(parent), core.KindFolder)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("folder %s: %w", parent, ErrNotFound)
	}
	return nil
}

func (s *Store) entryExists(ctx context.Context, name, parent string, kind core.FileKind) (bool, error) {
	b := &binder{d: s.dialect}
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE parent_folder = %s AND name = %s`,
		filesTable, b.bind(parent), b.bind(name))
	if kind != "" {
		query += " AND type = " + b.bind(string(kind))
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, query, b.args...).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check for %q: %w", name, err)
	}
	return n > 0, nil
}

func pathBase(folder string) string {
	segments := core.FolderSegments(folder)
	if len(segments) == 0 {
		return ""
	}
	return segments[len(segments)-1]
}
