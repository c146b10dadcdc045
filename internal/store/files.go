package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"slidebank/internal/model"
)

const fileCols = `id, project_id, original_path, storage_path, digest, slide_count, status, error_msg, imported_at`

// AddFile records a newly imported file with status pending.
func (s *Store) AddFile(projectID, originalPath, storagePath, digest string) (*model.File, error) {
	f := &model.File{
		ID:           uuid.NewString(),
		ProjectID:    projectID,
		OriginalPath: originalPath,
		StoragePath:  storagePath,
		Digest:       digest,
		Status:       model.StatusPending,
		ImportedAt:   NowMs(),
	}
	err := s.withTx("adding file", func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO files (`+fileCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			f.ID, f.ProjectID, f.OriginalPath, f.StoragePath, f.Digest,
			f.SlideCount, f.Status, f.ErrorMsg, f.ImportedAt,
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// GetFile retrieves a file by id.
func (s *Store) GetFile(id string) (*model.File, error) {
	return scanFile(s.conn.QueryRow(
		`SELECT `+fileCols+` FROM files WHERE id = ?`, id))
}

// GetFileByDigest finds an already-imported file with the same content.
func (s *Store) GetFileByDigest(projectID, digest string) (*model.File, error) {
	return scanFile(s.conn.QueryRow(
		`SELECT `+fileCols+` FROM files WHERE project_id = ? AND digest = ?`,
		projectID, digest))
}

func scanFile(row *sql.Row) (*model.File, error) {
	var f model.File
	err := row.Scan(&f.ID, &f.ProjectID, &f.OriginalPath, &f.StoragePath,
		&f.Digest, &f.SlideCount, &f.Status, &f.ErrorMsg, &f.ImportedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying file: %w", err)
	}
	return &f, nil
}

// ListFiles returns a project's files ordered by import time.
func (s *Store) ListFiles(projectID string) ([]model.File, error) {
	return s.queryFiles(
		`SELECT `+fileCols+` FROM files WHERE project_id = ? ORDER BY imported_at, id`,
		projectID)
}

// FilesByStatus returns a project's files in any of the given statuses.
func (s *Store) FilesByStatus(projectID string, statuses ...model.ConvertStatus) ([]model.File, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(statuses))
	args := []interface{}{projectID}
	for i, st := range statuses {
		placeholders[i] = "?"
		args = append(args, st)
	}
	query := `SELECT ` + fileCols + ` FROM files WHERE project_id = ? AND status IN (` +
		strings.Join(placeholders, ",") + `) ORDER BY imported_at, id`
	return s.queryFiles(query, args...)
}

func (s *Store) queryFiles(query string, args ...interface{}) ([]model.File, error) {
	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying files: %w", err)
	}
	defer rows.Close()

	var files []model.File
	for rows.Next() {
		var f model.File
		if err := rows.Scan(&f.ID, &f.ProjectID, &f.OriginalPath, &f.StoragePath,
			&f.Digest, &f.SlideCount, &f.Status, &f.ErrorMsg, &f.ImportedAt); err != nil {
			return nil, fmt.Errorf("scanning file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// SetFileStatus updates a file's conversion status and failure reason.
func (s *Store) SetFileStatus(id string, status model.ConvertStatus, errMsg string) error {
	return s.withTx("updating file status", func(tx *sql.Tx) error {
		res, err := tx.Exec(
			`UPDATE files SET status = ?, error_msg = ? WHERE id = ?`,
			status, errMsg, id,
		)
		if err != nil {
			return err
		}
		return requireRow(res)
	})
}

// SetFileSlideCount records the declared slide count discovered at open time.
func (s *Store) SetFileSlideCount(id string, n int) error {
	return s.withTx("updating slide count", func(tx *sql.Tx) error {
		res, err := tx.Exec(`UPDATE files SET slide_count = ? WHERE id = ?`, n, id)
		if err != nil {
			return err
		}
		return requireRow(res)
	})
}

// DeleteFile removes a file and, via cascades, its slides, elements, and
// association edges.
func (s *Store) DeleteFile(id string) error {
	return s.withTx("deleting file", func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM files WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return requireRow(res)
	})
}
