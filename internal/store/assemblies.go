package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"slidebank/internal/model"
)

// CreateAssembly inserts a new named assembly.
func (s *Store) CreateAssembly(projectID, name string) (*model.Assembly, error) {
	a := &model.Assembly{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Name:      name,
		CreatedAt: NowMs(),
	}
	err := s.withTx("creating assembly", func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO assemblies (id, project_id, name, created_at) VALUES (?, ?, ?, ?)`,
			a.ID, a.ProjectID, a.Name, a.CreatedAt,
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetAssembly retrieves an assembly by id.
func (s *Store) GetAssembly(id string) (*model.Assembly, error) {
	var a model.Assembly
	err := s.conn.QueryRow(
		`SELECT id, project_id, name, created_at FROM assemblies WHERE id = ?`, id,
	).Scan(&a.ID, &a.ProjectID, &a.Name, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying assembly: %w", err)
	}
	return &a, nil
}

// GetAssemblyByName retrieves an assembly by its (project, name) key.
func (s *Store) GetAssemblyByName(projectID, name string) (*model.Assembly, error) {
	var a model.Assembly
	err := s.conn.QueryRow(
		`SELECT id, project_id, name, created_at FROM assemblies WHERE project_id = ? AND name = ?`,
		projectID, name,
	).Scan(&a.ID, &a.ProjectID, &a.Name, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying assembly: %w", err)
	}
	return &a, nil
}

// ListAssemblies returns a project's assemblies ordered by name.
func (s *Store) ListAssemblies(projectID string) ([]model.Assembly, error) {
	rows, err := s.conn.Query(
		`SELECT id, project_id, name, created_at FROM assemblies WHERE project_id = ? ORDER BY name`,
		projectID)
	if err != nil {
		return nil, fmt.Errorf("querying assemblies: %w", err)
	}
	defer rows.Close()

	var assemblies []model.Assembly
	for rows.Next() {
		var a model.Assembly
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.Name, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning assembly: %w", err)
		}
		assemblies = append(assemblies, a)
	}
	return assemblies, rows.Err()
}

// DeleteAssembly removes an assembly and its ordering rows.
func (s *Store) DeleteAssembly(id string) error {
	return s.withTx("deleting assembly", func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM assemblies WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return requireRow(res)
	})
}

// AssemblyOrder returns the assembly's slide ids in position order.
func (s *Store) AssemblyOrder(assemblyID string) ([]string, error) {
	return s.queryIDs(
		`SELECT slide_id FROM assembly_slides WHERE assembly_id = ? ORDER BY position`,
		assemblyID)
}

// AppendAssemblySlide adds a slide at the end of the ordering. The change is
// persisted immediately, like every assembly mutation.
func (s *Store) AppendAssemblySlide(assemblyID, slideID string) error {
	return s.withTx("appending assembly slide", func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRow(
			`SELECT COUNT(*) FROM assembly_slides WHERE assembly_id = ?`, assemblyID,
		).Scan(&n); err != nil {
			return err
		}
		_, err := tx.Exec(
			`INSERT INTO assembly_slides (assembly_id, slide_id, position) VALUES (?, ?, ?)`,
			assemblyID, slideID, n,
		)
		return err
	})
}

// RemoveAssemblySlide removes a slide from the ordering and repacks positions.
func (s *Store) RemoveAssemblySlide(assemblyID, slideID string) error {
	return s.withTx("removing assembly slide", func(tx *sql.Tx) error {
		res, err := tx.Exec(
			`DELETE FROM assembly_slides WHERE assembly_id = ? AND slide_id = ?`,
			assemblyID, slideID,
		)
		if err != nil {
			return err
		}
		if err := requireRow(res); err != nil {
			return err
		}
		return repackPositionsTx(tx, assemblyID)
	})
}

// MoveAssemblySlide moves the slide at position from to position to.
func (s *Store) MoveAssemblySlide(assemblyID string, from, to int) error {
	return s.withTx("moving assembly slide", func(tx *sql.Tx) error {
		order, err := queryIDsTx(tx,
			`SELECT slide_id FROM assembly_slides WHERE assembly_id = ? ORDER BY position`,
			assemblyID)
		if err != nil {
			return err
		}
		if from < 0 || from >= len(order) || to < 0 || to >= len(order) {
			return fmt.Errorf("move %d -> %d out of range for %d slides", from, to, len(order))
		}
		moved := order[from]
		order = append(order[:from], order[from+1:]...)
		rest := append([]string{}, order[to:]...)
		order = append(append(order[:to], moved), rest...)
		return setOrderTx(tx, assemblyID, order)
	})
}

// ClearAssembly removes every slide from the ordering.
func (s *Store) ClearAssembly(assemblyID string) error {
	return s.withTx("clearing assembly", func(tx *sql.Tx) error {
		_, err := tx.Exec(`DELETE FROM assembly_slides WHERE assembly_id = ?`, assemblyID)
		return err
	})
}

// SetAssemblyOrder replaces the ordering wholesale. Undo of reorder commands
// restores a captured ordering through here.
func (s *Store) SetAssemblyOrder(assemblyID string, slideIDs []string) error {
	return s.withTx("setting assembly order", func(tx *sql.Tx) error {
		return setOrderTx(tx, assemblyID, slideIDs)
	})
}

func setOrderTx(tx *sql.Tx, assemblyID string, slideIDs []string) error {
	if _, err := tx.Exec(
		`DELETE FROM assembly_slides WHERE assembly_id = ?`, assemblyID,
	); err != nil {
		return err
	}
	for i, slideID := range slideIDs {
		if _, err := tx.Exec(
			`INSERT INTO assembly_slides (assembly_id, slide_id, position) VALUES (?, ?, ?)`,
			assemblyID, slideID, i,
		); err != nil {
			return err
		}
	}
	return nil
}

func repackPositionsTx(tx *sql.Tx, assemblyID string) error {
	order, err := queryIDsTx(tx,
		`SELECT slide_id FROM assembly_slides WHERE assembly_id = ? ORDER BY position`,
		assemblyID)
	if err != nil {
		return err
	}
	return setOrderTx(tx, assemblyID, order)
}

// ExportRef resolves one assembly entry back to its origin document.
type ExportRef struct {
	SlideID     string
	FileID      string
	StoragePath string // relative to the project root
	Index       int    // 1-based index within the origin file
}

// ResolveAssembly maps the current ordering to origin files and in-file
// indices, in export order.
func (s *Store) ResolveAssembly(assemblyID string) ([]ExportRef, error) {
	rows, err := s.conn.Query(
		`SELECT asl.slide_id, f.id, f.storage_path, sl.idx
		 FROM assembly_slides asl
		 JOIN slides sl ON sl.id = asl.slide_id
		 JOIN files f ON f.id = sl.file_id
		 WHERE asl.assembly_id = ?
		 ORDER BY asl.position`,
		assemblyID)
	if err != nil {
		return nil, fmt.Errorf("resolving assembly: %w", err)
	}
	defer rows.Close()

	var refs []ExportRef
	for rows.Next() {
		var r ExportRef
		if err := rows.Scan(&r.SlideID, &r.FileID, &r.StoragePath, &r.Index); err != nil {
			return nil, fmt.Errorf("scanning export ref: %w", err)
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}
