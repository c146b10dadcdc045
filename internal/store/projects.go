package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"slidebank/internal/model"
)

// CreateProject inserts a new project row.
func (s *Store) CreateProject(name, rootPath string) (*model.Project, error) {
	p := &model.Project{
		ID:        uuid.NewString(),
		Name:      name,
		RootPath:  rootPath,
		CreatedAt: NowMs(),
	}
	err := s.withTx("creating project", func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO projects (id, name, root_path, created_at) VALUES (?, ?, ?, ?)`,
			p.ID, p.Name, p.RootPath, p.CreatedAt,
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetProject retrieves a project by id.
func (s *Store) GetProject(id string) (*model.Project, error) {
	return scanProject(s.conn.QueryRow(
		`SELECT id, name, root_path, created_at FROM projects WHERE id = ?`, id))
}

// GetProjectByName retrieves a project by its unique name.
func (s *Store) GetProjectByName(name string) (*model.Project, error) {
	return scanProject(s.conn.QueryRow(
		`SELECT id, name, root_path, created_at FROM projects WHERE name = ?`, name))
}

func scanProject(row *sql.Row) (*model.Project, error) {
	var p model.Project
	err := row.Scan(&p.ID, &p.Name, &p.RootPath, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying project: %w", err)
	}
	return &p, nil
}

// ListProjects returns all projects ordered by name.
func (s *Store) ListProjects() ([]model.Project, error) {
	rows, err := s.conn.Query(
		`SELECT id, name, root_path, created_at FROM projects ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		var p model.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.RootPath, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// UpdateProject sets a project's name and root path.
func (s *Store) UpdateProject(id, name, rootPath string) error {
	return s.withTx("renaming project", func(tx *sql.Tx) error {
		res, err := tx.Exec(
			`UPDATE projects SET name = ?, root_path = ? WHERE id = ?`,
			name, rootPath, id,
		)
		if err != nil {
			return err
		}
		return requireRow(res)
	})
}

// DeleteProject removes a project and, via cascades, every descendant file,
// slide, element, keyword, assembly, and association edge.
func (s *Store) DeleteProject(id string) error {
	return s.withTx("deleting project", func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM projects WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return requireRow(res)
	})
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
