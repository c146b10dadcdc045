package store

import (
	"database/sql"
	"fmt"

	"slidebank/internal/model"
)

// FileSnapshot captures a file and every descendant row, so a delete command
// can restore the database portion without re-querying mutable state.
type FileSnapshot struct {
	File         model.File
	Slides       []model.Slide
	Elements     []model.Element
	SlideEdges   []model.SlideKeyword
	ElementEdges []model.ElementKeyword
}

// ProjectSnapshot captures a project and everything scoped to it.
type ProjectSnapshot struct {
	Project        model.Project
	Keywords       []model.Keyword
	Files          []FileSnapshot
	Assemblies     []model.Assembly
	AssemblySlides []model.AssemblySlide
}

// SnapshotFile captures the database state of one file.
func (s *Store) SnapshotFile(fileID string) (*FileSnapshot, error) {
	f, err := s.GetFile(fileID)
	if err != nil {
		return nil, err
	}
	snap := &FileSnapshot{File: *f}

	snap.Slides, err = s.ListSlides(fileID)
	if err != nil {
		return nil, err
	}
	for _, sl := range snap.Slides {
		elements, err := s.ListElements(sl.ID)
		if err != nil {
			return nil, err
		}
		snap.Elements = append(snap.Elements, elements...)

		keywordIDs, err := s.queryIDs(
			`SELECT keyword_id FROM slide_keywords WHERE slide_id = ? ORDER BY keyword_id`, sl.ID)
		if err != nil {
			return nil, err
		}
		for _, kwID := range keywordIDs {
			snap.SlideEdges = append(snap.SlideEdges, model.SlideKeyword{SlideID: sl.ID, KeywordID: kwID})
		}
	}
	for _, el := range snap.Elements {
		keywordIDs, err := s.queryIDs(
			`SELECT keyword_id FROM element_keywords WHERE element_id = ? ORDER BY keyword_id`, el.ID)
		if err != nil {
			return nil, err
		}
		for _, kwID := range keywordIDs {
			snap.ElementEdges = append(snap.ElementEdges, model.ElementKeyword{ElementID: el.ID, KeywordID: kwID})
		}
	}
	return snap, nil
}

// RestoreFile reinserts a snapshotted file and its descendants in one
// transaction. Edges whose keywords no longer exist are skipped.
func (s *Store) RestoreFile(snap *FileSnapshot) error {
	return s.withTx("restoring file", func(tx *sql.Tx) error {
		return restoreFileTx(tx, snap)
	})
}

func restoreFileTx(tx *sql.Tx, snap *FileSnapshot) error {
	f := &snap.File
	if _, err := tx.Exec(
		`INSERT INTO files (`+fileCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.ProjectID, f.OriginalPath, f.StoragePath, f.Digest,
		f.SlideCount, f.Status, f.ErrorMsg, f.ImportedAt,
	); err != nil {
		return err
	}
	for i := range snap.Slides {
		sl := &snap.Slides[i]
		if _, err := tx.Exec(
			`INSERT INTO slides (`+slideCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sl.ID, sl.FileID, sl.Index, sl.Title, sl.Body, sl.Notes,
			sl.ImagePath, sl.ThumbPath, sl.AITopic, sl.AIType, sl.AIInsight,
		); err != nil {
			return err
		}
	}
	for i := range snap.Elements {
		el := &snap.Elements[i]
		if _, err := tx.Exec(
			`INSERT INTO elements (id, slide_id, kind, x, y, w, h, text) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			el.ID, el.SlideID, el.Kind, el.X, el.Y, el.W, el.H, el.Text,
		); err != nil {
			return err
		}
	}
	for _, e := range snap.SlideEdges {
		if err := insertEdgeIfKeywordTx(tx,
			`INSERT OR IGNORE INTO slide_keywords (slide_id, keyword_id) VALUES (?, ?)`,
			e.SlideID, e.KeywordID); err != nil {
			return err
		}
	}
	for _, e := range snap.ElementEdges {
		if err := insertEdgeIfKeywordTx(tx,
			`INSERT OR IGNORE INTO element_keywords (element_id, keyword_id) VALUES (?, ?)`,
			e.ElementID, e.KeywordID); err != nil {
			return err
		}
	}
	return nil
}

func insertEdgeIfKeywordTx(tx *sql.Tx, query, targetID, keywordID string) error {
	var exists int
	err := tx.QueryRow(`SELECT COUNT(*) FROM keywords WHERE id = ?`, keywordID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking keyword: %w", err)
	}
	if exists == 0 {
		return nil
	}
	_, err = tx.Exec(query, targetID, keywordID)
	return err
}

// SnapshotProject captures the database state of an entire project.
func (s *Store) SnapshotProject(projectID string) (*ProjectSnapshot, error) {
	p, err := s.GetProject(projectID)
	if err != nil {
		return nil, err
	}
	snap := &ProjectSnapshot{Project: *p}

	snap.Keywords, err = s.ListKeywords(projectID)
	if err != nil {
		return nil, err
	}

	files, err := s.ListFiles(projectID)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		fs, err := s.SnapshotFile(f.ID)
		if err != nil {
			return nil, err
		}
		snap.Files = append(snap.Files, *fs)
	}

	snap.Assemblies, err = s.ListAssemblies(projectID)
	if err != nil {
		return nil, err
	}
	for _, a := range snap.Assemblies {
		order, err := s.AssemblyOrder(a.ID)
		if err != nil {
			return nil, err
		}
		for i, slideID := range order {
			snap.AssemblySlides = append(snap.AssemblySlides,
				model.AssemblySlide{AssemblyID: a.ID, SlideID: slideID, Position: i})
		}
	}
	return snap, nil
}

// RestoreProject reinserts a snapshotted project and all descendants in one
// transaction.
func (s *Store) RestoreProject(snap *ProjectSnapshot) error {
	return s.withTx("restoring project", func(tx *sql.Tx) error {
		p := &snap.Project
		if _, err := tx.Exec(
			`INSERT INTO projects (id, name, root_path, created_at) VALUES (?, ?, ?, ?)`,
			p.ID, p.Name, p.RootPath, p.CreatedAt,
		); err != nil {
			return err
		}
		for i := range snap.Keywords {
			k := &snap.Keywords[i]
			if _, err := tx.Exec(
				`INSERT INTO keywords (`+keywordCols+`) VALUES (?, ?, ?, ?, ?, ?)`,
				k.ID, k.ProjectID, k.Text, k.Category, k.Color, k.CreatedAt,
			); err != nil {
				return err
			}
		}
		for i := range snap.Files {
			if err := restoreFileTx(tx, &snap.Files[i]); err != nil {
				return err
			}
		}
		for i := range snap.Assemblies {
			a := &snap.Assemblies[i]
			if _, err := tx.Exec(
				`INSERT INTO assemblies (id, project_id, name, created_at) VALUES (?, ?, ?, ?)`,
				a.ID, a.ProjectID, a.Name, a.CreatedAt,
			); err != nil {
				return err
			}
		}
		for _, as := range snap.AssemblySlides {
			if _, err := tx.Exec(
				`INSERT INTO assembly_slides (assembly_id, slide_id, position) VALUES (?, ?, ?)`,
				as.AssemblyID, as.SlideID, as.Position,
			); err != nil {
				return err
			}
		}
		return nil
	})
}
