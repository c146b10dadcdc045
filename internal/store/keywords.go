package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"slidebank/internal/model"
)

const keywordCols = `id, project_id, text, category, color, created_at`

// CreateKeyword inserts a new keyword label.
func (s *Store) CreateKeyword(projectID, text string, category model.KeywordCategory, color string) (*model.Keyword, error) {
	k := &model.Keyword{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Text:      text,
		Category:  category,
		Color:     color,
		CreatedAt: NowMs(),
	}
	err := s.withTx("creating keyword", func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO keywords (`+keywordCols+`) VALUES (?, ?, ?, ?, ?, ?)`,
			k.ID, k.ProjectID, k.Text, k.Category, k.Color, k.CreatedAt,
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	return k, nil
}

// GetKeyword retrieves a keyword by id.
func (s *Store) GetKeyword(id string) (*model.Keyword, error) {
	return scanKeyword(s.conn.QueryRow(
		`SELECT `+keywordCols+` FROM keywords WHERE id = ?`, id))
}

// GetKeywordByText retrieves a keyword by its (project, text) key.
func (s *Store) GetKeywordByText(projectID, text string) (*model.Keyword, error) {
	return scanKeyword(s.conn.QueryRow(
		`SELECT `+keywordCols+` FROM keywords WHERE project_id = ? AND text = ?`,
		projectID, text))
}

func scanKeyword(row *sql.Row) (*model.Keyword, error) {
	var k model.Keyword
	err := row.Scan(&k.ID, &k.ProjectID, &k.Text, &k.Category, &k.Color, &k.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying keyword: %w", err)
	}
	return &k, nil
}

// ListKeywords returns a project's keywords ordered by text.
func (s *Store) ListKeywords(projectID string) ([]model.Keyword, error) {
	rows, err := s.conn.Query(
		`SELECT `+keywordCols+` FROM keywords WHERE project_id = ? ORDER BY text`, projectID)
	if err != nil {
		return nil, fmt.Errorf("querying keywords: %w", err)
	}
	defer rows.Close()
	return collectKeywords(rows)
}

func collectKeywords(rows *sql.Rows) ([]model.Keyword, error) {
	var keywords []model.Keyword
	for rows.Next() {
		var k model.Keyword
		if err := rows.Scan(&k.ID, &k.ProjectID, &k.Text, &k.Category, &k.Color, &k.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning keyword: %w", err)
		}
		keywords = append(keywords, k)
	}
	return keywords, rows.Err()
}

// RenameKeyword changes a keyword's text. The (project_id, text) uniqueness
// constraint applies; collisions surface as a StorageError.
func (s *Store) RenameKeyword(id, newText string) error {
	return s.withTx("renaming keyword", func(tx *sql.Tx) error {
		res, err := tx.Exec(`UPDATE keywords SET text = ? WHERE id = ?`, newText, id)
		if err != nil {
			return err
		}
		return requireRow(res)
	})
}

// RecolorKeyword changes a keyword's display color.
func (s *Store) RecolorKeyword(id, color string) error {
	return s.withTx("recoloring keyword", func(tx *sql.Tx) error {
		res, err := tx.Exec(`UPDATE keywords SET color = ? WHERE id = ?`, color, id)
		if err != nil {
			return err
		}
		return requireRow(res)
	})
}

// DeleteKeyword removes a keyword and, via cascades, its association edges.
func (s *Store) DeleteKeyword(id string) error {
	return s.withTx("deleting keyword", func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM keywords WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return requireRow(res)
	})
}

// AssignSlideKeyword links a keyword to a slide. Assigning an existing link
// is a no-op; the bool reports whether a new edge was created.
func (s *Store) AssignSlideKeyword(slideID, keywordID string) (bool, error) {
	var added bool
	err := s.withTx("assigning keyword", func(tx *sql.Tx) error {
		res, err := tx.Exec(
			`INSERT OR IGNORE INTO slide_keywords (slide_id, keyword_id) VALUES (?, ?)`,
			slideID, keywordID,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		added = n > 0
		return err
	})
	return added, err
}

// UnassignSlideKeyword removes a slide-keyword edge if present.
func (s *Store) UnassignSlideKeyword(slideID, keywordID string) error {
	return s.withTx("unassigning keyword", func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`DELETE FROM slide_keywords WHERE slide_id = ? AND keyword_id = ?`,
			slideID, keywordID,
		)
		return err
	})
}

// AssignElementKeyword links a keyword to an element, idempotently.
func (s *Store) AssignElementKeyword(elementID, keywordID string) (bool, error) {
	var added bool
	err := s.withTx("assigning keyword", func(tx *sql.Tx) error {
		res, err := tx.Exec(
			`INSERT OR IGNORE INTO element_keywords (element_id, keyword_id) VALUES (?, ?)`,
			elementID, keywordID,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		added = n > 0
		return err
	})
	return added, err
}

// UnassignElementKeyword removes an element-keyword edge if present.
func (s *Store) UnassignElementKeyword(elementID, keywordID string) error {
	return s.withTx("unassigning keyword", func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`DELETE FROM element_keywords WHERE element_id = ? AND keyword_id = ?`,
			elementID, keywordID,
		)
		return err
	})
}

// KeywordEdges returns the slide and element ids a keyword is attached to.
func (s *Store) KeywordEdges(keywordID string) (slideIDs, elementIDs []string, err error) {
	slideIDs, err = s.queryIDs(
		`SELECT slide_id FROM slide_keywords WHERE keyword_id = ? ORDER BY slide_id`, keywordID)
	if err != nil {
		return nil, nil, err
	}
	elementIDs, err = s.queryIDs(
		`SELECT element_id FROM element_keywords WHERE keyword_id = ? ORDER BY element_id`, keywordID)
	if err != nil {
		return nil, nil, err
	}
	return slideIDs, elementIDs, nil
}

// ListSlidesForKeyword returns the slides associated with a keyword.
func (s *Store) ListSlidesForKeyword(keywordID string) ([]model.Slide, error) {
	return s.querySlides(
		`SELECT `+slideColsPrefixed+` FROM slides sl
		 JOIN slide_keywords sk ON sk.slide_id = sl.id
		 WHERE sk.keyword_id = ? ORDER BY sl.file_id, sl.idx`,
		keywordID)
}

const slideColsPrefixed = `sl.id, sl.file_id, sl.idx, sl.title, sl.body, sl.notes, sl.image_path, sl.thumb_path, sl.ai_topic, sl.ai_type, sl.ai_insight`

func (s *Store) queryIDs(query string, args ...interface{}) ([]string, error) {
	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// KeywordSnapshot captures a keyword row and its association edges.
type KeywordSnapshot struct {
	Keyword    model.Keyword
	SlideIDs   []string
	ElementIDs []string
}

// MergeRecord describes a completed merge in enough detail to reverse it
// without re-querying mutable state.
type MergeRecord struct {
	DestID          string
	AddedSlideIDs   []string
	AddedElementIDs []string
	Sources         []KeywordSnapshot
}

// MergeKeywords reassigns every association edge from the source keywords to
// the destination and deletes the now-orphaned sources, all in one
// transaction. The destination must exist and share the sources' project;
// a partial merge is never observable.
func (s *Store) MergeKeywords(sourceIDs []string, destID string) (*MergeRecord, error) {
	rec := &MergeRecord{DestID: destID}
	err := s.withTx("merging keywords", func(tx *sql.Tx) error {
		var destProject string
		err := tx.QueryRow(`SELECT project_id FROM keywords WHERE id = ?`, destID).Scan(&destProject)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("querying keyword: %w", err)
		}

		for _, srcID := range sourceIDs {
			if srcID == destID {
				return fmt.Errorf("keyword %s cannot merge into itself", srcID)
			}
			snap, err := snapshotKeywordTx(tx, srcID)
			if err != nil {
				return err
			}
			if snap.Keyword.ProjectID != destProject {
				return &StorageError{
					Op:        "merging keywords",
					Invariant: "merge within one project",
					Err:       fmt.Errorf("keyword %s belongs to a different project than %s", srcID, destID),
				}
			}
			rec.Sources = append(rec.Sources, *snap)

			for _, slideID := range snap.SlideIDs {
				res, err := tx.Exec(
					`INSERT OR IGNORE INTO slide_keywords (slide_id, keyword_id) VALUES (?, ?)`,
					slideID, destID,
				)
				if err != nil {
					return err
				}
				if n, _ := res.RowsAffected(); n > 0 {
					rec.AddedSlideIDs = append(rec.AddedSlideIDs, slideID)
				}
			}
			for _, elementID := range snap.ElementIDs {
				res, err := tx.Exec(
					`INSERT OR IGNORE INTO element_keywords (element_id, keyword_id) VALUES (?, ?)`,
					elementID, destID,
				)
				if err != nil {
					return err
				}
				if n, _ := res.RowsAffected(); n > 0 {
					rec.AddedElementIDs = append(rec.AddedElementIDs, elementID)
				}
			}
			if _, err := tx.Exec(`DELETE FROM keywords WHERE id = ?`, srcID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// UndoMerge restores the source keywords and their edges and removes the
// edges the merge added to the destination.
func (s *Store) UndoMerge(rec *MergeRecord) error {
	return s.withTx("undoing merge", func(tx *sql.Tx) error {
		for _, slideID := range rec.AddedSlideIDs {
			if _, err := tx.Exec(
				`DELETE FROM slide_keywords WHERE slide_id = ? AND keyword_id = ?`,
				slideID, rec.DestID,
			); err != nil {
				return err
			}
		}
		for _, elementID := range rec.AddedElementIDs {
			if _, err := tx.Exec(
				`DELETE FROM element_keywords WHERE element_id = ? AND keyword_id = ?`,
				elementID, rec.DestID,
			); err != nil {
				return err
			}
		}
		for _, snap := range rec.Sources {
			if err := restoreKeywordTx(tx, &snap); err != nil {
				return err
			}
		}
		return nil
	})
}

func snapshotKeywordTx(tx *sql.Tx, keywordID string) (*KeywordSnapshot, error) {
	var snap KeywordSnapshot
	err := tx.QueryRow(
		`SELECT `+keywordCols+` FROM keywords WHERE id = ?`, keywordID,
	).Scan(&snap.Keyword.ID, &snap.Keyword.ProjectID, &snap.Keyword.Text,
		&snap.Keyword.Category, &snap.Keyword.Color, &snap.Keyword.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying keyword: %w", err)
	}

	snap.SlideIDs, err = queryIDsTx(tx,
		`SELECT slide_id FROM slide_keywords WHERE keyword_id = ? ORDER BY slide_id`, keywordID)
	if err != nil {
		return nil, err
	}
	snap.ElementIDs, err = queryIDsTx(tx,
		`SELECT element_id FROM element_keywords WHERE keyword_id = ? ORDER BY element_id`, keywordID)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func restoreKeywordTx(tx *sql.Tx, snap *KeywordSnapshot) error {
	k := &snap.Keyword
	if _, err := tx.Exec(
		`INSERT INTO keywords (`+keywordCols+`) VALUES (?, ?, ?, ?, ?, ?)`,
		k.ID, k.ProjectID, k.Text, k.Category, k.Color, k.CreatedAt,
	); err != nil {
		return err
	}
	for _, slideID := range snap.SlideIDs {
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO slide_keywords (slide_id, keyword_id) VALUES (?, ?)`,
			slideID, k.ID,
		); err != nil {
			return err
		}
	}
	for _, elementID := range snap.ElementIDs {
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO element_keywords (element_id, keyword_id) VALUES (?, ?)`,
			elementID, k.ID,
		); err != nil {
			return err
		}
	}
	return nil
}

func queryIDsTx(tx *sql.Tx, query string, args ...interface{}) ([]string, error) {
	rows, err := tx.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
