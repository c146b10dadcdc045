package store

import (
	"database/sql"
	"fmt"

	"slidebank/internal/model"
)

const slideCols = `id, file_id, idx, title, body, notes, image_path, thumb_path, ai_topic, ai_type, ai_insight`

// ReplaceSlide persists a slide and its elements, deleting any prior slide at
// the same (file, index) first. Reconversion always goes through here, so a
// slide's elements are replaced wholesale, never patched.
func (s *Store) ReplaceSlide(slide *model.Slide, elements []model.Element) error {
	return s.withTx("persisting slide", func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			`DELETE FROM slides WHERE file_id = ? AND idx = ?`,
			slide.FileID, slide.Index,
		); err != nil {
			return err
		}
		if _, err := tx.Exec(
			`INSERT INTO slides (`+slideCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			slide.ID, slide.FileID, slide.Index, slide.Title, slide.Body, slide.Notes,
			slide.ImagePath, slide.ThumbPath, slide.AITopic, slide.AIType, slide.AIInsight,
		); err != nil {
			return err
		}
		for i := range elements {
			el := &elements[i]
			if _, err := tx.Exec(
				`INSERT INTO elements (id, slide_id, kind, x, y, w, h, text) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				el.ID, el.SlideID, el.Kind, el.X, el.Y, el.W, el.H, el.Text,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// TrimSlides deletes a file's slides above keep. A document can shrink
// between conversions; rows the new document no longer covers must go, or a
// file would report more slides than it has.
func (s *Store) TrimSlides(fileID string, keep int) error {
	return s.withTx("trimming slides", func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`DELETE FROM slides WHERE file_id = ? AND idx > ?`, fileID, keep)
		return err
	})
}

// GetSlide retrieves a slide by id.
func (s *Store) GetSlide(id string) (*model.Slide, error) {
	return scanSlide(s.conn.QueryRow(
		`SELECT `+slideCols+` FROM slides WHERE id = ?`, id))
}

func scanSlide(row *sql.Row) (*model.Slide, error) {
	var sl model.Slide
	err := row.Scan(&sl.ID, &sl.FileID, &sl.Index, &sl.Title, &sl.Body, &sl.Notes,
		&sl.ImagePath, &sl.ThumbPath, &sl.AITopic, &sl.AIType, &sl.AIInsight)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying slide: %w", err)
	}
	return &sl, nil
}

// ListSlides returns a file's slides in index order.
func (s *Store) ListSlides(fileID string) ([]model.Slide, error) {
	return s.querySlides(
		`SELECT `+slideCols+` FROM slides WHERE file_id = ? ORDER BY idx`, fileID)
}

func (s *Store) querySlides(query string, args ...interface{}) ([]model.Slide, error) {
	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying slides: %w", err)
	}
	defer rows.Close()

	var slides []model.Slide
	for rows.Next() {
		var sl model.Slide
		if err := rows.Scan(&sl.ID, &sl.FileID, &sl.Index, &sl.Title, &sl.Body, &sl.Notes,
			&sl.ImagePath, &sl.ThumbPath, &sl.AITopic, &sl.AIType, &sl.AIInsight); err != nil {
			return nil, fmt.Errorf("scanning slide: %w", err)
		}
		slides = append(slides, sl)
	}
	return slides, rows.Err()
}

// SetSlideAnnotations stores the opaque AI-style annotation fields.
func (s *Store) SetSlideAnnotations(id string, topic, kind, insight *string) error {
	return s.withTx("annotating slide", func(tx *sql.Tx) error {
		res, err := tx.Exec(
			`UPDATE slides SET ai_topic = ?, ai_type = ?, ai_insight = ? WHERE id = ?`,
			topic, kind, insight, id,
		)
		if err != nil {
			return err
		}
		return requireRow(res)
	})
}

// ListElements returns a slide's elements.
func (s *Store) ListElements(slideID string) ([]model.Element, error) {
	rows, err := s.conn.Query(
		`SELECT id, slide_id, kind, x, y, w, h, text FROM elements WHERE slide_id = ? ORDER BY id`,
		slideID)
	if err != nil {
		return nil, fmt.Errorf("querying elements: %w", err)
	}
	defer rows.Close()

	var elements []model.Element
	for rows.Next() {
		var el model.Element
		if err := rows.Scan(&el.ID, &el.SlideID, &el.Kind, &el.X, &el.Y, &el.W, &el.H, &el.Text); err != nil {
			return nil, fmt.Errorf("scanning element: %w", err)
		}
		elements = append(elements, el)
	}
	return elements, rows.Err()
}

// GetElement retrieves an element by id.
func (s *Store) GetElement(id string) (*model.Element, error) {
	var el model.Element
	err := s.conn.QueryRow(
		`SELECT id, slide_id, kind, x, y, w, h, text FROM elements WHERE id = ?`, id,
	).Scan(&el.ID, &el.SlideID, &el.Kind, &el.X, &el.Y, &el.W, &el.H, &el.Text)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying element: %w", err)
	}
	return &el, nil
}

// ProjectIDForSlide resolves the project a slide belongs to.
func (s *Store) ProjectIDForSlide(slideID string) (string, error) {
	var projectID string
	err := s.conn.QueryRow(
		`SELECT f.project_id FROM slides sl JOIN files f ON sl.file_id = f.id WHERE sl.id = ?`,
		slideID,
	).Scan(&projectID)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("resolving slide project: %w", err)
	}
	return projectID, nil
}

// ProjectIDForElement resolves the project an element belongs to.
func (s *Store) ProjectIDForElement(elementID string) (string, error) {
	var projectID string
	err := s.conn.QueryRow(
		`SELECT f.project_id FROM elements e
		 JOIN slides sl ON e.slide_id = sl.id
		 JOIN files f ON sl.file_id = f.id
		 WHERE e.id = ?`,
		elementID,
	).Scan(&projectID)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("resolving element project: %w", err)
	}
	return projectID, nil
}
