package store

import (
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"slidebank/internal/model"
)

// minIndexedRunes is the shortest term the trigram index can answer. The
// tokenizer works in characters, not bytes, so the gate counts runes.
const minIndexedRunes = 3

// SearchKeywords finds keywords whose text contains term, case-insensitively.
// Category and projectID narrow the scope when non-empty. Terms of three or
// more characters go through the trigram text index; shorter terms, or any
// index failure, take a linear scan. Both paths apply the same substring
// filter, so callers observe identical results either way.
func (s *Store) SearchKeywords(term string, category model.KeywordCategory, projectID string) ([]model.Keyword, error) {
	var candidates []model.Keyword
	var err error

	if utf8.RuneCountInString(term) >= minIndexedRunes {
		candidates, err = s.searchKeywordsIndexed(term)
		if err != nil {
			log.Printf("store: %v, falling back to scan: %v", ErrIndexDegraded, err)
			candidates = nil
		}
	}
	if candidates == nil {
		candidates, err = s.scanKeywordsLinear(projectID)
		if err != nil {
			return nil, err
		}
	}

	needle := strings.ToLower(term)
	var out []model.Keyword
	for _, k := range candidates {
		if projectID != "" && k.ProjectID != projectID {
			continue
		}
		if category != "" && k.Category != category {
			continue
		}
		if !strings.Contains(strings.ToLower(k.Text), needle) {
			continue
		}
		out = append(out, k)
	}
	return out, nil
}

func (s *Store) searchKeywordsIndexed(term string) ([]model.Keyword, error) {
	rows, err := s.conn.Query(
		`SELECT k.id, k.project_id, k.text, k.category, k.color, k.created_at
		 FROM keywords_fts f
		 JOIN keywords k ON k.rowid = f.rowid
		 WHERE keywords_fts MATCH ?
		 ORDER BY k.text`,
		ftsQuote(term),
	)
	if err != nil {
		return nil, fmt.Errorf("querying keyword index: %w", err)
	}
	defer rows.Close()
	keywords, err := collectKeywords(rows)
	if err != nil {
		return nil, err
	}
	if keywords == nil {
		keywords = []model.Keyword{}
	}
	return keywords, nil
}

func (s *Store) scanKeywordsLinear(projectID string) ([]model.Keyword, error) {
	query := `SELECT ` + keywordCols + ` FROM keywords ORDER BY text`
	args := []interface{}{}
	if projectID != "" {
		query = `SELECT ` + keywordCols + ` FROM keywords WHERE project_id = ? ORDER BY text`
		args = append(args, projectID)
	}
	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("scanning keywords: %w", err)
	}
	defer rows.Close()
	keywords, err := collectKeywords(rows)
	if err != nil {
		return nil, err
	}
	if keywords == nil {
		keywords = []model.Keyword{}
	}
	return keywords, nil
}

// SearchSlides finds slides whose title, body, or notes contain term,
// case-insensitively, with the same index-then-fallback contract as
// SearchKeywords.
func (s *Store) SearchSlides(term string, projectID string) ([]model.Slide, error) {
	var candidates []model.Slide
	var err error

	if utf8.RuneCountInString(term) >= minIndexedRunes {
		candidates, err = s.searchSlidesIndexed(term)
		if err != nil {
			log.Printf("store: %v, falling back to scan: %v", ErrIndexDegraded, err)
			candidates = nil
		}
	}
	if candidates == nil {
		candidates, err = s.scanSlidesLinear(projectID)
		if err != nil {
			return nil, err
		}
	}

	needle := strings.ToLower(term)
	var out []model.Slide
	for _, sl := range candidates {
		if projectID != "" {
			pid, err := s.ProjectIDForSlide(sl.ID)
			if err != nil {
				return nil, err
			}
			if pid != projectID {
				continue
			}
		}
		if !strings.Contains(strings.ToLower(sl.Title), needle) &&
			!strings.Contains(strings.ToLower(sl.Body), needle) &&
			!strings.Contains(strings.ToLower(sl.Notes), needle) {
			continue
		}
		out = append(out, sl)
	}
	return out, nil
}

func (s *Store) searchSlidesIndexed(term string) ([]model.Slide, error) {
	slides, err := s.querySlides(
		`SELECT `+slideColsPrefixed+`
		 FROM slides_fts f
		 JOIN slides sl ON sl.rowid = f.rowid
		 WHERE slides_fts MATCH ?
		 ORDER BY sl.file_id, sl.idx`,
		ftsQuote(term),
	)
	if err != nil {
		return nil, fmt.Errorf("querying slide index: %w", err)
	}
	if slides == nil {
		slides = []model.Slide{}
	}
	return slides, nil
}

func (s *Store) scanSlidesLinear(projectID string) ([]model.Slide, error) {
	var slides []model.Slide
	var err error
	if projectID != "" {
		slides, err = s.querySlides(
			`SELECT `+slideColsPrefixed+` FROM slides sl
			 JOIN files f ON sl.file_id = f.id
			 WHERE f.project_id = ? ORDER BY sl.file_id, sl.idx`,
			projectID)
	} else {
		slides, err = s.querySlides(
			`SELECT ` + slideColsPrefixed + ` FROM slides sl ORDER BY sl.file_id, sl.idx`)
	}
	if err != nil {
		return nil, err
	}
	if slides == nil {
		slides = []model.Slide{}
	}
	return slides, nil
}

// ftsQuote wraps a term as an FTS5 string literal so user input is never
// parsed as query syntax.
func ftsQuote(term string) string {
	return `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
}
