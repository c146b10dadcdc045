// Package keyword manages categorized labels on slides and elements:
// assignment, rename, recolor, transactional merge, and fuzzy merge
// suggestions.
package keyword

import (
	"errors"
	"fmt"

	"slidebank/internal/model"
	"slidebank/internal/store"
	"slidebank/internal/validate"
)

// Graph operates on a project's keyword set.
type Graph struct {
	st *store.Store
}

// NewGraph creates a keyword graph over a store.
func NewGraph(st *store.Store) *Graph {
	return &Graph{st: st}
}

// AssignResult reports what Assign did, in enough detail for a command
// object to revert it.
type AssignResult struct {
	Keyword        model.Keyword
	CreatedKeyword bool
	AddedEdge      bool
}

// Assign attaches a keyword to a slide or element, creating the keyword in
// the target's project if it does not exist yet. Assigning an already-present
// keyword is a no-op, not an error.
func (g *Graph) Assign(targetID string, kind model.TargetKind, text string, category model.KeywordCategory, color string) (*AssignResult, error) {
	if err := validate.KeywordText(text); err != nil {
		return nil, err
	}
	if err := validate.Category(category); err != nil {
		return nil, err
	}

	var projectID string
	var err error
	switch kind {
	case model.TargetSlide:
		projectID, err = g.st.ProjectIDForSlide(targetID)
	case model.TargetElement:
		projectID, err = g.st.ProjectIDForElement(targetID)
	default:
		return nil, fmt.Errorf("unknown target kind %q", kind)
	}
	if err != nil {
		return nil, err
	}

	res := &AssignResult{}
	k, err := g.st.GetKeywordByText(projectID, text)
	if errors.Is(err, store.ErrNotFound) {
		k, err = g.st.CreateKeyword(projectID, text, category, color)
		if err != nil {
			return nil, err
		}
		res.CreatedKeyword = true
	} else if err != nil {
		return nil, err
	}
	res.Keyword = *k

	switch kind {
	case model.TargetSlide:
		res.AddedEdge, err = g.st.AssignSlideKeyword(targetID, k.ID)
	case model.TargetElement:
		res.AddedEdge, err = g.st.AssignElementKeyword(targetID, k.ID)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Unassign detaches a keyword from a slide or element.
func (g *Graph) Unassign(targetID string, kind model.TargetKind, keywordID string) error {
	switch kind {
	case model.TargetSlide:
		return g.st.UnassignSlideKeyword(targetID, keywordID)
	case model.TargetElement:
		return g.st.UnassignElementKeyword(targetID, keywordID)
	}
	return fmt.Errorf("unknown target kind %q", kind)
}

// Rename changes a keyword's text.
func (g *Graph) Rename(keywordID, newText string) error {
	if err := validate.KeywordText(newText); err != nil {
		return err
	}
	return g.st.RenameKeyword(keywordID, newText)
}

// Recolor changes a keyword's display color.
func (g *Graph) Recolor(keywordID, color string) error {
	if err := validate.Color(color); err != nil {
		return err
	}
	return g.st.RecolorKeyword(keywordID, color)
}

// Merge folds the source keywords into the destination. Every association
// edge moves to the destination exactly once and the sources are deleted,
// all in one transaction.
func (g *Graph) Merge(sourceIDs []string, destID string) (*store.MergeRecord, error) {
	if len(sourceIDs) == 0 {
		return nil, fmt.Errorf("merge needs at least one source keyword")
	}
	return g.st.MergeKeywords(sourceIDs, destID)
}
