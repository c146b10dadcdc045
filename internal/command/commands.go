package command

import (
	"fmt"
	"os"
	"path/filepath"

	"slidebank/internal/keyword"
	"slidebank/internal/model"
	"slidebank/internal/store"
	"slidebank/internal/validate"
)

// RenameProject changes a project's display name.
type RenameProject struct {
	St        *store.Store
	ProjectID string
	NewName   string

	oldName  string
	rootPath string
}

func (c *RenameProject) Name() string { return fmt.Sprintf("rename project to %q", c.NewName) }

func (c *RenameProject) Apply() (Outcome, error) {
	if err := validate.ProjectName(c.NewName); err != nil {
		return Outcome{}, err
	}
	p, err := c.St.GetProject(c.ProjectID)
	if err != nil {
		return Outcome{}, err
	}
	c.oldName = p.Name
	c.rootPath = p.RootPath
	if err := c.St.UpdateProject(c.ProjectID, c.NewName, c.rootPath); err != nil {
		return Outcome{}, err
	}
	return Outcome{Reversibility: FullyReversible}, nil
}

func (c *RenameProject) Revert() (Outcome, error) {
	if err := c.St.UpdateProject(c.ProjectID, c.oldName, c.rootPath); err != nil {
		return Outcome{}, err
	}
	return Outcome{Reversibility: FullyReversible}, nil
}

// RenameKeyword changes a keyword's text.
type RenameKeyword struct {
	Graph     *keyword.Graph
	St        *store.Store
	KeywordID string
	NewText   string

	oldText string
}

func (c *RenameKeyword) Name() string { return fmt.Sprintf("rename keyword to %q", c.NewText) }

func (c *RenameKeyword) Apply() (Outcome, error) {
	k, err := c.St.GetKeyword(c.KeywordID)
	if err != nil {
		return Outcome{}, err
	}
	c.oldText = k.Text
	if err := c.Graph.Rename(c.KeywordID, c.NewText); err != nil {
		return Outcome{}, err
	}
	return Outcome{Reversibility: FullyReversible}, nil
}

func (c *RenameKeyword) Revert() (Outcome, error) {
	if err := c.Graph.Rename(c.KeywordID, c.oldText); err != nil {
		return Outcome{}, err
	}
	return Outcome{Reversibility: FullyReversible}, nil
}

// RecolorKeyword changes a keyword's display color.
type RecolorKeyword struct {
	Graph     *keyword.Graph
	St        *store.Store
	KeywordID string
	NewColor  string

	oldColor string
}

func (c *RecolorKeyword) Name() string { return fmt.Sprintf("recolor keyword to %s", c.NewColor) }

func (c *RecolorKeyword) Apply() (Outcome, error) {
	k, err := c.St.GetKeyword(c.KeywordID)
	if err != nil {
		return Outcome{}, err
	}
	c.oldColor = k.Color
	if err := c.Graph.Recolor(c.KeywordID, c.NewColor); err != nil {
		return Outcome{}, err
	}
	return Outcome{Reversibility: FullyReversible}, nil
}

func (c *RecolorKeyword) Revert() (Outcome, error) {
	if err := c.Graph.Recolor(c.KeywordID, c.oldColor); err != nil {
		return Outcome{}, err
	}
	return Outcome{Reversibility: FullyReversible}, nil
}

// AssignKeyword attaches a keyword to a slide or element, creating the
// keyword on first use. Revert removes exactly what Apply added: the edge if
// one was added, and the keyword itself if Apply created it.
type AssignKeyword struct {
	Graph    *keyword.Graph
	St       *store.Store
	TargetID string
	Kind     model.TargetKind
	Text     string
	Category model.KeywordCategory
	Color    string

	res *keyword.AssignResult
}

func (c *AssignKeyword) Name() string { return fmt.Sprintf("assign keyword %q", c.Text) }

func (c *AssignKeyword) Apply() (Outcome, error) {
	res, err := c.Graph.Assign(c.TargetID, c.Kind, c.Text, c.Category, c.Color)
	if err != nil {
		return Outcome{}, err
	}
	c.res = res
	return Outcome{Reversibility: FullyReversible}, nil
}

func (c *AssignKeyword) Revert() (Outcome, error) {
	if c.res.AddedEdge {
		if err := c.Graph.Unassign(c.TargetID, c.Kind, c.res.Keyword.ID); err != nil {
			return Outcome{}, err
		}
	}
	if c.res.CreatedKeyword {
		if err := c.St.DeleteKeyword(c.res.Keyword.ID); err != nil {
			return Outcome{}, err
		}
	}
	return Outcome{Reversibility: FullyReversible}, nil
}

// UnassignKeyword detaches a keyword from a slide or element.
type UnassignKeyword struct {
	Graph     *keyword.Graph
	St        *store.Store
	TargetID  string
	Kind      model.TargetKind
	KeywordID string
}

func (c *UnassignKeyword) Name() string { return "unassign keyword" }

func (c *UnassignKeyword) Apply() (Outcome, error) {
	if err := c.Graph.Unassign(c.TargetID, c.Kind, c.KeywordID); err != nil {
		return Outcome{}, err
	}
	return Outcome{Reversibility: FullyReversible}, nil
}

func (c *UnassignKeyword) Revert() (Outcome, error) {
	var err error
	switch c.Kind {
	case model.TargetSlide:
		_, err = c.St.AssignSlideKeyword(c.TargetID, c.KeywordID)
	case model.TargetElement:
		_, err = c.St.AssignElementKeyword(c.TargetID, c.KeywordID)
	default:
		err = fmt.Errorf("unknown target kind %q", c.Kind)
	}
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Reversibility: FullyReversible}, nil
}

// MergeKeywords folds source keywords into a destination. The merge record
// captured on Apply carries everything Revert needs: the edges the merge
// added to the destination and full snapshots of the deleted sources.
type MergeKeywords struct {
	Graph     *keyword.Graph
	St        *store.Store
	SourceIDs []string
	DestID    string

	rec *store.MergeRecord
}

func (c *MergeKeywords) Name() string {
	return fmt.Sprintf("merge %d keyword(s)", len(c.SourceIDs))
}

func (c *MergeKeywords) Apply() (Outcome, error) {
	rec, err := c.Graph.Merge(c.SourceIDs, c.DestID)
	if err != nil {
		return Outcome{}, err
	}
	c.rec = rec
	return Outcome{Reversibility: FullyReversible}, nil
}

func (c *MergeKeywords) Revert() (Outcome, error) {
	if err := c.St.UndoMerge(c.rec); err != nil {
		return Outcome{}, err
	}
	return Outcome{Reversibility: FullyReversible}, nil
}

// DeleteFile removes an imported file: its database rows, its rendered
// images and thumbnails, and its stored copy. The database side restores on
// undo from a snapshot; the disk artifacts do not come back.
type DeleteFile struct {
	St     *store.Store
	Root   string // project root
	FileID string

	snap *store.FileSnapshot
}

func (c *DeleteFile) Name() string { return "delete file" }

func (c *DeleteFile) Apply() (Outcome, error) {
	snap, err := c.St.SnapshotFile(c.FileID)
	if err != nil {
		return Outcome{}, err
	}
	if err := c.St.DeleteFile(c.FileID); err != nil {
		return Outcome{}, err
	}
	c.snap = snap

	if err := os.RemoveAll(filepath.Join(c.Root, "assets", c.FileID)); err != nil {
		return Outcome{}, fmt.Errorf("removing assets: %w", err)
	}
	if snap.File.StoragePath != "" {
		if err := os.Remove(filepath.Join(c.Root, snap.File.StoragePath)); err != nil && !os.IsNotExist(err) {
			return Outcome{}, fmt.Errorf("removing stored copy: %w", err)
		}
	}
	return Outcome{
		Reversibility: PartiallyReversible,
		Reason:        "the stored copy and rendered images are deleted from disk",
	}, nil
}

func (c *DeleteFile) Revert() (Outcome, error) {
	if err := c.St.RestoreFile(c.snap); err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Reversibility: PartiallyReversible,
		Reason:        "database records restored; disk artifacts are gone, re-import and convert to regenerate",
	}, nil
}

// DeleteProject removes a project: all of its database rows plus the assets
// and imports subtrees under its root. The data file itself stays on disk.
type DeleteProject struct {
	St        *store.Store
	Root      string
	ProjectID string

	snap *store.ProjectSnapshot
}

func (c *DeleteProject) Name() string { return "delete project" }

func (c *DeleteProject) Apply() (Outcome, error) {
	snap, err := c.St.SnapshotProject(c.ProjectID)
	if err != nil {
		return Outcome{}, err
	}
	if err := c.St.DeleteProject(c.ProjectID); err != nil {
		return Outcome{}, err
	}
	c.snap = snap

	for _, sub := range []string{"assets", "imports"} {
		if err := os.RemoveAll(filepath.Join(c.Root, sub)); err != nil {
			return Outcome{}, fmt.Errorf("removing %s: %w", sub, err)
		}
	}
	return Outcome{
		Reversibility: PartiallyReversible,
		Reason:        "imported copies and rendered images are deleted from disk",
	}, nil
}

func (c *DeleteProject) Revert() (Outcome, error) {
	if err := c.St.RestoreProject(c.snap); err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Reversibility: PartiallyReversible,
		Reason:        "database records restored; disk artifacts are gone, re-import and convert to regenerate",
	}, nil
}

// AppendAssemblySlide adds a slide at the end of an assembly's ordering.
type AppendAssemblySlide struct {
	St         *store.Store
	AssemblyID string
	SlideID    string
}

func (c *AppendAssemblySlide) Name() string { return "add slide to assembly" }

func (c *AppendAssemblySlide) Apply() (Outcome, error) {
	if err := c.St.AppendAssemblySlide(c.AssemblyID, c.SlideID); err != nil {
		return Outcome{}, err
	}
	return Outcome{Reversibility: FullyReversible}, nil
}

func (c *AppendAssemblySlide) Revert() (Outcome, error) {
	if err := c.St.RemoveAssemblySlide(c.AssemblyID, c.SlideID); err != nil {
		return Outcome{}, err
	}
	return Outcome{Reversibility: FullyReversible}, nil
}

// RemoveAssemblySlide removes a slide from an assembly's ordering. The full
// prior ordering is captured so undo restores exact positions.
type RemoveAssemblySlide struct {
	St         *store.Store
	AssemblyID string
	SlideID    string

	prevOrder []string
}

func (c *RemoveAssemblySlide) Name() string { return "remove slide from assembly" }

func (c *RemoveAssemblySlide) Apply() (Outcome, error) {
	order, err := c.St.AssemblyOrder(c.AssemblyID)
	if err != nil {
		return Outcome{}, err
	}
	if err := c.St.RemoveAssemblySlide(c.AssemblyID, c.SlideID); err != nil {
		return Outcome{}, err
	}
	c.prevOrder = order
	return Outcome{Reversibility: FullyReversible}, nil
}

func (c *RemoveAssemblySlide) Revert() (Outcome, error) {
	if err := c.St.SetAssemblyOrder(c.AssemblyID, c.prevOrder); err != nil {
		return Outcome{}, err
	}
	return Outcome{Reversibility: FullyReversible}, nil
}

// MoveAssemblySlide moves a slide between positions.
type MoveAssemblySlide struct {
	St         *store.Store
	AssemblyID string
	From, To   int

	prevOrder []string
}

func (c *MoveAssemblySlide) Name() string {
	return fmt.Sprintf("move assembly slide %d -> %d", c.From, c.To)
}

func (c *MoveAssemblySlide) Apply() (Outcome, error) {
	order, err := c.St.AssemblyOrder(c.AssemblyID)
	if err != nil {
		return Outcome{}, err
	}
	if err := c.St.MoveAssemblySlide(c.AssemblyID, c.From, c.To); err != nil {
		return Outcome{}, err
	}
	c.prevOrder = order
	return Outcome{Reversibility: FullyReversible}, nil
}

func (c *MoveAssemblySlide) Revert() (Outcome, error) {
	if err := c.St.SetAssemblyOrder(c.AssemblyID, c.prevOrder); err != nil {
		return Outcome{}, err
	}
	return Outcome{Reversibility: FullyReversible}, nil
}

// ClearAssembly empties an assembly's ordering.
type ClearAssembly struct {
	St         *store.Store
	AssemblyID string

	prevOrder []string
}

func (c *ClearAssembly) Name() string { return "clear assembly" }

func (c *ClearAssembly) Apply() (Outcome, error) {
	order, err := c.St.AssemblyOrder(c.AssemblyID)
	if err != nil {
		return Outcome{}, err
	}
	if err := c.St.ClearAssembly(c.AssemblyID); err != nil {
		return Outcome{}, err
	}
	c.prevOrder = order
	return Outcome{Reversibility: FullyReversible}, nil
}

func (c *ClearAssembly) Revert() (Outcome, error) {
	if err := c.St.SetAssemblyOrder(c.AssemblyID, c.prevOrder); err != nil {
		return Outcome{}, err
	}
	return Outcome{Reversibility: FullyReversible}, nil
}
