package command

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"slidebank/internal/keyword"
	"slidebank/internal/model"
	"slidebank/internal/store"
)

// recordingCommand counts applies and reverts.
type recordingCommand struct {
	name     string
	applies  int
	reverts  int
	applyErr error
}

func (c *recordingCommand) Name() string { return c.name }
func (c *recordingCommand) Apply() (Outcome, error) {
	c.applies++
	return Outcome{Reversibility: FullyReversible}, c.applyErr
}
func (c *recordingCommand) Revert() (Outcome, error) {
	c.reverts++
	return Outcome{Reversibility: FullyReversible}, nil
}

func TestStackUndoRedo(t *testing.T) {
	s := NewStack()
	cmd := &recordingCommand{name: "first"}

	if _, err := s.Do(cmd); err != nil {
		t.Fatalf("do failed: %v", err)
	}
	if !s.CanUndo() || s.CanRedo() {
		t.Errorf("expected undoable, not redoable")
	}
	if s.UndoName() != "first" {
		t.Errorf("expected undo name 'first', got %q", s.UndoName())
	}

	if _, err := s.Undo(); err != nil {
		t.Fatalf("undo failed: %v", err)
	}
	if cmd.reverts != 1 {
		t.Errorf("expected 1 revert, got %d", cmd.reverts)
	}
	if s.CanUndo() || !s.CanRedo() {
		t.Errorf("expected redoable, not undoable")
	}

	if _, err := s.Redo(); err != nil {
		t.Fatalf("redo failed: %v", err)
	}
	if cmd.applies != 2 {
		t.Errorf("expected re-apply, got %d applies", cmd.applies)
	}
}

func TestStackEmpty(t *testing.T) {
	s := NewStack()
	if _, err := s.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("expected ErrNothingToUndo, got %v", err)
	}
	if _, err := s.Redo(); !errors.Is(err, ErrNothingToRedo) {
		t.Errorf("expected ErrNothingToRedo, got %v", err)
	}
}

func TestStackDiscardsRedoBranch(t *testing.T) {
	s := NewStack()
	first := &recordingCommand{name: "first"}
	second := &recordingCommand{name: "second"}

	if _, err := s.Do(first); err != nil {
		t.Fatalf("do failed: %v", err)
	}
	if _, err := s.Undo(); err != nil {
		t.Fatalf("undo failed: %v", err)
	}
	// A new command after undo kills the redo branch; history is linear.
	if _, err := s.Do(second); err != nil {
		t.Fatalf("do failed: %v", err)
	}
	if s.CanRedo() {
		t.Error("expected redo branch discarded")
	}
	if _, err := s.Redo(); !errors.Is(err, ErrNothingToRedo) {
		t.Errorf("expected ErrNothingToRedo, got %v", err)
	}
}

func TestStackFailedApplyNotRecorded(t *testing.T) {
	s := NewStack()
	bad := &recordingCommand{name: "bad", applyErr: fmt.Errorf("boom")}

	if _, err := s.Do(bad); err == nil {
		t.Fatal("expected apply error")
	}
	if s.CanUndo() {
		t.Error("failed command must not land on the stack")
	}
}

// reentrantCommand drives the stack from inside Apply, like a worker
// goroutine trying to push results as commands.
type reentrantCommand struct {
	stack *Stack
	inner error
}

func (c *reentrantCommand) Name() string { return "reentrant" }
func (c *reentrantCommand) Apply() (Outcome, error) {
	_, c.inner = c.stack.Do(&recordingCommand{name: "inner"})
	return Outcome{Reversibility: FullyReversible}, nil
}
func (c *reentrantCommand) Revert() (Outcome, error) {
	return Outcome{Reversibility: FullyReversible}, nil
}

func TestStackRejectsConcurrentMutation(t *testing.T) {
	s := NewStack()
	cmd := &reentrantCommand{stack: s}
	if _, err := s.Do(cmd); err != nil {
		t.Fatalf("do failed: %v", err)
	}
	if !errors.Is(cmd.inner, ErrStackBusy) {
		t.Errorf("expected ErrStackBusy from nested mutation, got %v", cmd.inner)
	}
}

// --- commands against a real store ---

type fixture struct {
	st        *store.Store
	graph     *keyword.Graph
	root      string
	projectID string
	fileID    string
	slideID   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "slidebank-test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	st, err := store.OpenProject(tmpDir)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	p, err := st.CreateProject("command fixtures", tmpDir)
	if err != nil {
		t.Fatalf("failed to create project: %v", err)
	}
	f, err := st.AddFile(p.ID, "/src/deck.pptx", "imports/deck.pptx", "digest")
	if err != nil {
		t.Fatalf("failed to add file: %v", err)
	}
	sl := &model.Slide{
		ID: "slide-1", FileID: f.ID, Index: 1, Title: "Intro",
		ImagePath: filepath.Join("assets", f.ID, "image_1.png"),
		ThumbPath: filepath.Join("assets", f.ID, "thumb_1.png"),
	}
	if err := st.ReplaceSlide(sl, nil); err != nil {
		t.Fatalf("failed to insert slide: %v", err)
	}
	// Disk artifacts the delete commands are expected to remove.
	assetDir := filepath.Join(tmpDir, "assets", f.ID)
	if err := os.MkdirAll(assetDir, 0755); err != nil {
		t.Fatalf("failed to create asset dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(assetDir, "image_1.png"), []byte("png"), 0644); err != nil {
		t.Fatalf("failed to write asset: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(tmpDir, "imports"), 0755); err != nil {
		t.Fatalf("failed to create imports dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "imports", "deck.pptx"), []byte("pptx"), 0644); err != nil {
		t.Fatalf("failed to write import: %v", err)
	}

	return &fixture{
		st: st, graph: keyword.NewGraph(st), root: tmpDir,
		projectID: p.ID, fileID: f.ID, slideID: sl.ID,
	}
}

func TestRenameProjectRoundTrip(t *testing.T) {
	fx := newFixture(t)
	s := NewStack()

	cmd := &RenameProject{St: fx.st, ProjectID: fx.projectID, NewName: "renamed"}
	out, err := s.Do(cmd)
	if err != nil {
		t.Fatalf("do failed: %v", err)
	}
	if out.Reversibility != FullyReversible {
		t.Errorf("expected fully reversible, got %s", out)
	}

	if _, err := s.Undo(); err != nil {
		t.Fatalf("undo failed: %v", err)
	}
	p, err := fx.st.GetProject(fx.projectID)
	if err != nil {
		t.Fatalf("failed to get project: %v", err)
	}
	if p.Name != "command fixtures" {
		t.Errorf("expected original name restored, got %q", p.Name)
	}

	if _, err := s.Redo(); err != nil {
		t.Fatalf("redo failed: %v", err)
	}
	p, _ = fx.st.GetProject(fx.projectID)
	if p.Name != "renamed" {
		t.Errorf("expected redo to rename again, got %q", p.Name)
	}
}

func TestAssignKeywordUndoRemovesCreation(t *testing.T) {
	fx := newFixture(t)
	s := NewStack()

	cmd := &AssignKeyword{
		Graph: fx.graph, St: fx.st,
		TargetID: fx.slideID, Kind: model.TargetSlide,
		Text: "finance", Category: model.CategoryTopic, Color: "#123456",
	}
	if _, err := s.Do(cmd); err != nil {
		t.Fatalf("do failed: %v", err)
	}
	if _, err := s.Undo(); err != nil {
		t.Fatalf("undo failed: %v", err)
	}
	// The keyword was created by this command, so undo removes it too.
	if _, err := fx.st.GetKeywordByText(fx.projectID, "finance"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected keyword gone after undo, got %v", err)
	}
}

func TestAssignKeywordUndoKeepsPreexisting(t *testing.T) {
	fx := newFixture(t)
	s := NewStack()

	k, err := fx.st.CreateKeyword(fx.projectID, "finance", model.CategoryTopic, "#123456")
	if err != nil {
		t.Fatalf("failed to create keyword: %v", err)
	}

	cmd := &AssignKeyword{
		Graph: fx.graph, St: fx.st,
		TargetID: fx.slideID, Kind: model.TargetSlide,
		Text: "finance", Category: model.CategoryTopic, Color: "#123456",
	}
	if _, err := s.Do(cmd); err != nil {
		t.Fatalf("do failed: %v", err)
	}
	if _, err := s.Undo(); err != nil {
		t.Fatalf("undo failed: %v", err)
	}
	// The keyword predates the command; undo only removes the edge.
	if _, err := fx.st.GetKeyword(k.ID); err != nil {
		t.Errorf("expected pre-existing keyword kept: %v", err)
	}
	slideIDs, _, err := fx.st.KeywordEdges(k.ID)
	if err != nil {
		t.Fatalf("failed to query edges: %v", err)
	}
	if len(slideIDs) != 0 {
		t.Errorf("expected edge removed, got %v", slideIDs)
	}
}

func TestMergeKeywordsRoundTrip(t *testing.T) {
	fx := newFixture(t)
	s := NewStack()

	src, err := fx.graph.Assign(fx.slideID, model.TargetSlide, "finanse", model.CategoryTopic, "#111111")
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	dst, err := fx.st.CreateKeyword(fx.projectID, "finance", model.CategoryTopic, "#222222")
	if err != nil {
		t.Fatalf("failed to create keyword: %v", err)
	}

	cmd := &MergeKeywords{
		Graph: fx.graph, St: fx.st,
		SourceIDs: []string{src.Keyword.ID}, DestID: dst.ID,
	}
	if _, err := s.Do(cmd); err != nil {
		t.Fatalf("do failed: %v", err)
	}
	if _, err := s.Undo(); err != nil {
		t.Fatalf("undo failed: %v", err)
	}

	restored, err := fx.st.GetKeyword(src.Keyword.ID)
	if err != nil {
		t.Fatalf("expected source restored: %v", err)
	}
	if restored.Text != "finanse" {
		t.Errorf("expected source text back, got %q", restored.Text)
	}
	slideIDs, _, err := fx.st.KeywordEdges(dst.ID)
	if err != nil {
		t.Fatalf("failed to query edges: %v", err)
	}
	if len(slideIDs) != 0 {
		t.Errorf("expected destination back to no edges, got %v", slideIDs)
	}
}

func TestDeleteFilePartiallyReversible(t *testing.T) {
	fx := newFixture(t)
	s := NewStack()

	cmd := &DeleteFile{St: fx.st, Root: fx.root, FileID: fx.fileID}
	out, err := s.Do(cmd)
	if err != nil {
		t.Fatalf("do failed: %v", err)
	}
	if out.Reversibility != PartiallyReversible || out.Reason == "" {
		t.Errorf("expected named partial reversibility, got %s", out)
	}
	if _, err := os.Stat(filepath.Join(fx.root, "assets", fx.fileID)); !os.IsNotExist(err) {
		t.Error("expected asset directory removed")
	}
	if _, err := os.Stat(filepath.Join(fx.root, "imports", "deck.pptx")); !os.IsNotExist(err) {
		t.Error("expected stored copy removed")
	}

	out, err = s.Undo()
	if err != nil {
		t.Fatalf("undo failed: %v", err)
	}
	if out.Reversibility != PartiallyReversible {
		t.Errorf("expected undo to report partial reversibility, got %s", out)
	}
	// Database rows come back; the disk stays empty.
	if _, err := fx.st.GetFile(fx.fileID); err != nil {
		t.Errorf("expected file row restored: %v", err)
	}
	if _, err := fx.st.GetSlide(fx.slideID); err != nil {
		t.Errorf("expected slide row restored: %v", err)
	}
	if _, err := os.Stat(filepath.Join(fx.root, "assets", fx.fileID)); !os.IsNotExist(err) {
		t.Error("undo must not resurrect disk artifacts")
	}
}

func TestDeleteProjectPartiallyReversible(t *testing.T) {
	fx := newFixture(t)
	s := NewStack()

	cmd := &DeleteProject{St: fx.st, Root: fx.root, ProjectID: fx.projectID}
	out, err := s.Do(cmd)
	if err != nil {
		t.Fatalf("do failed: %v", err)
	}
	if out.Reversibility != PartiallyReversible {
		t.Errorf("expected partial reversibility, got %s", out)
	}
	if _, err := os.Stat(filepath.Join(fx.root, "imports")); !os.IsNotExist(err) {
		t.Error("expected imports subtree removed")
	}
	// The data file itself stays put.
	if _, err := os.Stat(filepath.Join(fx.root, store.DataFileName)); err != nil {
		t.Errorf("expected data file kept: %v", err)
	}

	if _, err := s.Undo(); err != nil {
		t.Fatalf("undo failed: %v", err)
	}
	if _, err := fx.st.GetProject(fx.projectID); err != nil {
		t.Errorf("expected project restored: %v", err)
	}
	if _, err := fx.st.GetFile(fx.fileID); err != nil {
		t.Errorf("expected file restored: %v", err)
	}
}

func TestMoveAssemblySlideRoundTrip(t *testing.T) {
	fx := newFixture(t)
	s := NewStack()

	// Two more slides so there is something to reorder.
	for i := 2; i <= 3; i++ {
		sl := &model.Slide{
			ID: fmt.Sprintf("slide-%d", i), FileID: fx.fileID, Index: i,
			ImagePath: fmt.Sprintf("assets/f/image_%d.png", i),
			ThumbPath: fmt.Sprintf("assets/f/thumb_%d.png", i),
		}
		if err := fx.st.ReplaceSlide(sl, nil); err != nil {
			t.Fatalf("failed to insert slide: %v", err)
		}
	}
	a, err := fx.st.CreateAssembly(fx.projectID, "pitch")
	if err != nil {
		t.Fatalf("failed to create assembly: %v", err)
	}
	for i := 1; i <= 3; i++ {
		if err := fx.st.AppendAssemblySlide(a.ID, fmt.Sprintf("slide-%d", i)); err != nil {
			t.Fatalf("failed to append: %v", err)
		}
	}

	if _, err := s.Do(&MoveAssemblySlide{St: fx.st, AssemblyID: a.ID, From: 2, To: 0}); err != nil {
		t.Fatalf("do failed: %v", err)
	}
	order, _ := fx.st.AssemblyOrder(a.ID)
	if order[0] != "slide-3" {
		t.Errorf("expected slide-3 first, got %v", order)
	}

	if _, err := s.Undo(); err != nil {
		t.Fatalf("undo failed: %v", err)
	}
	order, _ = fx.st.AssemblyOrder(a.ID)
	want := []string{"slide-1", "slide-2", "slide-3"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v after undo, got %v", want, order)
		}
	}
}

func TestClearAssemblyRoundTrip(t *testing.T) {
	fx := newFixture(t)
	s := NewStack()

	a, err := fx.st.CreateAssembly(fx.projectID, "pitch")
	if err != nil {
		t.Fatalf("failed to create assembly: %v", err)
	}
	if err := fx.st.AppendAssemblySlide(a.ID, fx.slideID); err != nil {
		t.Fatalf("failed to append: %v", err)
	}

	if _, err := s.Do(&ClearAssembly{St: fx.st, AssemblyID: a.ID}); err != nil {
		t.Fatalf("do failed: %v", err)
	}
	order, _ := fx.st.AssemblyOrder(a.ID)
	if len(order) != 0 {
		t.Errorf("expected empty, got %v", order)
	}

	if _, err := s.Undo(); err != nil {
		t.Fatalf("undo failed: %v", err)
	}
	order, _ = fx.st.AssemblyOrder(a.ID)
	if len(order) != 1 || order[0] != fx.slideID {
		t.Errorf("expected ordering restored, got %v", order)
	}
}
