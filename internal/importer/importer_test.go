package importer

import (
	"os"
	"path/filepath"
	"testing"

	"slidebank/internal/model"
	"slidebank/internal/store"
)

func newImportFixture(t *testing.T) (*Importer, *store.Store, string, string) {
	t.Helper()
	root, err := os.MkdirTemp("", "slidebank-test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(root) })

	st, err := store.OpenProject(root)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	p, err := st.CreateProject("import fixtures", root)
	if err != nil {
		t.Fatalf("failed to create project: %v", err)
	}

	srcDir, err := os.MkdirTemp("", "slidebank-src")
	if err != nil {
		t.Fatalf("failed to create source dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(srcDir) })

	return New(st, root), st, p.ID, srcDir
}

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write source: %v", err)
	}
	return path
}

func TestImportGlob(t *testing.T) {
	im, st, projectID, srcDir := newImportFixture(t)
	writeSource(t, srcDir, "a.pptx", "deck a")
	writeSource(t, srcDir, "nested/b.pptx", "deck b")
	writeSource(t, srcDir, "notes.txt", "not a deck")

	res, err := im.ImportGlob(projectID, filepath.Join(srcDir, "**", "*"))
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if len(res.Imported) != 2 {
		t.Fatalf("expected 2 imports, got %d", len(res.Imported))
	}
	for _, f := range res.Imported {
		if f.Status != model.StatusPending {
			t.Errorf("expected pending, got %s", f.Status)
		}
		if f.Digest == "" {
			t.Error("expected content digest recorded")
		}
		// The stored copy lives under imports/ relative to the root.
		if filepath.Dir(f.StoragePath) != "imports" {
			t.Errorf("unexpected storage path %q", f.StoragePath)
		}
	}

	files, err := st.ListFiles(projectID)
	if err != nil {
		t.Fatalf("failed to list files: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("expected 2 files recorded, got %d", len(files))
	}
}

func TestImportCopiesContent(t *testing.T) {
	im, _, projectID, srcDir := newImportFixture(t)
	src := writeSource(t, srcDir, "a.pptx", "deck bytes")

	res, err := im.ImportGlob(projectID, src)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if len(res.Imported) != 1 {
		t.Fatalf("expected 1 import, got %d", len(res.Imported))
	}
	got, err := os.ReadFile(filepath.Join(im.root, res.Imported[0].StoragePath))
	if err != nil {
		t.Fatalf("failed to read stored copy: %v", err)
	}
	if string(got) != "deck bytes" {
		t.Errorf("stored copy differs: %q", got)
	}
}

func TestImportDeduplicatesByContent(t *testing.T) {
	im, st, projectID, srcDir := newImportFixture(t)
	writeSource(t, srcDir, "a.pptx", "same bytes")
	writeSource(t, srcDir, "copy-of-a.pptx", "same bytes")

	res, err := im.ImportGlob(projectID, filepath.Join(srcDir, "*.pptx"))
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if len(res.Imported) != 1 || len(res.Skipped) != 1 {
		t.Fatalf("expected 1 imported + 1 skipped, got %d/%d", len(res.Imported), len(res.Skipped))
	}

	// A second run of the same pattern imports nothing new.
	res, err = im.ImportGlob(projectID, filepath.Join(srcDir, "*.pptx"))
	if err != nil {
		t.Fatalf("re-import failed: %v", err)
	}
	if len(res.Imported) != 0 || len(res.Skipped) != 2 {
		t.Errorf("expected everything skipped on re-run, got %d/%d", len(res.Imported), len(res.Skipped))
	}

	files, err := st.ListFiles(projectID)
	if err != nil {
		t.Fatalf("failed to list files: %v", err)
	}
	if len(files) != 1 {
		t.Errorf("expected 1 file recorded, got %d", len(files))
	}
}

func TestImportNoMatches(t *testing.T) {
	im, _, projectID, srcDir := newImportFixture(t)
	res, err := im.ImportGlob(projectID, filepath.Join(srcDir, "*.pptx"))
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if len(res.Imported) != 0 || len(res.Skipped) != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
}
