// Package importer copies presentation files into a project's imports tree
// and records them for conversion.
package importer

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"lukechampine.com/blake3"

	"slidebank/internal/model"
	"slidebank/internal/store"
)

// supportedExt lists the presentation formats the conversion pipeline can
// open.
var supportedExt = map[string]bool{
	".pptx": true,
	".ppt":  true,
	".pdf":  true,
}

// Importer copies files into <root>/imports and registers them as pending.
type Importer struct {
	st   *store.Store
	root string
}

// New creates an importer for the project rooted at root.
func New(st *store.Store, projectRoot string) *Importer {
	return &Importer{st: st, root: projectRoot}
}

// Result reports what one import run did.
type Result struct {
	Imported []model.File
	Skipped  []string // original paths skipped as duplicates of existing content
}

// ImportGlob imports every supported file matching pattern. Content digests
// dedupe: a file whose bytes are already in the project is skipped, not
// re-imported. Unsupported matches are ignored.
func (im *Importer) ImportGlob(projectID, pattern string) (*Result, error) {
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("expanding pattern %q: %w", pattern, err)
	}

	res := &Result{}
	for _, path := range matches {
		ext := strings.ToLower(filepath.Ext(path))
		if !supportedExt[ext] {
			continue
		}
		f, dup, err := im.importOne(projectID, path, ext)
		if err != nil {
			return res, err
		}
		if dup {
			res.Skipped = append(res.Skipped, path)
			continue
		}
		res.Imported = append(res.Imported, *f)
	}
	return res, nil
}

func (im *Importer) importOne(projectID, path, ext string) (*model.File, bool, error) {
	digest, err := digestFile(path)
	if err != nil {
		return nil, false, err
	}

	if _, err := im.st.GetFileByDigest(projectID, digest); err == nil {
		log.Printf("import: %s already imported, skipping", path)
		return nil, true, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}

	rel := filepath.Join("imports", digest[:16]+ext)
	abs := filepath.Join(im.root, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return nil, false, fmt.Errorf("creating imports directory: %w", err)
	}
	if err := copyFile(path, abs); err != nil {
		return nil, false, err
	}

	f, err := im.st.AddFile(projectID, path, rel, digest)
	if err != nil {
		os.Remove(abs)
		return nil, false, err
	}
	return f, false, nil
}

func digestFile(path string) (string, error) {
	in, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer in.Close()

	h := blake3.New(32, nil)
	if _, err := io.Copy(h, in); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying to %s: %w", dst, err)
	}
	return out.Close()
}
