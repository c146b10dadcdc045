// Package archive packs a project's data file, imported copies, and rendered
// assets into a single portable zstd-compressed file.
package archive

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// packHeader describes the entries in a pack.
type packHeader struct {
	Entries []packEntry `json:"entries"`
}

// packEntry describes one file in a pack. Paths are slash-separated and
// relative to the project root.
type packEntry struct {
	Path   string `json:"path"`
	Offset int64  `json:"offset"`
	Length int64  `json:"length"`
}

const headerLengthSize = 4

// packedSubtrees are the project root subtrees worth carrying; everything
// else under the root belongs to the user.
var packedSubtrees = []string{"assets", "imports"}

// Create packs the project rooted at root into outPath. The data file plus
// the assets and imports subtrees go in; missing subtrees are fine.
func Create(root, dataFileName, outPath string) error {
	paths := []string{dataFileName}
	for _, sub := range packedSubtrees {
		subPaths, err := collect(root, sub)
		if err != nil {
			return err
		}
		paths = append(paths, subPaths...)
	}

	var header packHeader
	var data bytes.Buffer
	for _, rel := range paths {
		content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return fmt.Errorf("reading %s: %w", rel, err)
		}
		header.Entries = append(header.Entries, packEntry{
			Path:   rel,
			Offset: int64(data.Len()),
			Length: int64(len(content)),
		})
		data.Write(content)
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("marshaling header: %w", err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating pack: %w", err)
	}
	defer out.Close()

	encoder, err := zstd.NewWriter(out)
	if err != nil {
		return fmt.Errorf("creating encoder: %w", err)
	}
	headerLen := make([]byte, headerLengthSize)
	binary.BigEndian.PutUint32(headerLen, uint32(len(headerJSON)))
	if _, err := encoder.Write(headerLen); err != nil {
		encoder.Close()
		return fmt.Errorf("compressing: %w", err)
	}
	if _, err := encoder.Write(headerJSON); err != nil {
		encoder.Close()
		return fmt.Errorf("compressing: %w", err)
	}
	if _, err := encoder.Write(data.Bytes()); err != nil {
		encoder.Close()
		return fmt.Errorf("compressing: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("closing encoder: %w", err)
	}
	return nil
}

// Extract unpacks packPath into destRoot, recreating the packed layout.
func Extract(packPath, destRoot string) error {
	in, err := os.Open(packPath)
	if err != nil {
		return fmt.Errorf("opening pack: %w", err)
	}
	defer in.Close()

	decoder, err := zstd.NewReader(in)
	if err != nil {
		return fmt.Errorf("creating decoder: %w", err)
	}
	defer decoder.Close()

	raw, err := io.ReadAll(decoder)
	if err != nil {
		return fmt.Errorf("decompressing pack: %w", err)
	}
	if len(raw) < headerLengthSize {
		return fmt.Errorf("pack truncated")
	}
	headerLen := int(binary.BigEndian.Uint32(raw[:headerLengthSize]))
	if headerLengthSize+headerLen > len(raw) {
		return fmt.Errorf("pack header truncated")
	}
	var header packHeader
	if err := json.Unmarshal(raw[headerLengthSize:headerLengthSize+headerLen], &header); err != nil {
		return fmt.Errorf("parsing pack header: %w", err)
	}

	data := raw[headerLengthSize+headerLen:]
	for _, e := range header.Entries {
		if err := checkEntryPath(e.Path); err != nil {
			return err
		}
		if e.Offset < 0 || e.Length < 0 || e.Offset+e.Length > int64(len(data)) {
			return fmt.Errorf("pack entry %s out of bounds", e.Path)
		}
		dst := filepath.Join(destRoot, filepath.FromSlash(e.Path))
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", e.Path, err)
		}
		if err := os.WriteFile(dst, data[e.Offset:e.Offset+e.Length], 0644); err != nil {
			return fmt.Errorf("writing %s: %w", e.Path, err)
		}
	}
	return nil
}

// collect walks one subtree under root and returns slash-relative file paths.
// A missing subtree yields nothing.
func collect(root, sub string) ([]string, error) {
	base := filepath.Join(root, sub)
	if _, err := os.Stat(base); os.IsNotExist(err) {
		return nil, nil
	}
	var paths []string
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", sub, err)
	}
	return paths, nil
}

func checkEntryPath(p string) error {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "..") {
		return fmt.Errorf("unsafe pack entry path %q", p)
	}
	return nil
}
