package office

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// FitzAutomation renders page-oriented documents (PDF, XPS, EPUB exports of
// presentations) through MuPDF. It is a reader: shape geometry and document
// assembly need the real office host, so ExtractShapes degrades to empty and
// Assemble reports ErrUnavailable.
type FitzAutomation struct{}

// Open opens a document for rendering and extraction.
func (FitzAutomation) Open(path string) (Document, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, unavailable(fmt.Errorf("opening %s: %v", path, err))
	}
	return &fitzDocument{doc: doc}, nil
}

type fitzDocument struct {
	doc *fitz.Document
}

func (d *fitzDocument) SlideCount() int {
	return d.doc.NumPage()
}

// ExportImage renders a slide to a PNG at outPath.
func (d *fitzDocument) ExportImage(index int, outPath string) error {
	img, err := d.doc.Image(index - 1)
	if err != nil {
		return unavailable(fmt.Errorf("rendering slide %d: %v", index, err))
	}
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating image file: %w", err)
	}
	defer out.Close()
	if err := png.Encode(out, img); err != nil {
		return fmt.Errorf("encoding image: %w", err)
	}
	return nil
}

// ExtractText treats the first non-empty line as the title and the remainder
// as the body. Page documents carry no speaker notes.
func (d *fitzDocument) ExtractText(index int) (SlideText, error) {
	text, err := d.doc.Text(index - 1)
	if err != nil {
		return SlideText{}, unavailable(fmt.Errorf("extracting text from slide %d: %v", index, err))
	}
	lines := strings.Split(strings.TrimSpace(text), "\n")
	var st SlideText
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if st.Title == "" {
			st.Title = line
			continue
		}
		st.Body = strings.TrimSpace(strings.Join(lines[i:], "\n"))
		break
	}
	return st, nil
}

// ExtractShapes returns no shapes; MuPDF exposes no shape geometry.
func (d *fitzDocument) ExtractShapes(index int) ([]Shape, error) {
	return nil, nil
}

func (d *fitzDocument) Close() error {
	return d.doc.Close()
}

// Assemble always fails: building a new presentation requires the office
// automation host, which this adapter does not drive.
func (FitzAutomation) Assemble(ctx context.Context, refs []SlideRef, outPath string, progress func(done, total int)) error {
	return unavailable(fmt.Errorf("assembly requires the office automation host"))
}
