package office

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"sync"
)

// FakeSlide is one slide of a fake document.
type FakeSlide struct {
	Text   SlideText
	Shapes []Shape
	// ImageW/ImageH size the generated PNG; zero means 64x48.
	ImageW int
	ImageH int
}

// FakeDocument is an in-memory presentation for tests.
type FakeDocument struct {
	Slides []FakeSlide
	// TextErrAt fails ExtractText for that 1-based index, to exercise
	// per-slide degradation.
	TextErrAt int
	// ImageErrAt fails ExportImage for that 1-based index.
	ImageErrAt int

	closed bool
}

// FakeAutomation is an in-memory Automation and Assembler.
type FakeAutomation struct {
	mu   sync.Mutex
	Docs map[string]*FakeDocument
	// Unavailable makes every call fail with ErrUnavailable.
	Unavailable bool
	// AssembleFailAt fails Assemble after placing that many slides.
	AssembleFailAt int
	// Assembled records the refs of each successful Assemble call.
	Assembled [][]SlideRef
}

// NewFakeAutomation returns an empty fake.
func NewFakeAutomation() *FakeAutomation {
	return &FakeAutomation{Docs: make(map[string]*FakeDocument)}
}

// AddDocument registers a fake document under a path.
func (f *FakeAutomation) AddDocument(path string, doc *FakeDocument) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Docs[path] = doc
}

// Open returns the registered document for path.
func (f *FakeAutomation) Open(path string) (Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Unavailable {
		return nil, unavailable(fmt.Errorf("fake host offline"))
	}
	doc, ok := f.Docs[path]
	if !ok {
		return nil, unavailable(fmt.Errorf("no such document: %s", path))
	}
	return &fakeHandle{doc: doc}, nil
}

type fakeHandle struct {
	doc *FakeDocument
}

func (h *fakeHandle) SlideCount() int {
	return len(h.doc.Slides)
}

func (h *fakeHandle) ExportImage(index int, outPath string) error {
	if index == h.doc.ImageErrAt {
		return unavailable(fmt.Errorf("render failed for slide %d", index))
	}
	sl, err := h.slide(index)
	if err != nil {
		return err
	}
	w, ht := sl.ImageW, sl.ImageH
	if w == 0 {
		w = 64
	}
	if ht == 0 {
		ht = 48
	}
	img := image.NewRGBA(image.Rect(0, 0, w, ht))
	// Fill with a color derived from the index so images differ.
	c := color.RGBA{R: uint8(index * 40), G: uint8(index * 80), B: 200, A: 255}
	for y := 0; y < ht; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()
	return png.Encode(out, img)
}

func (h *fakeHandle) ExtractText(index int) (SlideText, error) {
	if index == h.doc.TextErrAt {
		return SlideText{}, unavailable(fmt.Errorf("text extraction failed for slide %d", index))
	}
	sl, err := h.slide(index)
	if err != nil {
		return SlideText{}, err
	}
	return sl.Text, nil
}

func (h *fakeHandle) ExtractShapes(index int) ([]Shape, error) {
	sl, err := h.slide(index)
	if err != nil {
		return nil, err
	}
	return sl.Shapes, nil
}

func (h *fakeHandle) Close() error {
	h.doc.closed = true
	return nil
}

func (h *fakeHandle) slide(index int) (*FakeSlide, error) {
	if index < 1 || index > len(h.doc.Slides) {
		return nil, fmt.Errorf("slide index %d out of range", index)
	}
	return &h.doc.Slides[index-1], nil
}

// Assemble copies the refs and writes a placeholder output file, honoring
// cancellation between slides.
func (f *FakeAutomation) Assemble(ctx context.Context, refs []SlideRef, outPath string, progress func(done, total int)) error {
	f.mu.Lock()
	unavailableNow := f.Unavailable
	failAt := f.AssembleFailAt
	f.mu.Unlock()
	if unavailableNow {
		return unavailable(fmt.Errorf("fake host offline"))
	}

	total := len(refs)
	for i := range refs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if failAt > 0 && i >= failAt {
			return unavailable(fmt.Errorf("assembly failed after %d slides", i))
		}
		if progress != nil {
			progress(i+1, total)
		}
	}

	f.mu.Lock()
	f.Assembled = append(f.Assembled, append([]SlideRef{}, refs...))
	f.mu.Unlock()
	return os.WriteFile(outPath, []byte(fmt.Sprintf("assembled %d slides", total)), 0644)
}
