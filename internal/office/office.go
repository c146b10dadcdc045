// Package office abstracts the external document-automation collaborator
// that rasterizes slides, extracts text and shapes, and assembles new
// documents. The production adapter is host-application-dependent; tests use
// the in-memory fake.
package office

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable marks a collaborator failure: the automation host is not
// installed or reachable, or the document is unreadable. Callers treat it as
// retryable and must not crash the worker pool.
var ErrUnavailable = errors.New("automation host unavailable")

// SlideText is the text extracted from one slide.
type SlideText struct {
	Title string
	Body  string
	Notes string
}

// Shape is one shape on a slide, with its bounding box in the document's
// native unit.
type Shape struct {
	Kind string
	X    float64
	Y    float64
	W    float64
	H    float64
	Text string
}

// SlideRef identifies one slide of a source document for assembly.
type SlideRef struct {
	SourcePath string
	Index      int // 1-based
}

// Document is an open presentation. Indices are 1-based. A Document must
// only be used from the task that opened it.
type Document interface {
	SlideCount() int
	ExportImage(index int, outPath string) error
	ExtractText(index int) (SlideText, error)
	ExtractShapes(index int) ([]Shape, error)
	Close() error
}

// Automation opens presentation documents.
type Automation interface {
	Open(path string) (Document, error)
}

// Assembler builds a new document from ordered slide references. It checks
// ctx between slides and calls progress after each slide placed.
type Assembler interface {
	Assemble(ctx context.Context, refs []SlideRef, outPath string, progress func(done, total int)) error
}

func unavailable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
