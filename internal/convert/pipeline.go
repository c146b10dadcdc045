// Package convert turns imported files into slide and element records plus
// rendered image artifacts, using a bounded background worker pool.
package convert

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"slidebank/internal/events"
	"slidebank/internal/model"
	"slidebank/internal/office"
	"slidebank/internal/store"
)

// Pipeline converts a project's pending and failed files. Each worker task
// opens its own storage connection; connections never cross goroutines.
type Pipeline struct {
	dbPath      string
	root        string // project root; asset paths are stored relative to it
	auto        office.Automation
	bus         *events.Bus
	workers     int
	thumbHeight int
}

// New creates a pipeline over the project database at dbPath.
func New(dbPath, projectRoot string, auto office.Automation, bus *events.Bus, workers, thumbHeight int) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		dbPath:      dbPath,
		root:        projectRoot,
		auto:        auto,
		bus:         bus,
		workers:     workers,
		thumbHeight: thumbHeight,
	}
}

// Run starts converting every pending or failed file of the project and
// returns a task id immediately; progress, per-file failures, and overall
// completion arrive on the event bus. The caller never blocks on conversion.
//
// Cancelling ctx stops new files from being picked up. A file that already
// reached in_progress runs to completed or failed; there is no mid-file
// cancellation.
func (p *Pipeline) Run(ctx context.Context, projectID string) (string, error) {
	st, err := store.Open(p.dbPath)
	if err != nil {
		return "", err
	}
	files, err := st.FilesByStatus(projectID, model.StatusPending, model.StatusFailed)
	st.Close()
	if err != nil {
		return "", err
	}

	taskID := uuid.NewString()
	agg := &aggregator{}

	go func() {
		g := new(errgroup.Group)
		g.SetLimit(p.workers)
		for i := range files {
			file := files[i]
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				p.convertFile(taskID, agg, &file)
				return nil
			})
		}
		g.Wait()
		done, total := agg.snapshot()
		p.bus.Publish(events.Event{
			TaskID: taskID, Kind: events.KindCompleted,
			EntityID: projectID, Done: done, Total: total,
		})
	}()

	return taskID, nil
}

// convertFile runs one file through pending -> in_progress -> completed or
// failed. Collaborator errors mark the file failed and are retryable by
// running the pipeline again; they never take down the pool.
func (p *Pipeline) convertFile(taskID string, agg *aggregator, file *model.File) {
	st, err := store.Open(p.dbPath)
	if err != nil {
		log.Printf("convert: opening store for file %s: %v", file.ID, err)
		return
	}
	defer st.Close()

	if err := st.SetFileStatus(file.ID, model.StatusInProgress, ""); err != nil {
		log.Printf("convert: marking %s in progress: %v", file.ID, err)
		return
	}

	if err := p.processFile(st, taskID, agg, file); err != nil {
		if serr := st.SetFileStatus(file.ID, model.StatusFailed, err.Error()); serr != nil {
			log.Printf("convert: marking %s failed: %v", file.ID, serr)
		}
		p.bus.Publish(events.Event{
			TaskID: taskID, Kind: events.KindFailed,
			EntityID: file.ID, Err: err.Error(),
		})
		return
	}

	if err := st.SetFileStatus(file.ID, model.StatusCompleted, ""); err != nil {
		log.Printf("convert: marking %s completed: %v", file.ID, err)
	}
}

func (p *Pipeline) processFile(st *store.Store, taskID string, agg *aggregator, file *model.File) error {
	doc, err := p.auto.Open(filepath.Join(p.root, file.StoragePath))
	if err != nil {
		return err
	}
	defer doc.Close()

	n := doc.SlideCount()
	if err := st.SetFileSlideCount(file.ID, n); err != nil {
		return err
	}
	// An earlier conversion may have stored more slides than the document
	// now declares; drop the stale tail before filling 1..n.
	if err := st.TrimSlides(file.ID, n); err != nil {
		return err
	}
	agg.addTotal(n)

	assetDir := filepath.Join(p.root, "assets", file.ID)
	if err := os.MkdirAll(assetDir, 0755); err != nil {
		return fmt.Errorf("creating asset directory: %w", err)
	}

	// Slides persist in increasing index order within a file.
	for i := 1; i <= n; i++ {
		if err := p.processSlide(st, doc, file, i); err != nil {
			return fmt.Errorf("slide %d: %w", i, err)
		}
		done, total := agg.advance()
		p.bus.Publish(events.Event{
			TaskID: taskID, Kind: events.KindProgress,
			EntityID: file.ID, Done: done, Total: total,
		})
	}
	return nil
}

func (p *Pipeline) processSlide(st *store.Store, doc office.Document, file *model.File, index int) error {
	relImage := filepath.Join("assets", file.ID, fmt.Sprintf("image_%d.png", index))
	relThumb := filepath.Join("assets", file.ID, fmt.Sprintf("thumb_%d.png", index))

	absImage := filepath.Join(p.root, relImage)
	if err := doc.ExportImage(index, absImage); err != nil {
		return err
	}
	if err := p.writeThumbnail(absImage, filepath.Join(p.root, relThumb)); err != nil {
		return err
	}

	// A slide failing text or shape extraction degrades to empty optional
	// fields; it does not fail the file.
	text, err := doc.ExtractText(index)
	if err != nil {
		log.Printf("convert: text extraction degraded for %s slide %d: %v", file.ID, index, err)
		text = office.SlideText{}
	}
	shapes, err := doc.ExtractShapes(index)
	if err != nil {
		log.Printf("convert: shape extraction degraded for %s slide %d: %v", file.ID, index, err)
		shapes = nil
	}

	slide := &model.Slide{
		ID:        uuid.NewString(),
		FileID:    file.ID,
		Index:     index,
		Title:     text.Title,
		Body:      text.Body,
		Notes:     text.Notes,
		ImagePath: relImage,
		ThumbPath: relThumb,
	}
	elements := make([]model.Element, 0, len(shapes))
	for _, sh := range shapes {
		elements = append(elements, model.Element{
			ID:      uuid.NewString(),
			SlideID: slide.ID,
			Kind:    sh.Kind,
			X:       sh.X, Y: sh.Y, W: sh.W, H: sh.H,
			Text: sh.Text,
		})
	}
	return st.ReplaceSlide(slide, elements)
}

// writeThumbnail derives a fixed-height thumbnail from the full image.
func (p *Pipeline) writeThumbnail(imagePath, thumbPath string) error {
	in, err := os.Open(imagePath)
	if err != nil {
		return fmt.Errorf("opening rendered image: %w", err)
	}
	src, err := png.Decode(in)
	in.Close()
	if err != nil {
		return fmt.Errorf("decoding rendered image: %w", err)
	}

	scaled := scaleToHeight(src, p.thumbHeight)

	out, err := os.Create(thumbPath)
	if err != nil {
		return fmt.Errorf("creating thumbnail: %w", err)
	}
	defer out.Close()
	if err := png.Encode(out, scaled); err != nil {
		return fmt.Errorf("encoding thumbnail: %w", err)
	}
	return nil
}

func scaleToHeight(src image.Image, height int) image.Image {
	b := src.Bounds()
	if height <= 0 || b.Dy() <= height {
		return src
	}
	w := b.Dx() * height / b.Dy()
	if w < 1 {
		w = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}
