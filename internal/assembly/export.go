// Package assembly exports an ordered slide selection into a single output
// document.
package assembly

import (
	"context"
	"path/filepath"

	"github.com/google/uuid"

	"slidebank/internal/events"
	"slidebank/internal/office"
	"slidebank/internal/store"
)

// Exporter drives an export through the office automation host. Exports run
// in the background; progress and completion arrive on the event bus.
type Exporter struct {
	st   *store.Store
	root string
	asm  office.Assembler
	bus  *events.Bus
}

// NewExporter creates an exporter for the project rooted at root.
func NewExporter(st *store.Store, projectRoot string, asm office.Assembler, bus *events.Bus) *Exporter {
	return &Exporter{st: st, root: projectRoot, asm: asm, bus: bus}
}

// Export resolves the assembly's current ordering and assembles it into
// outPath, returning a task id immediately. Per-slide progress is published
// as the output document grows. Cancelling ctx aborts between slides; an
// aborted export reports failure and leaves no usable output.
func (e *Exporter) Export(ctx context.Context, assemblyID, outPath string) (string, error) {
	refs, err := e.st.ResolveAssembly(assemblyID)
	if err != nil {
		return "", err
	}

	slideRefs := make([]office.SlideRef, len(refs))
	for i, r := range refs {
		slideRefs[i] = office.SlideRef{
			SourcePath: filepath.Join(e.root, r.StoragePath),
			Index:      r.Index,
		}
	}

	taskID := uuid.NewString()
	go func() {
		err := e.asm.Assemble(ctx, slideRefs, outPath, func(done, total int) {
			e.bus.Publish(events.Event{
				TaskID: taskID, Kind: events.KindProgress,
				EntityID: assemblyID, Done: done, Total: total,
			})
		})
		if err != nil {
			e.bus.Publish(events.Event{
				TaskID: taskID, Kind: events.KindFailed,
				EntityID: assemblyID, Err: err.Error(),
			})
			return
		}
		e.bus.Publish(events.Event{
			TaskID: taskID, Kind: events.KindCompleted,
			EntityID: assemblyID, Done: len(slideRefs), Total: len(slideRefs),
		})
	}()
	return taskID, nil
}
