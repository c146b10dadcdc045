package convert

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"slidebank/internal/events"
	"slidebank/internal/model"
	"slidebank/internal/office"
	"slidebank/internal/store"
)

func newTestProject(t *testing.T) (root string, st *store.Store, projectID string) {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "slidebank-test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	st, err = store.OpenProject(tmpDir)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	p, err := st.CreateProject("convert fixtures", tmpDir)
	if err != nil {
		t.Fatalf("failed to create project: %v", err)
	}
	return tmpDir, st, p.ID
}

// addFakeFile registers a pending file and a fake document behind it.
func addFakeFile(t *testing.T, st *store.Store, auto *office.FakeAutomation, root, projectID, name string, doc *office.FakeDocument) *model.File {
	t.Helper()
	rel := filepath.Join("imports", name)
	f, err := st.AddFile(projectID, "/src/"+name, rel, "digest-"+name)
	if err != nil {
		t.Fatalf("failed to add file: %v", err)
	}
	auto.AddDocument(filepath.Join(root, rel), doc)
	return f
}

// waitDone drains the bus until the task completes or the test times out.
func waitDone(t *testing.T, ch <-chan events.Event, taskID string) []events.Event {
	t.Helper()
	var seen []events.Event
	deadline := time.After(10 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.TaskID != taskID {
				continue
			}
			seen = append(seen, ev)
			if ev.Kind == events.KindCompleted {
				return seen
			}
		case <-deadline:
			t.Fatal("timed out waiting for completion")
		}
	}
}

func threeSlideDoc() *office.FakeDocument {
	return &office.FakeDocument{Slides: []office.FakeSlide{
		{Text: office.SlideText{Title: "One", Body: "first"}, Shapes: []office.Shape{
			{Kind: "textbox", X: 1, Y: 2, W: 30, H: 40, Text: "hello"},
		}},
		{Text: office.SlideText{Title: "Two"}},
		{Text: office.SlideText{Title: "Three", Notes: "closing"}},
	}}
}

func TestConvertThreeSlides(t *testing.T) {
	root, st, projectID := newTestProject(t)
	auto := office.NewFakeAutomation()
	f := addFakeFile(t, st, auto, root, projectID, "deck.pptx", threeSlideDoc())

	bus := events.NewBus()
	ch, cancel := bus.Subscribe()
	defer cancel()

	pipe := New(st.Path(), root, auto, bus, 2, 32)
	taskID, err := pipe.Run(context.Background(), projectID)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	seen := waitDone(t, ch, taskID)

	got, err := st.GetFile(f.ID)
	if err != nil {
		t.Fatalf("failed to get file: %v", err)
	}
	if got.Status != model.StatusCompleted {
		t.Errorf("expected completed, got %s (%s)", got.Status, got.ErrorMsg)
	}
	if got.SlideCount != 3 {
		t.Errorf("expected slide count 3, got %d", got.SlideCount)
	}

	slides, err := st.ListSlides(f.ID)
	if err != nil {
		t.Fatalf("failed to list slides: %v", err)
	}
	if len(slides) != 3 {
		t.Fatalf("expected 3 slides, got %d", len(slides))
	}
	for i, sl := range slides {
		if sl.Index != i+1 {
			t.Errorf("expected 1-based index %d, got %d", i+1, sl.Index)
		}
		for _, rel := range []string{sl.ImagePath, sl.ThumbPath} {
			if _, err := os.Stat(filepath.Join(root, rel)); err != nil {
				t.Errorf("expected artifact %s: %v", rel, err)
			}
		}
	}
	if slides[0].Title != "One" || slides[2].Notes != "closing" {
		t.Errorf("expected extracted text persisted, got %+v", slides[0])
	}

	elements, err := st.ListElements(slides[0].ID)
	if err != nil {
		t.Fatalf("failed to list elements: %v", err)
	}
	if len(elements) != 1 || elements[0].Text != "hello" {
		t.Errorf("expected shape persisted, got %+v", elements)
	}

	// Progress is monotonic and ends at 3/3.
	prevDone := 0
	for _, ev := range seen {
		if ev.Kind != events.KindProgress {
			continue
		}
		if ev.Done < prevDone {
			t.Errorf("progress went backwards: %d after %d", ev.Done, prevDone)
		}
		prevDone = ev.Done
	}
	final := seen[len(seen)-1]
	if final.Done != 3 || final.Total != 3 {
		t.Errorf("expected final 3/3, got %d/%d", final.Done, final.Total)
	}
}

func TestConvertAggregatesAcrossFiles(t *testing.T) {
	root, st, projectID := newTestProject(t)
	auto := office.NewFakeAutomation()
	addFakeFile(t, st, auto, root, projectID, "a.pptx", threeSlideDoc())
	addFakeFile(t, st, auto, root, projectID, "b.pptx", &office.FakeDocument{
		Slides: []office.FakeSlide{{}, {}},
	})

	bus := events.NewBus()
	ch, cancel := bus.Subscribe()
	defer cancel()

	pipe := New(st.Path(), root, auto, bus, 2, 32)
	taskID, err := pipe.Run(context.Background(), projectID)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	seen := waitDone(t, ch, taskID)

	final := seen[len(seen)-1]
	if final.Done != 5 || final.Total != 5 {
		t.Errorf("expected 5/5 across both files, got %d/%d", final.Done, final.Total)
	}
}

func TestConvertUnavailableHostMarksFailed(t *testing.T) {
	root, st, projectID := newTestProject(t)
	auto := office.NewFakeAutomation()
	f := addFakeFile(t, st, auto, root, projectID, "deck.pptx", threeSlideDoc())
	auto.Unavailable = true

	bus := events.NewBus()
	ch, cancel := bus.Subscribe()
	defer cancel()

	pipe := New(st.Path(), root, auto, bus, 2, 32)
	taskID, err := pipe.Run(context.Background(), projectID)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	seen := waitDone(t, ch, taskID)

	got, err := st.GetFile(f.ID)
	if err != nil {
		t.Fatalf("failed to get file: %v", err)
	}
	if got.Status != model.StatusFailed {
		t.Errorf("expected failed, got %s", got.Status)
	}
	if got.ErrorMsg == "" {
		t.Error("expected failure reason persisted")
	}
	var failures int
	for _, ev := range seen {
		if ev.Kind == events.KindFailed && ev.EntityID == f.ID {
			failures++
		}
	}
	if failures != 1 {
		t.Errorf("expected one failure event, got %d", failures)
	}
}

func TestConvertRetryAfterFailure(t *testing.T) {
	root, st, projectID := newTestProject(t)
	auto := office.NewFakeAutomation()
	f := addFakeFile(t, st, auto, root, projectID, "deck.pptx", threeSlideDoc())
	auto.Unavailable = true

	bus := events.NewBus()
	ch, cancel := bus.Subscribe()
	defer cancel()

	pipe := New(st.Path(), root, auto, bus, 1, 32)
	taskID, err := pipe.Run(context.Background(), projectID)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	waitDone(t, ch, taskID)

	// Failed files are picked up by the next run once the host is back.
	auto.Unavailable = false
	taskID, err = pipe.Run(context.Background(), projectID)
	if err != nil {
		t.Fatalf("retry run failed: %v", err)
	}
	waitDone(t, ch, taskID)

	got, err := st.GetFile(f.ID)
	if err != nil {
		t.Fatalf("failed to get file: %v", err)
	}
	if got.Status != model.StatusCompleted {
		t.Errorf("expected completed after retry, got %s (%s)", got.Status, got.ErrorMsg)
	}
}

func TestConvertDegradedTextExtraction(t *testing.T) {
	root, st, projectID := newTestProject(t)
	auto := office.NewFakeAutomation()
	doc := threeSlideDoc()
	doc.TextErrAt = 2
	f := addFakeFile(t, st, auto, root, projectID, "deck.pptx", doc)

	bus := events.NewBus()
	ch, cancel := bus.Subscribe()
	defer cancel()

	pipe := New(st.Path(), root, auto, bus, 1, 32)
	taskID, err := pipe.Run(context.Background(), projectID)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	waitDone(t, ch, taskID)

	// Slide 2 degrades to empty text; the file still completes.
	got, err := st.GetFile(f.ID)
	if err != nil {
		t.Fatalf("failed to get file: %v", err)
	}
	if got.Status != model.StatusCompleted {
		t.Errorf("expected completed despite degraded slide, got %s", got.Status)
	}
	slides, err := st.ListSlides(f.ID)
	if err != nil {
		t.Fatalf("failed to list slides: %v", err)
	}
	if slides[1].Title != "" {
		t.Errorf("expected degraded slide to carry empty text, got %q", slides[1].Title)
	}
}

func TestConvertShrunkDocumentDropsStaleSlides(t *testing.T) {
	root, st, projectID := newTestProject(t)
	auto := office.NewFakeAutomation()
	f := addFakeFile(t, st, auto, root, projectID, "deck.pptx", threeSlideDoc())

	bus := events.NewBus()
	ch, cancel := bus.Subscribe()
	defer cancel()

	pipe := New(st.Path(), root, auto, bus, 1, 32)
	taskID, err := pipe.Run(context.Background(), projectID)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	waitDone(t, ch, taskID)

	// The same path now resolves to a shorter document; reconverting must
	// drop the rows the new document no longer covers.
	auto.AddDocument(filepath.Join(root, "imports", "deck.pptx"), &office.FakeDocument{
		Slides: []office.FakeSlide{
			{Text: office.SlideText{Title: "Only"}},
			{Text: office.SlideText{Title: "Two"}},
		},
	})
	if err := st.SetFileStatus(f.ID, model.StatusPending, ""); err != nil {
		t.Fatalf("failed to reset status: %v", err)
	}
	taskID, err = pipe.Run(context.Background(), projectID)
	if err != nil {
		t.Fatalf("reconvert run failed: %v", err)
	}
	waitDone(t, ch, taskID)

	slides, err := st.ListSlides(f.ID)
	if err != nil {
		t.Fatalf("failed to list slides: %v", err)
	}
	if len(slides) != 2 {
		t.Fatalf("expected 2 slides after shrink, got %d", len(slides))
	}
	if slides[0].Title != "Only" || slides[1].Title != "Two" {
		t.Errorf("expected reconverted text, got %q and %q", slides[0].Title, slides[1].Title)
	}
}

func TestConvertCancelSkipsUnstartedFiles(t *testing.T) {
	root, st, projectID := newTestProject(t)
	auto := office.NewFakeAutomation()
	f := addFakeFile(t, st, auto, root, projectID, "deck.pptx", threeSlideDoc())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bus := events.NewBus()
	ch, busCancel := bus.Subscribe()
	defer busCancel()

	pipe := New(st.Path(), root, auto, bus, 1, 32)
	taskID, err := pipe.Run(ctx, projectID)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	waitDone(t, ch, taskID)

	got, err := st.GetFile(f.ID)
	if err != nil {
		t.Fatalf("failed to get file: %v", err)
	}
	if got.Status != model.StatusPending {
		t.Errorf("expected unstarted file left pending, got %s", got.Status)
	}
}

func TestAggregator(t *testing.T) {
	agg := &aggregator{}
	agg.addTotal(12)
	agg.addTotal(8)
	for i := 0; i < 5; i++ {
		agg.advance()
	}
	done, total := agg.advance()
	if done != 6 || total != 20 {
		t.Errorf("expected 6/20, got %d/%d", done, total)
	}
	done, total = agg.advance()
	if done != 7 || total != 20 {
		t.Errorf("expected 7/20, got %d/%d", done, total)
	}
}
