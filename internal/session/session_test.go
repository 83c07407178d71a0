package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/pixora/pixora/backend-go/internal/document"
	"github.com/pixora/pixora/backend-go/internal/filter"
	"github.com/pixora/pixora/backend-go/internal/plan"
	"github.com/pixora/pixora/backend-go/internal/project"
	"github.com/pixora/pixora/backend-go/internal/viewport"
)

const (
	testAutosave = 40 * time.Millisecond
	testSettle   = 30 * time.Millisecond
)

type fakeGateway struct {
	mu      sync.Mutex
	patches []project.Patch
	err     error
	block   chan struct{}
	calls   chan project.Patch
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{calls: make(chan project.Patch, 32)}
}

func (g *fakeGateway) UpdateProject(_ context.Context, _ string, p project.Patch) error {
	if g.block != nil {
		<-g.block
	}
	g.mu.Lock()
	g.patches = append(g.patches, p)
	err := g.err
	g.mu.Unlock()
	g.calls <- p
	return err
}

func (g *fakeGateway) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.patches)
}

func waitPatch(t *testing.T, g *fakeGateway) project.Patch {
	t.Helper()
	select {
	case p := <-g.calls:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a save")
		return project.Patch{}
	}
}

func expectNoPatch(t *testing.T, g *fakeGateway, wait time.Duration) {
	t.Helper()
	select {
	case p := <-g.calls:
		t.Fatalf("unexpected save: %+v", p)
	case <-time.After(wait):
	}
}

type fakeLoader struct{ w, h int }

func (l fakeLoader) ImageSize(context.Context, string) (int, int, error) { return l.w, l.h, nil }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSession(t *testing.T, g *fakeGateway, tier plan.Tier) *Session {
	t.Helper()
	return New(Options{
		Gateway: g,
		Loader:  fakeLoader{w: 1000, h: 500},
		Policy:  plan.NewPolicy(tier, plan.DefaultLimits),
		Config:  Config{AutosaveDelay: testAutosave, FilterSettleDelay: testSettle},
		Logger:  quietLogger(),
	})
}

func testProject() project.Project {
	return project.Project{ID: "proj_1", Title: "t", Width: 1000, Height: 800, OriginalImageURL: "bg.png"}
}

func openSession(t *testing.T, g *fakeGateway, tier plan.Tier) *Session {
	t.Helper()
	s := newTestSession(t, g, tier)
	if err := s.Open(context.Background(), testProject(), viewport.Size{Width: 600, Height: 500}, 1); err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(s.Dispose)
	return s
}

func firstObject(t *testing.T, s *Session) document.Object {
	t.Helper()
	snap, err := s.Snapshot()
	if err != nil || len(snap.Objects) == 0 {
		t.Fatalf("snapshot: %v (%d objects)", err, len(snap.Objects))
	}
	return snap.Objects[0]
}

func TestOpenHydratesBackground(t *testing.T) {
	s := openSession(t, newFakeGateway(), plan.TierFree)

	if s.State() != StateReady {
		t.Fatalf("state = %s", s.State())
	}
	if s.ActiveTool() != plan.ToolResize {
		t.Errorf("initial tool = %s", s.ActiveTool())
	}
	if got := s.Viewport().Scale; got != 0.56 {
		t.Errorf("scale = %v, want 0.56", got)
	}
	o := firstObject(t, s)
	if o.Transform.Left != 500 || o.Transform.Top != 400 || o.Transform.ScaleX != 1 {
		t.Errorf("background transform = %+v", o.Transform)
	}
}

func TestOpenTwiceIsGuarded(t *testing.T) {
	s := openSession(t, newFakeGateway(), plan.TierFree)
	before := firstObject(t, s)

	p := testProject()
	p.Width = 10
	err := s.Open(context.Background(), p, viewport.Size{Width: 600, Height: 500}, 1)
	if !errors.Is(err, ErrAlreadyBound) {
		t.Fatalf("second Open = %v", err)
	}
	if w, _ := s.Size(); w != 1000 {
		t.Errorf("document was re-hydrated, width %d", w)
	}
	if after := firstObject(t, s); after.ID != before.ID {
		t.Error("live document replaced")
	}
}

func TestOpenMalformedSnapshotContinuesEmpty(t *testing.T) {
	s := newTestSession(t, newFakeGateway(), plan.TierFree)
	defer s.Dispose()
	p := testProject()
	p.CanvasState = json.RawMessage(`{"version":99}`)
	if err := s.Open(context.Background(), p, viewport.Size{Width: 600, Height: 500}, 1); err != nil {
		t.Fatalf("Open = %v", err)
	}
	snap, err := s.Snapshot()
	if err != nil || len(snap.Objects) != 0 {
		t.Errorf("want empty ready document, got %d objects, err %v", len(snap.Objects), err)
	}
}

func TestDebounceCoalescesSaves(t *testing.T) {
	g := newFakeGateway()
	s := openSession(t, g, plan.TierFree)
	obj := firstObject(t, s)

	for i := 1; i <= 5; i++ {
		tr := obj.Transform
		tr.Angle = float64(i)
		if err := s.Transform(obj.ID, tr); err != nil {
			t.Fatal(err)
		}
	}

	p := waitPatch(t, g)
	expectNoPatch(t, g, 4*testAutosave)

	if p.Width != nil || p.Height != nil {
		t.Errorf("autosave touched size: %+v", p)
	}
	snap, err := document.DecodeSnapshot(p.CanvasState)
	if err != nil {
		t.Fatal(err)
	}
	if got := snap.Objects[0].Transform.Angle; got != 5 {
		t.Errorf("saved angle = %v, want the last edit (5)", got)
	}
}

func TestDisposeCancelsPendingSave(t *testing.T) {
	g := newFakeGateway()
	s := openSession(t, g, plan.TierFree)
	obj := firstObject(t, s)

	if err := s.Remove(obj.ID); err != nil {
		t.Fatal(err)
	}
	s.Dispose()
	s.Dispose()

	expectNoPatch(t, g, 4*testAutosave)
	if s.State() != StateDisposed {
		t.Errorf("state = %s", s.State())
	}
	if err := s.Remove("x"); !errors.Is(err, ErrDisposed) {
		t.Errorf("Remove after dispose = %v", err)
	}
}

func TestAutosaveFailureIsNotRetried(t *testing.T) {
	g := newFakeGateway()
	g.err = errors.New("db down")
	notices := make(chan Notice, 4)
	s := New(Options{
		Gateway:  g,
		Loader:   fakeLoader{w: 1000, h: 500},
		Policy:   plan.NewPolicy(plan.TierFree, plan.DefaultLimits),
		Config:   Config{AutosaveDelay: testAutosave},
		Logger:   quietLogger(),
		OnNotice: func(n Notice) { notices <- n },
	})
	if err := s.Open(context.Background(), testProject(), viewport.Size{Width: 600, Height: 500}, 1); err != nil {
		t.Fatal(err)
	}
	defer s.Dispose()

	if _, err := s.AddText(TextSpec{Text: "hello"}); err != nil {
		t.Fatal(err)
	}
	waitPatch(t, g)
	select {
	case n := <-notices:
		if n.Type != "save_failed" || n.Err == nil {
			t.Errorf("notice = %+v", n)
		}
	case <-time.After(time.Second):
		t.Fatal("no notice")
	}
	expectNoPatch(t, g, 4*testAutosave)
}

func TestSetActiveToolGatedByPlan(t *testing.T) {
	free := openSession(t, newFakeGateway(), plan.TierFree)
	err := free.SetActiveTool(plan.ToolAIEdit)
	var denied *AccessDeniedError
	if !errors.As(err, &denied) || denied.Tool != plan.ToolAIEdit {
		t.Fatalf("SetActiveTool(ai_edit) = %v", err)
	}
	if free.ActiveTool() != plan.ToolResize {
		t.Errorf("tool changed to %s on denial", free.ActiveTool())
	}
	if err := free.SetActiveTool(plan.ToolAdjust); err != nil || free.ActiveTool() != plan.ToolAdjust {
		t.Errorf("free adjust: %v, tool %s", err, free.ActiveTool())
	}
	if err := free.SetActiveTool("lasso"); !errors.Is(err, ErrUnknownTool) {
		t.Errorf("unknown tool = %v", err)
	}

	pro := openSession(t, newFakeGateway(), plan.TierPro)
	if err := pro.SetActiveTool(plan.ToolAIEdit); err != nil {
		t.Errorf("pro ai_edit = %v", err)
	}
}

func TestApplyResizePreservesGeometry(t *testing.T) {
	g := newFakeGateway()
	s := openSession(t, g, plan.TierFree)
	if _, err := s.AddText(TextSpec{Text: "x"}); err != nil {
		t.Fatal(err)
	}
	before, _ := s.Snapshot()

	if err := s.ApplyResize(context.Background(), 500, 400); err != nil {
		t.Fatalf("ApplyResize: %v", err)
	}

	var p project.Patch
	g.mu.Lock()
	for _, x := range g.patches {
		if x.Width != nil {
			p = x
		}
	}
	g.mu.Unlock()
	if p.Width == nil || *p.Width != 500 || p.Height == nil || *p.Height != 400 || len(p.CanvasState) == 0 {
		t.Errorf("resize patch = %+v", p)
	}
	after, _ := s.Snapshot()
	for i := range before.Objects {
		if before.Objects[i].Transform != after.Objects[i].Transform {
			t.Errorf("object %d moved: %+v -> %+v", i, before.Objects[i].Transform, after.Objects[i].Transform)
		}
	}
	if w, h := s.Size(); w != 500 || h != 400 {
		t.Errorf("size = %dx%d", w, h)
	}
	if got := s.Viewport().Scale; got != 1 {
		t.Errorf("scale = %v, want 1", got)
	}
	if s.Busy() || s.ProcessingMessage() != "" {
		t.Error("busy state left set")
	}
}

func TestApplyResizeNoopWhenUnchanged(t *testing.T) {
	g := newFakeGateway()
	s := openSession(t, g, plan.TierFree)
	if err := s.ApplyResize(context.Background(), 1000, 800); err != nil {
		t.Fatal(err)
	}
	expectNoPatch(t, g, 2*testAutosave)
	if n := g.count(); n != 0 {
		t.Errorf("gateway called %d times", n)
	}
}

func TestApplyResizeFailureKeepsNewSize(t *testing.T) {
	g := newFakeGateway()
	g.err = errors.New("timeout")
	s := openSession(t, g, plan.TierFree)

	err := s.ApplyResize(context.Background(), 640, 480)
	var rerr *ResizeError
	if !errors.As(err, &rerr) || rerr.Width != 640 {
		t.Fatalf("ApplyResize = %v", err)
	}
	if w, h := s.Size(); w != 640 || h != 480 {
		t.Errorf("size rolled back to %dx%d", w, h)
	}
}

func TestApplyResizeIsExclusive(t *testing.T) {
	g := newFakeGateway()
	g.block = make(chan struct{})
	s := openSession(t, g, plan.TierFree)

	done := make(chan error, 1)
	go func() { done <- s.ApplyResize(context.Background(), 300, 300) }()

	deadline := time.Now().Add(2 * time.Second)
	for !s.Busy() {
		if time.Now().After(deadline) {
			t.Fatal("resize never became busy")
		}
		time.Sleep(time.Millisecond)
	}
	if msg := s.ProcessingMessage(); msg != "Resizing..." {
		t.Errorf("processing message = %q", msg)
	}
	if err := s.ApplyResize(context.Background(), 200, 200); !errors.Is(err, ErrBusy) {
		t.Errorf("second resize = %v, want ErrBusy", err)
	}
	if _, err := s.AddText(TextSpec{}); !errors.Is(err, ErrBusy) {
		t.Errorf("AddText while busy = %v", err)
	}

	close(g.block)
	if err := <-done; err != nil {
		t.Fatalf("resize: %v", err)
	}
	if s.Busy() {
		t.Error("still busy")
	}
}

func TestLateSaveAfterDisposeIsIgnored(t *testing.T) {
	g := newFakeGateway()
	g.block = make(chan struct{})
	s := openSession(t, g, plan.TierFree)

	done := make(chan error, 1)
	go func() { done <- s.Save(context.Background()) }()

	// Wait until the save is parked in the gateway.
	time.Sleep(2 * testAutosave)
	s.Dispose()
	close(g.block)

	select {
	case err := <-done:
		if !errors.Is(err, ErrDisposed) {
			t.Errorf("Save = %v, want ErrDisposed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("save never returned")
	}
}

func filterOf(t *testing.T, s *Session) []filter.Applied {
	t.Helper()
	return firstObject(t, s).Filters
}

func TestFilterAppliesCoalesce(t *testing.T) {
	s := openSession(t, newFakeGateway(), plan.TierFree)

	if err := s.SetFilterValue(filter.Brightness, 10); err != nil {
		t.Fatal(err)
	}
	if got := filterOf(t, s); len(got) != 1 || got[0].Value != 0.1 {
		t.Fatalf("first apply = %+v", got)
	}

	_ = s.SetFilterValue(filter.Brightness, 20)
	_ = s.SetFilterValue(filter.Brightness, 30)
	if got := filterOf(t, s); got[0].Value != 0.1 {
		t.Errorf("apply ran while settling: %+v", got)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		got := filterOf(t, s)
		if len(got) == 1 && got[0].Value == 0.3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("latest values never applied: %+v", got)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if v := s.FilterValues().Get(filter.Brightness); v != 30 {
		t.Errorf("slider value = %v", v)
	}
}

func TestResetFilters(t *testing.T) {
	s := openSession(t, newFakeGateway(), plan.TierFree)
	vals := filter.Defaults().With(filter.Hue, 90).With(filter.Blur, 10)
	if err := s.ApplyFilters(vals); err != nil {
		t.Fatal(err)
	}
	if got := filterOf(t, s); len(got) != 2 || got[0].Type != "blur" || got[1].Type != "hue" {
		t.Fatalf("stack = %+v, want blur then hue", got)
	}

	reset, err := s.ResetFilters()
	if err != nil {
		t.Fatal(err)
	}
	if !reset.Equal(filter.Defaults()) || len(filterOf(t, s)) != 0 {
		t.Errorf("reset left %+v / %+v", reset, filterOf(t, s))
	}
}

func TestFiltersNeedAnImage(t *testing.T) {
	s := newTestSession(t, newFakeGateway(), plan.TierFree)
	defer s.Dispose()
	p := testProject()
	p.OriginalImageURL = ""
	if err := s.Open(context.Background(), p, viewport.Size{Width: 600, Height: 500}, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddText(TextSpec{Text: "only text"}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetFilterValue(filter.Contrast, 50); !errors.Is(err, ErrNoActiveImage) {
		t.Errorf("SetFilterValue = %v", err)
	}
}

func TestTextAndCropTools(t *testing.T) {
	s := openSession(t, newFakeGateway(), plan.TierFree)
	bg := firstObject(t, s)

	txt, err := s.AddText(TextSpec{Text: "Sale"})
	if err != nil {
		t.Fatal(err)
	}
	if txt.Transform.Left != 500 || txt.Transform.Top != 400 {
		t.Errorf("text at (%v,%v), want centre", txt.Transform.Left, txt.Transform.Top)
	}
	if active, ok := s.ActiveObject(); !ok || active.ID != txt.ID {
		t.Error("new text not selected")
	}

	// With text selected the crop falls back to the first image.
	cropped, err := s.ApplyCrop("Square")
	if err != nil {
		t.Fatal(err)
	}
	if cropped.ID != bg.ID || cropped.Image.Crop == nil || *cropped.Image.Crop != (document.Crop{X: 250, Y: 0, Width: 500, Height: 500}) {
		t.Errorf("crop = %+v", cropped.Image.Crop)
	}
	if _, err := s.ApplyCrop("Panorama"); !errors.Is(err, ErrUnknownPreset) {
		t.Errorf("unknown preset = %v", err)
	}
	if cleared, _ := s.ApplyCrop("Freeform"); cleared.Image.Crop != nil {
		t.Error("freeform should clear the crop")
	}
}

func TestSelectAndHitTest(t *testing.T) {
	s := openSession(t, newFakeGateway(), plan.TierFree)
	bg := firstObject(t, s)

	if got := s.HitTest(500, 400); got != bg.ID {
		t.Errorf("HitTest = %q", got)
	}
	if got := s.HitTest(1500, 400); got != "" {
		t.Errorf("HitTest outside = %q", got)
	}
	if err := s.Select("obj_missing"); !errors.Is(err, document.ErrObjectNotFound) {
		t.Errorf("Select missing = %v", err)
	}
	if err := s.Select(bg.ID); err != nil {
		t.Fatal(err)
	}
	if len(s.Render()) == 0 {
		t.Error("no draw commands")
	}
}

func TestSelectKeepsPendingFilterOnItsImage(t *testing.T) {
	a := document.NewImage("a.png", 100, 100, document.IdentityAt(200, 200))
	a.ID = "obj_a"
	b := document.NewImage("b.png", 100, 100, document.IdentityAt(600, 400))
	b.ID = "obj_b"
	state, err := json.Marshal(document.Snapshot{Version: document.SnapshotVersion, Objects: []document.Object{a, b}})
	if err != nil {
		t.Fatal(err)
	}
	p := testProject()
	p.CanvasState = state

	s := newTestSession(t, newFakeGateway(), plan.TierFree)
	defer s.Dispose()
	if err := s.Open(context.Background(), p, viewport.Size{Width: 600, Height: 500}, 1); err != nil {
		t.Fatal(err)
	}
	if err := s.Select(a.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.SetFilterValue(filter.Brightness, 10); err != nil {
		t.Fatal(err)
	}
	// Lands while the first apply is settling.
	if err := s.SetFilterValue(filter.Brightness, 50); err != nil {
		t.Fatal(err)
	}
	if err := s.Select(b.ID); err != nil {
		t.Fatal(err)
	}
	time.Sleep(4 * testSettle)

	snap, err := s.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	for _, o := range snap.Objects {
		switch o.ID {
		case a.ID:
			if len(o.Filters) != 1 || o.Filters[0].Value != 0.5 {
				t.Errorf("first image filters = %+v, want brightness 0.5", o.Filters)
			}
		case b.ID:
			if len(o.Filters) != 0 {
				t.Errorf("second image picked up filters %+v", o.Filters)
			}
		}
	}
	if v := s.FilterValues().Get(filter.Brightness); v != 0 {
		t.Errorf("sliders after select = %v, want the second image's values", v)
	}
}
