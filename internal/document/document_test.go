package document

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/pixora/pixora/backend-go/internal/filter"
)

type fakeLoader struct {
	w, h int
	err  error
	refs []string
}

func (l *fakeLoader) ImageSize(_ context.Context, ref string) (int, int, error) {
	l.refs = append(l.refs, ref)
	return l.w, l.h, l.err
}

func TestHydrateFromBackgroundFitsInside(t *testing.T) {
	loader := &fakeLoader{w: 1000, h: 500}
	doc, err := Hydrate(context.Background(), HydrateInput{BackgroundRef: "bg.png", Width: 800, Height: 600}, loader)
	if err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	objs := doc.Objects()
	if len(objs) != 1 {
		t.Fatalf("objects = %d, want 1", len(objs))
	}
	o := objs[0]
	if o.Kind != KindImage || o.Image.Src != "bg.png" {
		t.Errorf("object = %+v", o)
	}
	if o.Transform.Left != 400 || o.Transform.Top != 300 {
		t.Errorf("centre = (%v,%v), want (400,300)", o.Transform.Left, o.Transform.Top)
	}
	if o.Transform.ScaleX != 0.8 || o.Transform.ScaleY != 0.8 {
		t.Errorf("scale = %v/%v, want 0.8", o.Transform.ScaleX, o.Transform.ScaleY)
	}
	if doc.Background() != "bg.png" {
		t.Errorf("background = %q", doc.Background())
	}
}

func TestHydrateSnapshotWins(t *testing.T) {
	src, _ := New(800, 600)
	if _, err := src.Add(NewShape(ShapeData{Fill: "#fff"}, 10, 10, IdentityAt(5, 5))); err != nil {
		t.Fatal(err)
	}
	snap, err := src.Serialize()
	if err != nil {
		t.Fatal(err)
	}

	loader := &fakeLoader{w: 100, h: 100}
	doc, err := Hydrate(context.Background(), HydrateInput{Snapshot: snap, BackgroundRef: "bg.png", Width: 800, Height: 600}, loader)
	if err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	if len(loader.refs) != 0 {
		t.Errorf("loader called with %v", loader.refs)
	}
	if doc.Len() != 1 || doc.Objects()[0].Kind != KindShape {
		t.Errorf("objects = %+v", doc.Objects())
	}
}

func TestHydrateMalformedSnapshot(t *testing.T) {
	cases := map[string]string{
		"garbage":        `{not json`,
		"future version": `{"version":2,"objects":[]}`,
		"unknown kind":   `{"version":1,"objects":[{"id":"a","kind":"video"}]}`,
		"image no src":   `{"version":1,"objects":[{"id":"a","kind":"image"}]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			doc, err := Hydrate(context.Background(), HydrateInput{Snapshot: json.RawMessage(raw), Width: 10, Height: 10}, nil)
			if !errors.Is(err, ErrSnapshotLoad) {
				t.Fatalf("err = %v, want ErrSnapshotLoad", err)
			}
			var herr *HydrationError
			if !errors.As(err, &herr) || herr.Source != "snapshot" {
				t.Errorf("err = %#v, want snapshot HydrationError", err)
			}
			if doc == nil || doc.Len() != 0 {
				t.Errorf("want empty document, got %v", doc)
			}
		})
	}
}

func TestHydrateLoaderFailure(t *testing.T) {
	notFound := errors.New("404")
	loader := &fakeLoader{err: notFound}
	doc, err := Hydrate(context.Background(), HydrateInput{BackgroundRef: "gone.png", Width: 10, Height: 10}, loader)
	var herr *HydrationError
	if !errors.As(err, &herr) || herr.Source != "background" {
		t.Fatalf("err = %v", err)
	}
	if errors.Is(err, ErrSnapshotLoad) {
		t.Error("background failure reported as a snapshot load failure")
	}
	if !errors.Is(err, notFound) {
		t.Errorf("err = %v, want the loader's error", err)
	}
	if doc.Len() != 0 {
		t.Errorf("doc has %d objects", doc.Len())
	}
}

func TestHydrateNullSnapshotIsAbsent(t *testing.T) {
	doc, err := Hydrate(context.Background(), HydrateInput{Snapshot: json.RawMessage("null"), Width: 10, Height: 10}, nil)
	if err != nil || doc.Len() != 0 {
		t.Fatalf("doc=%v err=%v", doc, err)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	doc, _ := New(1200, 800)
	img, err := doc.Add(NewImage("a.png", 640, 480, Transform{Left: 100, Top: 200, ScaleX: 1.5, ScaleY: 0.5, Angle: 30}))
	if err != nil {
		t.Fatal(err)
	}
	stack := filter.Build(filter.Defaults().With(filter.Brightness, 25).With(filter.Hue, 90))
	if err := doc.SetFilters(img.ID, stack); err != nil {
		t.Fatal(err)
	}
	if err := doc.Modify(img.ID, func(o *Object) { o.Image.Crop = &Crop{X: 1, Y: 2, Width: 300, Height: 200} }); err != nil {
		t.Fatal(err)
	}
	if _, err := doc.Add(NewText(TextData{Text: "hi"}, IdentityAt(10, 10))); err != nil {
		t.Fatal(err)
	}

	raw, err := doc.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	back, err := Hydrate(context.Background(), HydrateInput{Snapshot: raw, Width: 1200, Height: 800}, nil)
	if err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	if !reflect.DeepEqual(back.Objects(), doc.Objects()) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", back.Objects(), doc.Objects())
	}
}

func TestSetSizeLeavesObjects(t *testing.T) {
	doc, _ := New(1200, 800)
	o, _ := doc.Add(NewShape(ShapeData{}, 50, 50, IdentityAt(1100, 700)))
	if err := doc.SetSize(600, 400); err != nil {
		t.Fatal(err)
	}
	got, _ := doc.Object(o.ID)
	if got.Transform != o.Transform {
		t.Errorf("transform changed: %+v -> %+v", o.Transform, got.Transform)
	}
	if err := doc.SetSize(0, 1); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("SetSize(0,1) = %v", err)
	}
}

func TestSetFiltersRejectsNonImage(t *testing.T) {
	doc, _ := New(10, 10)
	o, _ := doc.Add(NewText(TextData{Text: "x"}, IdentityAt(0, 0)))
	err := doc.SetFilters(o.ID, []filter.Applied{{Type: "brightness", Value: 0.1}})
	if !errors.Is(err, filter.ErrUnsupportedObject) {
		t.Errorf("err = %v", err)
	}
}

func TestEventsAndUnsubscribe(t *testing.T) {
	doc, _ := New(10, 10)
	var got []EventType
	sub := doc.Subscribe(func(ev Event) { got = append(got, ev.Type) })

	o, _ := doc.Add(NewShape(ShapeData{}, 1, 1, IdentityAt(0, 0)))
	_ = doc.Modify(o.ID, func(o *Object) { o.Transform.Angle = 45 })
	_ = doc.SetFilters(o.ID, nil)
	_ = doc.Remove(o.ID)

	want := []EventType{EventAdded, EventModified, EventRemoved}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}

	sub.Unsubscribe()
	sub.Unsubscribe()
	_, _ = doc.Add(NewShape(ShapeData{}, 1, 1, IdentityAt(0, 0)))
	if len(got) != 3 {
		t.Errorf("event after unsubscribe: %v", got)
	}
}

func TestModifyKeepsIdentity(t *testing.T) {
	doc, _ := New(10, 10)
	o, _ := doc.Add(NewShape(ShapeData{}, 1, 1, IdentityAt(0, 0)))
	_ = doc.Modify(o.ID, func(x *Object) {
		x.ID = "other"
		x.Kind = KindText
	})
	got, ok := doc.Object(o.ID)
	if !ok || got.Kind != KindShape {
		t.Errorf("identity changed: %+v", got)
	}
	if err := doc.Remove("missing"); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("Remove missing = %v", err)
	}
}

func TestSampleDocument(t *testing.T) {
	doc, err := NewSampleDocument(1200, 800, "bg.png", 2400, 1600)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Len() != 4 {
		t.Fatalf("objects = %d", doc.Len())
	}
	bg := doc.Objects()[0]
	if math.Abs(bg.Transform.ScaleX-0.5) > 1e-9 {
		t.Errorf("background scale = %v", bg.Transform.ScaleX)
	}
}
