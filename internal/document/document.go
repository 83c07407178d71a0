// Package document holds the logical canvas: its size, its objects and the
// versioned snapshot they persist as.
//
// A Document is not safe for concurrent use. Its owner (the editing session)
// serialises access, and subscribers are invoked synchronously on the calling
// goroutine.
package document

import (
	"errors"
	"fmt"

	"github.com/pixora/pixora/backend-go/internal/filter"
	"github.com/pixora/pixora/backend-go/internal/typeid"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrDuplicateID    = errors.New("duplicate object id")
	ErrInvalidSize    = errors.New("invalid document size")
)

type EventType string

const (
	EventAdded    EventType = "object:added"
	EventRemoved  EventType = "object:removed"
	EventModified EventType = "object:modified"
)

// Event reports a structural mutation.
type Event struct {
	Type     EventType
	ObjectID string
}

type Document struct {
	width      int
	height     int
	background string
	objects    []*Object

	subs    map[int]func(Event)
	nextSub int
}

// New returns an empty document of the given logical size.
func New(width, height int) (*Document, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	return &Document{width: width, height: height, subs: make(map[int]func(Event))}, nil
}

func (d *Document) Width() int  { return d.width }
func (d *Document) Height() int { return d.height }

func (d *Document) Size() (int, int) { return d.width, d.height }

// Background is the asset ref the document was seeded from, if any.
func (d *Document) Background() string { return d.background }

func (d *Document) Len() int { return len(d.objects) }

// Objects returns copies of all objects in paint order.
func (d *Document) Objects() []Object {
	out := make([]Object, len(d.objects))
	for i, o := range d.objects {
		out[i] = o.Clone()
	}
	return out
}

// Object returns a copy of the object with the given id.
func (d *Document) Object(id string) (Object, bool) {
	i := d.index(id)
	if i < 0 {
		return Object{}, false
	}
	return d.objects[i].Clone(), true
}

func (d *Document) index(id string) int {
	for i, o := range d.objects {
		if o.ID == id {
			return i
		}
	}
	return -1
}

// Add appends obj on top of the paint order. An empty ID is assigned.
func (d *Document) Add(obj Object) (Object, error) {
	if err := validateObject(obj); err != nil {
		return Object{}, fmt.Errorf("add object: %w", err)
	}
	if obj.ID == "" {
		obj.ID = typeid.NewObjectID()
	} else if d.index(obj.ID) >= 0 {
		return Object{}, fmt.Errorf("add object %s: %w", obj.ID, ErrDuplicateID)
	}
	stored := obj.Clone()
	d.objects = append(d.objects, &stored)
	d.emit(Event{Type: EventAdded, ObjectID: stored.ID})
	return stored.Clone(), nil
}

func (d *Document) Remove(id string) error {
	i := d.index(id)
	if i < 0 {
		return fmt.Errorf("remove object %s: %w", id, ErrObjectNotFound)
	}
	d.objects = append(d.objects[:i], d.objects[i+1:]...)
	d.emit(Event{Type: EventRemoved, ObjectID: id})
	return nil
}

// Modify applies fn to the stored object. The ID and kind cannot be changed.
func (d *Document) Modify(id string, fn func(*Object)) error {
	i := d.index(id)
	if i < 0 {
		return fmt.Errorf("modify object %s: %w", id, ErrObjectNotFound)
	}
	o := d.objects[i]
	kind := o.Kind
	fn(o)
	o.ID, o.Kind = id, kind
	d.emit(Event{Type: EventModified, ObjectID: id})
	return nil
}

// SetSize changes the logical size. Object geometry is left as is.
func (d *Document) SetSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	d.width, d.height = width, height
	return nil
}

// SetFilters replaces an image's filter stack. It does not emit an event;
// filter changes reach the snapshot on the next save.
func (d *Document) SetFilters(id string, stack []filter.Applied) error {
	i := d.index(id)
	if i < 0 {
		return fmt.Errorf("set filters %s: %w", id, ErrObjectNotFound)
	}
	o := d.objects[i]
	if o.Kind != KindImage {
		return fmt.Errorf("set filters %s (%s): %w", id, o.Kind, filter.ErrUnsupportedObject)
	}
	if len(stack) == 0 {
		o.Filters = nil
		return nil
	}
	o.Filters = append([]filter.Applied(nil), stack...)
	return nil
}

// Clear drops every object and subscriber.
func (d *Document) Clear() {
	d.objects = nil
	d.subs = make(map[int]func(Event))
}

// Subscription is returned by Subscribe. Unsubscribe may be called any number
// of times.
type Subscription struct {
	doc *Document
	id  int
}

func (d *Document) Subscribe(fn func(Event)) *Subscription {
	if d.subs == nil {
		d.subs = make(map[int]func(Event))
	}
	d.nextSub++
	d.subs[d.nextSub] = fn
	return &Subscription{doc: d, id: d.nextSub}
}

func (s *Subscription) Unsubscribe() {
	if s == nil || s.doc == nil {
		return
	}
	delete(s.doc.subs, s.id)
	s.doc = nil
}

func (d *Document) emit(ev Event) {
	for _, fn := range d.subs {
		fn(ev)
	}
}
