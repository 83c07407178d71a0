// Package session is the canvas editing session: it binds one document to a
// rendering surface, autosaves structural edits after a quiet period and
// exposes the editor tools.
//
// All state sits behind one mutex. Timer callbacks take the same lock, and
// gateway calls are made without it held.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/pixora/pixora/backend-go/internal/document"
	"github.com/pixora/pixora/backend-go/internal/engine"
	"github.com/pixora/pixora/backend-go/internal/filter"
	"github.com/pixora/pixora/backend-go/internal/plan"
	"github.com/pixora/pixora/backend-go/internal/project"
	"github.com/pixora/pixora/backend-go/internal/viewport"
)

type State int

const (
	StateUninitialized State = iota
	StateHydrating
	StateReady
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateHydrating:
		return "hydrating"
	case StateReady:
		return "ready"
	case StateDisposed:
		return "disposed"
	}
	return "unknown"
}

const (
	DefaultAutosaveDelay     = 2 * time.Second
	DefaultFilterSettleDelay = 50 * time.Millisecond

	saveTimeout = 30 * time.Second
)

// Gateway persists project changes. project.Service adapts to it via ForUser.
type Gateway interface {
	UpdateProject(ctx context.Context, projectID string, patch project.Patch) error
}

type Config struct {
	AutosaveDelay     time.Duration
	FilterSettleDelay time.Duration
	Margin            float64
}

// Notice reports background work that finished after the triggering call
// returned.
type Notice struct {
	Type string // "saved" or "save_failed"
	Err  error
}

type Options struct {
	Gateway  Gateway
	Loader   document.ImageLoader
	Policy   plan.Policy
	Config   Config
	Logger   *slog.Logger
	Metrics  *Metrics
	OnNotice func(Notice)
}

type Session struct {
	mu sync.Mutex

	gateway  Gateway
	loader   document.ImageLoader
	policy   plan.Policy
	cfg      Config
	logger   *slog.Logger
	metrics  *Metrics
	onNotice func(Notice)

	// writeMu orders gateway writes. The snapshot is taken after it is
	// acquired, so writes land in the order their state was captured.
	writeMu sync.Mutex

	state      State
	projectID  string
	doc        *document.Document
	surface    *engine.Surface
	sub        *document.Subscription
	container  viewport.Size
	pixelRatio float64

	activeTool   plan.Tool
	activeObject string
	busy         bool
	processing   string

	saveTimer *time.Timer
	saveGen   uint64

	filterValues   filter.Values
	filterApplying bool
	filterDirty    bool
	filterTarget   string
	filterTimer    *time.Timer
	filterGen      uint64
}

func New(opts Options) *Session {
	cfg := opts.Config
	if cfg.AutosaveDelay <= 0 {
		cfg.AutosaveDelay = DefaultAutosaveDelay
	}
	if cfg.FilterSettleDelay <= 0 {
		cfg.FilterSettleDelay = DefaultFilterSettleDelay
	}
	if cfg.Margin <= 0 {
		cfg.Margin = viewport.DefaultMargin
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		gateway:      opts.Gateway,
		loader:       opts.Loader,
		policy:       opts.Policy,
		cfg:          cfg,
		logger:       logger,
		metrics:      opts.Metrics,
		onNotice:     opts.OnNotice,
		activeTool:   plan.ToolResize,
		pixelRatio:   1,
		filterValues: filter.Defaults(),
	}
}

// Open hydrates the project's document and binds it to a new rendering
// surface. A session binds at most one document; a second Open returns
// ErrAlreadyBound without touching the live one. A document that fails to
// load is logged and replaced by an empty one.
func (s *Session) Open(ctx context.Context, p project.Project, container viewport.Size, pixelRatio float64) error {
	s.mu.Lock()
	switch s.state {
	case StateDisposed:
		s.mu.Unlock()
		return ErrDisposed
	case StateHydrating, StateReady:
		s.mu.Unlock()
		return ErrAlreadyBound
	}
	s.state = StateHydrating
	s.projectID = p.ID
	s.container = container
	s.pixelRatio = pixelRatio
	s.mu.Unlock()

	doc, err := document.Hydrate(ctx, document.HydrateInput{
		Snapshot:      p.CanvasState,
		BackgroundRef: p.ImageRef(),
		Width:         p.Width,
		Height:        p.Height,
	}, s.loader)
	if doc == nil {
		s.mu.Lock()
		if s.state == StateHydrating {
			s.state = StateUninitialized
		}
		s.mu.Unlock()
		return err
	}
	if err != nil {
		s.logger.Warn("canvas loaded empty", "project", p.ID, "error", err)
		s.metrics.recordHydrationError()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateHydrating {
		return ErrDisposed
	}
	s.surface = engine.NewSurface(s.cfg.Margin)
	if err := s.surface.Bind(doc); err != nil {
		return err
	}
	s.surface.SetContainer(s.container, s.pixelRatio)
	s.doc = doc
	s.sub = doc.Subscribe(s.onMutation)
	s.state = StateReady
	if img := s.activeImageLocked(); img != "" {
		o, _ := s.doc.Object(img)
		s.filterValues = filter.Extract(o.Filters)
	}
	s.metrics.sessionOpened()
	s.logger.Info("canvas session ready", "project", p.ID, "objects", doc.Len(), "width", p.Width, "height", p.Height)
	return nil
}

// onMutation runs synchronously inside document mutations, which are only
// made with s.mu held.
func (s *Session) onMutation(ev document.Event) {
	if ev.Type == document.EventRemoved && ev.ObjectID == s.activeObject {
		s.activeObject = ""
	}
	if ev.Type == document.EventRemoved && ev.ObjectID == s.filterTarget {
		s.filterTarget = ""
		s.filterDirty = false
	}
	s.scheduleSaveLocked()
}

// scheduleSaveLocked cancels any pending save and starts a fresh delay.
func (s *Session) scheduleSaveLocked() {
	if s.state != StateReady {
		return
	}
	if s.saveTimer != nil {
		s.saveTimer.Stop()
	}
	s.saveGen++
	gen := s.saveGen
	s.saveTimer = time.AfterFunc(s.cfg.AutosaveDelay, func() { s.flush(gen) })
}

func (s *Session) flush(gen uint64) {
	s.mu.Lock()
	if s.state != StateReady || gen != s.saveGen {
		s.mu.Unlock()
		return
	}
	s.saveTimer = nil
	if s.busy {
		s.scheduleSaveLocked()
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	err := s.persist(ctx, "autosave", func() (project.Patch, error) {
		snap, err := s.doc.Serialize()
		return project.Patch{CanvasState: snap}, err
	})
	if errors.Is(err, ErrDisposed) {
		return
	}
	if err != nil {
		s.logger.Error("autosave failed", "error", &PersistenceError{ProjectID: s.projectIDSafe(), Err: err})
		s.notify(Notice{Type: "save_failed", Err: err})
		return
	}
	s.notify(Notice{Type: "saved"})
}

// persist builds a patch under the session lock and sends it. Results that
// arrive after disposal are dropped.
func (s *Session) persist(ctx context.Context, trigger string, build func() (project.Patch, error)) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return ErrDisposed
	}
	patch, err := build()
	projectID := s.projectID
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if s.gateway == nil {
		return nil
	}

	start := time.Now()
	err = s.gateway.UpdateProject(ctx, projectID, patch)
	s.metrics.recordSave(trigger, time.Since(start).Seconds(), err)

	s.mu.Lock()
	disposed := s.state == StateDisposed
	s.mu.Unlock()
	if disposed {
		s.logger.Debug("dropping save result after dispose", "project", projectID, "error", err)
		return ErrDisposed
	}
	return err
}

// Save persists the current snapshot now and cancels any pending autosave.
// Filter changes only reach storage through a save.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return ErrNotReady
	}
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	if s.saveTimer != nil {
		s.saveTimer.Stop()
		s.saveTimer = nil
	}
	s.saveGen++
	s.mu.Unlock()

	return s.persist(ctx, "manual", func() (project.Patch, error) {
		snap, err := s.doc.Serialize()
		return project.Patch{CanvasState: snap}, err
	})
}

func (s *Session) notify(n Notice) {
	if s.onNotice != nil {
		s.onNotice(n)
	}
}

func (s *Session) projectIDSafe() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projectID
}

// ContainerResized recomputes the viewport for a new container size. The
// document is not touched and nothing is persisted.
func (s *Session) ContainerResized(container viewport.Size, pixelRatio float64) viewport.Layout {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.container = container
	if pixelRatio > 0 {
		s.pixelRatio = pixelRatio
	}
	if s.state != StateReady {
		return viewport.Compute(container, viewport.Size{}, s.cfg.Margin, s.pixelRatio)
	}
	return s.surface.SetContainer(container, s.pixelRatio)
}

// Dispose tears the session down. A pending autosave is cancelled without
// flushing. Dispose is idempotent.
func (s *Session) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDisposed {
		return
	}
	wasReady := s.state == StateReady
	s.state = StateDisposed
	if s.saveTimer != nil {
		s.saveTimer.Stop()
		s.saveTimer = nil
	}
	if s.filterTimer != nil {
		s.filterTimer.Stop()
		s.filterTimer = nil
	}
	s.saveGen++
	s.filterGen++
	s.filterTarget = ""
	s.sub.Unsubscribe()
	s.sub = nil
	if s.surface != nil {
		s.surface.Dispose()
	}
	s.surface = nil
	s.doc = nil
	s.activeObject = ""
	s.busy = false
	s.processing = ""
	if wasReady {
		s.metrics.sessionClosed()
	}
}

// SetActiveTool switches tools. A tool the plan does not include returns an
// *AccessDeniedError and leaves the current tool active.
func (s *Session) SetActiveTool(tool plan.Tool) error {
	if !tool.Valid() {
		return ErrUnknownTool
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDisposed {
		return ErrDisposed
	}
	if !s.policy.HasAccess(tool) {
		s.metrics.recordDenial(string(tool))
		return &AccessDeniedError{Tool: tool, Reason: plan.DenialReason(tool)}
	}
	s.activeTool = tool
	if tool == plan.ToolAdjust && s.state == StateReady && !s.filterDirty {
		if img := s.activeImageLocked(); img != "" {
			o, _ := s.doc.Object(img)
			s.filterValues = filter.Extract(o.Filters)
		}
	}
	return nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) ProjectID() string {
	return s.projectIDSafe()
}

func (s *Session) ActiveTool() plan.Tool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeTool
}

func (s *Session) Viewport() viewport.Layout {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.surface == nil {
		return viewport.Layout{Scale: 1, PixelRatio: 1}
	}
	return s.surface.Layout()
}

// ProcessingMessage is the status of a blocking operation, empty when idle.
func (s *Session) ProcessingMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processing
}

func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Size is the logical document size.
func (s *Session) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return 0, 0
	}
	return s.doc.Size()
}

func (s *Session) Policy() plan.Policy {
	return s.policy
}

// readyLocked guards mutating actions.
func (s *Session) readyLocked() error {
	switch {
	case s.state == StateDisposed:
		return ErrDisposed
	case s.state != StateReady:
		return ErrNotReady
	case s.busy:
		return ErrBusy
	}
	return nil
}
