package collab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pixora/pixora/backend-go/internal/document"
	"github.com/pixora/pixora/backend-go/internal/filter"
	"github.com/pixora/pixora/backend-go/internal/plan"
	"github.com/pixora/pixora/backend-go/internal/project"
	"github.com/pixora/pixora/backend-go/internal/resize"
	"github.com/pixora/pixora/backend-go/internal/session"
)

var errInvalidPayload = errors.New("invalid payload")

// ProjectSource reads a project on behalf of its owner.
type ProjectSource interface {
	Get(ctx context.Context, projectID, userID string) (*project.Project, error)
}

// Dispatcher maps protocol requests onto one editing session.
type Dispatcher struct {
	session   *session.Session
	projects  ProjectSource
	projectID string
	userID    string
}

// NewDispatcher binds a session to a project. The project is read on
// session.open, after any previous editor's pending edits have been saved.
func NewDispatcher(s *session.Session, projects ProjectSource, projectID, userID string) *Dispatcher {
	return &Dispatcher{session: s, projects: projects, projectID: projectID, userID: userID}
}

// Handle runs one request and returns the reply, which is an error message
// when the request fails.
func (d *Dispatcher) Handle(ctx context.Context, msg *Message) *Message {
	reply, err := d.handle(ctx, msg)
	if err != nil {
		reply = errorMessage(err)
	}
	reply.Seq = msg.Seq
	return reply
}

func (d *Dispatcher) handle(ctx context.Context, msg *Message) (*Message, error) {
	s := d.session
	switch msg.Type {
	case TypeSessionOpen:
		var p SessionOpenPayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		proj, err := d.projects.Get(ctx, d.projectID, d.userID)
		if err != nil {
			return nil, err
		}
		if err := s.Open(ctx, *proj, p.Container, p.PixelRatio); err != nil {
			return nil, err
		}
		return d.ready()

	case TypeViewportResize:
		var p ViewportResizePayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		return reply(TypeViewport, s.ContainerResized(p.Container, p.PixelRatio))

	case TypeToolSelect:
		var p ToolSelectPayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		if err := s.SetActiveTool(p.Tool); err != nil {
			return nil, err
		}
		out := ToolPayload{Tool: s.ActiveTool()}
		if out.Tool == plan.ToolAdjust {
			out.Filters = filterValuesPayload(s.FilterValues())
		}
		return reply(TypeTool, out)

	case TypeCanvasResize:
		var p CanvasResizePayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		if err := s.ApplyResize(ctx, p.Width, p.Height); err != nil {
			return nil, err
		}
		w, h := s.Size()
		return reply(TypeCanvasResized, CanvasResizedPayload{Width: w, Height: h, Layout: s.Viewport()})

	case TypeFilterSet:
		var p FilterSetPayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		kind, ok := filter.ParseKind(p.Filter)
		if !ok {
			return nil, fmt.Errorf("%w: unknown filter %q", errInvalidPayload, p.Filter)
		}
		if err := s.SetFilterValue(kind, p.Value); err != nil {
			return nil, err
		}
		return reply(TypeFilters, FiltersPayload{Values: filterValuesPayload(s.FilterValues())})

	case TypeFilterApply:
		var p FiltersPayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		values, err := filter.ValuesFromNames(p.Values)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidPayload, err)
		}
		if err := s.ApplyFilters(values); err != nil {
			return nil, err
		}
		return reply(TypeFilters, FiltersPayload{Values: filterValuesPayload(s.FilterValues())})

	case TypeFilterReset:
		values, err := s.ResetFilters()
		if err != nil {
			return nil, err
		}
		return reply(TypeFilters, FiltersPayload{Values: filterValuesPayload(values)})

	case TypeTextAdd:
		var p session.TextSpec
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		obj, err := s.AddText(p)
		if err != nil {
			return nil, err
		}
		return reply(TypeObject, ObjectPayload{Object: obj})

	case TypeCropApply:
		var p CropApplyPayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		obj, err := s.ApplyCrop(p.Preset)
		if err != nil {
			return nil, err
		}
		return reply(TypeObject, ObjectPayload{Object: obj})

	case TypeObjectSelect:
		var p ObjectRefPayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		if err := s.Select(p.ID); err != nil {
			return nil, err
		}
		return reply(TypeSelection, ObjectRefPayload{ID: p.ID})

	case TypeObjectTransform:
		var p ObjectTransformPayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		if err := s.Transform(p.ID, p.Transform); err != nil {
			return nil, err
		}
		obj, _ := s.Object(p.ID)
		return reply(TypeObject, ObjectPayload{Object: obj})

	case TypeObjectRemove:
		var p ObjectRefPayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		if err := s.Remove(p.ID); err != nil {
			return nil, err
		}
		return reply(TypeObjectRemoved, ObjectRefPayload{ID: p.ID})

	case TypeHitTest:
		var p HitTestPayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		var id string
		if p.Display {
			id = s.HitTestDisplay(p.X, p.Y)
		} else {
			id = s.HitTest(p.X, p.Y)
		}
		return reply(TypeHit, HitPayload{ID: id})

	case TypeRender:
		return reply(TypeDrawCommands, DrawCommandsPayload{Commands: s.Render()})

	case TypeSave:
		if err := s.Save(ctx); err != nil {
			return nil, err
		}
		return reply(TypeSaved, SavePayload{})
	}
	return nil, fmt.Errorf("%w: unknown message type %q", errInvalidPayload, msg.Type)
}

func (d *Dispatcher) ready() (*Message, error) {
	snap, err := d.session.Snapshot()
	if err != nil {
		return nil, err
	}
	w, h := d.session.Size()
	policy := d.session.Policy()
	return reply(TypeSessionReady, SessionReadyPayload{
		Width:           w,
		Height:          h,
		Layout:          d.session.Viewport(),
		ActiveTool:      d.session.ActiveTool(),
		Plan:            policy.Tier,
		RestrictedTools: policy.RestrictedTools(),
		Document:        snap,
	})
}

func decode(msg *Message, v interface{}) error {
	if len(msg.Payload) == 0 {
		return fmt.Errorf("%w: missing payload for %s", errInvalidPayload, msg.Type)
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidPayload, err)
	}
	return nil
}

func reply(typ string, payload interface{}) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", typ, err)
	}
	return &Message{Type: typ, Payload: data}, nil
}

// errorCode classifies a session error for the client.
func errorCode(err error) string {
	var denied *session.AccessDeniedError
	var resizeErr *session.ResizeError
	var applyErr *filter.ApplyError
	switch {
	case errors.As(err, &denied):
		return CodeAccessDenied
	case errors.Is(err, project.ErrUnauthorized):
		return CodeAccessDenied
	case errors.Is(err, project.ErrQuotaExceeded):
		return CodeQuotaExceeded
	case errors.As(err, &resizeErr):
		return CodeResizeFailed
	case errors.As(err, &applyErr), errors.Is(err, filter.ErrUnsupportedObject):
		return CodeFilterFailed
	case errors.Is(err, session.ErrBusy):
		return CodeBusy
	case errors.Is(err, session.ErrAlreadyBound):
		return CodeAlreadyOpen
	case errors.Is(err, session.ErrNotReady):
		return CodeNotReady
	case errors.Is(err, session.ErrDisposed):
		return CodeDisposed
	case errors.Is(err, session.ErrNoActiveImage):
		return CodeNoActiveImage
	case errors.Is(err, document.ErrObjectNotFound), errors.Is(err, project.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, errInvalidPayload),
		errors.Is(err, resize.ErrInvalidDimensions),
		errors.Is(err, session.ErrUnknownTool),
		errors.Is(err, session.ErrUnknownPreset):
		return CodeInvalidRequest
	}
	return CodeInternal
}

func errorMessage(err error) *Message {
	code := errorCode(err)
	text := err.Error()
	var denied *session.AccessDeniedError
	if errors.As(err, &denied) {
		text = denied.Reason
	}
	if code == CodeInternal {
		slog.Error("session request failed", "error", err)
		text = "internal error"
	}
	data, _ := json.Marshal(ErrorPayload{Code: code, Message: text})
	return &Message{Type: TypeError, Payload: data}
}
