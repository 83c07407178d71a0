package collab

import (
	"encoding/json"

	"github.com/pixora/pixora/backend-go/internal/document"
	"github.com/pixora/pixora/backend-go/internal/engine"
	"github.com/pixora/pixora/backend-go/internal/filter"
	"github.com/pixora/pixora/backend-go/internal/plan"
	"github.com/pixora/pixora/backend-go/internal/viewport"
)

// Message is the envelope for every frame in both directions. Replies echo
// the request's Seq.
type Message struct {
	Type      string          `json:"type"`
	ProjectID string          `json:"projectId,omitempty"`
	ClientID  string          `json:"clientId,omitempty"`
	Seq       int64           `json:"seq,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

const (
	// Client requests
	TypeSessionOpen     = "session.open"
	TypeViewportResize  = "viewport.resize"
	TypeToolSelect      = "tool.select"
	TypeCanvasResize    = "canvas.resize"
	TypeFilterSet       = "filter.set"
	TypeFilterApply     = "filter.apply"
	TypeFilterReset     = "filter.reset"
	TypeTextAdd         = "text.add"
	TypeCropApply       = "crop.apply"
	TypeObjectSelect    = "object.select"
	TypeObjectTransform = "object.transform"
	TypeObjectRemove    = "object.remove"
	TypeHitTest         = "hit.test"
	TypeRender          = "render"
	TypeSave            = "save"

	// Server replies and pushes
	TypeWelcome         = "welcome"
	TypeSessionReady    = "session.ready"
	TypeViewport        = "viewport"
	TypeTool            = "tool"
	TypeCanvasResized   = "canvas.resized"
	TypeFilters         = "filters"
	TypeObject          = "object"
	TypeObjectRemoved   = "object.removed"
	TypeSelection       = "selection"
	TypeHit             = "hit"
	TypeDrawCommands    = "draw"
	TypeSaved           = "saved"
	TypeSaveFailed      = "save_failed"
	TypeSessionReplaced = "session.replaced"
	TypeServerShutdown  = "server.shutdown"
	TypeError           = "error"
)

// Error codes carried by TypeError.
const (
	CodeInvalidRequest = "invalid_request"
	CodeAccessDenied   = "access_denied"
	CodeQuotaExceeded  = "quota_exceeded"
	CodeResizeFailed   = "resize_failed"
	CodeFilterFailed   = "filter_failed"
	CodeBusy           = "busy"
	CodeNotReady       = "not_ready"
	CodeAlreadyOpen    = "already_open"
	CodeDisposed       = "disposed"
	CodeNotFound       = "not_found"
	CodeNoActiveImage  = "no_active_image"
	CodeInternal       = "internal"
)

type WelcomePayload struct {
	ClientID  string `json:"clientId"`
	ProjectID string `json:"projectId"`
}

// Welcome is the first frame sent on a new connection.
func Welcome(clientID, projectID string) *Message {
	payload, _ := json.Marshal(WelcomePayload{ClientID: clientID, ProjectID: projectID})
	return &Message{Type: TypeWelcome, ProjectID: projectID, ClientID: clientID, Payload: payload}
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SessionOpenPayload struct {
	Container  viewport.Size `json:"container"`
	PixelRatio float64       `json:"pixelRatio"`
}

type SessionReadyPayload struct {
	Width           int               `json:"width"`
	Height          int               `json:"height"`
	Layout          viewport.Layout   `json:"layout"`
	ActiveTool      plan.Tool         `json:"activeTool"`
	Plan            plan.Tier         `json:"plan"`
	RestrictedTools []plan.Tool       `json:"restrictedTools"`
	Document        document.Snapshot `json:"document"`
}

type ViewportResizePayload struct {
	Container  viewport.Size `json:"container"`
	PixelRatio float64       `json:"pixelRatio"`
}

type ToolSelectPayload struct {
	Tool plan.Tool `json:"tool"`
}

type ToolPayload struct {
	Tool    plan.Tool          `json:"tool"`
	Filters map[string]float64 `json:"filters,omitempty"`
}

type CanvasResizePayload struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type CanvasResizedPayload struct {
	Width  int             `json:"width"`
	Height int             `json:"height"`
	Layout viewport.Layout `json:"layout"`
}

type FilterSetPayload struct {
	Filter string  `json:"filter"`
	Value  float64 `json:"value"`
}

// FiltersPayload carries slider values keyed by filter name.
type FiltersPayload struct {
	Values map[string]float64 `json:"values"`
}

type CropApplyPayload struct {
	Preset string `json:"preset"`
}

type ObjectRefPayload struct {
	ID string `json:"id"`
}

type ObjectTransformPayload struct {
	ID        string             `json:"id"`
	Transform document.Transform `json:"transform"`
}

type ObjectPayload struct {
	Object document.Object `json:"object"`
}

type HitTestPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	// Display selects display-pixel coordinates instead of document units.
	Display bool `json:"display,omitempty"`
}

type HitPayload struct {
	ID string `json:"id"`
}

type DrawCommandsPayload struct {
	Commands []engine.DrawCommand `json:"commands"`
}

type SavePayload struct {
	Error string `json:"error,omitempty"`
}

func filterValuesPayload(v filter.Values) map[string]float64 {
	return v.ByName()
}
