package engine

import (
	"encoding/json"

	"github.com/pixora/pixora/backend-go/internal/document"
	"github.com/pixora/pixora/backend-go/internal/filter"
)

// DrawCommand is one Canvas2D operation. Clients execute a command list in
// order against a context whose backing store is BufferWidth x BufferHeight.
type DrawCommand struct {
	Op          string           `json:"op"` // "clear", "save", "transform", "clip", "path", "image", "text", "restore"
	ObjectID    string           `json:"objectId,omitempty"`
	Transform   []float64        `json:"transform,omitempty"`
	Path        []PathCommand    `json:"path,omitempty"`
	Fill        string           `json:"fill,omitempty"`
	Stroke      string           `json:"stroke,omitempty"`
	StrokeWidth float64          `json:"strokeWidth,omitempty"`
	Opacity     float64          `json:"opacity,omitempty"`
	Width       float64          `json:"width,omitempty"`
	Height      float64          `json:"height,omitempty"`
	ImageSrc    string           `json:"imageSrc,omitempty"`
	Crop        *document.Crop   `json:"crop,omitempty"`
	Filters     []filter.Applied `json:"filters,omitempty"`
	Text        string           `json:"text,omitempty"`
	FontFamily  string           `json:"fontFamily,omitempty"`
	FontSize    float64          `json:"fontSize,omitempty"`
	Align       string           `json:"align,omitempty"`
}

// CompileDrawCommands emits the command list for sg viewed through view, the
// logical-to-buffer transform. Objects are painted back to front inside a
// clip to the document bounds.
func CompileDrawCommands(sg *SceneGraph, view Matrix2D, bufW, bufH int) []DrawCommand {
	commands := []DrawCommand{{Op: "clear", Width: float64(bufW), Height: float64(bufH)}}
	if sg == nil {
		return commands
	}

	commands = append(commands,
		DrawCommand{Op: "save"},
		DrawCommand{Op: "transform", Transform: view.ToSlice()},
		DrawCommand{Op: "clip", Path: rectPath(0, 0, sg.Width, sg.Height)},
	)
	for _, node := range sg.Nodes {
		if cmd, ok := compileNode(node); ok {
			commands = append(commands, cmd)
		}
	}
	return append(commands, DrawCommand{Op: "restore"})
}

func compileNode(node *SceneNode) (DrawCommand, bool) {
	cmd := DrawCommand{
		ObjectID:  node.ID,
		Transform: node.Matrix.ToSlice(),
		Opacity:   node.Opacity,
		Width:     node.Width,
		Height:    node.Height,
	}
	switch node.Kind {
	case document.KindImage:
		cmd.Op = "image"
		cmd.ImageSrc = node.ImageSrc
		cmd.Crop = node.Crop
		cmd.Filters = node.Filters
	case document.KindText:
		if node.Text == nil {
			return DrawCommand{}, false
		}
		cmd.Op = "text"
		cmd.Text = node.Text.Text
		cmd.FontFamily = node.Text.FontFamily
		cmd.FontSize = node.Text.FontSize
		cmd.Fill = node.Text.Fill
		cmd.Align = node.Text.Align
	case document.KindShape:
		cmd.Op = "path"
		cmd.Path = node.Path
		cmd.Fill = node.Fill
		cmd.Stroke = node.Stroke
		cmd.StrokeWidth = node.StrokeWidth
	default:
		return DrawCommand{}, false
	}
	return cmd, true
}

func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}
