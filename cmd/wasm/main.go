//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"syscall/js"

	"github.com/pixora/pixora/backend-go/internal/document"
	"github.com/pixora/pixora/backend-go/internal/engine"
	"github.com/pixora/pixora/backend-go/internal/filter"
	"github.com/pixora/pixora/backend-go/internal/resize"
	"github.com/pixora/pixora/backend-go/internal/viewport"
)

var (
	surface = engine.NewSurface(viewport.DefaultMargin)
	form    resize.Form
)

func main() {
	api := js.Global().Get("Object").New()

	// --- Commands (frontend -> wasm) ---
	api.Set("loadSnapshot", js.FuncOf(loadSnapshot))
	api.Set("loadSample", js.FuncOf(loadSample))
	api.Set("setContainer", js.FuncOf(setContainer))
	api.Set("setDimensions", js.FuncOf(setDimensions))
	api.Set("setTransform", js.FuncOf(setTransform))
	api.Set("setFilters", js.FuncOf(setFilters))

	// --- Resize dialog ---
	api.Set("resizeForm", js.FuncOf(resizeForm))
	api.Set("resizeSetWidth", js.FuncOf(resizeSetWidth))
	api.Set("resizeSetHeight", js.FuncOf(resizeSetHeight))
	api.Set("resizeToggleLock", js.FuncOf(resizeToggleLock))
	api.Set("resizeApplyPreset", js.FuncOf(resizeApplyPreset))

	// --- Queries (frontend <- wasm) ---
	api.Set("render", js.FuncOf(render))
	api.Set("hitTest", js.FuncOf(hitTest))
	api.Set("hitTestDisplay", js.FuncOf(hitTestDisplay))
	api.Set("getBounds", js.FuncOf(getBounds))
	api.Set("getLayout", js.FuncOf(getLayout))
	api.Set("getDocument", js.FuncOf(getDocument))
	api.Set("getPresets", js.FuncOf(getPresets))
	api.Set("getFilterDefaults", js.FuncOf(getFilterDefaults))

	js.Global().Set("pixoraSurface", api)
	js.Global().Set("pixoraWasmReady", js.ValueOf(true))

	select {}
}

func errorResult(err error) interface{} {
	return js.ValueOf(map[string]interface{}{"error": err.Error()})
}

func okResult() interface{} {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func toJSON(v interface{}) interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return js.ValueOf("null")
	}
	return js.ValueOf(string(data))
}

func currentSize() (int, int) {
	if doc := surface.Document(); doc != nil {
		return doc.Size()
	}
	return 0, 0
}

// --- Command Handlers ---

// loadSnapshot(snapshotJSON, width, height)
func loadSnapshot(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return js.ValueOf(map[string]interface{}{"error": "expected snapshot, width, height"})
	}
	doc, err := document.Hydrate(context.Background(), document.HydrateInput{
		Snapshot: json.RawMessage(args[0].String()),
		Width:    args[1].Int(),
		Height:   args[2].Int(),
	}, nil)
	if doc == nil {
		return errorResult(err)
	}
	if bindErr := surface.Bind(doc); bindErr != nil {
		return errorResult(bindErr)
	}
	form = resize.NewForm(doc.Size())
	if err != nil {
		return errorResult(err)
	}
	return okResult()
}

// loadSample(width, height, src?, srcWidth?, srcHeight?)
func loadSample(this js.Value, args []js.Value) interface{} {
	w, h := 1200, 800
	if len(args) >= 2 {
		w, h = args[0].Int(), args[1].Int()
	}
	var src string
	var srcW, srcH int
	if len(args) >= 5 {
		src, srcW, srcH = args[2].String(), args[3].Int(), args[4].Int()
	}
	doc, err := document.NewSampleDocument(w, h, src, srcW, srcH)
	if err != nil {
		return errorResult(err)
	}
	if err := surface.Bind(doc); err != nil {
		return errorResult(err)
	}
	form = resize.NewForm(w, h)
	return okResult()
}

// setContainer(width, height, pixelRatio) returns the layout JSON.
func setContainer(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("{}")
	}
	ratio := 1.0
	if len(args) > 2 {
		ratio = args[2].Float()
	}
	layout := surface.SetContainer(viewport.Size{Width: args[0].Float(), Height: args[1].Float()}, ratio)
	return toJSON(layout)
}

func setDimensions(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(map[string]interface{}{"error": "expected width, height"})
	}
	w, h := args[0].Int(), args[1].Int()
	if err := resize.Validate(w, h); err != nil {
		return errorResult(err)
	}
	if err := surface.SetDimensions(w, h); err != nil {
		return errorResult(err)
	}
	form = resize.NewForm(w, h)
	return okResult()
}

// setTransform(objectID, transformJSON)
func setTransform(this js.Value, args []js.Value) interface{} {
	doc := surface.Document()
	if len(args) < 2 || doc == nil {
		return nil
	}
	var t document.Transform
	if err := json.Unmarshal([]byte(args[1].String()), &t); err != nil {
		return errorResult(err)
	}
	if err := doc.Modify(args[0].String(), func(o *document.Object) { o.Transform = t }); err != nil {
		return errorResult(err)
	}
	return okResult()
}

// setFilters(objectID, valuesJSON) where values map filter names to slider values.
func setFilters(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	var names map[string]float64
	if err := json.Unmarshal([]byte(args[1].String()), &names); err != nil {
		return errorResult(err)
	}
	values, err := filter.ValuesFromNames(names)
	if err != nil {
		return errorResult(err)
	}
	stack, err := filter.Apply(surface, args[0].String(), values)
	if err != nil {
		return errorResult(err)
	}
	return toJSON(stack)
}

func resizeForm(this js.Value, args []js.Value) interface{} {
	w, h := currentSize()
	return toJSON(map[string]interface{}{
		"form":       form,
		"hasChanges": form.HasChanges(w, h),
		"direction":  form.Direction(w, h),
	})
}

func resizeSetWidth(this js.Value, args []js.Value) interface{} {
	if len(args) > 0 {
		w, h := currentSize()
		form.SetWidth(args[0].Int(), w, h)
	}
	return resizeForm(this, nil)
}

func resizeSetHeight(this js.Value, args []js.Value) interface{} {
	if len(args) > 0 {
		w, h := currentSize()
		form.SetHeight(args[0].Int(), w, h)
	}
	return resizeForm(this, nil)
}

func resizeToggleLock(this js.Value, args []js.Value) interface{} {
	form.ToggleLock()
	return resizeForm(this, nil)
}

func resizeApplyPreset(this js.Value, args []js.Value) interface{} {
	if len(args) > 0 {
		if p, ok := resize.PresetByName(args[0].String()); ok {
			w, h := currentSize()
			form.ApplyPreset(p, w, h)
		}
	}
	return resizeForm(this, nil)
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) interface{} {
	out, _ := engine.DrawCommandsToJSON(surface.Render())
	return js.ValueOf(out)
}

func hitTest(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("")
	}
	return js.ValueOf(surface.HitTest(args[0].Float(), args[1].Float()))
}

func hitTestDisplay(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("")
	}
	return js.ValueOf(surface.HitTestDisplay(args[0].Float(), args[1].Float()))
}

func getBounds(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf("null")
	}
	r, ok := surface.Bounds(args[0].String())
	if !ok {
		return js.ValueOf("null")
	}
	return toJSON(r)
}

func getLayout(this js.Value, args []js.Value) interface{} {
	return toJSON(surface.Layout())
}

func getDocument(this js.Value, args []js.Value) interface{} {
	doc := surface.Document()
	if doc == nil {
		return js.ValueOf("null")
	}
	return toJSON(doc.View())
}

func getPresets(this js.Value, args []js.Value) interface{} {
	return toJSON(map[string]interface{}{
		"resize": resize.Presets(),
		"crop":   resize.CropPresets(),
	})
}

func getFilterDefaults(this js.Value, args []js.Value) interface{} {
	return toJSON(filter.Defaults().ByName())
}
