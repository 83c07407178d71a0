package filter

import (
	"errors"
	"fmt"
)

// Applied is one entry of an object's filter stack as persisted in snapshots.
type Applied struct {
	Type  string  `json:"type"`
	Value float64 `json:"value"`
}

// Kind resolves the entry's registry kind. Unknown names report false.
func (a Applied) Kind() (Kind, bool) {
	return ParseKind(a.Type)
}

// Values maps each kind to its UI value.
type Values map[Kind]float64

// Defaults returns the registry default for every kind.
func Defaults() Values {
	v := make(Values, len(registry))
	for _, s := range registry {
		v[s.Kind] = s.Default
	}
	return v
}

// Get returns the UI value for k, falling back to the default.
func (v Values) Get(k Kind) float64 {
	if x, ok := v[k]; ok {
		return x
	}
	return k.Spec().Default
}

// With returns a copy of v with k set to ui, clamped to the spec range.
func (v Values) With(k Kind, ui float64) Values {
	out := v.Clone()
	out[k] = k.Spec().Clamp(ui)
	return out
}

func (v Values) Clone() Values {
	out := Defaults()
	for k, x := range v {
		if k.Valid() {
			out[k] = x
		}
	}
	return out
}

// Equal reports whether both value sets resolve to the same UI values.
func (v Values) Equal(other Values) bool {
	for _, s := range registry {
		if v.Get(s.Kind) != other.Get(s.Kind) {
			return false
		}
	}
	return true
}

// ByName renders the values keyed by registry name, for JSON payloads.
func (v Values) ByName() map[string]float64 {
	out := make(map[string]float64, len(registry))
	for _, s := range registry {
		out[s.Name] = v.Get(s.Kind)
	}
	return out
}

// ValuesFromNames parses a name-keyed map. Unknown names are rejected.
func ValuesFromNames(m map[string]float64) (Values, error) {
	v := Defaults()
	for name, x := range m {
		k, ok := ParseKind(name)
		if !ok {
			return nil, fmt.Errorf("filter: unknown kind %q", name)
		}
		v[k] = k.Spec().Clamp(x)
	}
	return v, nil
}

// Build turns UI values into a filter stack. Every kind whose value differs
// from its default is appended in registry order; defaults are omitted.
func Build(v Values) []Applied {
	stack := make([]Applied, 0, len(registry))
	for _, s := range registry {
		ui := s.Clamp(v.Get(s.Kind))
		if ui == s.Default {
			continue
		}
		stack = append(stack, Applied{Type: s.Name, Value: s.Forward(ui)})
	}
	return stack
}

// Extract inverse-maps a stack back into UI values. Kinds missing from the
// stack report their default; unknown entries are ignored.
func Extract(stack []Applied) Values {
	v := Defaults()
	for _, a := range stack {
		k, ok := a.Kind()
		if !ok {
			continue
		}
		v[k] = k.Spec().Inverse(a.Value)
	}
	return v
}

// ErrUnsupportedObject is returned by targets that cannot carry filters.
var ErrUnsupportedObject = errors.New("object does not support filters")

// Target is the surface that owns the objects filters are applied to.
type Target interface {
	SetFilters(objectID string, stack []Applied) error
}

// ApplyError reports a failed apply. The object's previous stack is untouched.
type ApplyError struct {
	ObjectID string
	Err      error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply filters to %s: %v", e.ObjectID, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }

// Apply builds the stack for v and installs it on the target object.
func Apply(t Target, objectID string, v Values) ([]Applied, error) {
	stack := Build(v)
	if err := t.SetFilters(objectID, stack); err != nil {
		return nil, &ApplyError{ObjectID: objectID, Err: err}
	}
	return stack, nil
}

// Reset clears the object's stack and returns the default values.
func Reset(t Target, objectID string) (Values, error) {
	if err := t.SetFilters(objectID, nil); err != nil {
		return nil, &ApplyError{ObjectID: objectID, Err: err}
	}
	return Defaults(), nil
}
