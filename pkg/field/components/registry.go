// Package components holds the per-type HTML renderers the field renderer
// dispatches to. The default registry covers every model.FieldType; callers
// can clone it and override entries to restyle a single widget.
package components

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/goliatone/go-signin/pkg/model"
	rendertemplate "github.com/goliatone/go-signin/pkg/render/template"
)

// Renderer writes the control markup of one field into buf.
type Renderer func(buf *bytes.Buffer, data ComponentData) error

// EmojiRenderer renders an emoji picker for the named field.
type EmojiRenderer func(name, selected string, invalid bool) (string, error)

// ComponentData is everything a component needs to render one field.
type ComponentData struct {
	Template rendertemplate.TemplateRenderer
	Spec     model.FieldSpec
	ID       string
	Value    string
	Error    string

	// date
	PickerOpen  bool
	PickerValue string
	PickerTitle string

	// validationCode
	Counting  bool
	Remaining int
	Caption   string

	// emojiSelect
	Emoji EmojiRenderer

	// slot
	Children string
}

// Invalid reports whether the field carries an error.
func (d ComponentData) Invalid() bool {
	return strings.TrimSpace(d.Error) != ""
}

// Descriptor pairs a component name with its renderer.
type Descriptor struct {
	Name     string
	Renderer Renderer
}

// Registry tracks component descriptors keyed by name.
type Registry struct {
	mu         sync.RWMutex
	components map[string]Descriptor
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		components: make(map[string]Descriptor),
	}
}

// Clone returns a copy that can be mutated independently.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cloned := New()
	for name, descriptor := range r.components {
		cloned.components[name] = descriptor
	}
	return cloned
}

// Register associates a descriptor with name, replacing existing entries.
func (r *Registry) Register(name string, descriptor Descriptor) error {
	if name = normalize(name); name == "" {
		return fmt.Errorf("components: component name is required")
	}
	if descriptor.Renderer == nil {
		return fmt.Errorf("components: renderer for %q is nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	descriptor.Name = name
	r.components[name] = descriptor
	return nil
}

// MustRegister mirrors Register but panics on error.
func (r *Registry) MustRegister(name string, descriptor Descriptor) {
	if err := r.Register(name, descriptor); err != nil {
		panic(err)
	}
}

// Descriptor fetches a descriptor by name.
func (r *Registry) Descriptor(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	descriptor, ok := r.components[normalize(name)]
	return descriptor, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.components))
	for name := range r.components {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
