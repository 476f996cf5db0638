package components

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-signin/pkg/model"
)

func TestDefaultRegistryCoversEveryFieldType(t *testing.T) {
	registry := NewDefaultRegistry()
	for _, fieldType := range model.FieldTypes() {
		name := NameFor(fieldType)
		if _, ok := registry.Descriptor(name); !ok {
			t.Errorf("no component registered for %s (%q)", fieldType, name)
		}
	}
	if NameFor("bogus") != "" {
		t.Fatal("unknown types should not map to a component")
	}
}

func TestRegistryRegisterValidation(t *testing.T) {
	registry := New()
	if err := registry.Register(" ", Descriptor{Renderer: slotRenderer}); err == nil {
		t.Fatal("expected empty name error")
	}
	if err := registry.Register("x", Descriptor{}); err == nil {
		t.Fatal("expected nil renderer error")
	}
	if err := registry.Register(" Custom ", Descriptor{Renderer: slotRenderer}); err != nil {
		t.Fatalf("register: %v", err)
	}
	descriptor, ok := registry.Descriptor("custom")
	if !ok || descriptor.Name != "custom" {
		t.Fatalf("expected normalised lookup, got %#v ok=%v", descriptor, ok)
	}
}

func TestRegistryCloneIsIndependent(t *testing.T) {
	base := NewDefaultRegistry()
	clone := base.Clone()
	clone.MustRegister("extra", Descriptor{Renderer: slotRenderer})

	if _, ok := base.Descriptor("extra"); ok {
		t.Fatal("clone mutation leaked into base registry")
	}
	want := []string{NameDate, NameEmojiSelect, NameSelect, NameSlot, NameText, NameValidationCode}
	if diff := cmp.Diff(want, base.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestEmojiSelectRendererRequiresPicker(t *testing.T) {
	var buf bytes.Buffer
	err := emojiSelectRenderer(&buf, ComponentData{Spec: model.FieldSpec{Name: "sign"}})
	if err == nil {
		t.Fatal("expected error without picker")
	}
}

func TestTemplateRendererRequiresEngine(t *testing.T) {
	var buf bytes.Buffer
	render := templateComponentRenderer(templatePrefix + "text.tmpl")
	if err := render(&buf, ComponentData{}); err == nil {
		t.Fatal("expected error without template renderer")
	}
}
