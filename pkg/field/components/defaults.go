package components

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

const templatePrefix = "templates/components/"

// NewDefaultRegistry returns a registry with a component for every field type.
func NewDefaultRegistry() *Registry {
	registry := New()

	registry.MustRegister(NameText, Descriptor{
		Renderer: templateComponentRenderer(templatePrefix + "text.tmpl"),
	})
	registry.MustRegister(NameDate, Descriptor{
		Renderer: templateComponentRenderer(templatePrefix + "date.tmpl"),
	})
	registry.MustRegister(NameSelect, Descriptor{
		Renderer: templateComponentRenderer(templatePrefix + "select.tmpl"),
	})
	registry.MustRegister(NameValidationCode, Descriptor{
		Renderer: templateComponentRenderer(templatePrefix + "validation_code.tmpl"),
	})
	registry.MustRegister(NameEmojiSelect, Descriptor{
		Renderer: emojiSelectRenderer,
	})
	registry.MustRegister(NameSlot, Descriptor{
		Renderer: slotRenderer,
	})

	return registry
}

func templateComponentRenderer(templateName string) Renderer {
	return func(buf *bytes.Buffer, data ComponentData) error {
		if data.Template == nil {
			return fmt.Errorf("components: template renderer not configured for %q", templateName)
		}
		if _, err := data.Template.RenderTemplate(templateName, payload(data), buf); err != nil {
			return fmt.Errorf("components: render template %q: %w", templateName, err)
		}
		return nil
	}
}

func payload(data ComponentData) map[string]any {
	options := make([]map[string]any, 0, len(data.Spec.Options))
	for _, option := range data.Spec.Options {
		options = append(options, map[string]any{
			"value":    option.Value,
			"text":     option.Text,
			"selected": option.Value == data.Value,
		})
	}
	return map[string]any{
		"id":           data.ID,
		"name":         data.Spec.Name,
		"label":        data.Spec.Label,
		"placeholder":  data.Spec.Placeholder,
		"value":        data.Value,
		"invalid":      data.Invalid(),
		"options":      options,
		"picker_open":  data.PickerOpen,
		"picker_value": data.PickerValue,
		"picker_title": data.PickerTitle,
		"counting":     data.Counting,
		"remaining":    data.Remaining,
		"caption":      data.Caption,
	}
}

func emojiSelectRenderer(buf *bytes.Buffer, data ComponentData) error {
	if data.Emoji == nil {
		return fmt.Errorf("components: emoji picker not configured for %q", data.Spec.Name)
	}
	rendered, err := data.Emoji(data.Spec.Name, data.Value, data.Invalid())
	if err != nil {
		return fmt.Errorf("components: render emoji picker: %w", err)
	}
	buf.WriteString(rendered)
	return nil
}

func slotRenderer(buf *bytes.Buffer, data ComponentData) error {
	if strings.TrimSpace(data.Children) == "" {
		return nil
	}
	buf.WriteString(SlotPolicy().Sanitize(data.Children))
	return nil
}

var (
	slotPolicyOnce sync.Once
	slotPolicy     *bluemonday.Policy
)

// SlotPolicy is the sanitiser applied to pass-through slot content: the UGC
// policy plus form buttons and class attributes.
func SlotPolicy() *bluemonday.Policy {
	slotPolicyOnce.Do(func() {
		policy := bluemonday.UGCPolicy()
		policy.AllowElements("button")
		policy.AllowAttrs("type").Matching(regexp.MustCompile(`^(submit|button|reset)$`)).OnElements("button")
		policy.AllowAttrs("name", "value").OnElements("button")
		policy.AllowAttrs("class").Globally()
		slotPolicy = policy
	})
	return slotPolicy
}
