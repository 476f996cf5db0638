// Package emoji provides the default emoji picker used by emojiSelect fields:
// a tabbed list of emoji groups rendered as submit buttons.
package emoji

import (
	"embed"
	"fmt"
	"slices"

	"github.com/goliatone/go-signin/pkg/render/template/gotemplate"
)

//go:embed templates/*.tmpl
var embeddedTemplates embed.FS

// Group is a named set of emojis shown under one tab.
type Group struct {
	Name   string
	Emojis []string
}

// DefaultGroups is the built-in catalogue.
var DefaultGroups = []Group{
	{Name: "表情", Emojis: []string{"😀", "😂", "😍", "🤔", "😴", "😭", "😡", "🥳"}},
	{Name: "手势", Emojis: []string{"👍", "👎", "👏", "🙏", "✌️", "👌"}},
	{Name: "职业", Emojis: []string{"👨‍💻", "👩‍🍳", "👨‍🏫", "👩‍⚕️", "👮", "👷"}},
	{Name: "衣服", Emojis: []string{"👕", "👖", "👗", "🧥", "👟", "👜"}},
	{Name: "动物", Emojis: []string{"🐶", "🐱", "🐼", "🐯", "🐰", "🐧"}},
	{Name: "自然", Emojis: []string{"🌸", "🌲", "🌞", "🌧️", "❄️", "🌈"}},
	{Name: "食物", Emojis: []string{"🍎", "🍜", "🍔", "🍰", "☕", "🍺"}},
	{Name: "运动", Emojis: []string{"⚽", "🏀", "🏸", "🏊", "🚴", "🎮"}},
}

// Picker renders emoji groups and checks membership.
type Picker struct {
	groups []Group
	engine *gotemplate.Engine
}

// NewPicker builds a picker over groups, or DefaultGroups when none are given.
func NewPicker(groups ...Group) (*Picker, error) {
	if len(groups) == 0 {
		groups = DefaultGroups
	}
	engine, err := gotemplate.New(
		gotemplate.WithName("emoji"),
		gotemplate.WithFS(embeddedTemplates),
	)
	if err != nil {
		return nil, fmt.Errorf("emoji: configure templates: %w", err)
	}
	return &Picker{groups: slices.Clone(groups), engine: engine}, nil
}

// Groups returns the picker's catalogue.
func (p *Picker) Groups() []Group {
	return slices.Clone(p.groups)
}

// Contains reports whether sign is part of the catalogue.
func (p *Picker) Contains(sign string) bool {
	for _, group := range p.groups {
		if slices.Contains(group.Emojis, sign) {
			return true
		}
	}
	return false
}

// RenderPicker renders the picker for field name with selected highlighted.
func (p *Picker) RenderPicker(name, selected string, invalid bool) (string, error) {
	groups := make([]map[string]any, 0, len(p.groups))
	for _, group := range p.groups {
		groups = append(groups, map[string]any{
			"name":   group.Name,
			"emojis": group.Emojis,
		})
	}
	out, err := p.engine.RenderTemplate("templates/picker.tmpl", map[string]any{
		"name":     name,
		"selected": selected,
		"invalid":  invalid,
		"groups":   groups,
	})
	if err != nil {
		return "", fmt.Errorf("emoji: render picker: %w", err)
	}
	return out, nil
}
