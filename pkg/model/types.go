package model

import (
	"fmt"
	"strconv"
	"strings"
)

// FieldType enumerates the widgets a field can render as.
type FieldType string

const (
	// FieldTypeNone renders the field's child content verbatim.
	FieldTypeNone           FieldType = ""
	FieldTypeText           FieldType = "text"
	FieldTypeDate           FieldType = "date"
	FieldTypeSelect         FieldType = "select"
	FieldTypeEmojiSelect    FieldType = "emojiSelect"
	FieldTypeValidationCode FieldType = "validationCode"
)

// DefaultCountdownSeconds is used when a spec leaves CountdownSeconds unset.
const DefaultCountdownSeconds = 60

// DateLayout is the fixed format date fields emit.
const DateLayout = "2006-01-02"

var fieldTypes = []FieldType{
	FieldTypeNone,
	FieldTypeText,
	FieldTypeDate,
	FieldTypeSelect,
	FieldTypeEmojiSelect,
	FieldTypeValidationCode,
}

// FieldTypes returns every supported field type in declaration order.
func FieldTypes() []FieldType {
	out := make([]FieldType, len(fieldTypes))
	copy(out, fieldTypes)
	return out
}

// Valid reports whether t is one of the supported field types.
func (t FieldType) Valid() bool {
	for _, candidate := range fieldTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

func (t FieldType) String() string {
	if t == FieldTypeNone {
		return "none"
	}
	return string(t)
}

// Option is a single choice of a select field.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Text  string `json:"text" yaml:"text"`
}

// FieldSpec describes one form input.
type FieldSpec struct {
	Type             FieldType `json:"type,omitempty" yaml:"type,omitempty"`
	Name             string    `json:"name" yaml:"name"`
	Label            string    `json:"label,omitempty" yaml:"label,omitempty"`
	Placeholder      string    `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Options          []Option  `json:"options,omitempty" yaml:"options,omitempty"`
	Error            string    `json:"error,omitempty" yaml:"error,omitempty"`
	CountdownSeconds int       `json:"countdownSeconds,omitempty" yaml:"countdown_seconds,omitempty"`
}

// Countdown returns the configured countdown start, falling back to
// DefaultCountdownSeconds.
func (s FieldSpec) Countdown() int {
	if s.CountdownSeconds > 0 {
		return s.CountdownSeconds
	}
	return DefaultCountdownSeconds
}

// HasOption reports whether value matches one of the spec's option values.
func (s FieldSpec) HasOption(value string) bool {
	for _, option := range s.Options {
		if option.Value == value {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices with s.
func (s FieldSpec) Clone() FieldSpec {
	clone := s
	if len(s.Options) > 0 {
		clone.Options = make([]Option, len(s.Options))
		copy(clone.Options, s.Options)
	}
	return clone
}

// Validate checks the spec is renderable.
func (s FieldSpec) Validate() error {
	if !s.Type.Valid() {
		return fmt.Errorf("model: field %q has unsupported type %q", s.Name, s.Type)
	}
	if s.Type != FieldTypeNone && strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("model: %s field requires a name", s.Type)
	}
	if s.Type == FieldTypeSelect && len(s.Options) == 0 {
		return fmt.Errorf("model: select field %q requires options", s.Name)
	}
	if s.CountdownSeconds < 0 {
		return fmt.Errorf("model: field %q has negative countdown", s.Name)
	}
	return nil
}

// Value is a field value: a string or a number. The zero value is nil.
type Value any

// FormatValue renders a value the way inputs display it.
func FormatValue(v Value) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return typed
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32)
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprint(typed)
	}
}

// IsEmpty reports whether v counts as missing: nil, an empty string or a
// numeric zero.
func IsEmpty(v Value) bool {
	switch typed := v.(type) {
	case nil:
		return true
	case string:
		return typed == ""
	case int:
		return typed == 0
	case int64:
		return typed == 0
	case float64:
		return typed == 0
	case float32:
		return typed == 0
	case bool:
		return !typed
	default:
		return false
	}
}
