package components

import "github.com/goliatone/go-signin/pkg/model"

// Canonical component names used by the default registry.
const (
	NameText           = "text"
	NameDate           = "date"
	NameSelect         = "select"
	NameEmojiSelect    = "emoji_select"
	NameValidationCode = "validation_code"
	NameSlot           = "slot"
)

// NameFor maps a field type to the component that renders it.
func NameFor(t model.FieldType) string {
	switch t {
	case model.FieldTypeText:
		return NameText
	case model.FieldTypeDate:
		return NameDate
	case model.FieldTypeSelect:
		return NameSelect
	case model.FieldTypeEmojiSelect:
		return NameEmojiSelect
	case model.FieldTypeValidationCode:
		return NameValidationCode
	case model.FieldTypeNone:
		return NameSlot
	default:
		return ""
	}
}
