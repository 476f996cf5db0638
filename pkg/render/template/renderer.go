package template

import (
	"io"
)

// TemplateRenderer is the contract field components and views render through.
// Implementations write the rendered output to every writer in out and also
// return it.
type TemplateRenderer interface {
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
	RenderString(templateContent string, data any, out ...io.Writer) (string, error)
}
