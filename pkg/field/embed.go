package field

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.tmpl templates/components/*.tmpl
var embeddedTemplates embed.FS

// TemplatesFS exposes the embedded field templates so hosts can copy or
// extend them.
func TemplatesFS() fs.FS {
	return embeddedTemplates
}
