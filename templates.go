package configpage

import (
	"io/fs"

	"github.com/goliatone/go-configpage/pkg/renderers/html"
)

// EmbeddedTemplates exposes the bundled HTML capability templates so callers
// can copy or extend them without importing the renderer package directly.
func EmbeddedTemplates() fs.FS {
	return html.TemplatesFS()
}
