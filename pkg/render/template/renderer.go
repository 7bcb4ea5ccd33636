package template

import "io"

// FilterFunc transforms a value inside a template expression. param is nil
// when the filter is used without an argument.
type FilterFunc func(input any, param any) (any, error)

// Renderer renders the named templates behind the built-in capabilities.
// Hosts supply their own to reskin capabilities.
type Renderer interface {
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
	RenderString(src string, data any, out ...io.Writer) (string, error)
}
