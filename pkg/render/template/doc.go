// Package template defines the template engine seam used by the built-in
// HTML capabilities. Implementations live in subpackages.
package template
