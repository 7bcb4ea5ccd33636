package protocol

import (
	"errors"
	"fmt"
)

// ErrMalformedDocument marks documents that fail structural checks. Callers
// keep the previous document and log the condition instead of surfacing it.
var ErrMalformedDocument = errors.New("protocol: malformed document")

// CheckRoot verifies that the hierarchy root names a component present in the
// document.
func CheckRoot(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrMalformedDocument)
	}
	root := doc.Hierarchy.Root
	if root == "" {
		return fmt.Errorf("%w: hierarchy root is empty", ErrMalformedDocument)
	}
	if doc.Component(root) == nil {
		return fmt.Errorf("%w: hierarchy root %q has no component", ErrMalformedDocument, root)
	}
	return nil
}
