package configpage

import (
	"io/fs"

	"github.com/goliatone/go-configpage/pkg/overrides"
	"github.com/goliatone/go-configpage/pkg/protocol"
)

// DecodeDocument parses a JSON or YAML Protocol Document.
func DecodeDocument(data []byte) (*Document, error) {
	return protocol.Decode(data)
}

// LoadOverrides reads scenario prop overrides from fsys.
func LoadOverrides(fsys fs.FS) (*overrides.Store, error) {
	return overrides.LoadFS(fsys)
}
