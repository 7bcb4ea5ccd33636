// Package mock serves a fixed Protocol Document without any I/O. An optional
// Enhance hook derives the returned document from the triggering event so
// hosts can simulate server round trips.
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/goliatone/go-configpage/pkg/protocol"
)

// ErrNoDocument is returned when the source has no document to serve.
var ErrNoDocument = errors.New("mock: no document configured")

// EnhanceFunc derives the response from a copy of the static document. The
// event is nil for initial loads.
type EnhanceFunc func(doc *protocol.Document, event *protocol.Event) *protocol.Document

// Source is a synchronous protocol.Source.
type Source struct {
	doc     *protocol.Document
	enhance EnhanceFunc

	mu       sync.Mutex
	requests []protocol.FetchRequest
}

var _ protocol.Source = (*Source)(nil)

// New builds a mock source. enhance may be nil.
func New(doc *protocol.Document, enhance EnhanceFunc) *Source {
	return &Source{doc: doc.Clone(), enhance: enhance}
}

// Fetch returns a fresh copy of the document, passed through Enhance.
func (s *Source) Fetch(ctx context.Context, req protocol.FetchRequest) (*protocol.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if s.doc == nil {
		return nil, ErrNoDocument
	}
	out := s.doc.Clone()
	if s.enhance != nil {
		out = s.enhance(out, req.Event)
	}
	if out == nil {
		return nil, ErrNoDocument
	}
	return out, nil
}

// Requests returns the requests received so far.
func (s *Source) Requests() []protocol.FetchRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.FetchRequest(nil), s.requests...)
}
