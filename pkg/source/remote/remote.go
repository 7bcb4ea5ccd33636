// Package remote fetches Protocol Documents from an HTTP backend. Every
// request is a JSON POST of protocol.FetchRequest; the response body is
// decoded with protocol.Decode.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-configpage/pkg/protocol"
)

const (
	defaultTimeout = 15 * time.Second
	// RequestIDHeader carries FetchRequest.RequestID.
	RequestIDHeader = "X-Request-ID"
	maxBodyBytes    = 8 << 20
)

// ErrStatus is returned for non-2xx responses.
var ErrStatus = errors.New("remote: unexpected status")

// Option customises a Source.
type Option func(*Source)

// WithHTTPClient injects the client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Source) {
		if client != nil {
			s.client = client
		}
	}
}

// WithTimeout bounds each request. Zero disables the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Source) {
		s.timeout = timeout
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(s *Source) {
		s.headers.Set(key, value)
	}
}

// WithLogger sets the request logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Source) {
		s.logger = logger
	}
}

// Source implements protocol.Source over HTTP.
type Source struct {
	endpoint *url.URL
	client   *http.Client
	timeout  time.Duration
	headers  http.Header
	logger   zerolog.Logger
}

var _ protocol.Source = (*Source)(nil)

// New builds a source posting to endpoint. Requests with a Target are sent to
// the target resolved against endpoint, so "orders/search" and
// "/api/orders" both address the same backend.
func New(endpoint string, options ...Option) (*Source, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, errors.New("remote: endpoint is required")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("remote: parse endpoint: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("remote: endpoint %q must be http or https", trimmed)
	}

	s := &Source{
		endpoint: parsed,
		client:   http.DefaultClient,
		timeout:  defaultTimeout,
		headers:  make(http.Header),
		logger:   zerolog.Nop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s, nil
}

// Fetch posts the request and decodes the returned document.
func (s *Source) Fetch(ctx context.Context, req protocol.FetchRequest) (*protocol.Document, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("remote: encode request: %w", err)
	}

	reqCtx := ctx
	var cancel context.CancelFunc
	if s.timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	target := s.resolve(req.Target)
	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("remote: build request: %w", err)
	}
	for key, values := range s.headers {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if req.RequestID != "" {
		httpReq.Header.Set(RequestIDHeader, req.RequestID)
	}

	start := time.Now()
	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("remote: post %s: %w", target, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	event := s.logger.Debug()
	if resp.StatusCode >= 400 {
		event = s.logger.Warn()
	}
	event.
		Str("url", target).
		Str("request_id", req.RequestID).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("document_fetch")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w %s from %s", ErrStatus, resp.Status, target)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("remote: read body: %w", err)
	}
	return protocol.Decode(data)
}

func (s *Source) resolve(target string) string {
	trimmed := strings.TrimSpace(target)
	if trimmed == "" {
		return s.endpoint.String()
	}
	ref, err := url.Parse(trimmed)
	if err != nil {
		return s.endpoint.String()
	}
	base := *s.endpoint
	if !strings.HasSuffix(base.Path, "/") && !strings.HasPrefix(trimmed, "/") && !ref.IsAbs() {
		base.Path += "/"
	}
	return base.ResolveReference(ref).String()
}
