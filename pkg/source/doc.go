// Package source groups the protocol.Source implementations shipped with the
// engine: a static mock, an HTTP client, a filesystem loader, and a Redis
// read-through cache that wraps any of them.
package source
