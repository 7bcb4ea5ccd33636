// Package protocol defines the wire shapes exchanged between the config page
// engine and the backend that produces scenario documents: the Protocol
// Document (hierarchy plus components), per-node operations, and the fetch
// request contract used by Sources.
package protocol
