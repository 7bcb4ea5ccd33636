// Package store holds the per-instance scenario state: the current Protocol
// Document and the local patches applied to it between documents.
//
// Every mutation builds a new document snapshot. Components that did not
// change keep their *ComponentSpec pointer, which lets the hierarchy resolver
// reuse the nodes it built for them.
package store
