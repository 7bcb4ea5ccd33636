// Package dispatch runs node operations through a fixed state machine:
//
//	gate → confirm → navigate-only → local patch | remote fetch
//
// A disabled operation stops at the gate with no side effect. A cancelled
// confirmation is an outcome, not an error. Local operations patch the store
// synchronously and never fetch. Remote operations hand a request to the
// fetcher, which applies the response only if it is still current.
package dispatch
