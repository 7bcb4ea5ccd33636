// Package coordinator serialises document fetches for one scenario instance.
//
// Every fetch captures a generation number when it is issued. When its
// response arrives the generation is compared with the current one under the
// coordinator lock; a response belonging to an older generation is dropped
// without touching the store, whatever order responses arrive in.
package coordinator
