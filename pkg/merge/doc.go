// Package merge computes the effective props of a node from three layers:
// the node's own props, scenario-level overrides, and call-site overrides for
// one render pass. The merge is a pure function of its inputs.
package merge
