// Package hierarchy turns the flat id graph of a Protocol Document into an
// ordered, render-ready tree. Resolution skips dangling ids, truncates cycles
// per path, and reuses node pointers for unchanged subtrees across passes.
package hierarchy
