// Package pagehost exposes a mounted scenario instance over net/http.
//
// GET and HEAD render the current tree as a full HTML page. POST accepts a
// JSON dispatch request, runs the operations against the instance and
// returns one result per call. Adding "?reload=1" to a GET refetches the
// document before rendering.
package pagehost
