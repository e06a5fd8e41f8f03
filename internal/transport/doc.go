// Package transport is the concrete, swappable realization of
// routing.Node.SendMessage for real multi-process operation: it posts
// gob-encoded Rpc envelopes to a peer's HTTP /rpc endpoints and
// serves the matching receive side.
package transport
