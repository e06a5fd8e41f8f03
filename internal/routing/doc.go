// Package routing describes the overlay/routing layer as an external
// collaborator: section membership, XOR-metric closeness, message
// transport, and the event source the Coordinator pumps. The
// core never implements routing itself; it only consumes the Node
// interface and produces/consumes the Event and Rpc types defined
// here. internal/routing/mock provides an in-process double for
// tests; internal/membership and internal/transport provide the real
// multi-process realization the Node interface is backed by.
package routing
