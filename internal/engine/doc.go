// Package engine is the Coordinator: the single-threaded component
// that admits client PUT/GET/DELETE requests, dispatches sub-requests
// to holders, accumulates their responses, repairs replication after
// a MemberLeft departure, and tracks this node's Infant/Adult/Elder
// role. It is the one package in this repository that depends on
// every leaf package (internal/chunk, internal/opledger,
// internal/metastore, internal/sigaccum, internal/holderselect,
// internal/identity, internal/vaulterr) plus its own collaborators
// (internal/routing, internal/blobstore, internal/clienthandler).
package engine
