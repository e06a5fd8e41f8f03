// Package blobstore is the per-holder chunk content store: the
// actual bytes of a chunk a holder stores, distinct from
// internal/metastore which only ever records who holds what.
package blobstore
