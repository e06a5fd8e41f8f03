// Package metastore implements the Metadata Store: durable persistence
// of chunk.Metadata keyed by chunk.Address, and nothing else. It never
// holds chunk bytes (see internal/blobstore for that) and it never
// interprets a key beyond treating it as an opaque string.
//
// # Contract
//
//   - Put/Remove commit durably before returning; a crash after a
//     successful call never loses the write (unlike blobstore, which
//     makes no such promise).
//   - Get on a missing key returns ErrNotFound, never a zero value.
//   - Iter walks a point-in-time snapshot; it is not required to
//     reflect mutations made after it was taken, and is not
//     restartable mid-iteration.
//   - Put never overwrites a record into emptiness; callers that would
//     leave a record with zero holders must call Remove instead (I2,
//     enforced by internal/engine, not by this package).
//
// Two implementations satisfy Store: badgerstore, backed by an
// embedded Badger database under the node's root_dir, and memstore, an
// in-memory map used by tests that do not need real durability.
package metastore
