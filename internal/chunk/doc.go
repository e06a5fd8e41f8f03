// Package chunk defines the addressing and metadata types at the
// center of this repository: a ChunkAddress names a piece of
// immutable data, a ChunkMetadata records which peers hold a copy of
// it and (for unpublished chunks) who owns it, and a MessageID
// uniquely tags one in-flight client operation.
//
// None of these types touch storage, networking, or the event loop —
// they are the vocabulary every other package speaks.
package chunk
