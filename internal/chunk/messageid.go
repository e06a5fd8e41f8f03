package chunk

import "github.com/google/uuid"

// MessageID is a 128-bit opaque identifier a client attaches to one
// PUT/GET/DELETE request. It is never interpreted, only compared for
// equality and used as an Operation Ledger map key — a non-UUID
// 16-byte value is equally valid on the wire.
type MessageID [16]byte

// NewMessageID mints a random MessageID using a UUIDv4 generator. Tests,
// the client API and the engine's own duplication rounds use it;
// nothing in the engine requires inbound IDs to come from this function.
func NewMessageID() MessageID {
	return MessageID(uuid.New())
}

func (id MessageID) String() string {
	return uuid.UUID(id).String()
}
