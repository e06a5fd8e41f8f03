package routing

import "github.com/dreamware/immuvault/internal/xorspace"

// EventKind enumerates the routing-layer events the Coordinator's
// event pump consumes.
type EventKind uint8

const (
	Connected EventKind = iota
	Promoted
	MemberJoined
	MemberLeft
	MessageReceived
	Consensus
)

func (k EventKind) String() string {
	switch k {
	case Connected:
		return "Connected"
	case Promoted:
		return "Promoted"
	case MemberJoined:
		return "MemberJoined"
	case MemberLeft:
		return "MemberLeft"
	case MessageReceived:
		return "MessageReceived"
	case Consensus:
		return "Consensus"
	default:
		return "Unknown"
	}
}

// Event is the tagged union of everything that can arrive on the
// routing-events channel. Only the fields relevant to Kind are
// populated.
type Event struct {
	Kind    EventKind
	Member  xorspace.Name // MemberJoined / MemberLeft
	Src     Destination   // MessageReceived
	Dst     Destination   // MessageReceived
	Payload []byte        // MessageReceived (gob-encoded Rpc) / Consensus
}

// ClientEventKind enumerates the client-transport channel's events.
// Only ClientNewMessage carries chunk-operation traffic; the rest are
// connection-lifecycle notices the core forwards to nothing and
// merely logs, since the client-handler subsystem owns their meaning.
type ClientEventKind uint8

const (
	ClientConnectedTo ClientEventKind = iota
	ClientConnectionFailure
	ClientNewMessage
	ClientSentUserMessage
	ClientUnsentUserMessage
	ClientBootstrapFailure
	ClientBootstrappedTo
	ClientFinish
)

// ClientEvent is one event on the client-transport channel.
type ClientEvent struct {
	Kind    ClientEventKind
	From    string // opaque client connection identity
	Message []byte // gob-encoded Rpc, ClientNewMessage only
}

// OperatorCommandKind enumerates the operator command channel.
type OperatorCommandKind uint8

const (
	Shutdown OperatorCommandKind = iota
)

// OperatorCommand is one event on the operator command channel.
type OperatorCommand struct {
	Kind OperatorCommandKind
}
