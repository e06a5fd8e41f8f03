package engine

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dreamware/immuvault/internal/blobstore"
	"github.com/dreamware/immuvault/internal/chunk"
	"github.com/dreamware/immuvault/internal/holderselect"
	"github.com/dreamware/immuvault/internal/identity"
	"github.com/dreamware/immuvault/internal/metastore"
	"github.com/dreamware/immuvault/internal/opledger"
	"github.com/dreamware/immuvault/internal/routing"
	"github.com/dreamware/immuvault/internal/vaulterr"
	"github.com/dreamware/immuvault/internal/xorspace"
)

// defaultOpTimeout is how long a dispatched sub-request may sit in
// the Sent state before the sweep concludes it TimedOut.
const defaultOpTimeout = 30 * time.Second

// Engine is the Coordinator: a single-threaded state machine driven
// entirely by Run's event loop, holding the current RoleState plus
// everything a promoted node needs once it is at least an Adult.
type Engine struct {
	Name xorspace.Name
	Node routing.Node
	Role RoleState

	keySet        *identity.SectionKeySet
	ownShare      *identity.SectionSecretShare
	ownAccountKey identity.AccountKey

	meta       metastore.Store
	fullAdults metastore.FullAdults
	ledger     *opledger.Ledger
	blobs      *blobstore.Store

	log              *logrus.Entry
	stateStore       StateStore
	onClientResponse func(ClientResponse)
	opTimeout        time.Duration
	replicaCount     int
}

// Config bundles everything New needs to build an Engine. Fields left
// zero get a sane default (the standard logger, the default op
// timeout, the default replica count, no persistence).
type Config struct {
	Name          xorspace.Name
	Node          routing.Node
	KeySet        *identity.SectionKeySet
	OwnShare      *identity.SectionSecretShare
	OwnAccountKey identity.AccountKey

	Meta       metastore.Store
	FullAdults metastore.FullAdults
	Blobs      *blobstore.Store

	StateStore       StateStore
	OnClientResponse func(ClientResponse)

	Log          *logrus.Entry
	OpTimeout    time.Duration
	ReplicaCount int
}

// New builds an Engine starting as Infant, then immediately restores
// Elder status if persisted state says so; a non-elder restart always
// comes back as Infant and advances on its first Connected event.
func New(cfg Config) *Engine {
	log := cfg.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	opTimeout := cfg.OpTimeout
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}
	replicaCount := cfg.ReplicaCount
	if replicaCount <= 0 {
		replicaCount = holderselect.ReplicaCount
	}

	e := &Engine{
		Name:             cfg.Name,
		Node:             cfg.Node,
		Role:             RoleState{Kind: RoleInfant},
		keySet:           cfg.KeySet,
		ownShare:         cfg.OwnShare,
		ownAccountKey:    cfg.OwnAccountKey,
		meta:             cfg.Meta,
		fullAdults:       cfg.FullAdults,
		ledger:           opledger.NewLedger(),
		blobs:            cfg.Blobs,
		log:              log,
		stateStore:       cfg.StateStore,
		onClientResponse: cfg.OnClientResponse,
		opTimeout:        opTimeout,
		replicaCount:     replicaCount,
	}

	if e.stateStore != nil {
		st, err := e.stateStore.Load()
		if err != nil {
			e.log.WithError(err).Error("engine: failed to load persisted state, starting as Infant")
		} else if st != nil && st.IsElder {
			e.log.Info("engine: restoring as Elder from persisted state")
			e.handlePromoted()
		}
	}
	return e
}

// Run drives the Coordinator's event loop until ctx is cancelled, a
// channel closes, or a Shutdown operator command arrives. It is the
// single goroutine that ever touches Engine state; every handler runs
// to completion between channel reads.
func (e *Engine) Run(ctx context.Context, routingEvents <-chan routing.Event, clientEvents <-chan routing.ClientEvent, operatorCommands <-chan routing.OperatorCommand) {
	ticker := time.NewTicker(e.opTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.log.Info("engine: context cancelled, stopping")
			return

		case ev, ok := <-routingEvents:
			if !ok {
				e.log.Info("engine: routing events channel closed, stopping")
				return
			}
			e.handleRoutingEvent(ctx, ev)

		case ev, ok := <-clientEvents:
			if !ok {
				e.log.Info("engine: client events channel closed, stopping")
				return
			}
			e.handleClientEvent(ctx, ev)

		case cmd, ok := <-operatorCommands:
			if !ok {
				e.log.Info("engine: operator command channel closed, stopping")
				return
			}
			if cmd.Kind == routing.Shutdown {
				e.log.Info("engine: shutdown command received, stopping")
				return
			}

		case <-ticker.C:
			e.sweepTimeouts(ctx)
		}
	}
}

func (e *Engine) handleRoutingEvent(ctx context.Context, ev routing.Event) {
	switch ev.Kind {
	case routing.Connected:
		e.handleConnected()
	case routing.Promoted:
		e.handlePromoted()
	case routing.MemberJoined:
		e.log.WithField("member", ev.Member.String()).Debug("engine: member joined")
	case routing.MemberLeft:
		e.handleMemberLeft(ctx, ev.Member)
	case routing.MessageReceived:
		e.handleMessageReceived(ctx, ev)
	case routing.Consensus:
		e.handleConsensusPayload(ctx, ev.Payload)
	default:
		e.log.WithField("kind", ev.Kind.String()).Warn("engine: unrecognized routing event kind")
	}
}

// handleClientEvent handles the client-transport channel. Only
// ClientNewMessage carries chunk-operation traffic; the rest are
// connection-lifecycle notices the client-handler subsystem owns the
// meaning of, so the core only logs them.
func (e *Engine) handleClientEvent(ctx context.Context, ev routing.ClientEvent) {
	if ev.Kind != routing.ClientNewMessage {
		e.log.WithField("kind", ev.Kind).Debug("engine: client transport lifecycle event")
		return
	}
	rpc, err := routing.Decode(ev.Message)
	if err != nil {
		e.log.WithError(err).Warn("engine: dropping undecodable client message")
		return
	}
	if rpc.Kind != routing.RpcRequest {
		e.log.WithField("kind", rpc.Kind.String()).Warn("engine: client message is not a Request, dropping")
		return
	}
	e.handleAccumulatedRequest(ctx, rpc.Request)
}

// sweepTimeouts runs the operation ledger's timeout sweep and
// resolves every op it concludes.
func (e *Engine) sweepTimeouts(ctx context.Context) {
	if e.Role.Data == nil {
		return
	}
	ledger := e.Role.Data.Ledger
	for _, id := range ledger.SweepTimeouts(time.Now(), e.opTimeout) {
		op := ledger.Get(id)
		if op == nil {
			continue
		}
		e.concludeTimedOut(ctx, id, op)
		ledger.RemoveIfConcluded(id)
	}
}

// concludeTimedOut decides the client-visible outcome of an op the
// sweep concluded without every holder responding.
func (e *Engine) concludeTimedOut(ctx context.Context, id chunk.MessageID, op *opledger.IDataOp) {
	switch op.Type {
	case opledger.OpPut:
		if op.IsAnyActioned() {
			// At least one holder genuinely stored the chunk before the
			// rest timed out; preserve the same contract normal response
			// processing uses.
			e.run(ctx, e.respond(id, routing.OpResponse{Kind: routing.RespMutation}, nil))
			return
		}
		refund := vaulterr.CostOfPut
		e.run(ctx, e.respond(id, routing.OpResponse{Kind: routing.RespMutation, Err: vaulterr.ErrOperationTimedOut}, &refund))

	case opledger.OpDelete:
		if !op.IsAnyActioned() {
			e.run(ctx, e.respond(id, routing.OpResponse{Kind: routing.RespMutation, Err: vaulterr.ErrOperationTimedOut}, nil))
			return
		}
		e.run(ctx, e.respond(id, routing.OpResponse{Kind: routing.RespMutation, Err: op.AnyError()}, nil))

	case opledger.OpGet:
		if !op.IsAnyActioned() {
			e.run(ctx, e.respond(id, routing.OpResponse{Kind: routing.RespGetIData, Err: vaulterr.ErrOperationTimedOut}, nil))
		}
		// If a holder already answered, the client already has its
		// response; the sweep is just reaping leftover Sent states.

	case opledger.OpGetForCopy, opledger.OpCopy:
		e.log.WithField("message_id", id.String()).Warn("engine: duplication sub-operation timed out, abandoning this repair round")
	}
}
