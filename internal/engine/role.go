package engine

import (
	"errors"

	"github.com/dreamware/immuvault/internal/blobstore"
	"github.com/dreamware/immuvault/internal/clienthandler"
	"github.com/dreamware/immuvault/internal/metastore"
	"github.com/dreamware/immuvault/internal/opledger"
	"github.com/dreamware/immuvault/internal/sigaccum"
)

// RoleKind tags which RoleState variant is populated.
type RoleKind uint8

const (
	RoleInfant RoleKind = iota
	RoleAdult
	RoleElder
)

func (k RoleKind) String() string {
	switch k {
	case RoleInfant:
		return "Infant"
	case RoleAdult:
		return "Adult"
	case RoleElder:
		return "Elder"
	default:
		return "Unknown"
	}
}

// DataHandler bundles the metadata store, full-adults set, operation
// ledger, and chunk blob store a node needs once it is at least an
// Adult.
type DataHandler struct {
	Meta       metastore.Store
	FullAdults metastore.FullAdults
	Ledger     *opledger.Ledger
	Blobs      *blobstore.Store
}

// RoleState is the tagged union {Infant, Adult{data,acc},
// Elder{client,data,acc}}: a transition always replaces the whole
// variant, never toggles individual nullable fields.
type RoleState struct {
	Kind        RoleKind
	Data        *DataHandler
	Accumulator *sigaccum.Accumulator
	Client      *clienthandler.Handler
}

func (e *Engine) newDataHandler() (*DataHandler, error) {
	if e.meta == nil || e.blobs == nil {
		return nil, errors.New("engine: no metadata store / blob store configured")
	}
	return &DataHandler{Meta: e.meta, FullAdults: e.fullAdults, Ledger: e.ledger, Blobs: e.blobs}, nil
}

func (e *Engine) newAccumulator() (*sigaccum.Accumulator, error) {
	if e.keySet == nil {
		return nil, errors.New("engine: no section key set configured")
	}
	return sigaccum.NewAccumulator(e.keySet), nil
}

func (e *Engine) newClientHandler() (*clienthandler.Handler, error) {
	return clienthandler.New(e.log), nil
}

// handleConnected realizes the Infant --Connected--> Adult transition:
// create data handler + accumulator.
func (e *Engine) handleConnected() {
	if e.Role.Kind != RoleInfant {
		e.log.WithField("role", e.Role.Kind.String()).Warn("engine: ignoring Connected outside Infant")
		return
	}
	dh, err := e.newDataHandler()
	if err != nil {
		e.log.WithError(err).Error("engine: Connected transition failed, remaining Infant")
		return
	}
	acc, err := e.newAccumulator()
	if err != nil {
		e.log.WithError(err).Error("engine: Connected transition failed, remaining Infant")
		return
	}
	e.Role = RoleState{Kind: RoleAdult, Data: dh, Accumulator: acc}
	e.persistState()
	e.log.Info("engine: promoted Infant -> Adult")
}

// handlePromoted realizes both Adult --Promoted--> Elder and the
// idempotent Elder --Promoted--> Elder re-creation, per the
// transition table: create client handler; retain/replace data
// handler; new accumulator.
func (e *Engine) handlePromoted() {
	dh := e.Role.Data
	if dh == nil {
		var err error
		dh, err = e.newDataHandler()
		if err != nil {
			e.log.WithError(err).Error("engine: Promoted transition failed, role unchanged")
			return
		}
	}
	acc, err := e.newAccumulator()
	if err != nil {
		e.log.WithError(err).Error("engine: Promoted transition failed, role unchanged")
		return
	}
	ch, err := e.newClientHandler()
	if err != nil {
		e.log.WithError(err).Error("engine: Promoted transition failed, role unchanged")
		return
	}
	wasElder := e.Role.Kind == RoleElder
	e.Role = RoleState{Kind: RoleElder, Data: dh, Accumulator: acc, Client: ch}
	e.persistState()
	if wasElder {
		e.log.Info("engine: re-promoted Elder -> Elder (fresh handler state)")
	} else {
		e.log.Info("engine: promoted Adult -> Elder")
	}
}
