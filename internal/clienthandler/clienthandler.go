// Package clienthandler is a minimal stand-in for the client-handler
// subsystem (authentication, coin/payment, login-packet, auth-key
// mutations), an external collaborator this engine never implements.
// Its only contractual obligation here is to exist as a field on the
// Elder role variant and to accept whatever non-chunk RPCs the
// Coordinator forwards to it.
package clienthandler

import (
	"github.com/sirupsen/logrus"

	"github.com/dreamware/immuvault/internal/routing"
)

// Handler is the forwarding target for non-chunk client RPCs.
// ForwardClientRequest/ProxyClientRequest actions route here by
// request kind; what it does with them belongs to the auth/coin
// subsystem, so this implementation only logs.
type Handler struct {
	log *logrus.Entry
}

// New returns a Handler that logs everything it receives.
func New(log *logrus.Entry) *Handler {
	return &Handler{log: log}
}

// Forward accepts a non-chunk Rpc, e.g. a login-packet mutation or a
// coin transfer, and hands it off to the (unimplemented) auth/coin
// subsystem.
func (h *Handler) Forward(rpc routing.Rpc) {
	h.log.WithField("kind", rpc.Kind.String()).Debug("clienthandler: forwarded non-chunk rpc")
}
