package transport

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/dreamware/immuvault/internal/routing"
)

// Server exposes /rpc and /rpc/section (receiving a peer's
// gob-encoded routing.Rpc and turning it into a MessageReceived
// event) and /health (plain 200 OK) over HTTP.
type Server struct {
	httpSrv *http.Server
	events  chan<- routing.Event
	self    routing.Destination
}

// NewServer builds a Server listening on addr. Decoded Rpc payloads
// are pushed onto events as MessageReceived events addressed to
// self; the caller (internal/engine.Engine.Run) is the one actually
// draining that channel.
func NewServer(addr string, self routing.Destination, events chan<- routing.Event) *Server {
	s := &Server{events: events, self: self}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	// /rpc carries node-unicast traffic (a direct holder dispatch, a
	// GetForCopy, a plain response); /rpc/section carries section-
	// addressed traffic (a client request or Duplicate still
	// circulating for threshold accumulation). internal/engine tells
	// these apart by Dst.Kind, which a single shared endpoint would
	// otherwise lose crossing the wire.
	mux.HandleFunc("/rpc", s.handler(routing.DestNode))
	mux.HandleFunc("/rpc/section", s.handler(routing.DestSection))
	s.httpSrv = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	return s
}

func (s *Server) handler(kind routing.DestKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "read error", http.StatusBadRequest)
			return
		}
		// Decode eagerly so a malformed envelope is rejected at the wire
		// boundary; a well-formed but semantically invalid Rpc is still
		// logged and dropped downstream.
		if _, err := routing.Decode(body); err != nil {
			http.Error(w, "bad rpc envelope", http.StatusBadRequest)
			return
		}
		dst := s.self
		dst.Kind = kind
		s.events <- routing.Event{Kind: routing.MessageReceived, Dst: dst, Payload: body}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ListenAndServe starts serving; it blocks until Shutdown is called.
func (s *Server) ListenAndServe() error {
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
