package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dreamware/immuvault/internal/chunk"
	"github.com/dreamware/immuvault/internal/engine"
	"github.com/dreamware/immuvault/internal/identity"
	"github.com/dreamware/immuvault/internal/routing"
	"github.com/dreamware/immuvault/internal/vaulterr"
	"github.com/dreamware/immuvault/internal/xorspace"
)

// clientHTTPServer is a thin net/http.Server wrapper matching
// internal/transport.Server's ListenAndServe/Shutdown shape, kept
// separate from it because the client-facing API has nothing to do
// with the peer transport's Rpc-envelope decoding.
type clientHTTPServer struct {
	addr    string
	handler http.Handler
	srv     *http.Server
}

func (s *clientHTTPServer) ListenAndServe() error {
	s.srv = &http.Server{Addr: s.addr, Handler: s.handler, ReadHeaderTimeout: 5 * time.Second}
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *clientHTTPServer) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// clientAPI is the client-facing HTTP surface every PUT/GET/DELETE
// request to this peer enters through. It translates an HTTP request
// into the gob-encoded Request envelope the client-transport channel
// carries, submits it, and blocks for the matching terminal response
// the engine eventually hands to pending.deliver.
type clientAPI struct {
	self    xorspace.Name
	events  chan<- routing.ClientEvent
	pending *pendingResponses
	timeout time.Duration
}

func newClientAPI(self xorspace.Name, events chan<- routing.ClientEvent, pending *pendingResponses, timeout time.Duration) *clientAPI {
	return &clientAPI{self: self, events: events, pending: pending, timeout: timeout}
}

func (c *clientAPI) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/data/", c.handleData)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	return mux
}

func (c *clientAPI) handleData(w http.ResponseWriter, r *http.Request) {
	addr, err := addressFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	requester := accountKeyFromRequest(r)

	var req routing.ClientRequest
	switch r.Method {
	case http.MethodPut:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "vaultnode: failed to read body", http.StatusBadRequest)
			return
		}
		req = routing.ClientRequest{Kind: routing.ReqPut, Address: addr, Data: body}
	case http.MethodGet:
		req = routing.ClientRequest{Kind: routing.ReqGet, Address: addr}
	case http.MethodDelete:
		req = routing.ClientRequest{Kind: routing.ReqDelete, Address: addr}
	default:
		http.Error(w, "vaultnode: method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp, err := c.submit(r.Context(), req, requester)
	if err != nil {
		http.Error(w, "vaultnode: "+err.Error(), http.StatusGatewayTimeout)
		return
	}
	writeOpResponse(w, resp)
}

// submit encodes req as an unsigned, client-sourced Request envelope
// (its proof share is attached by this peer's own elder once it is
// admitted to accumulation) and blocks until the engine produces a
// ClientResponse for messageID or ctx is done.
func (c *clientAPI) submit(ctx context.Context, req routing.ClientRequest, requester identity.AccountKey) (engine.ClientResponse, error) {
	messageID := chunk.NewMessageID()
	waiter := c.pending.register(messageID)

	rpc := routing.Rpc{Kind: routing.RpcRequest, Request: &routing.RequestMsg{
		Request:   req,
		Requester: requester,
		From:      c.self,
		MessageID: messageID,
	}}
	payload, err := routing.Encode(rpc)
	if err != nil {
		c.pending.forget(messageID)
		return engine.ClientResponse{}, err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	select {
	case c.events <- routing.ClientEvent{Kind: routing.ClientNewMessage, Message: payload}:
	case <-timeoutCtx.Done():
		c.pending.forget(messageID)
		return engine.ClientResponse{}, timeoutCtx.Err()
	}

	select {
	case cr := <-waiter:
		return cr, nil
	case <-timeoutCtx.Done():
		c.pending.forget(messageID)
		return engine.ClientResponse{}, timeoutCtx.Err()
	}
}

// addressFromRequest parses "/data/<hex-name>" plus an
// "?unpublished=true" query flag into a chunk.Address. Published is
// the default, matching a plain PUT/GET with no special handling.
func addressFromRequest(r *http.Request) (chunk.Address, error) {
	hexName := strings.TrimPrefix(r.URL.Path, "/data/")
	if hexName == "" {
		return chunk.Address{}, errors.New("vaultnode: missing chunk name in path")
	}
	name, err := xorspace.ParseName(hexName)
	if err != nil {
		return chunk.Address{}, err
	}
	tag := chunk.Published
	if v, _ := strconv.ParseBool(r.URL.Query().Get("unpublished")); v {
		tag = chunk.Unpublished
	}
	return chunk.Address{Name: name, Tag: tag}, nil
}

// accountKeyFromRequest reads the requester's account key from the
// X-Account-Key header (hex-encoded Ed25519 public key). A request
// with no header is treated as an anonymous requester — fine for
// Published-chunk traffic, which never checks ownership; an
// Unpublished PUT/GET/DELETE from an anonymous requester behaves
// exactly like one from any other caller the owner doesn't
// recognize. Real client authentication is the client-handler
// subsystem's job, not this engine's.
func accountKeyFromRequest(r *http.Request) identity.AccountKey {
	h := r.Header.Get("X-Account-Key")
	if h == "" {
		return nil
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return nil
	}
	return identity.AccountKey(b)
}

// writeOpResponse maps an OpResponse's error taxonomy onto HTTP
// status codes and, for a PUT refund, a response header.
func writeOpResponse(w http.ResponseWriter, cr engine.ClientResponse) {
	if cr.Refund != nil {
		w.Header().Set("X-Refund", strconv.Itoa(*cr.Refund))
	}
	if cr.Response.Err != nil {
		w.WriteHeader(statusForErr(cr.Response.Err))
		fmt.Fprintln(w, cr.Response.Err.Error())
		return
	}
	if cr.Response.Kind == routing.RespGetIData {
		w.Write(cr.Response.Data)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func statusForErr(err error) int {
	switch {
	case errors.Is(err, vaulterr.ErrNoSuchData):
		return http.StatusNotFound
	case errors.Is(err, vaulterr.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, vaulterr.ErrDataExists), errors.Is(err, vaulterr.ErrDuplicateMessageID):
		return http.StatusConflict
	case errors.Is(err, vaulterr.ErrOperationTimedOut):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
