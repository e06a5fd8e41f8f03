package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dreamware/immuvault/internal/blobstore"
	"github.com/dreamware/immuvault/internal/engine"
	"github.com/dreamware/immuvault/internal/identity"
	"github.com/dreamware/immuvault/internal/membership"
	"github.com/dreamware/immuvault/internal/metastore"
	"github.com/dreamware/immuvault/internal/routing"
	"github.com/dreamware/immuvault/internal/transport"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run this peer's Coordinator, joining its section over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadRunConfig(cmd)
			if err != nil {
				return err
			}
			return runPeer(cfg)
		},
	}
	bindRunFlags(cmd)
	return cmd
}

// runPeer wires the stores, transport, membership, and engine into
// one running Coordinator and blocks until SIGINT/SIGTERM or the
// operator Shutdown command arrives.
func runPeer(cfg *runConfig) error {
	log := logrus.NewEntry(logrus.StandardLogger())

	if err := os.MkdirAll(cfg.RootDir, 0o755); err != nil {
		return fmt.Errorf("vaultnode: creating root dir: %w", err)
	}

	selfName, ownAccountKey, err := loadOrCreateIdentity(filepath.Join(cfg.RootDir, "identity"))
	if err != nil {
		return fmt.Errorf("vaultnode: loading identity: %w", err)
	}
	log = log.WithField("node", selfName.String())

	meta, err := metastore.OpenBadgerStore(filepath.Join(cfg.RootDir, "immutable_data.db"))
	if err != nil {
		return fmt.Errorf("vaultnode: opening metadata store: %w", err)
	}
	defer meta.Close()

	fullAdults, err := metastore.OpenBadgerFullAdults(filepath.Join(cfg.RootDir, "full_adults.db"))
	if err != nil {
		return fmt.Errorf("vaultnode: opening full-adults store: %w", err)
	}
	defer fullAdults.Close()

	blobs := blobstore.NewStore()

	var keySet *identity.SectionKeySet
	if cfg.SectionKeyFile != "" {
		keySet, err = identity.ReadSectionKeySet(cfg.SectionKeyFile)
		if err != nil {
			return fmt.Errorf("vaultnode: reading --section-key: %w", err)
		}
	}
	var ownShare *identity.SectionSecretShare
	if cfg.SectionShareFile != "" {
		ownShare, err = identity.ReadSectionSecretShare(cfg.SectionShareFile)
		if err != nil {
			return fmt.Errorf("vaultnode: reading --section-share: %w", err)
		}
	}

	table := membership.NewTable()
	peers := transport.NewPeers()
	if cfg.StartAsElder {
		table.AddElder(selfName)
	} else {
		table.AddAdult(selfName)
	}
	// This peer registers itself under its public address so a
	// section-addressed broadcast (VoteFor fanning a proof share to
	// every elder) reaches its own accumulator too, not just the other
	// elders'.
	peers.Set(selfName, cfg.PublicAddr, cfg.StartAsElder)
	for _, p := range cfg.Peers {
		peers.Set(p.Name, p.Addr, p.Elder)
		if p.Elder {
			table.AddElder(p.Name)
		} else {
			table.AddAdult(p.Name)
		}
	}
	node := &membership.Node{Table: table, Peers: peers, Name: selfName}

	routingEvents := make(chan routing.Event, 256)
	clientEvents := make(chan routing.ClientEvent, 256)
	operatorCommands := make(chan routing.OperatorCommand, 1)
	pending := newPendingResponses()

	srv := transport.NewServer(cfg.ListenAddr, routing.NodeDest(selfName), routingEvents)
	monitor := membership.NewMonitor(peers, table, selfName, routingEvents, healthCheckInterval())

	eng := engine.New(engine.Config{
		Name:             selfName,
		Node:             node,
		KeySet:           keySet,
		OwnShare:         ownShare,
		OwnAccountKey:    ownAccountKey,
		Meta:             meta,
		FullAdults:       fullAdults,
		Blobs:            blobs,
		StateStore:       engine.NewFileStateStore(filepath.Join(cfg.RootDir, "state")),
		OnClientResponse: pending.deliver,
		Log:              log,
		OpTimeout:        cfg.OpTimeout,
		ReplicaCount:     cfg.ReplicaCount,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go monitor.Run(ctx)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			log.WithError(err).Error("vaultnode: peer transport server stopped")
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	api := newClientAPI(selfName, clientEvents, pending, cfg.OpTimeout*2)
	clientSrv := &clientHTTPServer{addr: cfg.ClientListenAddr, handler: api.mux()}
	go func() {
		if err := clientSrv.ListenAndServe(); err != nil {
			log.WithError(err).Error("vaultnode: client transport server stopped")
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = clientSrv.Shutdown(shutdownCtx)
	}()

	// No real routing layer exists to report Connected/Promoted; this
	// peer synthesizes both the instant its own transport is up,
	// matching the persisted-state restore New already performed for
	// an already-elder restart (handleConnected ignores Connected
	// outside Infant with a warning; handlePromoted on an Elder
	// rebuilds its Elder handlers).
	go func() {
		routingEvents <- routing.Event{Kind: routing.Connected}
		if cfg.StartAsElder {
			routingEvents <- routing.Event{Kind: routing.Promoted}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("vaultnode: signal received, shutting down")
		operatorCommands <- routing.OperatorCommand{Kind: routing.Shutdown}
	}()

	eng.Run(ctx, routingEvents, clientEvents, operatorCommands)
	return nil
}
