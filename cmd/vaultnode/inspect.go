package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dreamware/immuvault/internal/chunk"
	"github.com/dreamware/immuvault/internal/engine"
	"github.com/dreamware/immuvault/internal/metastore"
	"github.com/dreamware/immuvault/internal/xorspace"
)

// newInspectCmd builds the read-only "inspect" subcommand: it opens a
// stopped peer's on-disk state under root_dir and prints it, without
// starting the engine or binding any socket.
// The stores are opened in Badger's normal read-write mode, so the
// open fails on a root_dir whose directory lock a running peer holds.
func newInspectCmd() *cobra.Command {
	var rootDir, holder string
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "print a peer's persisted role state and chunk metadata",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if holder != "" {
				return runInspectHolder(rootDir, holder)
			}
			return runInspect(rootDir)
		},
	}
	cmd.Flags().StringVar(&rootDir, "root-dir", "./vaultnode-data", "directory holding this peer's durable state")
	cmd.Flags().StringVar(&holder, "holder", "", "only report chunks recorded against this holder (hex name)")
	return cmd
}

// runInspectHolder prints the holder report for one peer: every chunk
// this metadata store records the named peer as holding, useful for
// sizing the repair work a departure would trigger.
func runInspectHolder(rootDir, holderHex string) error {
	name, err := xorspace.ParseName(holderHex)
	if err != nil {
		return fmt.Errorf("vaultnode: bad --holder: %w", err)
	}
	meta, err := metastore.OpenBadgerStore(filepath.Join(rootDir, "immutable_data.db"))
	if err != nil {
		return fmt.Errorf("vaultnode: opening metadata store: %w", err)
	}
	defer meta.Close()

	records, err := metastore.HolderReport(meta, name)
	if err != nil {
		return fmt.Errorf("vaultnode: scanning metadata: %w", err)
	}
	fmt.Printf("chunks held by %s: %d\n", name.String(), len(records))
	for _, rec := range records {
		fmt.Printf("  %s  holders=%v\n", rec.Addr.String(), holderNames(rec.Meta))
	}
	return nil
}

func runInspect(rootDir string) error {
	stateStore := engine.NewFileStateStore(filepath.Join(rootDir, "state"))
	st, err := stateStore.Load()
	if err != nil {
		return fmt.Errorf("vaultnode: reading state: %w", err)
	}
	if st == nil {
		fmt.Println("state: no persisted record (never reached Adult)")
	} else {
		fmt.Printf("state: node=%s is_elder=%v\n", st.NodeFullID.String(), st.IsElder)
	}

	meta, err := metastore.OpenBadgerStore(filepath.Join(rootDir, "immutable_data.db"))
	if err != nil {
		return fmt.Errorf("vaultnode: opening metadata store: %w", err)
	}
	defer meta.Close()

	fmt.Println("chunks:")
	count := 0
	err = meta.Iter(func(addr chunk.Address, m *chunk.Metadata) bool {
		count++
		owner := "-"
		if m.Owner != nil {
			owner = fmt.Sprintf("%x", []byte(*m.Owner))
		}
		fmt.Printf("  %s  holders=%v  owner=%s\n", addr.String(), holderNames(m), owner)
		return true
	})
	if err != nil {
		return fmt.Errorf("vaultnode: iterating metadata: %w", err)
	}
	fmt.Printf("total: %d chunks (%d records, ~%d bytes)\n", count, meta.Stats().Records, meta.Stats().Bytes)

	fullAdults, err := metastore.OpenBadgerFullAdults(filepath.Join(rootDir, "full_adults.db"))
	if err != nil {
		return fmt.Errorf("vaultnode: opening full-adults store: %w", err)
	}
	defer fullAdults.Close()

	names, err := fullAdults.All()
	if err != nil {
		return fmt.Errorf("vaultnode: reading full-adults: %w", err)
	}
	fmt.Printf("full adults: %d\n", len(names))
	for _, n := range names {
		fmt.Printf("  %s\n", n.String())
	}
	return nil
}

func holderNames(m *chunk.Metadata) []string {
	holders := m.HolderList()
	out := make([]string, len(holders))
	for i, h := range holders {
		out[i] = h.String()
	}
	return out
}
