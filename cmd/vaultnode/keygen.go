package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dreamware/immuvault/internal/identity"
)

// newKeygenCmd builds the "keygen" subcommand: a local, out-of-band
// stand-in for a real routing layer's distributed key generation,
// which this engine never implements itself.
// It produces one section.key (public, distributed to
// every peer) and one share-N.key per elder (secret, never leaves
// that elder's root_dir).
func newKeygenCmd() *cobra.Command {
	var out string
	var elders, threshold int
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "generate a local section key set and elder shares for development",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runKeygen(out, elders, threshold)
		},
	}
	cmd.Flags().StringVar(&out, "out", "./keys", "directory to write section.key and share-N.key files to")
	cmd.Flags().IntVar(&elders, "elders", 3, "number of elder shares to generate")
	cmd.Flags().IntVar(&threshold, "threshold", 2, "number of shares required to reach consensus")
	return cmd
}

func runKeygen(out string, elders, threshold int) error {
	identity.EnsureBLSInit()
	keySet, shares, err := identity.NewTestSectionKeySet(elders, threshold)
	if err != nil {
		return fmt.Errorf("vaultnode: generating section key set: %w", err)
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return fmt.Errorf("vaultnode: creating --out: %w", err)
	}

	sectionPath := filepath.Join(out, "section.key")
	if err := identity.WriteSectionKeySet(sectionPath, keySet); err != nil {
		return fmt.Errorf("vaultnode: writing section key set: %w", err)
	}
	fmt.Printf("wrote %s (threshold %d of %d)\n", sectionPath, threshold, elders)

	for _, share := range shares {
		sharePath := filepath.Join(out, fmt.Sprintf("share-%d.key", share.Index))
		if err := identity.WriteSectionSecretShare(sharePath, share); err != nil {
			return fmt.Errorf("vaultnode: writing share %d: %w", share.Index, err)
		}
		fmt.Printf("wrote %s\n", sharePath)
	}
	return nil
}
