package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dreamware/immuvault/internal/xorspace"
)

// peerConfig is one bootstrap entry this process starts up already
// knowing about, in "name@addr[@elder]" form.
type peerConfig struct {
	Name  xorspace.Name
	Addr  string
	Elder bool
}

func parsePeer(raw string) (peerConfig, error) {
	parts := strings.Split(raw, "@")
	if len(parts) < 2 || len(parts) > 3 {
		return peerConfig{}, fmt.Errorf("vaultnode: bad --peer %q, want name@addr or name@addr@elder", raw)
	}
	var name xorspace.Name
	decoded, err := xorspace.ParseName(parts[0])
	if err != nil {
		return peerConfig{}, fmt.Errorf("vaultnode: bad --peer %q: %w", raw, err)
	}
	name = decoded
	elder := len(parts) == 3 && parts[2] == "elder"
	return peerConfig{Name: name, Addr: parts[1], Elder: elder}, nil
}

// runConfig bundles everything the run subcommand needs, loaded
// through Viper's flag > env > config-file > default layering —
// except healthCheckInterval, which is read straight from the
// environment (see healthCheckInterval below).
type runConfig struct {
	RootDir          string
	ListenAddr       string
	PublicAddr       string
	Peers            []peerConfig
	SectionKeyFile   string
	SectionShareFile string
	StartAsElder     bool
	OpTimeout        time.Duration
	ClientListenAddr string
	ReplicaCount     int
}

// bindRunFlags registers run's flags and binds each one into Viper
// under a matching key, so VAULTNODE_ROOT_DIR etc. and a --config file
// both work without the flag default silently winning.
func bindRunFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("root-dir", "./vaultnode-data", "directory for this peer's durable state")
	flags.String("listen", ":9000", "address this peer's /rpc and /health endpoints listen on")
	flags.String("public-addr", "", "address other peers use to reach this one (defaults to http://127.0.0.1<listen>)")
	flags.String("client-listen", ":9080", "address the client-facing /data API listens on")
	flags.StringSlice("peer", nil, "bootstrap peer in name@addr[@elder] form, repeatable")
	flags.String("section-key", "", "path to this section's public key set (see 'vaultnode keygen')")
	flags.String("section-share", "", "path to this elder's own secret share, required with --elder")
	flags.Bool("elder", false, "start already promoted to Elder instead of Adult")
	flags.Duration("op-timeout", 30*time.Second, "how long a dispatched sub-request may stay Sent before timing out")
	flags.Int("replica-count", 3, "how many holders each chunk is dispatched to")

	for _, name := range []string{"root-dir", "listen", "public-addr", "client-listen", "peer", "section-key", "section-share", "elder", "op-timeout", "replica-count"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

// loadRunConfig reads configuration from the bound flags/env/config
// file/defaults, in that priority order, and parses the --peer
// entries.
func loadRunConfig(cmd *cobra.Command) (*runConfig, error) {
	_ = godotenv.Load()
	viper.SetEnvPrefix("vaultnode")
	viper.AutomaticEnv()
	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("vaultnode: reading --config: %w", err)
		}
	}

	public := viper.GetString("public-addr")
	if public == "" {
		public = "http://127.0.0.1" + viper.GetString("listen")
	}

	var peers []peerConfig
	for _, raw := range viper.GetStringSlice("peer") {
		p, err := parsePeer(raw)
		if err != nil {
			return nil, err
		}
		peers = append(peers, p)
	}

	elder := viper.GetBool("elder")
	shareFile := viper.GetString("section-share")
	if elder && shareFile == "" {
		return nil, fmt.Errorf("vaultnode: --elder requires --section-share")
	}
	if viper.GetString("section-key") == "" {
		// Every peer verifies proof shares, not just elders: without the
		// section's public key set the engine cannot build its
		// accumulator and would never leave Infant.
		return nil, fmt.Errorf("vaultnode: --section-key is required (see 'vaultnode keygen')")
	}

	return &runConfig{
		RootDir:          viper.GetString("root-dir"),
		ListenAddr:       viper.GetString("listen"),
		PublicAddr:       public,
		Peers:            peers,
		SectionKeyFile:   viper.GetString("section-key"),
		SectionShareFile: shareFile,
		StartAsElder:     elder,
		OpTimeout:        viper.GetDuration("op-timeout"),
		ClientListenAddr: viper.GetString("client-listen"),
		ReplicaCount:     viper.GetInt("replica-count"),
	}, nil
}

// healthCheckInterval is the one configuration exception: a single
// duration with no file/flag form, read directly from the
// environment, because routing it through Viper's
// flag/file/env/default layering would be pure ceremony around a knob
// nobody sets outside a shell export.
func healthCheckInterval() time.Duration {
	if v := os.Getenv("VAULTNODE_HEALTH_CHECK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return 5 * time.Second
}
