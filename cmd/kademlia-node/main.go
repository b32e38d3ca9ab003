// Command kademlia-node runs a long-lived DHT node: it loads a YAML
// config, brings up the configured transport and identifier width,
// joins the network via its bootstrap list and/or LAN multicast, and
// serves an admin API (introspection plus a STORE action) until
// interrupted.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shadowmesh/kademlia/pkg/api"
	"github.com/shadowmesh/kademlia/pkg/codec"
	"github.com/shadowmesh/kademlia/pkg/config"
	"github.com/shadowmesh/kademlia/pkg/kademlia"
	"github.com/shadowmesh/kademlia/pkg/logging"
	"github.com/shadowmesh/kademlia/pkg/transport"
)

// version is bumped on release, mirroring the teacher's daemon/cli
// constant rather than embedding VCS info at build time.
const version = "0.1.0-alpha"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "kademlia-node",
		Short: "Run a Kademlia DHT node",
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newBootstrapCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the node and serve until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "kademlia-node.yaml", "path to the config file")
	return cmd
}

func newBootstrapCmd() *cobra.Command {
	var configPath, peer string
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Connect to a seed peer once and print the resulting routing table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if peer == "" {
				return fmt.Errorf("--peer is required")
			}
			return bootstrapOnce(cfg, peer)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "kademlia-node.yaml", "path to the config file")
	cmd.Flags().StringVar(&peer, "peer", "", "seed peer endpoint URI to connect to")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the kademlia-node version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("kademlia-node %s\n", version)
			return nil
		},
	}
}

func serve(cfg *config.Config) error {
	logger, err := logging.NewComponentLogger(logging.ComponentNode, levelFromConfig(cfg), cfg.Logging.OutputFile)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	c, ok := codec.ByName(cfg.Transport.Codec)
	if !ok {
		return fmt.Errorf("unknown codec: %s", cfg.Transport.Codec)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cfg.Node.IDWidth {
	case 160:
		return serveTyped[kademlia.ID160](ctx, cfg, logger, c)
	case 256:
		return serveTyped[kademlia.ID256](ctx, cfg, logger, c)
	default:
		return fmt.Errorf("unsupported node.id_width: %d", cfg.Node.IDWidth)
	}
}

func levelFromConfig(cfg *config.Config) logging.LogLevel {
	switch cfg.Logging.Level {
	case "debug":
		return logging.DEBUG
	case "warn":
		return logging.WARN
	case "error":
		return logging.ERROR
	default:
		return logging.INFO
	}
}

func serveTyped[T kademlia.NodeID[T]](ctx context.Context, cfg *config.Config, logger *logging.Logger, c codec.Codec) error {
	self, err := resolveID[T](cfg.Node.IDHex)
	if err != nil {
		return fmt.Errorf("resolve node id: %w", err)
	}
	logger.Info("starting node", logging.PeerFields(self.String(), logging.Fields{"transport": cfg.Transport.Kind}))

	tport, err := newTransport(cfg, c)
	if err != nil {
		return fmt.Errorf("init transport: %w", err)
	}

	kcfg := kademlia.DefaultConfig()
	kcfg.K = cfg.Discovery.K
	kcfg.Alpha = cfg.Discovery.Alpha
	kcfg.RequestTimeout = cfg.Discovery.RequestTimeout
	kcfg.BucketRefreshInterval = cfg.Discovery.BucketRefreshInterval
	kcfg.RepublishInterval = cfg.Discovery.RepublishInterval
	kcfg.ReplicateInterval = cfg.Discovery.ReplicateInterval
	kcfg.ValueTTL = cfg.Discovery.ValueTTL
	kcfg.MaintenanceTick = cfg.Discovery.MaintenanceTick
	kcfg.Network = cfg.Node.Network

	node := kademlia.NewNode[T](self, tport, kademlia.RealClock(), kcfg)
	defer node.Close()

	runErr := make(chan error, 1)
	go func() { runErr <- node.Run(ctx) }()

	for _, seed := range cfg.Node.Bootstrap {
		bootstrapCtx, cancel := context.WithTimeout(ctx, kcfg.RequestTimeout)
		ep := kademlia.NewEndpointRegistry().Resolve(seed)
		if err := node.Bootstrap(bootstrapCtx, ep); err != nil {
			logger.Warn("bootstrap failed", logging.Fields{"endpoint": seed, "error": err.Error()})
		}
		cancel()
	}

	var discovery *kademlia.MulticastDiscovery[T]
	if cfg.Discovery.MulticastGroup != "" {
		discovery, err = kademlia.NewMulticastDiscovery[T](node, cfg.Discovery.MulticastGroup, kcfg.Network, c)
		if err != nil {
			logger.Warn("multicast discovery disabled", logging.Fields{"error": err.Error()})
		} else {
			defer discovery.Close()
			go func() { _ = discovery.Listen(ctx) }()
			if len(tport.LocalEndpoints()) > 0 {
				go announceLoop(ctx, discovery, tport.LocalEndpoints())
			}
		}
	}

	var adminServer *api.Server[T]
	if cfg.Admin.Enabled {
		adminServer = api.NewServer[T](node, cfg.Admin.Listen)
		go func() {
			if err := adminServer.ListenAndServe(); err != nil {
				logger.Warn("admin api stopped", logging.Fields{"error": err.Error()})
			}
		}()
		defer adminServer.Close()
	}

	return <-runErr
}

// bootstrapOnce is the "serve" command's one-shot cousin: it brings up
// just enough of a node to ping a single seed peer, run the resulting
// FindNode(self) that Bootstrap performs, and print what landed in the
// routing table, then tears everything back down. Useful for
// smoke-testing a seed's reachability without running a full daemon.
func bootstrapOnce(cfg *config.Config, peer string) error {
	logger, err := logging.NewComponentLogger(logging.ComponentNode, levelFromConfig(cfg), cfg.Logging.OutputFile)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	c, ok := codec.ByName(cfg.Transport.Codec)
	if !ok {
		return fmt.Errorf("unknown codec: %s", cfg.Transport.Codec)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cfg.Node.IDWidth {
	case 160:
		return bootstrapTyped[kademlia.ID160](ctx, cfg, logger, c, peer)
	case 256:
		return bootstrapTyped[kademlia.ID256](ctx, cfg, logger, c, peer)
	default:
		return fmt.Errorf("unsupported node.id_width: %d", cfg.Node.IDWidth)
	}
}

func bootstrapTyped[T kademlia.NodeID[T]](ctx context.Context, cfg *config.Config, logger *logging.Logger, c codec.Codec, peer string) error {
	self, err := resolveID[T](cfg.Node.IDHex)
	if err != nil {
		return fmt.Errorf("resolve node id: %w", err)
	}

	tport, err := newTransport(cfg, c)
	if err != nil {
		return fmt.Errorf("init transport: %w", err)
	}

	kcfg := kademlia.DefaultConfig()
	kcfg.K = cfg.Discovery.K
	kcfg.Alpha = cfg.Discovery.Alpha
	kcfg.RequestTimeout = cfg.Discovery.RequestTimeout
	kcfg.Network = cfg.Node.Network

	node := kademlia.NewNode[T](self, tport, kademlia.RealClock(), kcfg)
	defer node.Close()
	go func() { _ = node.Run(ctx) }()

	bootstrapCtx, cancel := context.WithTimeout(ctx, kcfg.RequestTimeout*time.Duration(kcfg.Alpha))
	defer cancel()
	ep := kademlia.NewEndpointRegistry().Resolve(peer)
	if err := node.Bootstrap(bootstrapCtx, ep); err != nil {
		return fmt.Errorf("bootstrap against %s: %w", peer, err)
	}

	rt := node.RoutingTable()
	peers := rt.Closest(self, rt.Len())
	logger.Info("bootstrap complete", logging.PeerFields(self.String(), logging.Fields{"seed": peer, "peers_learned": len(peers)}))

	fmt.Printf("self: %s\n", self.String())
	fmt.Printf("learned %d peer(s):\n", len(peers))
	for _, p := range peers {
		uris := make([]string, len(p.Endpoints))
		for i, e := range p.Endpoints {
			uris[i] = e.URI()
		}
		fmt.Printf("  %s  %v\n", p.ID.String(), uris)
	}
	return nil
}

const multicastAnnounceInterval = 30 * time.Second

func announceLoop(ctx context.Context, d interface{ Announce(...string) error }, endpoints []string) {
	ticker := time.NewTicker(multicastAnnounceInterval)
	defer ticker.Stop()
	_ = d.Announce(endpoints...)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = d.Announce(endpoints...)
		}
	}
}

func resolveID[T kademlia.NodeID[T]](hexID string) (T, error) {
	if hexID == "" {
		return kademlia.RandomID[T]()
	}
	raw, err := hex.DecodeString(hexID)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("decode node.id_hex: %w", err)
	}
	return kademlia.ParseID[T](raw)
}

func newTransport(cfg *config.Config, c codec.Codec) (kademlia.MessageTransport, error) {
	switch cfg.Transport.Kind {
	case "udp":
		return transport.NewUDPTransport(cfg.Transport.Listen, c, cfg.Node.Network)
	case "quic":
		return transport.NewQUICTransport(cfg.Transport.Listen, cfg.Transport.TLSCert, cfg.Transport.TLSKey, c, cfg.Node.Network)
	case "websocket":
		return transport.NewWebSocketTransport(cfg.Transport.Listen, c, cfg.Node.Network)
	default:
		return nil, fmt.Errorf("unsupported transport kind: %s", cfg.Transport.Kind)
	}
}
