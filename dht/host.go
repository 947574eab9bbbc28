package dht

import (
	"context"
	"crypto/ed25519"
	"fmt"

	ds "github.com/ipfs/go-datastore"
	libp2p "github.com/libp2p/go-libp2p"
	crypto "github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	kaddht "github.com/libp2p/go-libp2p-kad-dht"
	"github.com/multiformats/go-multiaddr"
)

// HostConfig carries the knobs needed to stand up this node's libp2p host
// and kademlia DHT, as gathered from the daemon's persisted config.
type HostConfig struct {
	// ListenAddr is a multiaddr such as "/ip4/0.0.0.0/tcp/4001".
	ListenAddr string
	// PrivateKey is this node's Ed25519 wallet key, reused as the libp2p
	// host identity so a node's DHT peer ID and wallet address derive from
	// the same keypair.
	PrivateKey ed25519.PrivateKey
	// BootstrapPeers are multiaddrs of well-known peers dialed on startup
	// and periodically thereafter (bootstrapRefreshInterval).
	BootstrapPeers []string
}

// NewHost builds a libp2p host and kademlia DHT server over a
// MergingDatastore backed store, and returns a Coordinator ready to Run.
//
// Grounded on the myelnet node's libp2p.New(...) + dht.New(ctx, h) wiring
// (other_examples), generalized from its Filecoin exchange to the
// marketplace's own record schemas.
func NewHost(ctx context.Context, cfg HostConfig, registry *Registry) (*Coordinator, host.Host, *kaddht.IpfsDHT, error) {
	priv, _, err := crypto.KeyPairFromStdKey(cfg.PrivateKey)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("converting wallet key to libp2p identity: %w", err)
	}

	h, err := libp2p.New(
		libp2p.Identity(priv),
		libp2p.ListenAddrStrings(cfg.ListenAddr),
		libp2p.NATPortMap(),
		libp2p.EnableNATService(),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating libp2p host: %w", err)
	}

	backing := ds.NewMapDatastore()
	merging := NewMergingDatastore(backing, registry)

	kad, err := kaddht.New(ctx, h, kaddht.Mode(kaddht.ModeServer), kaddht.Datastore(merging))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating kademlia DHT: %w", err)
	}

	bootstrapAddrs := make([]peer.AddrInfo, 0, len(cfg.BootstrapPeers))
	for _, raw := range cfg.BootstrapPeers {
		addr, err := multiaddr.NewMultiaddr(raw)
		if err != nil {
			continue
		}
		info, err := peer.AddrInfoFromP2pAddr(addr)
		if err != nil {
			continue
		}
		bootstrapAddrs = append(bootstrapAddrs, *info)
	}

	bootstrap := func(ctx context.Context) error {
		if err := kad.Bootstrap(ctx); err != nil {
			return err
		}
		for _, info := range bootstrapAddrs {
			dialCtx, cancel := context.WithTimeout(ctx, bootstrapDialBudget)
			_ = h.Connect(dialCtx, info)
			cancel()
		}
		return nil
	}

	coord := New(NewLibp2pStore(kad), registry, bootstrap)
	return coord, h, kad, nil
}
