package chains

import (
	"fmt"

	"github.com/dexwallet/tx-manager/log"
	"github.com/dexwallet/tx-manager/monitor"
	"github.com/dexwallet/tx-manager/nonce"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/hermeznetwork/tracerr"
)

type chainEntry struct {
	cfg     ChainConfig
	public  *ethclient.Client
	private *ethclient.Client
}

// Registry holds one RPC client pair per enabled chain. It is built once at startup and
// read-only afterwards.
type Registry struct {
	entries map[uint64]*chainEntry
}

// NewRegistry dials the configured endpoints of every enabled chain
func NewRegistry(cfg Config) (*Registry, error) {
	registry := &Registry{entries: map[uint64]*chainEntry{}}

	for _, chain := range cfg.Chains {
		if !chain.Enabled {
			log.Infof("chain %s (%d) is disabled, skipping", chain.Name, chain.ChainID)
			continue
		}
		if _, dup := registry.entries[chain.ChainID]; dup {
			return nil, tracerr.Wrap(fmt.Errorf("chain %d configured twice", chain.ChainID))
		}

		public, err := ethclient.Dial(chain.RPCURL)
		if err != nil {
			return nil, tracerr.Wrap(fmt.Errorf("error dialing chain %d at %s: %w", chain.ChainID, chain.RPCURL, err))
		}

		entry := &chainEntry{cfg: chain, public: public}
		if chain.PrivateRPCURL != "" {
			private, err := ethclient.Dial(chain.PrivateRPCURL)
			if err != nil {
				return nil, tracerr.Wrap(fmt.Errorf("error dialing private relay of chain %d at %s: %w", chain.ChainID, chain.PrivateRPCURL, err))
			}
			entry.private = private
		}

		registry.entries[chain.ChainID] = entry
		log.Infof("registered chain %s (%d), private relay: %t", chain.Name, chain.ChainID, entry.private != nil)
	}

	return registry, nil
}

// IsChainEnabled reports whether a chain is registered and enabled
func (r *Registry) IsChainEnabled(chainID uint64) bool {
	_, found := r.entries[chainID]
	return found
}

// ClientFor returns the public RPC client of a chain
func (r *Registry) ClientFor(chainID uint64) (*ethclient.Client, error) {
	entry, found := r.entries[chainID]
	if !found {
		return nil, tracerr.Wrap(fmt.Errorf("chain %d is not enabled", chainID))
	}
	return entry.public, nil
}

// PrivateClientFor returns the private relay client of a chain, or nil when it has none
func (r *Registry) PrivateClientFor(chainID uint64) (*ethclient.Client, error) {
	entry, found := r.entries[chainID]
	if !found {
		return nil, tracerr.Wrap(fmt.Errorf("chain %d is not enabled", chainID))
	}
	return entry.private, nil
}

// ProviderFor returns the receipt polling provider of a chain
func (r *Registry) ProviderFor(chainID uint64) (monitor.Provider, error) {
	return r.ClientFor(chainID)
}

// RelayKindFor returns the configured private relay kind of a chain
func (r *Registry) RelayKindFor(chainID uint64) nonce.RelayKind {
	entry, found := r.entries[chainID]
	if !found || entry.private == nil {
		return nonce.RelayKindNone
	}
	switch entry.cfg.RelayKind {
	case string(nonce.RelayKindAggregated):
		return nonce.RelayKindAggregated
	case string(nonce.RelayKindLocalBroadcast):
		return nonce.RelayKindLocalBroadcast
	}
	return nonce.RelayKindNone
}

// ResolverFor builds the nonce resolver of a chain. usePrivate selects the relay's pending
// view when the chain has one configured.
func (r *Registry) ResolverFor(chainID uint64, usePrivate bool, counter nonce.PrivateTxCounter) (*nonce.Resolver, error) {
	entry, found := r.entries[chainID]
	if !found {
		return nil, tracerr.Wrap(fmt.Errorf("chain %d is not enabled", chainID))
	}

	var private nonce.PendingNonceReader
	if entry.private != nil {
		private = entry.private
	}
	return nonce.NewResolver(chainID, entry.public, private, r.RelayKindFor(chainID), usePrivate, counter), nil
}
