package nonce

import (
	"context"

	"github.com/dexwallet/tx-manager/log"
	"github.com/dexwallet/tx-manager/types"
	"github.com/ethereum/go-ethereum/common"
)

// RelayKind describes how much of the account's pending activity a private relay can see
type RelayKind string

const (
	// RelayKindNone means no private relay is configured for the chain
	RelayKindNone RelayKind = "none"

	// RelayKindAggregated is a relay with its own global pending view; its pending count
	// already includes txs this client submitted privately
	RelayKindAggregated RelayKind = "aggregated"

	// RelayKindLocalBroadcast is a relay that only sees what each client sent it; txs this
	// client submitted privately are not reflected in its pending count until propagation
	RelayKindLocalBroadcast RelayKind = "local_broadcast"
)

// PendingNonceReader reads the pending transaction count for an account
type PendingNonceReader interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

// PrivateTxCounter counts locally-submitted private txs still pending for an account
type PrivateTxCounter interface {
	PendingPrivateTxCount(from string, chainID uint64) int
}

// Resolver determines the lowest safe-to-use nonce for an account on one chain
type Resolver struct {
	chainID        uint64
	public         PendingNonceReader
	private        PendingNonceReader
	relayKind      RelayKind
	privateEnabled bool
	counter        PrivateTxCounter
}

// NewResolver creates a nonce resolver for a chain. private may be nil when the chain has no
// private relay; counter may be nil when private tx tracking is unavailable.
func NewResolver(chainID uint64, public, private PendingNonceReader, relayKind RelayKind, privateEnabled bool, counter PrivateTxCounter) *Resolver {
	return &Resolver{
		chainID:        chainID,
		public:         public,
		private:        private,
		relayKind:      relayKind,
		privateEnabled: privateEnabled,
		counter:        counter,
	}
}

// TryGetNonce returns the next usable nonce for the account. It never fails: on any provider
// error the result carries a nil nonce and the caller proceeds without one, letting the
// submission path populate it or fail further downstream.
func (r *Resolver) TryGetNonce(ctx context.Context, account common.Address) *types.NonceResult {
	provider := r.public
	usePrivate := r.privateEnabled && r.private != nil
	if usePrivate {
		provider = r.private
	}

	count, err := provider.PendingNonceAt(ctx, account)
	if err != nil {
		log.Debugf("error getting pending nonce for %s on chain %d, proceeding without one, error: %v",
			account.Hex(), r.chainID, err)
		return &types.NonceResult{}
	}

	result := &types.NonceResult{}

	// A local-broadcast relay has no global view: txs this client already submitted
	// privately are invisible in its pending count, so they must be added on top to avoid
	// nonce collision. Aggregated relays already account for them.
	if usePrivate && r.relayKind == RelayKindLocalBroadcast && r.counter != nil {
		result.PendingPrivateTxCount = r.counter.PendingPrivateTxCount(account.Hex(), r.chainID)
		count += uint64(result.PendingPrivateTxCount)
	}

	result.Nonce = &count
	return result
}
