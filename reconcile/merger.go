package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dexwallet/tx-manager/types"
	"github.com/hermeznetwork/tracerr"
)

// FinalizeEffect is a store update the merge decided on: a local record proven finalized by
// the remote indexer must be promoted immediately instead of waiting for the next receipt
// poll. The caller applies these against the store after the merge returns.
type FinalizeEffect struct {
	From    string
	ChainID uint64
	ID      string
	Status  types.TransactionStatus
	Receipt *types.Receipt
}

// MergeResult is the deduplicated, sorted view plus the side effects the merge implies
type MergeResult struct {
	Transactions []*types.TransactionDetails
	Finalize     []FinalizeEffect
}

// Merge reconciles the local transaction list with the remote indexer's list for the same
// address. It is a pure function of its inputs; the only mutation it requests is the
// Finalize slice on the result.
//
// Records are deduplicated by tracking hash: the literal tx hash when known, otherwise the
// order hash, unless either side has since learned the settlement hash for that order, in
// which case both records collapse onto the settlement hash. Fiat on/off-ramp records are
// keyed by their own id and never collide with on-chain activity; local bridge/classic
// records not yet broadcast pass through untouched.
func Merge(local, remote []*types.TransactionDetails, isChainEnabled func(chainID uint64) bool) (*MergeResult, error) {
	settlements, err := buildSettlementMap(local, remote)
	if err != nil {
		return nil, err
	}

	type pair struct {
		local  *types.TransactionDetails
		remote *types.TransactionDetails
	}
	pairs := map[string]*pair{}
	order := []string{}

	for _, tx := range local {
		if !isChainEnabled(tx.ChainID) {
			continue
		}
		key, passthrough := mergeKey(tx, settlements)
		if passthrough {
			key = "id:" + tx.ID
		}
		p, found := pairs[key]
		if !found {
			p = &pair{}
			pairs[key] = p
			order = append(order, key)
		}
		if p.local != nil {
			return nil, tracerr.Wrap(fmt.Errorf("duplicate local transaction for tracking key %s (ids %s and %s)", key, p.local.ID, tx.ID))
		}
		p.local = tx
	}
	for _, tx := range remote {
		if !isChainEnabled(tx.ChainID) {
			continue
		}
		key, passthrough := mergeKey(tx, settlements)
		if passthrough {
			key = "id:" + tx.ID
		}
		p, found := pairs[key]
		if !found {
			p = &pair{}
			pairs[key] = p
			order = append(order, key)
		}
		// remote lists can legitimately repeat a hash after re-indexing; keep the first
		if p.remote == nil {
			p.remote = tx
		}
	}

	result := &MergeResult{}
	for _, key := range order {
		p := pairs[key]
		merged, effect := mergeOne(p.local, p.remote)
		if merged != nil {
			result.Transactions = append(result.Transactions, merged)
		}
		if effect != nil {
			result.Finalize = append(result.Finalize, *effect)
		}
	}

	sortTransactions(result.Transactions)
	return result, nil
}

// buildSettlementMap cross-references order hashes to their settlement tx hashes using
// whichever side already knows the pairing. Conflicting pairings are a hard error; guessing
// would silently merge unrelated records.
func buildSettlementMap(lists ...[]*types.TransactionDetails) (map[string]string, error) {
	settlements := map[string]string{}
	for _, list := range lists {
		for _, tx := range list {
			orderHash := strings.ToLower(tx.OrderHash())
			if orderHash == "" || tx.Hash == "" {
				continue
			}
			hash := strings.ToLower(tx.Hash)
			if existing, found := settlements[orderHash]; found && existing != hash {
				return nil, tracerr.Wrap(fmt.Errorf("order %s maps to conflicting settlement hashes %s and %s", orderHash, existing, hash))
			}
			settlements[orderHash] = hash
		}
	}
	return settlements, nil
}

// mergeKey derives the deduplication key for a record. The second return is true for
// records that must never be deduplicated against on-chain activity.
func mergeKey(tx *types.TransactionDetails, settlements map[string]string) (string, bool) {
	if tx.IsFiatPurchase() {
		return "", true
	}
	if tx.Hash != "" {
		return strings.ToLower(tx.Hash), false
	}
	if orderHash := strings.ToLower(tx.OrderHash()); orderHash != "" {
		if settled, found := settlements[orderHash]; found {
			return settled, false
		}
		return orderHash, false
	}
	// local-only record not yet broadcast, cannot have a remote counterpart
	return "", true
}

// mergeOne applies the per-pair merge policy and returns the record to surface plus the
// finalize side effect, if any
func mergeOne(local, remote *types.TransactionDetails) (*types.TransactionDetails, *FinalizeEffect) {
	if local == nil {
		return remote, nil
	}
	if remote == nil {
		return local, nil
	}

	var effect *FinalizeEffect
	if !local.Status.IsFinal() && remote.Status.IsFinal() {
		status := remote.Status
		// a local cancellation attempt confirmed successful by the indexer means the
		// cancellation landed
		if local.Status == types.StatusCancelling && remote.Status == types.StatusSuccess {
			status = types.StatusCancelled
		}
		effect = &FinalizeEffect{
			From:    local.From,
			ChainID: local.ChainID,
			ID:      local.ID,
			Status:  status,
			Receipt: remote.Receipt,
		}
	}

	cancelPair := local.Status == types.StatusCancelled && remote.Status == types.StatusSuccess

	if remote.Status != types.StatusSuccess || cancelPair {
		merged := local.Copy()
		if effect != nil {
			merged.Status = effect.Status
			merged.Receipt = remote.Receipt
		}
		merged.NetworkFee = remote.NetworkFee
		return merged, effect
	}

	merged := remote.Copy()
	if _, isWalletConnect := local.TypeInfo.(types.WalletConnectTypeInfo); isWalletConnect {
		// the dapp provenance only exists locally
		merged.TypeInfo = local.TypeInfo
	}
	return merged, effect
}

func sortTransactions(txs []*types.TransactionDetails) {
	sort.SliceStable(txs, func(i, j int) bool {
		a, b := txs[i], txs[j]
		if !a.AddedTime.Equal(b.AddedTime) {
			return a.AddedTime.After(b.AddedTime)
		}
		// an approval and its swap can land in the same second; surface the approval first
		// to mirror the on-chain sequencing
		if approvesFor(a, b) {
			return true
		}
		if approvesFor(b, a) {
			return false
		}
		return a.ID < b.ID
	})
}

// approvesFor reports whether a is the approval enabling swap b
func approvesFor(a, b *types.TransactionDetails) bool {
	approve, ok := a.TypeInfo.(types.ApproveTypeInfo)
	if !ok {
		return false
	}
	swap, ok := b.TypeInfo.(types.SwapTypeInfo)
	if !ok {
		return false
	}
	token := strings.ToLower(approve.TokenAddress)
	if token == "" {
		return false
	}
	return strings.Contains(strings.ToLower(swap.InputCurrencyID), token)
}
