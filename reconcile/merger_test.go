package reconcile

import (
	"math/big"
	"testing"
	"time"

	"github.com/dexwallet/tx-manager/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allChains(uint64) bool { return true }

func localTx(id, hash string, status types.TransactionStatus) *types.TransactionDetails {
	return &types.TransactionDetails{
		ID:        id,
		ChainID:   1,
		From:      "0xabc0000000000000000000000000000000000001",
		Routing:   types.RoutingClassic,
		Status:    status,
		AddedTime: time.Now(),
		Hash:      hash,
	}
}

func remoteTx(id, hash string, status types.TransactionStatus) *types.TransactionDetails {
	tx := localTx(id, hash, status)
	tx.NetworkFee = big.NewInt(1000)
	if status.IsFinal() {
		tx.Receipt = &types.Receipt{BlockNumber: 100, Confirmations: 3}
	}
	return tx
}

func TestMergeDisjointListsKeepsBoth(t *testing.T) {
	local := []*types.TransactionDetails{localTx("l-1", "0xaaaa", types.StatusPending)}
	remote := []*types.TransactionDetails{remoteTx("r-1", "0xbbbb", types.StatusSuccess)}

	result, err := Merge(local, remote, allChains)
	require.NoError(t, err)
	assert.Len(t, result.Transactions, 2)
	assert.Empty(t, result.Finalize)
}

func TestMergeIsIdempotent(t *testing.T) {
	local := []*types.TransactionDetails{localTx("l-1", "0xAAAA", types.StatusPending)}
	remote := []*types.TransactionDetails{remoteTx("r-1", "0xaaaa", types.StatusPending)}

	first, err := Merge(local, remote, allChains)
	require.NoError(t, err)
	second, err := Merge(first.Transactions, remote, allChains)
	require.NoError(t, err)

	require.Len(t, first.Transactions, 1)
	require.Len(t, second.Transactions, 1)
	assert.Equal(t, first.Transactions[0].Hash, second.Transactions[0].Hash)
}

func TestMergePromotesLocalWhenRemoteFinalized(t *testing.T) {
	local := []*types.TransactionDetails{localTx("l-1", "0xaaaa", types.StatusPending)}
	remote := []*types.TransactionDetails{remoteTx("r-1", "0xaaaa", types.StatusSuccess)}

	result, err := Merge(local, remote, allChains)
	require.NoError(t, err)

	// the local record must be finalized immediately instead of waiting for a receipt poll
	require.Len(t, result.Finalize, 1)
	effect := result.Finalize[0]
	assert.Equal(t, "l-1", effect.ID)
	assert.Equal(t, types.StatusSuccess, effect.Status)
	require.NotNil(t, effect.Receipt)
	assert.Equal(t, uint64(100), effect.Receipt.BlockNumber)
}

func TestMergeCancellingPlusRemoteSuccessMeansCancelled(t *testing.T) {
	local := []*types.TransactionDetails{localTx("l-1", "0xaaaa", types.StatusCancelling)}
	remote := []*types.TransactionDetails{remoteTx("r-1", "0xaaaa", types.StatusSuccess)}

	result, err := Merge(local, remote, allChains)
	require.NoError(t, err)

	require.Len(t, result.Finalize, 1)
	assert.Equal(t, types.StatusCancelled, result.Finalize[0].Status)
}

func TestMergeCancelledLocalWinsOverRemoteSuccess(t *testing.T) {
	local := []*types.TransactionDetails{localTx("l-1", "0xaaaa", types.StatusCancelled)}
	remote := []*types.TransactionDetails{remoteTx("r-1", "0xaaaa", types.StatusSuccess)}

	result, err := Merge(local, remote, allChains)
	require.NoError(t, err)

	require.Len(t, result.Transactions, 1)
	merged := result.Transactions[0]
	assert.Equal(t, "l-1", merged.ID)
	assert.Equal(t, types.StatusCancelled, merged.Status)
	// only the remote fee figure is overlaid onto the local record
	require.NotNil(t, merged.NetworkFee)
	assert.Equal(t, int64(1000), merged.NetworkFee.Int64())
}

func TestMergeOrderHashCollapsesOntoSettlementHash(t *testing.T) {
	local := localTx("l-1", "", types.StatusPending)
	local.Routing = types.RoutingDutchV2
	local.UniswapXOrder = &types.UniswapXOrderDetails{OrderHash: "0xorder"}

	settled := remoteTx("r-1", "0xsettled", types.StatusSuccess)
	settled.Routing = types.RoutingDutchV2
	settled.UniswapXOrder = &types.UniswapXOrderDetails{OrderHash: "0xorder"}

	result, err := Merge([]*types.TransactionDetails{local}, []*types.TransactionDetails{settled}, allChains)
	require.NoError(t, err)

	// one record, not a pending order plus a filled one
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, "0xsettled", result.Transactions[0].Hash)
	require.Len(t, result.Finalize, 1)
	assert.Equal(t, "l-1", result.Finalize[0].ID)
}

func TestMergeConflictingSettlementHashesIsAnError(t *testing.T) {
	a := localTx("l-1", "0xaaaa", types.StatusPending)
	a.UniswapXOrder = &types.UniswapXOrderDetails{OrderHash: "0xorder"}
	b := remoteTx("r-1", "0xbbbb", types.StatusSuccess)
	b.UniswapXOrder = &types.UniswapXOrderDetails{OrderHash: "0xorder"}

	_, err := Merge([]*types.TransactionDetails{a}, []*types.TransactionDetails{b}, allChains)
	assert.Error(t, err)
}

func TestMergeDropsDisabledChains(t *testing.T) {
	local := []*types.TransactionDetails{localTx("l-1", "0xaaaa", types.StatusPending)}
	disabled := localTx("l-2", "0xbbbb", types.StatusPending)
	disabled.ChainID = 999
	local = append(local, disabled)

	result, err := Merge(local, nil, func(chainID uint64) bool { return chainID == 1 })
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, "l-1", result.Transactions[0].ID)
}

func TestMergeFiatRecordsNeverDedupe(t *testing.T) {
	fiat := localTx("ramp-1", "", types.StatusPending)
	fiat.TypeInfo = types.FiatPurchaseTypeInfo{ProviderID: "p"}

	// same id on the remote side must stay keyed separately from on-chain activity
	result, err := Merge([]*types.TransactionDetails{fiat}, []*types.TransactionDetails{remoteTx("r-1", "0xaaaa", types.StatusSuccess)}, allChains)
	require.NoError(t, err)
	assert.Len(t, result.Transactions, 2)
}

func TestMergePreservesWalletConnectMetadata(t *testing.T) {
	local := localTx("l-1", "0xaaaa", types.StatusSuccess)
	local.TypeInfo = types.WalletConnectTypeInfo{DappName: "cooldapp", DappURL: "https://cool.example", Method: "eth_sendTransaction"}
	remote := remoteTx("r-1", "0xaaaa", types.StatusSuccess)
	remote.TypeInfo = types.SendTypeInfo{CurrencyID: "1-0x0", Recipient: "0x2", AmountRaw: "1"}

	result, err := Merge([]*types.TransactionDetails{local}, []*types.TransactionDetails{remote}, allChains)
	require.NoError(t, err)

	require.Len(t, result.Transactions, 1)
	merged := result.Transactions[0]
	// remote wins the record, local wins the dapp provenance
	assert.Equal(t, "r-1", merged.ID)
	wc, ok := merged.TypeInfo.(types.WalletConnectTypeInfo)
	require.True(t, ok)
	assert.Equal(t, "cooldapp", wc.DappName)
}

func TestMergeOrderingApproveBeforeMatchingSwap(t *testing.T) {
	sameTime := time.Now()

	swap := localTx("swap-1", "0xaaaa", types.StatusSuccess)
	swap.AddedTime = sameTime
	swap.TypeInfo = types.SwapTypeInfo{InputCurrencyID: "1-0xdeadbeef", OutputCurrencyID: "1-0x2"}

	approve := localTx("approve-1", "0xbbbb", types.StatusSuccess)
	approve.AddedTime = sameTime
	approve.TypeInfo = types.ApproveTypeInfo{TokenAddress: "0xDEADBEEF", Spender: "0x3"}

	older := localTx("older-1", "0xcccc", types.StatusSuccess)
	older.AddedTime = sameTime.Add(-time.Hour)

	result, err := Merge([]*types.TransactionDetails{swap, approve, older}, nil, allChains)
	require.NoError(t, err)

	require.Len(t, result.Transactions, 3)
	assert.Equal(t, "approve-1", result.Transactions[0].ID)
	assert.Equal(t, "swap-1", result.Transactions[1].ID)
	assert.Equal(t, "older-1", result.Transactions[2].ID)
}
