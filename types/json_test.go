package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeInfoEnvelope(t *testing.T) {
	type testCase struct {
		Name string
		Info TypeInfo
	}

	testCases := []testCase{
		{Name: "swap", Info: SwapTypeInfo{InputCurrencyID: "1-0x1", OutputCurrencyID: "1-0x2", InputAmountRaw: "100"}},
		{Name: "approve", Info: ApproveTypeInfo{TokenAddress: "0x1", Spender: "0x2"}},
		{Name: "liquidity increase", Info: LiquidityTypeInfo{Increase: true, PoolID: "p-1"}},
		{Name: "liquidity decrease", Info: LiquidityTypeInfo{Increase: false, PoolID: "p-1"}},
		{Name: "fiat sale", Info: FiatPurchaseTypeInfo{Sale: true, ProviderID: "prov"}},
		{Name: "wallet connect", Info: WalletConnectTypeInfo{DappName: "dapp", Method: "eth_sendTransaction"}},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			data, err := MarshalTypeInfo(tc.Info)
			require.NoError(t, err)

			restored, err := UnmarshalTypeInfo(data)
			require.NoError(t, err)

			// the selector flags live outside the payload, carried by the kind tag
			assert.Equal(t, tc.Info.Kind(), restored.Kind())
			assert.Equal(t, tc.Info, restored)
		})
	}
}

func TestTypeInfoEnvelopeUnknownKind(t *testing.T) {
	_, err := UnmarshalTypeInfo([]byte(`{"kind":"mystery","payload":{}}`))
	assert.Error(t, err)
}

func TestTransactionDetailsRoundTrip(t *testing.T) {
	nonce := uint64(5)
	tx := &TransactionDetails{
		ID:        "tx-1",
		ChainID:   1,
		From:      "0xabc0000000000000000000000000000000000001",
		Routing:   RoutingDutchV2,
		TypeInfo:  SwapTypeInfo{InputCurrencyID: "1-0x1", OutputCurrencyID: "1-0x2"},
		Status:    StatusPending,
		AddedTime: time.Now().UTC(),
		UniswapXOrder: &UniswapXOrderDetails{
			OrderHash:   "0xorder",
			QueueStatus: QueueStatusWaiting,
		},
		Options: TxOptions{Request: TxRequest{ChainID: 1, To: "0x2", Nonce: &nonce}},
	}

	data, err := json.Marshal(tx)
	require.NoError(t, err)

	restored := &TransactionDetails{}
	require.NoError(t, json.Unmarshal(data, restored))

	assert.Equal(t, tx.ID, restored.ID)
	assert.Equal(t, tx.Routing, restored.Routing)
	assert.Equal(t, tx.TypeInfo, restored.TypeInfo)
	require.NotNil(t, restored.UniswapXOrder)
	assert.Equal(t, "0xorder", restored.UniswapXOrder.OrderHash)
	require.NotNil(t, restored.Options.Request.Nonce)
	assert.Equal(t, nonce, *restored.Options.Request.Nonce)
}
