package main

import (
	"math/big"
	"testing"

	"github.com/dexwallet/tx-manager/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingTx(request types.TxRequest) *types.TransactionDetails {
	nonce := uint64(5)
	request.ChainID = 1
	request.Nonce = &nonce
	return &types.TransactionDetails{
		ID:      "tx-1",
		ChainID: 1,
		From:    "0xabc0000000000000000000000000000000000001",
		Status:  types.StatusPending,
		Options: types.TxOptions{Request: request},
	}
}

func TestCancellationRequestCarriesGasAndBumpedFees(t *testing.T) {
	tx := pendingTx(types.TxRequest{
		MaxFeePerGas:         big.NewInt(800),
		MaxPriorityFeePerGas: big.NewInt(80),
	})

	request := cancellationRequest(tx, nil)

	assert.Equal(t, tx.From, request.To)
	require.NotNil(t, request.Value)
	assert.Equal(t, int64(0), request.Value.Int64())
	require.NotNil(t, request.Nonce)
	assert.Equal(t, uint64(5), *request.Nonce)
	assert.Equal(t, transferGasLimit, request.Gas)
	assert.Equal(t, int64(900), request.MaxFeePerGas.Int64())
	assert.Equal(t, int64(90), request.MaxPriorityFeePerGas.Int64())
	assert.Nil(t, request.GasPrice)
}

func TestCancellationRequestBumpsLegacyGasPrice(t *testing.T) {
	tx := pendingTx(types.TxRequest{GasPrice: big.NewInt(1000)})

	request := cancellationRequest(tx, nil)

	assert.Equal(t, transferGasLimit, request.Gas)
	require.NotNil(t, request.GasPrice)
	assert.Equal(t, int64(1125), request.GasPrice.Int64())
	assert.Nil(t, request.MaxFeePerGas)
}

func TestCancellationRequestFallsBackToSuggestedGasPrice(t *testing.T) {
	tx := pendingTx(types.TxRequest{})

	request := cancellationRequest(tx, big.NewInt(1000))

	assert.Equal(t, transferGasLimit, request.Gas)
	require.NotNil(t, request.GasPrice)
	assert.Equal(t, int64(1125), request.GasPrice.Int64())
}

func TestBumpFee(t *testing.T) {
	assert.Nil(t, bumpFee(nil))
	assert.Equal(t, int64(1125), bumpFee(big.NewInt(1000)).Int64())
	assert.Equal(t, int64(9), bumpFee(big.NewInt(8)).Int64())
}
