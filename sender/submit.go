package sender

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/dexwallet/tx-manager/hex"
	"github.com/dexwallet/tx-manager/types"
	"github.com/ethereum/go-ethereum/common"
	ethTypes "github.com/ethereum/go-ethereum/core/types"
)

// SubmitResult carries the broadcast transaction plus the timestamps used to derive
// sign/submit latency telemetry
type SubmitResult struct {
	SignedTx            *ethTypes.Transaction
	TimestampBeforeSign time.Time
	TimestampBeforeSend time.Time
}

// SignAndSubmitTransaction signs the request for the account and broadcasts it through the
// provider. If the request carries no nonce, the provider's pending count is used. The caller
// owns all state bookkeeping; this function only talks to the chain.
func SignAndSubmitTransaction(ctx context.Context, request *types.TxRequest, account common.Address, provider Provider, signerManager SignerManager) (*SubmitResult, error) {
	if request.Nonce == nil {
		pending, err := provider.PendingNonceAt(ctx, account)
		if err != nil {
			return nil, fmt.Errorf("getting pending nonce: %w", err)
		}
		request.Nonce = &pending
	}

	tx, err := buildTransaction(request)
	if err != nil {
		return nil, err
	}

	signer, err := signerManager.SignerFor(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("getting signer for %s: %w", account.Hex(), err)
	}

	timestampBeforeSign := time.Now()
	signedTx, err := signer.SignTx(account, tx, new(big.Int).SetUint64(request.ChainID))
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}

	timestampBeforeSend := time.Now()
	if err := provider.SendTransaction(ctx, signedTx); err != nil {
		return nil, err
	}

	return &SubmitResult{
		SignedTx:            signedTx,
		TimestampBeforeSign: timestampBeforeSign,
		TimestampBeforeSend: timestampBeforeSend,
	}, nil
}

func buildTransaction(request *types.TxRequest) (*ethTypes.Transaction, error) {
	var data []byte
	if request.Data != "" {
		var err error
		data, err = hex.DecodeHex(request.Data)
		if err != nil {
			return nil, fmt.Errorf("invalid request data: %w", err)
		}
	}

	to := common.HexToAddress(request.To)
	value := request.Value
	if value == nil {
		value = new(big.Int)
	}

	if request.MaxFeePerGas != nil {
		return ethTypes.NewTx(&ethTypes.DynamicFeeTx{
			ChainID:   new(big.Int).SetUint64(request.ChainID),
			Nonce:     *request.Nonce,
			To:        &to,
			Value:     value,
			Gas:       request.Gas,
			GasFeeCap: request.MaxFeePerGas,
			GasTipCap: request.MaxPriorityFeePerGas,
			Data:      data,
		}), nil
	}

	return ethTypes.NewTx(&ethTypes.LegacyTx{
		Nonce:    *request.Nonce,
		To:       &to,
		Value:    value,
		Gas:      request.Gas,
		GasPrice: request.GasPrice,
		Data:     data,
	}), nil
}
