package orders

import (
	"context"

	"github.com/dexwallet/tx-manager/types"
)

type storeInterface interface {
	GetTransaction(from string, chainID uint64, id string) *types.TransactionDetails
	UpdateTransaction(tx *types.TransactionDetails) error
}

// EncodedOrderFetcher retrieves the serialized payloads of orders whose encodedOrder is not
// stored locally, usually from an order-status API. Hashes the API does not know about are
// simply absent from the result.
type EncodedOrderFetcher interface {
	FetchEncodedOrders(ctx context.Context, chainID uint64, orderHashes []string) (map[string]string, error)
}

// CancellationBuilder turns a set of cancellation candidates into the invalidate-nonce
// transaction requests to broadcast. A nil slice with a nil error means nothing to submit.
type CancellationBuilder interface {
	BuildBatchCancellation(candidates []types.CancellationCandidate, chainID uint64, from string) ([]types.TxRequest, error)
}

// Submitter signs and broadcasts one cancellation transaction
type Submitter interface {
	SendCancellationTransaction(ctx context.Context, from string, request types.TxRequest) (*types.TransactionDetails, error)
}

// Analytics receives the fire-and-forget cancellation events
type Analytics interface {
	CancellationInitiated(chainID uint64, orderHashes []string)
}
