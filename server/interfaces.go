package server

import (
	"context"

	"github.com/dexwallet/tx-manager/store"
	"github.com/dexwallet/tx-manager/types"
)

type storeInterface interface {
	GetTransaction(from string, chainID uint64, id string) *types.TransactionDetails
	GetTransactions(from string, chainID uint64) []*types.TransactionDetails
	CancelTransaction(from string, chainID uint64, id string) error
	ReplaceTransaction(from string, chainID uint64, id string, newRequest types.TxRequest) error
	FinalizeTransaction(from string, chainID uint64, id string, status types.TransactionStatus, receipt *types.Receipt) (*types.TransactionDetails, error)
	ForceFetchFiatOnRampTransaction(from string, chainID uint64, id string)
	HasNotifications(address string) bool
	SetNotificationStatus(address string, hasNotifications bool)
	Subscribe(filter func(store.Event) bool) *store.Subscription
}

// RemoteListFetcher retrieves the remote indexer's transaction list for an address. May be
// nil, in which case wallet_getTransactions serves the local view only.
type RemoteListFetcher interface {
	FetchRemoteTransactions(ctx context.Context, address string, chainID uint64) ([]*types.TransactionDetails, error)
}

type chainGate interface {
	IsChainEnabled(chainID uint64) bool
}

type executorInterface interface {
	Execute(ctx context.Context, account string, request types.TxRequest, typeInfo types.TypeInfo, routing types.Routing, private bool) (*types.TransactionDetails, error)
}

type cancelerInterface interface {
	CancelOrders(ctx context.Context, from string, orders []*types.TransactionDetails) ([]*types.TransactionDetails, error)
}
