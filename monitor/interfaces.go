package monitor

import (
	"context"

	"github.com/dexwallet/tx-manager/store"
	"github.com/dexwallet/tx-manager/types"
	"github.com/ethereum/go-ethereum/common"
	ethTypes "github.com/ethereum/go-ethereum/core/types"
)

type storeInterface interface {
	Subscribe(filter func(store.Event) bool) *store.Subscription
	GetTransaction(from string, chainID uint64, id string) *types.TransactionDetails
	GetIncompleteTransactions() []*types.TransactionDetails
	FinalizeTransaction(from string, chainID uint64, id string, status types.TransactionStatus, receipt *types.Receipt) (*types.TransactionDetails, error)
	DeleteTransaction(from string, chainID uint64, id string) error
	UpsertFiatOnRampTransaction(tx *types.TransactionDetails)
	PushNotification(n types.Notification)
	SetNotificationStatus(address string, hasNotifications bool)
	CountSuccessfulSwaps(from string) int
}

// Provider is the chain RPC surface the watcher needs
type Provider interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethTypes.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// ProviderRegistry resolves a chain provider per chain id
type ProviderRegistry interface {
	ProviderFor(chainID uint64) (Provider, error)
}

// CancelDriver submits an on-chain cancellation attempt for a watched tx
type CancelDriver interface {
	DriveCancellation(ctx context.Context, tx *types.TransactionDetails) error
}

// ReplaceDriver submits the replacement parameters of a watched tx as a new attempt
type ReplaceDriver interface {
	SubmitReplacement(ctx context.Context, tx *types.TransactionDetails, newRequest types.TxRequest) error
}

// FiatOnRampFetcher polls the ramp provider for the current state of an off-chain purchase.
// A not-found response must be returned as ErrFiatOnRampNotFound.
type FiatOnRampFetcher interface {
	FetchFiatOnRampTransaction(ctx context.Context, previous *types.TransactionDetails) (*types.TransactionDetails, error)
}
