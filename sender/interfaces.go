package sender

import (
	"context"
	"math/big"

	"github.com/dexwallet/tx-manager/types"
	"github.com/ethereum/go-ethereum/common"
	ethTypes "github.com/ethereum/go-ethereum/core/types"
)

// Provider is the chain RPC surface the sender needs
type Provider interface {
	SendTransaction(ctx context.Context, tx *ethTypes.Transaction) error
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

// Signer signs a transaction for one account
type Signer interface {
	SignTx(account common.Address, tx *ethTypes.Transaction, chainID *big.Int) (*ethTypes.Transaction, error)
}

// SignerManager produces signers per account. Key management is delegated entirely to the
// implementation.
type SignerManager interface {
	SignerFor(ctx context.Context, account common.Address) (Signer, error)
}

// NonceResolver resolves the next safe nonce for an account, or a nil nonce on failure
type NonceResolver interface {
	TryGetNonce(ctx context.Context, account common.Address) *types.NonceResult
}

type storeInterface interface {
	AddTransaction(tx *types.TransactionDetails) error
	UpdateTransaction(tx *types.TransactionDetails) error
	FinalizeTransaction(from string, chainID uint64, id string, status types.TransactionStatus, receipt *types.Receipt) (*types.TransactionDetails, error)
}
