package sender

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/dexwallet/tx-manager/store"
	"github.com/dexwallet/tx-manager/types"
	"github.com/ethereum/go-ethereum/common"
	ethTypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type providerMock struct {
	pendingNonce uint64
	sendErr      error
	sentTx       *ethTypes.Transaction
	nonceCalls   int
}

func (m *providerMock) SendTransaction(ctx context.Context, tx *ethTypes.Transaction) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sentTx = tx
	return nil
}

func (m *providerMock) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	m.nonceCalls++
	return m.pendingNonce, nil
}

func newTestSignerManager(t *testing.T) (SignerManager, common.Address) {
	t.Helper()
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(priv.PublicKey)

	return signerManagerFunc(func(ctx context.Context, account common.Address) (Signer, error) {
		return signerFunc(func(account common.Address, tx *ethTypes.Transaction, chainID *big.Int) (*ethTypes.Transaction, error) {
			return ethTypes.SignTx(tx, ethTypes.LatestSignerForChainID(chainID), priv)
		}), nil
	}), address
}

type signerManagerFunc func(ctx context.Context, account common.Address) (Signer, error)

func (f signerManagerFunc) SignerFor(ctx context.Context, account common.Address) (Signer, error) {
	return f(ctx, account)
}

type signerFunc func(account common.Address, tx *ethTypes.Transaction, chainID *big.Int) (*ethTypes.Transaction, error)

func (f signerFunc) SignTx(account common.Address, tx *ethTypes.Transaction, chainID *big.Int) (*ethTypes.Transaction, error) {
	return f(account, tx, chainID)
}

type resolverMock struct {
	result *types.NonceResult
	calls  int
}

func (m *resolverMock) TryGetNonce(ctx context.Context, account common.Address) *types.NonceResult {
	m.calls++
	return m.result
}

func TestExecuteTransactionSuccess(t *testing.T) {
	st := store.New(nil)
	s := NewSender(Config{}, st)
	provider := &providerMock{}
	signers, account := newTestSignerManager(t)

	nonce := uint64(5)
	resolver := &resolverMock{result: &types.NonceResult{Nonce: &nonce}}

	tx, err := s.ExecuteTransaction(context.Background(), ExecuteInput{
		Request:       types.TxRequest{ChainID: 1, To: "0x2", Gas: 21000, GasPrice: big.NewInt(1)},
		Account:       account,
		Routing:       types.RoutingClassic,
		Provider:      provider,
		SignerManager: signers,
		NonceResolver: resolver,
	})
	require.NoError(t, err)
	require.NotNil(t, tx)

	// the resolver's nonce was injected and survived to the canonical record
	assert.Equal(t, 1, resolver.calls)
	require.NotNil(t, tx.Options.Request.Nonce)
	assert.Equal(t, nonce, *tx.Options.Request.Nonce)

	assert.Equal(t, types.StatusPending, tx.Status)
	assert.NotEmpty(t, tx.Hash)
	assert.Greater(t, tx.Options.TimeoutTimestampMs, int64(0))

	stored := st.GetTransaction(tx.From, tx.ChainID, tx.ID)
	require.NotNil(t, stored)
	assert.Equal(t, tx.Hash, stored.Hash)
}

func TestExecuteTransactionNonceFallback(t *testing.T) {
	st := store.New(nil)
	s := NewSender(Config{}, st)
	provider := &providerMock{pendingNonce: 9}
	signers, account := newTestSignerManager(t)

	// the resolver failed, so the submission path must query the provider directly
	resolver := &resolverMock{result: &types.NonceResult{}}

	tx, err := s.ExecuteTransaction(context.Background(), ExecuteInput{
		Request:       types.TxRequest{ChainID: 1, To: "0x2", Gas: 21000, GasPrice: big.NewInt(1)},
		Account:       account,
		Provider:      provider,
		SignerManager: signers,
		NonceResolver: resolver,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, provider.nonceCalls)
	require.NotNil(t, tx.Options.Request.Nonce)
	assert.Equal(t, uint64(9), *tx.Options.Request.Nonce)
}

func TestExecuteTransactionFailureIsRecorded(t *testing.T) {
	st := store.New(nil)
	s := NewSender(Config{}, st)
	provider := &providerMock{sendErr: errors.New("insufficient funds for gas * price + value")}
	signers, account := newTestSignerManager(t)

	nonce := uint64(1)
	tx, err := s.ExecuteTransaction(context.Background(), ExecuteInput{
		Request:       types.TxRequest{ChainID: 1, To: "0x2", Nonce: &nonce, Gas: 21000, GasPrice: big.NewInt(1)},
		Account:       account,
		Provider:      provider,
		SignerManager: signers,
	})
	require.Error(t, err)
	assert.Nil(t, tx)
	assert.True(t, errors.Is(err, ErrInsufficientFunds))

	// the attempt is still visible in history, finalized as failed
	txs := st.GetTransactions(account.Hex(), 1)
	require.Len(t, txs, 1)
	assert.Equal(t, types.StatusFailed, txs[0].Status)
}

func TestClassifySendError(t *testing.T) {
	type testCase struct {
		Name     string
		Message  string
		Expected error
	}

	testCases := []testCase{
		{Name: "nonce too low", Message: "nonce too low", Expected: ErrNonce},
		{Name: "insufficient funds", Message: "insufficient funds for transfer", Expected: ErrInsufficientFunds},
		{Name: "replacement underpriced", Message: "replacement transaction underpriced", Expected: ErrReplacementUnderpriced},
		{Name: "intrinsic gas", Message: "intrinsic gas too low", Expected: ErrGas},
		{Name: "user rejected", Message: "user rejected the request", Expected: ErrUserRejected},
		{Name: "unknown", Message: "something exploded", Expected: ErrUnknown},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			err := ClassifySendError(errors.New(tc.Message))
			assert.True(t, errors.Is(err, tc.Expected))
		})
	}
}
