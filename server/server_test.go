package server

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	cfgTypes "github.com/dexwallet/tx-manager/config/types"
	"github.com/dexwallet/tx-manager/store"
	"github.com/dexwallet/tx-manager/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func NewMockConfig() Config {
	return Config{
		Host:                      "0.0.0.0",
		Port:                      8123,
		ReadTimeout:               cfgTypes.NewDuration(time.Second * 60),
		WriteTimeout:              cfgTypes.NewDuration(time.Second * 60),
		MaxRequestsPerIPAndSecond: 100,
	}
}

type executorMock struct {
	lastAccount string
	lastPrivate bool
	result      *types.TransactionDetails
	err         error
}

func (m *executorMock) Execute(ctx context.Context, account string, request types.TxRequest, typeInfo types.TypeInfo, routing types.Routing, private bool) (*types.TransactionDetails, error) {
	m.lastAccount = account
	m.lastPrivate = private
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &types.TransactionDetails{
		ID:      "tx-1",
		ChainID: request.ChainID,
		From:    account,
		Routing: routing,
		Status:  types.StatusPending,
		Options: types.TxOptions{Request: request},
	}, nil
}

type cancelerMock struct {
	lastOrders []*types.TransactionDetails
	result     []*types.TransactionDetails
	err        error
}

func (m *cancelerMock) CancelOrders(ctx context.Context, from string, orders []*types.TransactionDetails) ([]*types.TransactionDetails, error) {
	m.lastOrders = orders
	return m.result, m.err
}

func TestSendTransaction(t *testing.T) {
	errorExecute := errors.New("failed to send transaction: gas_error")

	type testCase struct {
		Name          string
		Args          SendTransactionArgs
		ExecutorError error
		ExpectedError error
	}

	testCases := []testCase{
		{
			Name: "Send tx successfully",
			Args: SendTransactionArgs{
				From:    "0xAbC0000000000000000000000000000000000001",
				Request: types.TxRequest{ChainID: 1, To: "0x2"},
			},
			ExpectedError: nil,
		},
		{
			Name:          "Send tx without from address",
			Args:          SendTransactionArgs{Request: types.TxRequest{ChainID: 1}},
			ExpectedError: NewServerErrorWithData(InvalidParamsErrorCode, "from address is required", nil),
		},
		{
			Name: "Send tx execution failure",
			Args: SendTransactionArgs{
				From:    "0xAbC0000000000000000000000000000000000001",
				Request: types.TxRequest{ChainID: 1, To: "0x2"},
			},
			ExecutorError: errorExecute,
			ExpectedError: NewServerErrorWithData(DefaultErrorCode, errorExecute.Error(), nil),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			executor := &executorMock{err: tc.ExecutorError}
			endpoints := NewEndpoints(NewMockConfig(), store.New(nil), executor, &cancelerMock{}, nil, nil)

			httpRequest := httptest.NewRequest("POST", "/", nil)
			result, err := endpoints.SendTransaction(httpRequest, tc.Args)
			assert.Equal(t, tc.ExpectedError, err)

			if tc.ExpectedError == nil {
				require.NotNil(t, result)
				// the endpoint lowercases the account before executing
				assert.Equal(t, "0xabc0000000000000000000000000000000000001", executor.lastAccount)
			}
		})
	}
}

func TestCancelTransaction(t *testing.T) {
	st := store.New(nil)
	endpoints := NewEndpoints(NewMockConfig(), st, &executorMock{}, &cancelerMock{}, nil, nil)

	tx := &types.TransactionDetails{
		ID:        "tx-1",
		ChainID:   1,
		From:      "0xabc0000000000000000000000000000000000001",
		Routing:   types.RoutingClassic,
		Status:    types.StatusPending,
		AddedTime: time.Now(),
	}
	require.NoError(t, st.AddTransaction(tx))

	result, rpcErr := endpoints.CancelTransaction(tx.From, tx.ChainID, tx.ID)
	require.Nil(t, rpcErr)
	assert.Equal(t, true, result)

	_, rpcErr = endpoints.CancelTransaction(tx.From, tx.ChainID, "missing")
	require.NotNil(t, rpcErr)
	assert.Equal(t, DefaultErrorCode, rpcErr.ErrorCode())
}

func TestCancelOrdersLoadsTrackedOrders(t *testing.T) {
	st := store.New(nil)
	canceler := &cancelerMock{}
	endpoints := NewEndpoints(NewMockConfig(), st, &executorMock{}, canceler, nil, nil)

	order := &types.TransactionDetails{
		ID:        "order-1",
		ChainID:   1,
		From:      "0xabc0000000000000000000000000000000000001",
		Routing:   types.RoutingDutchV2,
		Status:    types.StatusPending,
		AddedTime: time.Now(),
		UniswapXOrder: &types.UniswapXOrderDetails{
			OrderHash:    "0xaaaa",
			EncodedOrder: "0xbbbb",
		},
	}
	require.NoError(t, st.AddTransaction(order))

	httpRequest := httptest.NewRequest("POST", "/", nil)

	_, rpcErr := endpoints.CancelOrders(httpRequest, order.From, order.ChainID, []string{"order-1"})
	require.Nil(t, rpcErr)
	require.Len(t, canceler.lastOrders, 1)
	assert.Equal(t, "order-1", canceler.lastOrders[0].ID)

	_, rpcErr = endpoints.CancelOrders(httpRequest, order.From, order.ChainID, []string{"missing"})
	require.NotNil(t, rpcErr)
	assert.Equal(t, InvalidParamsErrorCode, rpcErr.ErrorCode())
}

func TestGetTransactionsNewestFirst(t *testing.T) {
	st := store.New(nil)
	endpoints := NewEndpoints(NewMockConfig(), st, &executorMock{}, &cancelerMock{}, nil, nil)

	from := "0xabc0000000000000000000000000000000000001"
	older := &types.TransactionDetails{ID: "tx-old", ChainID: 1, From: from, Status: types.StatusPending, AddedTime: time.Now().Add(-time.Hour)}
	newer := &types.TransactionDetails{ID: "tx-new", ChainID: 1, From: from, Status: types.StatusPending, AddedTime: time.Now()}
	require.NoError(t, st.AddTransaction(older))
	require.NoError(t, st.AddTransaction(newer))

	result, rpcErr := endpoints.GetTransactions(httptest.NewRequest("POST", "/", nil), from, 1)
	require.Nil(t, rpcErr)

	txs, ok := result.([]*types.TransactionDetails)
	require.True(t, ok)
	require.Len(t, txs, 2)
	assert.Equal(t, "tx-new", txs[0].ID)
	assert.Equal(t, "tx-old", txs[1].ID)
}

type remoteFetcherMock struct {
	txs []*types.TransactionDetails
	err error
}

func (m *remoteFetcherMock) FetchRemoteTransactions(ctx context.Context, address string, chainID uint64) ([]*types.TransactionDetails, error) {
	return m.txs, m.err
}

func TestGetTransactionsReconcilesRemoteView(t *testing.T) {
	st := store.New(nil)
	from := "0xabc0000000000000000000000000000000000001"

	local := &types.TransactionDetails{ID: "tx-1", ChainID: 1, From: from, Status: types.StatusPending, AddedTime: time.Now(), Hash: "0xaaaa"}
	require.NoError(t, st.AddTransaction(local))

	remote := &types.TransactionDetails{
		ID:        "indexed-1",
		ChainID:   1,
		From:      from,
		Status:    types.StatusSuccess,
		AddedTime: time.Now(),
		Hash:      "0xaaaa",
		Receipt:   &types.Receipt{BlockNumber: 42, Confirmations: 2},
	}
	fetcher := &remoteFetcherMock{txs: []*types.TransactionDetails{remote}}
	endpoints := NewEndpoints(NewMockConfig(), st, &executorMock{}, &cancelerMock{}, fetcher, nil)

	result, rpcErr := endpoints.GetTransactions(httptest.NewRequest("POST", "/", nil), from, 1)
	require.Nil(t, rpcErr)

	txs, ok := result.([]*types.TransactionDetails)
	require.True(t, ok)
	require.Len(t, txs, 1)

	// the indexer's finalized view is applied to the local record, not only returned
	current := st.GetTransaction(from, 1, "tx-1")
	require.NotNil(t, current)
	assert.Equal(t, types.StatusSuccess, current.Status)
	require.NotNil(t, current.Receipt)
	assert.Equal(t, uint64(42), current.Receipt.BlockNumber)
}

func TestGetTransactionsRemoteFailureServesLocalView(t *testing.T) {
	st := store.New(nil)
	from := "0xabc0000000000000000000000000000000000001"

	local := &types.TransactionDetails{ID: "tx-1", ChainID: 1, From: from, Status: types.StatusPending, AddedTime: time.Now(), Hash: "0xaaaa"}
	require.NoError(t, st.AddTransaction(local))

	fetcher := &remoteFetcherMock{err: errors.New("indexer unreachable")}
	endpoints := NewEndpoints(NewMockConfig(), st, &executorMock{}, &cancelerMock{}, fetcher, nil)

	result, rpcErr := endpoints.GetTransactions(httptest.NewRequest("POST", "/", nil), from, 1)
	require.Nil(t, rpcErr)

	txs, ok := result.([]*types.TransactionDetails)
	require.True(t, ok)
	require.Len(t, txs, 1)
	assert.Equal(t, "tx-1", txs[0].ID)
	assert.Equal(t, types.StatusPending, txs[0].Status)
}
