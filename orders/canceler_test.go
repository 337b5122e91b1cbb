package orders

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/dexwallet/tx-manager/hex"
	"github.com/dexwallet/tx-manager/sender"
	"github.com/dexwallet/tx-manager/store"
	"github.com/dexwallet/tx-manager/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFrom = "0xabc0000000000000000000000000000000000001"

// encodedOrderWithNonce builds a payload whose nonce word matches the decoder's expectation
// for the routing
func encodedOrderWithNonce(routing types.Routing, nonce *big.Int) string {
	index := nonceWordIndex[routing]
	payload := make([]byte, (index+2)*32)
	nonce.FillBytes(payload[index*32 : (index+1)*32])
	return hex.EncodeToHex(payload)
}

func newOrder(id string, nonce *big.Int) *types.TransactionDetails {
	return &types.TransactionDetails{
		ID:        id,
		ChainID:   1,
		From:      testFrom,
		Routing:   types.RoutingDutchV2,
		Status:    types.StatusPending,
		AddedTime: time.Now(),
		UniswapXOrder: &types.UniswapXOrderDetails{
			OrderHash:    "0xhash-" + id,
			EncodedOrder: encodedOrderWithNonce(types.RoutingDutchV2, nonce),
		},
	}
}

type builderMock struct {
	candidates []types.CancellationCandidate
	requests   []types.TxRequest
	err        error
}

func (m *builderMock) BuildBatchCancellation(candidates []types.CancellationCandidate, chainID uint64, from string) ([]types.TxRequest, error) {
	m.candidates = candidates
	return m.requests, m.err
}

type submitterMock struct {
	calls int
	err   error
}

func (m *submitterMock) SendCancellationTransaction(ctx context.Context, from string, request types.TxRequest) (*types.TransactionDetails, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &types.TransactionDetails{ID: "cancel-tx", ChainID: request.ChainID, From: from, Status: types.StatusPending}, nil
}

func addOrders(t *testing.T, st *store.Store, orders ...*types.TransactionDetails) {
	t.Helper()
	for _, order := range orders {
		require.NoError(t, st.AddTransaction(order))
	}
}

func TestCancelOrdersValidation(t *testing.T) {
	canceler := NewCanceler(store.New(nil), &builderMock{}, &submitterMock{}, nil, nil)

	_, err := canceler.CancelOrders(context.Background(), testFrom, nil)
	assert.ErrorIs(t, err, ErrNoOrders)

	a := newOrder("o-1", big.NewInt(1))
	b := newOrder("o-2", big.NewInt(2))
	b.ChainID = 10
	_, err = canceler.CancelOrders(context.Background(), testFrom, []*types.TransactionDetails{a, b})
	assert.ErrorIs(t, err, ErrMixedChains)
}

func TestCancelOrdersBuildsAndSubmits(t *testing.T) {
	st := store.New(nil)
	a := newOrder("o-1", big.NewInt(5))
	b := newOrder("o-2", big.NewInt(6))
	addOrders(t, st, a, b)

	builder := &builderMock{requests: []types.TxRequest{{ChainID: 1, To: Permit2Address}}}
	submitter := &submitterMock{}
	canceler := NewCanceler(st, builder, submitter, nil, nil)

	txs, err := canceler.CancelOrders(context.Background(), testFrom, []*types.TransactionDetails{a, b})
	require.NoError(t, err)
	require.Len(t, txs, 1)

	// exactly the two eligible orders reached the builder
	require.Len(t, builder.candidates, 2)
	assert.Equal(t, "0xhash-o-1", builder.candidates[0].OrderHash)
	assert.Equal(t, "0xhash-o-2", builder.candidates[1].OrderHash)
	assert.Equal(t, 1, submitter.calls)

	// the optimistic status update stays in place on success
	assert.Equal(t, types.StatusCancelling, st.GetTransaction(testFrom, 1, "o-1").Status)
	assert.Equal(t, types.StatusCancelling, st.GetTransaction(testFrom, 1, "o-2").Status)
}

func TestCancelOrdersEmptyBuildRollsBack(t *testing.T) {
	st := store.New(nil)
	a := newOrder("o-1", big.NewInt(5))
	addOrders(t, st, a)

	builder := &builderMock{requests: nil}
	submitter := &submitterMock{}
	canceler := NewCanceler(st, builder, submitter, nil, nil)

	txs, err := canceler.CancelOrders(context.Background(), testFrom, []*types.TransactionDetails{a})
	require.NoError(t, err)
	assert.Nil(t, txs)

	// nothing was submitted and the order is back to its pre-call status
	assert.Equal(t, 0, submitter.calls)
	assert.Equal(t, types.StatusPending, st.GetTransaction(testFrom, 1, "o-1").Status)
}

func TestCancelOrdersSubmitFailureRollsBack(t *testing.T) {
	st := store.New(nil)
	a := newOrder("o-1", big.NewInt(5))
	addOrders(t, st, a)

	builder := &builderMock{requests: []types.TxRequest{{ChainID: 1, To: Permit2Address}}}
	submitter := &submitterMock{err: errors.New("rpc unreachable")}
	canceler := NewCanceler(st, builder, submitter, nil, nil)

	txs, err := canceler.CancelOrders(context.Background(), testFrom, []*types.TransactionDetails{a})
	assert.Error(t, err)
	assert.Nil(t, txs)
	assert.Equal(t, types.StatusPending, st.GetTransaction(testFrom, 1, "o-1").Status)
}

func TestCancelOrdersUserRejectionIsRecovered(t *testing.T) {
	st := store.New(nil)
	a := newOrder("o-1", big.NewInt(5))
	addOrders(t, st, a)

	builder := &builderMock{requests: []types.TxRequest{{ChainID: 1, To: Permit2Address}}}
	submitter := &submitterMock{err: sender.ClassifySendError(errors.New("user rejected the request"))}
	canceler := NewCanceler(st, builder, submitter, nil, nil)

	txs, err := canceler.CancelOrders(context.Background(), testFrom, []*types.TransactionDetails{a})
	assert.NoError(t, err)
	assert.Nil(t, txs)
	assert.Equal(t, types.StatusPending, st.GetTransaction(testFrom, 1, "o-1").Status)
}

func TestCancelOrdersMissingPayloadsExcludedWithoutFetcher(t *testing.T) {
	st := store.New(nil)
	withPayload := newOrder("o-1", big.NewInt(5))
	withoutPayload := newOrder("o-2", big.NewInt(6))
	withoutPayload.UniswapXOrder.EncodedOrder = ""
	addOrders(t, st, withPayload, withoutPayload)

	builder := &builderMock{requests: []types.TxRequest{{ChainID: 1, To: Permit2Address}}}
	canceler := NewCanceler(st, builder, &submitterMock{}, nil, nil)

	_, err := canceler.CancelOrders(context.Background(), testFrom, []*types.TransactionDetails{withPayload, withoutPayload})
	require.NoError(t, err)

	require.Len(t, builder.candidates, 1)
	assert.Equal(t, "0xhash-o-1", builder.candidates[0].OrderHash)
	// the excluded order was never marked cancelling
	assert.Equal(t, types.StatusPending, st.GetTransaction(testFrom, 1, "o-2").Status)
}

type fetcherMock struct {
	payloads map[string]string
}

func (m *fetcherMock) FetchEncodedOrders(ctx context.Context, chainID uint64, orderHashes []string) (map[string]string, error) {
	out := map[string]string{}
	for _, hash := range orderHashes {
		if payload, found := m.payloads[hash]; found {
			out[hash] = payload
		}
	}
	return out, nil
}

func TestCancelOrdersFetcherFillsMissingPayloads(t *testing.T) {
	st := store.New(nil)
	withoutPayload := newOrder("o-1", big.NewInt(5))
	withoutPayload.UniswapXOrder.EncodedOrder = ""
	addOrders(t, st, withoutPayload)

	fetcher := &fetcherMock{payloads: map[string]string{
		"0xhash-o-1": encodedOrderWithNonce(types.RoutingDutchV2, big.NewInt(5)),
	}}
	builder := &builderMock{requests: []types.TxRequest{{ChainID: 1, To: Permit2Address}}}
	canceler := NewCanceler(st, builder, &submitterMock{}, fetcher, nil)

	_, err := canceler.CancelOrders(context.Background(), testFrom, []*types.TransactionDetails{withoutPayload})
	require.NoError(t, err)
	require.Len(t, builder.candidates, 1)
	assert.NotEmpty(t, builder.candidates[0].EncodedOrder)
}

func TestPermit2BuilderGroupsNoncesByWord(t *testing.T) {
	builder, err := NewPermit2Builder()
	require.NoError(t, err)

	candidates := []types.CancellationCandidate{
		{OrderHash: "0x1", Routing: types.RoutingDutchV2, EncodedOrder: encodedOrderWithNonce(types.RoutingDutchV2, big.NewInt(5))},
		{OrderHash: "0x2", Routing: types.RoutingDutchV2, EncodedOrder: encodedOrderWithNonce(types.RoutingDutchV2, big.NewInt(6))},
		{OrderHash: "0x3", Routing: types.RoutingDutchV2, EncodedOrder: encodedOrderWithNonce(types.RoutingDutchV2, big.NewInt(300))},
	}

	requests, err := builder.BuildBatchCancellation(candidates, 1, testFrom)
	require.NoError(t, err)

	// nonces 5 and 6 share word 0, nonce 300 lives in word 1
	require.Len(t, requests, 2)
	for _, request := range requests {
		assert.Equal(t, uint64(1), request.ChainID)
		assert.Equal(t, Permit2Address, request.To)
		assert.NotEmpty(t, request.Data)
	}
}

func TestDecodeOrderNonce(t *testing.T) {
	nonce := new(big.Int).SetUint64(123456789)

	for _, routing := range []types.Routing{types.RoutingDutchV2, types.RoutingDutchV3, types.RoutingLimit, types.RoutingPriority} {
		decoded, err := DecodeOrderNonce(encodedOrderWithNonce(routing, nonce), routing)
		require.NoError(t, err, string(routing))
		assert.Equal(t, 0, nonce.Cmp(decoded), string(routing))
	}

	_, err := DecodeOrderNonce("0x1234", types.RoutingDutchV2)
	assert.Error(t, err, "payload too short")

	_, err = DecodeOrderNonce(encodedOrderWithNonce(types.RoutingDutchV2, nonce), types.RoutingClassic)
	assert.Error(t, err, "classic txs have no order nonce")
}
