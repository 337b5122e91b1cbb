package nonce

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type providerMock struct {
	count uint64
	err   error
	calls int
}

func (m *providerMock) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	m.calls++
	return m.count, m.err
}

type counterMock struct {
	count int
}

func (m *counterMock) PendingPrivateTxCount(from string, chainID uint64) int {
	return m.count
}

func TestTryGetNonce(t *testing.T) {
	account := common.HexToAddress("0x1")

	type testCase struct {
		Name             string
		PublicCount      uint64
		PrivateCount     uint64
		RelayKind        RelayKind
		PrivateEnabled   bool
		PendingPrivate   int
		ExpectedNonce    uint64
		ExpectPublicUsed bool
	}

	testCases := []testCase{
		{
			Name:             "public provider when private is disabled",
			PublicCount:      7,
			PrivateCount:     9,
			RelayKind:        RelayKindLocalBroadcast,
			PrivateEnabled:   false,
			PendingPrivate:   3,
			ExpectedNonce:    7,
			ExpectPublicUsed: true,
		},
		{
			Name:           "local broadcast relay adds pending private txs",
			PublicCount:    7,
			PrivateCount:   9,
			RelayKind:      RelayKindLocalBroadcast,
			PrivateEnabled: true,
			PendingPrivate: 3,
			ExpectedNonce:  12,
		},
		{
			Name:           "aggregated relay uses the raw count",
			PublicCount:    7,
			PrivateCount:   9,
			RelayKind:      RelayKindAggregated,
			PrivateEnabled: true,
			PendingPrivate: 3,
			ExpectedNonce:  9,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			public := &providerMock{count: tc.PublicCount}
			private := &providerMock{count: tc.PrivateCount}
			counter := &counterMock{count: tc.PendingPrivate}

			resolver := NewResolver(1, public, private, tc.RelayKind, tc.PrivateEnabled, counter)
			result := resolver.TryGetNonce(context.Background(), account)

			require.NotNil(t, result.Nonce)
			assert.Equal(t, tc.ExpectedNonce, *result.Nonce)

			if tc.ExpectPublicUsed {
				assert.Equal(t, 1, public.calls)
				assert.Equal(t, 0, private.calls)
			} else {
				assert.Equal(t, 0, public.calls)
				assert.Equal(t, 1, private.calls)
			}
		})
	}
}

func TestTryGetNonceProviderError(t *testing.T) {
	public := &providerMock{err: errors.New("connection refused")}

	resolver := NewResolver(1, public, nil, RelayKindNone, false, nil)
	result := resolver.TryGetNonce(context.Background(), common.HexToAddress("0x1"))

	require.NotNil(t, result)
	assert.Nil(t, result.Nonce)
	assert.Equal(t, 0, result.PendingPrivateTxCount)
}

func TestTryGetNonceNilPrivateFallsBackToPublic(t *testing.T) {
	public := &providerMock{count: 4}

	resolver := NewResolver(1, public, nil, RelayKindLocalBroadcast, true, &counterMock{count: 2})
	result := resolver.TryGetNonce(context.Background(), common.HexToAddress("0x1"))

	require.NotNil(t, result.Nonce)
	assert.Equal(t, uint64(4), *result.Nonce)
	assert.Equal(t, 1, public.calls)
}
