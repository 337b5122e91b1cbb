package types

import (
	"fmt"
	"math/big"
	"strings"
	"time"
)

// TxRequest is the raw transaction request, with the fields in the canonical form the rest
// of the system relies on (nonce and gas fields normalized to numbers, addresses and data
// as 0x-prefixed lowercase hex strings).
type TxRequest struct {
	ChainID              uint64   `json:"chainId"`
	To                   string   `json:"to"`
	Data                 string   `json:"data,omitempty"`
	Value                *big.Int `json:"value,omitempty"`
	Nonce                *uint64  `json:"nonce,omitempty"`
	Gas                  uint64   `json:"gas,omitempty"`
	GasPrice             *big.Int `json:"gasPrice,omitempty"`
	MaxFeePerGas         *big.Int `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *big.Int `json:"maxPriorityFeePerGas,omitempty"`
}

// Normalize coerces the request fields into their canonical forms
func (r *TxRequest) Normalize() {
	r.To = strings.ToLower(r.To)
	r.Data = strings.ToLower(r.Data)
	if r.Data != "" && !strings.HasPrefix(r.Data, "0x") {
		r.Data = "0x" + r.Data
	}
}

// TxOptions carries the submission request plus the timing metadata derived at broadcast time
type TxOptions struct {
	Request TxRequest `json:"request"`

	// SubmittedPrivately is true when the tx was broadcast through a private relay. Used by
	// the nonce resolver to account for txs not yet visible in the relay's pending count.
	SubmittedPrivately bool `json:"submittedPrivately,omitempty"`

	// TimeoutTimestampMs is advisory metadata used to flag stuck transactions. It is not an
	// active timer; nothing kills the watch when it elapses.
	TimeoutTimestampMs int64 `json:"timeoutTimestampMs,omitempty"`

	// CancelHash is the hash of the in-flight cancellation tx racing the request under the
	// same nonce. Set while the record is Cancelling; whichever hash is mined first decides
	// the terminal status.
	CancelHash string `json:"cancelHash,omitempty"`

	RPCSubmissionDelayMs   int64 `json:"rpcSubmissionDelayMs,omitempty"`
	SignTransactionDelayMs int64 `json:"signTransactionDelayMs,omitempty"`
}

// Receipt holds the on-chain outcome metadata persisted at finalization
type Receipt struct {
	BlockNumber       uint64    `json:"blockNumber"`
	Confirmations     uint64    `json:"confirmations"`
	GasUsed           uint64    `json:"gasUsed"`
	EffectiveGasPrice *big.Int  `json:"effectiveGasPrice,omitempty"`
	ConfirmedTime     time.Time `json:"confirmedTime"`
}

// UniswapXOrderDetails holds the order-specific fields of a UniswapX transaction record
type UniswapXOrderDetails struct {
	OrderHash string `json:"orderHash"`

	// EncodedOrder is the serialized order payload required to build a cancellation tx.
	// Populated only for locally-created orders not yet synced to the backend.
	EncodedOrder string `json:"encodedOrder,omitempty"`

	QueueStatus QueueStatus `json:"queueStatus,omitempty"`
}

// TransactionDetails is the canonical record of one user-initiated on-chain action. A record
// is exclusively owned by the transaction store, keyed by (From, ChainID, ID); everything else
// holds transient copies.
//
// Before finalization a UniswapX record has exactly one of Hash or Order.OrderHash populated;
// classic records always have Hash once submitted.
type TransactionDetails struct {
	ID      string `json:"id"`
	ChainID uint64 `json:"chainId"`
	From    string `json:"from"`

	Routing  Routing  `json:"routing"`
	TypeInfo TypeInfo `json:"-"`

	Status    TransactionStatus `json:"status"`
	AddedTime time.Time         `json:"addedTime"`

	// Hash is present once broadcast; absent for not-yet-settled UniswapX orders
	Hash string `json:"hash,omitempty"`

	// UniswapXOrder is set for UniswapX routings only
	UniswapXOrder *UniswapXOrderDetails `json:"uniswapXOrder,omitempty"`

	Options TxOptions `json:"options"`
	Receipt *Receipt  `json:"receipt,omitempty"`

	// NetworkFee is the remote indexer's fee figure, overlaid at merge time
	NetworkFee *big.Int `json:"networkFee,omitempty"`
}

// Tag returns a short identifier of the tx for logging
func (t *TransactionDetails) Tag() string {
	h := t.Hash
	if h == "" && t.UniswapXOrder != nil {
		h = t.UniswapXOrder.OrderHash
	}
	return fmt.Sprintf("[%s]:%s", t.ID, h)
}

// OrderHash returns the order hash for UniswapX records, or empty for classic ones
func (t *TransactionDetails) OrderHash() string {
	if t.UniswapXOrder == nil {
		return ""
	}
	return t.UniswapXOrder.OrderHash
}

// Nonce returns the request nonce, or nil if none was ever populated
func (t *TransactionDetails) Nonce() *uint64 {
	return t.Options.Request.Nonce
}

// IsFiatPurchase returns true for on/off-ramp records, which live entirely off chain
func (t *TransactionDetails) IsFiatPurchase() bool {
	if t.TypeInfo == nil {
		return false
	}
	switch t.TypeInfo.Kind() {
	case TypeKindFiatPurchase, TypeKindFiatSale:
		return true
	}
	return false
}

// Copy returns a deep enough copy for handing records across goroutine boundaries.
// TypeInfo variants are value types and safe to share.
func (t *TransactionDetails) Copy() *TransactionDetails {
	c := *t
	if t.UniswapXOrder != nil {
		o := *t.UniswapXOrder
		c.UniswapXOrder = &o
	}
	if t.Receipt != nil {
		r := *t.Receipt
		c.Receipt = &r
	}
	if t.Options.Request.Nonce != nil {
		n := *t.Options.Request.Nonce
		c.Options.Request.Nonce = &n
	}
	return &c
}

// CancellationCandidate is derived at call time from orders that carry everything needed to
// build a cancellation tx. Never persisted.
type CancellationCandidate struct {
	OrderHash    string
	EncodedOrder string
	Routing      Routing
}

// NonceResult is the ephemeral result of nonce resolution. A nil Nonce means resolution
// failed and the caller should proceed without a pre-fetched nonce.
type NonceResult struct {
	Nonce                 *uint64
	PendingPrivateTxCount int
}

// Notification is a user-visible message pushed by the lifecycle components and rendered by
// the UI layers
type Notification struct {
	Address   string    `json:"address"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	ChainID   uint64    `json:"chainId,omitempty"`
	TxID      string    `json:"txId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
