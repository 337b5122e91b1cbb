package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dexwallet/tx-manager/log"
	"github.com/dexwallet/tx-manager/reconcile"
	"github.com/dexwallet/tx-manager/types"
)

// Endpoints contains the implementations of the wallet RPC methods
type Endpoints struct {
	cfg      Config
	store    storeInterface
	executor executorInterface
	canceler cancelerInterface
	remote   RemoteListFetcher
	chains   chainGate
}

// NewEndpoints creates a new instance of endpoints. remote and chains may be nil; without a
// remote fetcher the transaction list is served from the local store only, and a nil chain
// gate treats every chain as enabled.
func NewEndpoints(cfg Config, store storeInterface, executor executorInterface, canceler cancelerInterface, remote RemoteListFetcher, chains chainGate) *Endpoints {
	return &Endpoints{cfg: cfg, store: store, executor: executor, canceler: canceler, remote: remote, chains: chains}
}

// SendTransactionArgs is the payload of wallet_sendTransaction
type SendTransactionArgs struct {
	From     string          `json:"from"`
	Request  types.TxRequest `json:"request"`
	TypeInfo json.RawMessage `json:"typeInfo,omitempty"`
	Routing  types.Routing   `json:"routing,omitempty"`
	Private  bool            `json:"private,omitempty"`
}

// SendTransaction signs and broadcasts a transaction, tracking it through its lifecycle
func (e *Endpoints) SendTransaction(httpRequest *http.Request, args SendTransactionArgs) (interface{}, Error) {
	if args.From == "" {
		return RPCErrorResponse(InvalidParamsErrorCode, "from address is required", nil, false)
	}

	var typeInfo types.TypeInfo
	if len(args.TypeInfo) > 0 {
		var err error
		typeInfo, err = types.UnmarshalTypeInfo(args.TypeInfo)
		if err != nil {
			return RPCErrorResponse(InvalidParamsErrorCode, "invalid typeInfo", err, false)
		}
	}

	routing := args.Routing
	if routing == "" {
		routing = types.RoutingClassic
	}

	tx, err := e.executor.Execute(httpRequest.Context(), strings.ToLower(args.From), args.Request, typeInfo, routing, args.Private)
	if err != nil {
		log.Errorf("error executing transaction for %s, error: %v", args.From, err)
		return RPCErrorResponse(DefaultErrorCode, err.Error(), nil, false)
	}

	log.Infof("submitted tx %s for %s on chain %d", tx.Tag(), args.From, tx.ChainID)
	return tx, nil
}

// CancelTransaction requests the cancellation of a tracked pending transaction
func (e *Endpoints) CancelTransaction(from string, chainID uint64, id string) (interface{}, Error) {
	if err := e.store.CancelTransaction(strings.ToLower(from), chainID, id); err != nil {
		return RPCErrorResponse(DefaultErrorCode, err.Error(), nil, false)
	}
	return true, nil
}

// ReplaceTransaction requests the replacement of a tracked pending transaction with new
// request parameters (same nonce, typically higher fees)
func (e *Endpoints) ReplaceTransaction(from string, chainID uint64, id string, newRequest types.TxRequest) (interface{}, Error) {
	if err := e.store.ReplaceTransaction(strings.ToLower(from), chainID, id, newRequest); err != nil {
		return RPCErrorResponse(DefaultErrorCode, err.Error(), nil, false)
	}
	return true, nil
}

// CancelOrders submits a batched on-chain cancellation for a set of tracked UniswapX orders
func (e *Endpoints) CancelOrders(httpRequest *http.Request, from string, chainID uint64, ids []string) (interface{}, Error) {
	from = strings.ToLower(from)

	orders := make([]*types.TransactionDetails, 0, len(ids))
	for _, id := range ids {
		order := e.store.GetTransaction(from, chainID, id)
		if order == nil {
			return RPCErrorResponse(InvalidParamsErrorCode, fmt.Sprintf("order %s not found", id), nil, false)
		}
		orders = append(orders, order)
	}

	txs, err := e.canceler.CancelOrders(httpRequest.Context(), from, orders)
	if err != nil {
		return RPCErrorResponse(DefaultErrorCode, err.Error(), nil, false)
	}
	return txs, nil
}

// GetTransactions returns the transactions of an address, newest first. A zero chainID
// returns every chain. When a remote fetcher is configured the local list is reconciled
// with the remote indexer's view; any reconciliation failure falls back to the local list
// so the endpoint stays available.
func (e *Endpoints) GetTransactions(httpRequest *http.Request, from string, chainID uint64) (interface{}, Error) {
	from = strings.ToLower(from)
	local := e.store.GetTransactions(from, chainID)
	if e.remote == nil {
		return local, nil
	}

	remote, err := e.remote.FetchRemoteTransactions(httpRequest.Context(), from, chainID)
	if err != nil {
		log.Warnf("error fetching remote transactions for %s, serving the local view, error: %v", from, err)
		return local, nil
	}

	result, err := reconcile.Merge(local, remote, e.isChainEnabled)
	if err != nil {
		log.Errorf("error reconciling transaction lists for %s, serving the local view, error: %v", from, err)
		return local, nil
	}

	// records the indexer proved finalized are promoted right away instead of waiting for
	// the next receipt poll
	for _, effect := range result.Finalize {
		if _, err := e.store.FinalizeTransaction(effect.From, effect.ChainID, effect.ID, effect.Status, effect.Receipt); err != nil {
			log.Errorf("error applying reconciled finalization to tx %s, error: %v", effect.ID, err)
		}
	}
	return result.Transactions, nil
}

func (e *Endpoints) isChainEnabled(chainID uint64) bool {
	if e.chains == nil {
		return true
	}
	return e.chains.IsChainEnabled(chainID)
}

// HasNotifications reports whether the address has unread activity
func (e *Endpoints) HasNotifications(address string) (interface{}, Error) {
	return e.store.HasNotifications(strings.ToLower(address)), nil
}

// MarkNotificationsRead clears the unread activity flag of an address
func (e *Endpoints) MarkNotificationsRead(address string) (interface{}, Error) {
	e.store.SetNotificationStatus(strings.ToLower(address), false)
	return true, nil
}

// RefreshFiatPurchase forces an immediate status poll of a fiat on-ramp transaction
func (e *Endpoints) RefreshFiatPurchase(from string, chainID uint64, id string) (interface{}, Error) {
	e.store.ForceFetchFiatOnRampTransaction(strings.ToLower(from), chainID, id)
	return true, nil
}
