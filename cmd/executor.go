package main

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/dexwallet/tx-manager/chains"
	"github.com/dexwallet/tx-manager/log"
	"github.com/dexwallet/tx-manager/sender"
	"github.com/dexwallet/tx-manager/signer"
	"github.com/dexwallet/tx-manager/store"
	"github.com/dexwallet/tx-manager/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/hermeznetwork/tracerr"
)

// executor binds the per-call dependencies of the transaction orchestrator: it resolves the
// chain's provider, signer and nonce resolver and delegates to the sender. It also serves
// as the cancel/replace driver for the monitor and the submitter for order cancellations.
type executor struct {
	sender   *sender.Sender
	registry *chains.Registry
	signers  *signer.KeystoreManager
	store    *store.Store
}

func newExecutor(s *sender.Sender, registry *chains.Registry, signers *signer.KeystoreManager, st *store.Store) *executor {
	return &executor{sender: s, registry: registry, signers: signers, store: st}
}

// Execute submits one transaction on behalf of an account
func (e *executor) Execute(ctx context.Context, account string, request types.TxRequest, typeInfo types.TypeInfo, routing types.Routing, private bool) (*types.TransactionDetails, error) {
	provider, err := e.providerFor(request.ChainID, private)
	if err != nil {
		return nil, err
	}

	resolver, err := e.registry.ResolverFor(request.ChainID, private, e.store)
	if err != nil {
		return nil, err
	}

	return e.sender.ExecuteTransaction(ctx, sender.ExecuteInput{
		Request:         request,
		Account:         common.HexToAddress(account),
		TypeInfo:        typeInfo,
		Routing:         routing,
		SubmitPrivately: private,
		Provider:        provider,
		SignerManager:   e.signers,
		NonceResolver:   resolver,
	})
}

// SendCancellationTransaction broadcasts one order invalidation tx
func (e *executor) SendCancellationTransaction(ctx context.Context, from string, request types.TxRequest) (*types.TransactionDetails, error) {
	return e.Execute(ctx, from, request, nil, types.RoutingClassic, false)
}

// transferGasLimit is the intrinsic gas of a plain value transfer, which is all the
// zero-value cancellation self transfer ever needs
const transferGasLimit = uint64(21000)

// DriveCancellation attempts to cancel a pending tx by racing a zero-value self transfer
// with the same nonce and bumped fees. The cancellation never becomes a record of its own;
// its hash is attached to the original record so the watcher can poll both hashes and
// report whichever one lands.
func (e *executor) DriveCancellation(ctx context.Context, tx *types.TransactionDetails) error {
	nonce := tx.Nonce()
	if nonce == nil {
		return tracerr.Wrap(fmt.Errorf("tx %s has no nonce, cannot cancel", tx.Tag()))
	}

	current := e.store.GetTransaction(tx.From, tx.ChainID, tx.ID)
	if current == nil || current.Status.IsFinal() {
		return nil
	}

	var suggested *big.Int
	if tx.Options.Request.GasPrice == nil && tx.Options.Request.MaxFeePerGas == nil {
		// the original carries no fee fields to outbid, so quote the chain instead
		if client, err := e.registry.ClientFor(tx.ChainID); err == nil {
			if price, err := client.SuggestGasPrice(ctx); err == nil {
				suggested = price
			} else {
				log.Warnf("error getting a gas price quote for the cancellation of tx %s, error: %v", tx.Tag(), err)
			}
		}
	}
	request := cancellationRequest(tx, suggested)

	previous := current.Status
	current.Status = types.StatusCancelling
	if err := e.store.UpdateTransaction(current); err != nil {
		return tracerr.Wrap(err)
	}

	provider, err := e.providerFor(tx.ChainID, tx.Options.SubmittedPrivately)
	if err != nil {
		e.revertCancellation(current, previous)
		return err
	}

	result, err := sender.SignAndSubmitTransaction(ctx, &request, common.HexToAddress(tx.From), provider, e.signers)
	if err != nil {
		e.revertCancellation(current, previous)
		return sender.ClassifySendError(err)
	}

	current.Options.CancelHash = strings.ToLower(result.SignedTx.Hash().Hex())
	if err := e.store.UpdateTransaction(current); err != nil {
		log.Errorf("error recording the cancellation hash of tx %s, error: %v", tx.Tag(), err)
	}
	log.Infof("cancellation tx %s racing original tx %s on nonce %d", current.Options.CancelHash, tx.Tag(), *nonce)
	return nil
}

func (e *executor) revertCancellation(current *types.TransactionDetails, previous types.TransactionStatus) {
	current.Status = previous
	if err := e.store.UpdateTransaction(current); err != nil {
		log.Errorf("error reverting the status of tx %s after a failed cancellation, error: %v", current.Tag(), err)
	}
}

// cancellationRequest builds the zero-value self transfer racing the tx under its own
// nonce. A suggested gas price, when given, backstops originals that carry no fee fields.
func cancellationRequest(tx *types.TransactionDetails, suggestedGasPrice *big.Int) types.TxRequest {
	request := types.TxRequest{
		ChainID:              tx.ChainID,
		To:                   tx.From,
		Value:                big.NewInt(0),
		Nonce:                tx.Nonce(),
		Gas:                  transferGasLimit,
		GasPrice:             bumpFee(tx.Options.Request.GasPrice),
		MaxFeePerGas:         bumpFee(tx.Options.Request.MaxFeePerGas),
		MaxPriorityFeePerGas: bumpFee(tx.Options.Request.MaxPriorityFeePerGas),
	}
	if request.GasPrice == nil && request.MaxFeePerGas == nil {
		request.GasPrice = bumpFee(suggestedGasPrice)
	}
	return request
}

// SubmitReplacement broadcasts new request parameters under the original tx's nonce
func (e *executor) SubmitReplacement(ctx context.Context, tx *types.TransactionDetails, newRequest types.TxRequest) error {
	if newRequest.Nonce == nil {
		newRequest.Nonce = tx.Nonce()
	}
	if newRequest.ChainID == 0 {
		newRequest.ChainID = tx.ChainID
	}

	replacement, err := e.Execute(ctx, tx.From, newRequest, tx.TypeInfo, tx.Routing, tx.Options.SubmittedPrivately)
	if err != nil {
		return err
	}
	log.Infof("replacement tx %s racing original tx %s", replacement.Tag(), tx.Tag())
	return nil
}

func (e *executor) providerFor(chainID uint64, private bool) (sender.Provider, error) {
	if private {
		client, err := e.registry.PrivateClientFor(chainID)
		if err != nil {
			return nil, err
		}
		if client != nil {
			return client, nil
		}
		log.Warnf("chain %d has no private relay, falling back to the public endpoint", chainID)
	}
	return e.registry.ClientFor(chainID)
}

// bumpFee raises a fee field by 12.5% so the replacement outbids the original in the mempool
func bumpFee(fee *big.Int) *big.Int {
	if fee == nil {
		return nil
	}
	bumped := new(big.Int).Mul(fee, big.NewInt(9))
	return bumped.Div(bumped, big.NewInt(8))
}
