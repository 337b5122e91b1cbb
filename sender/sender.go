package sender

import (
	"context"
	"strings"
	"time"

	"github.com/dexwallet/tx-manager/log"
	"github.com/dexwallet/tx-manager/metrics"
	"github.com/dexwallet/tx-manager/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Sender orchestrates transaction execution: it wraps SignAndSubmitTransaction with the
// store bookkeeping and uniform error classification. Provider, signer manager and nonce
// resolver are passed explicitly per call so the submission path stays free of hidden
// global lookups.
type Sender struct {
	cfg   Config
	store storeInterface
}

// ExecuteInput is everything one transaction execution needs
type ExecuteInput struct {
	Request  types.TxRequest
	Account  common.Address
	TypeInfo types.TypeInfo
	Routing  types.Routing

	// SubmitPrivately marks the tx as broadcast through a private relay for nonce
	// accounting purposes
	SubmitPrivately bool

	Provider      Provider
	SignerManager SignerManager
	NonceResolver NonceResolver
}

// NewSender creates a transaction execution orchestrator
func NewSender(cfg Config, store storeInterface) *Sender {
	return &Sender{cfg: cfg, store: store}
}

// ExecuteTransaction submits one transaction and records it in the store. On success the
// record is added as pending and then updated with the broadcast hash, normalized request
// fields and timing telemetry. On failure the record is still added (so the attempt shows
// up in history), immediately finalized as failed, and a classified error is returned.
func (s *Sender) ExecuteTransaction(ctx context.Context, input ExecuteInput) (*types.TransactionDetails, error) {
	request := input.Request
	request.Normalize()

	if request.Nonce == nil && input.NonceResolver != nil {
		result := input.NonceResolver.TryGetNonce(ctx, input.Account)
		if result.Nonce != nil {
			request.Nonce = result.Nonce
			log.Debugf("resolved nonce %d for %s on chain %d (pending private txs: %d)",
				*result.Nonce, input.Account.Hex(), request.ChainID, result.PendingPrivateTxCount)
		}
	}

	routing := input.Routing
	if routing == "" {
		routing = types.RoutingClassic
	}

	details := &types.TransactionDetails{
		ID:        uuid.NewString(),
		ChainID:   request.ChainID,
		From:      strings.ToLower(input.Account.Hex()),
		Routing:   routing,
		TypeInfo:  input.TypeInfo,
		Status:    types.StatusPending,
		AddedTime: time.Now(),
		Options: types.TxOptions{
			Request:            request,
			SubmittedPrivately: input.SubmitPrivately,
		},
	}

	result, err := SignAndSubmitTransaction(ctx, &details.Options.Request, input.Account, input.Provider, input.SignerManager)
	if err != nil {
		classified := ClassifySendError(err)

		// Record the attempt before finalizing so it is visible in history even though it
		// never reached the chain.
		if addErr := s.store.AddTransaction(details); addErr != nil {
			log.Errorf("error adding failed tx %s to the store, error: %v", details.Tag(), addErr)
		}
		if _, finErr := s.store.FinalizeTransaction(details.From, details.ChainID, details.ID, types.StatusFailed, nil); finErr != nil {
			log.Errorf("error finalizing failed tx %s, error: %v", details.Tag(), finErr)
		}

		metrics.TxSubmitted(metrics.ResultFailed)
		log.Warnf("tx %s submission failed, error: %v", details.Tag(), classified)
		return nil, classified
	}

	if err := s.store.AddTransaction(details); err != nil {
		log.Errorf("error adding tx %s to the store, error: %v", details.Tag(), err)
	}

	now := time.Now()
	details.Hash = strings.ToLower(result.SignedTx.Hash().Hex())
	nonce := result.SignedTx.Nonce()
	details.Options.Request.Nonce = &nonce
	details.Options.Request.Gas = result.SignedTx.Gas()
	details.Options.RPCSubmissionDelayMs = now.Sub(result.TimestampBeforeSend).Milliseconds()
	details.Options.SignTransactionDelayMs = result.TimestampBeforeSend.Sub(result.TimestampBeforeSign).Milliseconds()
	details.Options.TimeoutTimestampMs = now.Add(s.submitTimeout()).UnixMilli()

	if err := s.store.UpdateTransaction(details); err != nil {
		log.Errorf("error updating tx %s in the store, error: %v", details.Tag(), err)
	}

	metrics.TxSubmitted(metrics.ResultOK)
	metrics.ObserveSignDelay(details.Options.SignTransactionDelayMs)
	metrics.ObserveSubmissionDelay(details.Options.RPCSubmissionDelayMs)

	log.Infof("tx %s submitted with nonce %d", details.Tag(), nonce)
	return details.Copy(), nil
}

func (s *Sender) submitTimeout() time.Duration {
	if s.cfg.SubmitTimeout.Duration > 0 {
		return s.cfg.SubmitTimeout.Duration
	}
	return 10 * time.Minute
}
