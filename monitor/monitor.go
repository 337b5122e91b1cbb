package monitor

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/dexwallet/tx-manager/log"
	"github.com/dexwallet/tx-manager/metrics"
	"github.com/dexwallet/tx-manager/store"
	"github.com/dexwallet/tx-manager/types"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// Monitor supervises every in-flight transaction. One goroutine is forked per watched tx
// and stays with the record for its whole life; it races receipt arrival (of the tx itself
// and, once a cancellation is in flight, of the cancellation hash) against user
// cancel/replace signals and invalidation by another tx mined with the same nonce. A single
// failed watch never takes the supervisor down.
type Monitor struct {
	cfg       Config
	store     storeInterface
	providers ProviderRegistry

	cancelDriver  CancelDriver
	replaceDriver ReplaceDriver
	rampFetcher   FiatOnRampFetcher

	// OnRefetch, when set, is invoked after a finalization so external data layers can
	// refresh their view of the address
	OnRefetch func(address string)

	// OnFirstSwap, when set, is invoked when an address completes its first-ever
	// successful swap
	OnFirstSwap func(address string)

	watchList *watchList
	ctx       context.Context
	cancel    context.CancelFunc
}

// ErrFiatOnRampNotFound is the fetcher's translation of a 404 from the ramp provider. It
// means "not indexed yet", not failure.
var ErrFiatOnRampNotFound = errors.New("fiat on-ramp transaction not found")

// NewMonitor creates the transaction watcher supervisor
func NewMonitor(cfg Config, st storeInterface, providers ProviderRegistry, cancelDriver CancelDriver, replaceDriver ReplaceDriver, rampFetcher FiatOnRampFetcher) *Monitor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		cfg:       cfg,
		store:     st,
		providers: providers,

		cancelDriver:  cancelDriver,
		replaceDriver: replaceDriver,
		rampFetcher:   rampFetcher,

		watchList: newWatchList(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start begins reacting to new transactions and re-forks watchers for every tx already in
// an incomplete state, so nothing in flight is ever silently un-monitored across a restart.
func (m *Monitor) Start() {
	go m.dispatchLoop()

	log.Infof("resuming watch of incomplete transactions from the store")
	m.watchIncompleteTransactions()
}

// Stop terminates every watcher
func (m *Monitor) Stop() {
	m.cancel()
}

// Summary logs the current watcher counts
func (m *Monitor) Summary() {
	log.Infof("watching %d transactions, %d past their advisory timeout", m.watchList.len(), m.watchList.overdue(time.Now()))
}

func (m *Monitor) dispatchLoop() {
	sub := m.store.Subscribe(func(ev store.Event) bool {
		return ev.Kind == store.EventTxAdded || ev.Kind == store.EventTxUpdated
	})
	defer sub.Close()

	for {
		select {
		case <-m.ctx.Done():
			return
		case ev := <-sub.C():
			m.maybeWatch(ev.Tx)
		}
	}
}

func (m *Monitor) watchIncompleteTransactions() {
	for _, tx := range m.store.GetIncompleteTransactions() {
		m.maybeWatch(tx)
	}
}

// maybeWatch forks a watcher for the tx if it is watchable and not watched yet. Fiat
// purchases follow their own polling loop; orders with no settlement hash yet have nothing
// to poll and are resolved by reconciliation instead.
func (m *Monitor) maybeWatch(tx *types.TransactionDetails) {
	if tx.Status.IsFinal() {
		return
	}
	if tx.IsFiatPurchase() {
		if m.rampFetcher == nil {
			return
		}
		if m.watchList.add(&watchEntry{txID: tx.ID, chainID: tx.ChainID, hash: tx.Hash}) {
			go m.watchFiatOnRampTransaction(tx)
		}
		return
	}
	if tx.Hash == "" {
		return
	}
	deadline := time.Time{}
	if tx.Options.TimeoutTimestampMs > 0 {
		deadline = time.UnixMilli(tx.Options.TimeoutTimestampMs)
	}
	if m.watchList.add(&watchEntry{txID: tx.ID, chainID: tx.ChainID, hash: tx.Hash, deadline: deadline}) {
		go m.watchTransaction(tx)
	}
}

func (m *Monitor) watchTransaction(tx *types.TransactionDetails) {
	defer m.watchList.delete(tx.ID)

	provider, err := m.providers.ProviderFor(tx.ChainID)
	if err != nil {
		log.Errorf("error getting provider for chain %d, tx %s will not be watched, error: %v", tx.ChainID, tx.Tag(), err)
		return
	}

	cancelSub := m.store.Subscribe(func(ev store.Event) bool {
		return ev.Kind == store.EventCancelRequested && ev.Tx.ChainID == tx.ChainID && ev.Tx.ID == tx.ID
	})
	defer cancelSub.Close()

	replaceSub := m.store.Subscribe(func(ev store.Event) bool {
		return ev.Kind == store.EventReplaceRequested && ev.Tx.ChainID == tx.ChainID && ev.Tx.ID == tx.ID
	})
	defer replaceSub.Close()

	// any other tx of the same account finalizing with our nonce proves this one can never
	// be mined. A cancellation attempt is part of this record rather than a record of its
	// own, so it can never trip this filter.
	var invalidCh <-chan store.Event
	if nonce := tx.Nonce(); nonce != nil {
		want := *nonce
		invalidSub := m.store.Subscribe(func(ev store.Event) bool {
			return ev.Kind == store.EventTxFinalized &&
				ev.Tx.ChainID == tx.ChainID && ev.Tx.ID != tx.ID &&
				strings.EqualFold(ev.Tx.From, tx.From) &&
				ev.Tx.Nonce() != nil && *ev.Tx.Nonce() == want
		})
		defer invalidSub.Close()
		invalidCh = invalidSub.C()
	}

	// someone else (e.g. the reconciliation merger) may finalize or delete the record
	// while we are still polling
	doneSub := m.store.Subscribe(func(ev store.Event) bool {
		return (ev.Kind == store.EventTxFinalized || ev.Kind == store.EventTxDeleted) &&
			ev.Tx.ChainID == tx.ChainID && ev.Tx.ID == tx.ID
	})
	defer doneSub.Close()

	log.Infof("watching tx %s on chain %d", tx.Tag(), tx.ChainID)

	if m.cfg.InitialWaitInterval.Duration > 0 {
		select {
		case <-m.ctx.Done():
			return
		case <-time.After(m.cfg.InitialWaitInterval.Duration):
		}
	}

	ticker := time.NewTicker(m.cfg.ReceiptCheckInterval.Duration)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return

		case <-ticker.C:
			if receipt, err := m.checkReceipt(provider, tx.Hash); err == nil {
				m.finalizeFromReceipt(provider, tx, receipt, false)
				return
			} else if !errors.Is(err, ethereum.NotFound) {
				log.Errorf("error getting receipt for tx %s, error: %v", tx.Tag(), err)
			}

			cancelHash := tx.Options.CancelHash
			if cancelHash == "" {
				continue
			}
			receipt, err := m.checkReceipt(provider, cancelHash)
			if err != nil {
				if !errors.Is(err, ethereum.NotFound) {
					log.Errorf("error getting receipt for cancellation tx %s of tx %s, error: %v", cancelHash, tx.Tag(), err)
				}
				continue
			}
			if receipt.status != 1 {
				// the cancellation reverted on chain; the original can still be mined
				log.Warnf("cancellation tx %s of tx %s reverted, watching the original only", cancelHash, tx.Tag())
				tx.Options.CancelHash = ""
				continue
			}
			m.finalizeFromReceipt(provider, tx, receipt, true)
			return

		case <-cancelSub.C():
			if m.cancelDriver == nil {
				log.Warnf("cancel requested for tx %s but no cancel driver is configured", tx.Tag())
				continue
			}
			// the driver attaches the cancellation hash to the record; from here on this
			// watcher polls both hashes and whichever lands decides the outcome
			if err := m.cancelDriver.DriveCancellation(m.ctx, tx.Copy()); err != nil {
				log.Errorf("error driving cancellation for tx %s, error: %v", tx.Tag(), err)
				continue
			}
			if current := m.store.GetTransaction(tx.From, tx.ChainID, tx.ID); current != nil {
				tx = current
			}

		case ev := <-replaceSub.C():
			if m.replaceDriver == nil {
				log.Warnf("replace requested for tx %s but no replace driver is configured", tx.Tag())
				continue
			}
			// the replacement gets a record and watcher of its own; this watcher stays on
			// the original, which gets invalidated if the replacement finalizes first
			if err := m.replaceDriver.SubmitReplacement(m.ctx, tx.Copy(), *ev.Request); err != nil {
				log.Errorf("error submitting replacement for tx %s, error: %v", tx.Tag(), err)
			}

		case ev := <-invalidChOrNever(invalidCh):
			m.invalidate(tx, ev.Tx)
			return

		case <-doneSub.C():
			log.Debugf("tx %s was finalized or deleted externally, stopping watch", tx.Tag())
			return
		}
	}
}

// invalidChOrNever lets the select compile when the tx has no nonce to be invalidated by
func invalidChOrNever(ch <-chan store.Event) <-chan store.Event {
	if ch != nil {
		return ch
	}
	return neverCh
}

var neverCh = make(chan store.Event)

func (m *Monitor) checkReceipt(provider Provider, hash string) (*receiptResult, error) {
	ctx := m.ctx
	if m.cfg.RPCReadTimeout.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.RPCReadTimeout.Duration)
		defer cancel()
	}

	receipt, err := provider.TransactionReceipt(ctx, common.HexToHash(hash))
	if err != nil {
		return nil, err
	}
	return &receiptResult{
		status:            receipt.Status,
		blockNumber:       receipt.BlockNumber.Uint64(),
		gasUsed:           receipt.GasUsed,
		effectiveGasPrice: receipt.EffectiveGasPrice,
	}, nil
}

// finalizeFromReceipt closes out the record once one of its hashes got mined. The cancelled
// flag says the receipt belongs to the cancellation hash; the original's own hash landing
// means the action executed even if a cancellation was in flight.
func (m *Monitor) finalizeFromReceipt(provider Provider, tx *types.TransactionDetails, receipt *receiptResult, cancelled bool) {
	current := m.store.GetTransaction(tx.From, tx.ChainID, tx.ID)
	if current == nil {
		log.Debugf("tx %s disappeared from the store before finalization", tx.Tag())
		return
	}

	status := types.StatusFailed
	if cancelled {
		status = types.StatusCancelled
	} else if receipt.status == 1 {
		status = types.StatusSuccess
	}

	confirmations := uint64(1)
	if head, err := provider.BlockNumber(m.ctx); err == nil && head >= receipt.blockNumber {
		confirmations = head - receipt.blockNumber + 1
	}

	_, err := m.store.FinalizeTransaction(tx.From, tx.ChainID, tx.ID, status, &types.Receipt{
		BlockNumber:       receipt.blockNumber,
		Confirmations:     confirmations,
		GasUsed:           receipt.gasUsed,
		EffectiveGasPrice: receipt.effectiveGasPrice,
		ConfirmedTime:     time.Now(),
	})
	if err != nil {
		log.Errorf("error finalizing tx %s, error: %v", tx.Tag(), err)
		return
	}

	log.Infof("tx %s finalized with status %s at block %d", tx.Tag(), status, receipt.blockNumber)
	metrics.TxFinalized(string(status))
	m.store.SetNotificationStatus(tx.From, true)

	if m.OnRefetch != nil {
		m.OnRefetch(tx.From)
	}
	if status == types.StatusSuccess && tx.TypeInfo != nil && tx.TypeInfo.Kind() == types.TypeKindSwap {
		if m.store.CountSuccessfulSwaps(tx.From) == 1 && m.OnFirstSwap != nil {
			m.OnFirstSwap(tx.From)
		}
	}
}

func (m *Monitor) invalidate(tx *types.TransactionDetails, winner *types.TransactionDetails) {
	current := m.store.GetTransaction(tx.From, tx.ChainID, tx.ID)
	if current == nil {
		return
	}
	wasCancelling := current.Status == types.StatusCancelling

	if err := m.store.DeleteTransaction(tx.From, tx.ChainID, tx.ID); err != nil {
		log.Errorf("error deleting invalidated tx %s, error: %v", tx.Tag(), err)
		return
	}

	log.Infof("tx %s invalidated, superseded by %s with the same nonce", tx.Tag(), winner.Tag())
	metrics.TxInvalidated()

	if wasCancelling {
		// the cancellation never landed before something else consumed the nonce
		m.store.PushNotification(types.Notification{
			Address: tx.From,
			Kind:    "error",
			Message: "Unable to cancel transaction",
			ChainID: tx.ChainID,
			TxID:    tx.ID,
		})
	}
}

type receiptResult struct {
	status            uint64
	blockNumber       uint64
	gasUsed           uint64
	effectiveGasPrice *big.Int
}
