package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/dexwallet/tx-manager/log"
	"github.com/dexwallet/tx-manager/store"
	"github.com/dexwallet/tx-manager/types"
)

// watchFiatOnRampTransaction polls the ramp provider until the purchase reaches a terminal
// state. Ramp records have no on-chain hash to poll, so the provider API is the only source
// of truth; a record the provider never learns about is eventually marked unknown instead
// of being watched forever.
func (m *Monitor) watchFiatOnRampTransaction(tx *types.TransactionDetails) {
	defer m.watchList.delete(tx.ID)

	forceSub := m.store.Subscribe(func(ev store.Event) bool {
		return ev.Kind == store.EventFiatOnRampForceFetch && ev.Tx.ID == tx.ID
	})
	defer forceSub.Close()

	log.Infof("watching fiat on-ramp tx %s", tx.Tag())

	ticker := time.NewTicker(m.cfg.FiatOnRampCheckInterval.Duration)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
		case <-forceSub.C():
			log.Debugf("force fetch requested for fiat on-ramp tx %s", tx.Tag())
		}

		current := m.store.GetTransaction(tx.From, tx.ChainID, tx.ID)
		if current == nil || current.Status.IsFinal() {
			return
		}

		updated, err := m.fetchRampTransaction(current)
		if err != nil {
			if errors.Is(err, ErrFiatOnRampNotFound) {
				if m.markStaleIfOverdue(current) {
					return
				}
				continue
			}
			log.Errorf("error fetching fiat on-ramp tx %s, error: %v", current.Tag(), err)
			continue
		}

		m.store.UpsertFiatOnRampTransaction(updated)
		if updated.Status.IsFinal() {
			log.Infof("fiat on-ramp tx %s finalized with status %s", updated.Tag(), updated.Status)
			m.store.SetNotificationStatus(updated.From, true)
			return
		}
	}
}

func (m *Monitor) fetchRampTransaction(current *types.TransactionDetails) (*types.TransactionDetails, error) {
	ctx := m.ctx
	if m.cfg.RPCReadTimeout.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.RPCReadTimeout.Duration)
		defer cancel()
	}
	return m.rampFetcher.FetchFiatOnRampTransaction(ctx, current.Copy())
}

// markStaleIfOverdue finalizes a ramp tx the provider still does not know about after the
// staleness window. Returns true when the watch should stop.
func (m *Monitor) markStaleIfOverdue(current *types.TransactionDetails) bool {
	if time.Since(current.AddedTime) <= m.cfg.FiatOnRampStaleAfter.Duration {
		return false
	}
	_, err := m.store.FinalizeTransaction(current.From, current.ChainID, current.ID, types.StatusUnknown, nil)
	if err != nil {
		log.Errorf("error marking stale fiat on-ramp tx %s as unknown, error: %v", current.Tag(), err)
		return false
	}
	log.Warnf("fiat on-ramp tx %s was never indexed by the provider, marked unknown", current.Tag())
	return true
}
