package orders

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dexwallet/tx-manager/log"
	"github.com/dexwallet/tx-manager/metrics"
	"github.com/dexwallet/tx-manager/sender"
	"github.com/dexwallet/tx-manager/types"
	"github.com/hermeznetwork/tracerr"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoOrders is returned when the cancellation set is empty
	ErrNoOrders = errors.New("no orders to cancel")
	// ErrMixedChains is returned when the cancellation set spans more than one chain
	ErrMixedChains = errors.New("orders to cancel must share one chain")
)

// Canceler drives batched UniswapX order cancellations. Orders are invalidated on chain by
// flipping their permit2 nonce bits, so one transaction can cancel every order whose nonce
// shares a 256-bit word.
type Canceler struct {
	store     storeInterface
	builder   CancellationBuilder
	submitter Submitter
	fetcher   EncodedOrderFetcher
	analytics Analytics
}

// NewCanceler creates the cancellation pipeline. fetcher and analytics may be nil.
func NewCanceler(store storeInterface, builder CancellationBuilder, submitter Submitter, fetcher EncodedOrderFetcher, analytics Analytics) *Canceler {
	return &Canceler{
		store:     store,
		builder:   builder,
		submitter: submitter,
		fetcher:   fetcher,
		analytics: analytics,
	}
}

// CancelOrders cancels a batch of orders belonging to one account on one chain. Every order
// actually attempted is marked Cancelling before anything touches the chain; if the batch
// cannot be submitted, every status is reverted to its pre-call value.
//
// Recoverable outcomes (user rejection, context cancellation, an empty build) roll back and
// return nil without an error. The returned transactions are the broadcast invalidation txs.
func (c *Canceler) CancelOrders(ctx context.Context, from string, orders []*types.TransactionDetails) ([]*types.TransactionDetails, error) {
	if len(orders) == 0 {
		return nil, tracerr.Wrap(ErrNoOrders)
	}
	chainID := orders[0].ChainID
	for _, order := range orders {
		if order.ChainID != chainID {
			return nil, tracerr.Wrap(fmt.Errorf("%w: got chains %d and %d", ErrMixedChains, chainID, order.ChainID))
		}
	}

	candidates, attempted := c.collectCandidates(ctx, chainID, orders)
	if len(candidates) == 0 {
		log.Warnf("none of the %d orders carry enough data to build a cancellation", len(orders))
		return nil, nil
	}

	if c.analytics != nil {
		hashes := make([]string, len(candidates))
		for i, candidate := range candidates {
			hashes[i] = candidate.OrderHash
		}
		go c.analytics.CancellationInitiated(chainID, hashes)
	}

	snapshot := c.markCancelling(from, chainID, attempted)

	requests, err := c.builder.BuildBatchCancellation(candidates, chainID, from)
	if err != nil {
		c.rollback(from, chainID, snapshot)
		metrics.CancellationBatch(metrics.ResultFailed)
		log.Errorf("error building cancellation batch for %d orders on chain %d, error: %v", len(candidates), chainID, err)
		return nil, tracerr.Wrap(err)
	}
	if len(requests) == 0 {
		// treated like a throw so orders never get stuck in Cancelling
		c.rollback(from, chainID, snapshot)
		log.Warnf("cancellation builder returned no transactions for %d orders on chain %d", len(candidates), chainID)
		return nil, nil
	}

	txs := make([]*types.TransactionDetails, 0, len(requests))
	for _, request := range requests {
		tx, err := c.submitter.SendCancellationTransaction(ctx, from, request)
		if err != nil {
			c.rollback(from, chainID, snapshot)
			switch {
			case errors.Is(err, context.Canceled):
				log.Debugf("cancellation batch on chain %d abandoned, context canceled", chainID)
				return nil, nil
			case errors.Is(err, sender.ErrUserRejected):
				log.Warnf("cancellation batch on chain %d rejected by the user", chainID)
				return nil, nil
			default:
				metrics.CancellationBatch(metrics.ResultFailed)
				log.Errorf("error submitting cancellation tx on chain %d, error: %v", chainID, err)
				return nil, tracerr.Wrap(err)
			}
		}
		txs = append(txs, tx)
	}

	metrics.CancellationBatch(metrics.ResultOK)
	log.Infof("submitted %d cancellation txs for %d orders on chain %d", len(txs), len(candidates), chainID)
	return txs, nil
}

// collectCandidates filters the batch down to orders with both an order hash and an encoded
// payload, fetching missing payloads through the injected fetcher when one is configured.
// Orders that still lack a payload are excluded from this batch, never blocking it.
func (c *Canceler) collectCandidates(ctx context.Context, chainID uint64, orders []*types.TransactionDetails) ([]types.CancellationCandidate, []*types.TransactionDetails) {
	var ready, missing []*types.TransactionDetails
	for _, order := range orders {
		if order.UniswapXOrder == nil || order.UniswapXOrder.OrderHash == "" {
			continue
		}
		if order.UniswapXOrder.EncodedOrder != "" {
			ready = append(ready, order)
		} else {
			missing = append(missing, order)
		}
	}

	fetched := map[string]string{}
	if len(missing) > 0 {
		if c.fetcher == nil {
			log.Warnf("excluding %d orders without encoded payloads, no order fetcher configured", len(missing))
		} else {
			hashes := make([]string, len(missing))
			for i, order := range missing {
				hashes[i] = order.UniswapXOrder.OrderHash
			}
			var err error
			fetched, err = c.fetchEncodedOrders(ctx, chainID, hashes)
			if err != nil {
				log.Warnf("error fetching encoded payloads for %d orders, excluding them, error: %v", len(missing), err)
				fetched = map[string]string{}
			}
		}
	}

	candidates := make([]types.CancellationCandidate, 0, len(ready)+len(fetched))
	attempted := make([]*types.TransactionDetails, 0, len(ready)+len(fetched))
	for _, order := range ready {
		candidates = append(candidates, types.CancellationCandidate{
			OrderHash:    order.UniswapXOrder.OrderHash,
			EncodedOrder: order.UniswapXOrder.EncodedOrder,
			Routing:      order.Routing,
		})
		attempted = append(attempted, order)
	}
	for _, order := range missing {
		encoded, found := fetched[order.UniswapXOrder.OrderHash]
		if !found || encoded == "" {
			continue
		}
		candidates = append(candidates, types.CancellationCandidate{
			OrderHash:    order.UniswapXOrder.OrderHash,
			EncodedOrder: encoded,
			Routing:      order.Routing,
		})
		attempted = append(attempted, order)
	}
	return candidates, attempted
}

// fetchEncodedOrders queries the order-status API in parallel chunks so a large batch does
// not serialize behind one oversized request
func (c *Canceler) fetchEncodedOrders(ctx context.Context, chainID uint64, hashes []string) (map[string]string, error) {
	const chunkSize = 25

	var mutex sync.Mutex
	fetched := map[string]string{}

	group, groupCtx := errgroup.WithContext(ctx)
	for start := 0; start < len(hashes); start += chunkSize {
		end := start + chunkSize
		if end > len(hashes) {
			end = len(hashes)
		}
		chunk := hashes[start:end]
		group.Go(func() error {
			part, err := c.fetcher.FetchEncodedOrders(groupCtx, chainID, chunk)
			if err != nil {
				return err
			}
			mutex.Lock()
			for hash, encoded := range part {
				fetched[hash] = encoded
			}
			mutex.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return fetched, nil
}

// markCancelling flips every attempted order to Cancelling and returns the statuses to
// restore on rollback
func (c *Canceler) markCancelling(from string, chainID uint64, attempted []*types.TransactionDetails) map[string]types.TransactionStatus {
	snapshot := map[string]types.TransactionStatus{}
	for _, order := range attempted {
		current := c.store.GetTransaction(from, chainID, order.ID)
		if current == nil {
			continue
		}
		snapshot[order.ID] = current.Status
		current.Status = types.StatusCancelling
		if err := c.store.UpdateTransaction(current); err != nil {
			log.Errorf("error marking order %s as cancelling, error: %v", current.Tag(), err)
			delete(snapshot, order.ID)
		}
	}
	return snapshot
}

func (c *Canceler) rollback(from string, chainID uint64, snapshot map[string]types.TransactionStatus) {
	for id, status := range snapshot {
		current := c.store.GetTransaction(from, chainID, id)
		if current == nil {
			continue
		}
		current.Status = status
		if err := c.store.UpdateTransaction(current); err != nil {
			log.Errorf("error reverting order %s to status %s, error: %v", current.Tag(), status, err)
		}
	}
}
