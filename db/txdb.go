package db

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/dexwallet/tx-manager/types"
	"github.com/hermeznetwork/tracerr"
	"github.com/jackc/pgx/v4/pgxpool"
)

// TxDB is the Postgres persistence layer for transaction records. It implements
// store.Persister and provides the recovery queries used at startup.
type TxDB struct {
	db *pgxpool.Pool
}

// NewTxDB creates and initializes a TxDB instance
func NewTxDB(cfg Config) (*TxDB, error) {
	sqlDB, err := NewSQLDB(cfg)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}

	return &TxDB{db: sqlDB}, nil
}

// UpsertTransaction inserts or overwrites a transaction record
func (t *TxDB) UpsertTransaction(ctx context.Context, tx *types.TransactionDetails) error {
	const sql = `
		INSERT INTO wallet.transaction
		(id, chain_id, from_address, routing, status, added_time, updated_at, hash, order_hash, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (from_address, chain_id, id) DO UPDATE SET status = $5, updated_at = $7, hash = $8, order_hash = $9, details = $10
	`

	details, err := json.Marshal(tx)
	if err != nil {
		return tracerr.Wrap(err)
	}

	_, err = t.db.Exec(ctx, sql, tx.ID, tx.ChainID, strings.ToLower(tx.From), string(tx.Routing), string(tx.Status),
		tx.AddedTime, time.Now(), tx.Hash, tx.OrderHash(), details)
	if err != nil {
		return tracerr.Wrap(err)
	}

	return nil
}

// DeleteTransaction removes a transaction record
func (t *TxDB) DeleteTransaction(ctx context.Context, from string, chainID uint64, id string) error {
	const sql = "DELETE FROM wallet.transaction WHERE from_address = $1 AND chain_id = $2 AND id = $3"

	_, err := t.db.Exec(ctx, sql, strings.ToLower(from), chainID, id)
	if err != nil {
		return tracerr.Wrap(err)
	}

	return nil
}

// GetIncompleteTransactions returns every record not yet in a terminal status. Used to
// rehydrate the store and resume watchers after a restart.
func (t *TxDB) GetIncompleteTransactions(ctx context.Context) ([]*types.TransactionDetails, error) {
	const sql = "SELECT details FROM wallet.transaction WHERE status NOT IN ($1, $2, $3, $4)"

	rows, err := t.db.Query(ctx, sql,
		string(types.StatusSuccess), string(types.StatusFailed), string(types.StatusCancelled), string(types.StatusUnknown))
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// GetTransactionsByAddress returns every record for an address
func (t *TxDB) GetTransactionsByAddress(ctx context.Context, from string) ([]*types.TransactionDetails, error) {
	const sql = "SELECT details FROM wallet.transaction WHERE from_address = $1 ORDER BY added_time DESC"

	rows, err := t.db.Query(ctx, sql, strings.ToLower(from))
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

type pgxRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanTransactions(rows pgxRows) ([]*types.TransactionDetails, error) {
	var txs []*types.TransactionDetails
	for rows.Next() {
		var details []byte
		if err := rows.Scan(&details); err != nil {
			return nil, tracerr.Wrap(err)
		}

		tx := &types.TransactionDetails{}
		if err := json.Unmarshal(details, tx); err != nil {
			return nil, tracerr.Wrap(err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, tracerr.Wrap(err)
	}

	return txs, nil
}
