package db

import (
	"context"
	"fmt"

	"github.com/dexwallet/tx-manager/log"
	"github.com/hermeznetwork/tracerr"
	"github.com/jackc/pgx/v4/pgxpool"
)

// NewSQLDB creates a new SQL DB connection pool
func NewSQLDB(cfg Config) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s:%s/%s?pool_max_conns=%d",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name, cfg.MaxConns))
	if err != nil {
		log.Errorf("unable to parse DB config, error: %v", err)
		return nil, tracerr.Wrap(err)
	}

	if cfg.EnableLog {
		config.ConnConfig.Logger = logger{}
	}

	conn, err := pgxpool.ConnectConfig(context.Background(), config)
	if err != nil {
		log.Errorf("unable to connect to Postgres, error: %v", err)
		return nil, tracerr.Wrap(err)
	}

	return conn, nil
}
