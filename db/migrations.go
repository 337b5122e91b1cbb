package db

import (
	"database/sql"
	"fmt"

	"github.com/dexwallet/tx-manager/log"
	"github.com/hermeznetwork/tracerr"
	_ "github.com/jackc/pgx/v4/stdlib"
	migrate "github.com/rubenv/sql-migrate"
)

// WalletMigrationName is the name of the migration set for the wallet tx schema
const WalletMigrationName = "wallet-db"

var migrations = &migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id: "0001_create_wallet_schema",
			Up: []string{
				`CREATE SCHEMA IF NOT EXISTS wallet`,
				`CREATE TABLE IF NOT EXISTS wallet.transaction (
					id VARCHAR(64) NOT NULL,
					chain_id BIGINT NOT NULL,
					from_address VARCHAR(64) NOT NULL,
					routing VARCHAR(32) NOT NULL,
					status VARCHAR(32) NOT NULL,
					added_time TIMESTAMP WITH TIME ZONE NOT NULL,
					updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
					hash VARCHAR(80),
					order_hash VARCHAR(80),
					details JSONB NOT NULL,
					PRIMARY KEY (from_address, chain_id, id)
				)`,
				`CREATE INDEX IF NOT EXISTS idx_transaction_status ON wallet.transaction (status)`,
				`CREATE INDEX IF NOT EXISTS idx_transaction_from ON wallet.transaction (from_address)`,
			},
			Down: []string{
				`DROP TABLE IF EXISTS wallet.transaction`,
				`DROP SCHEMA IF EXISTS wallet`,
			},
		},
	},
}

// RunMigrationsUp runs migrations to apply the wallet schema
func RunMigrationsUp(cfg Config) error {
	return runMigrations(cfg, migrate.Up)
}

// RunMigrationsDown reverts the wallet schema migrations
func RunMigrationsDown(cfg Config) error {
	return runMigrations(cfg, migrate.Down)
}

// CheckMigrations checks that all migrations have been applied
func CheckMigrations(cfg Config) error {
	c, err := sql.Open("pgx", connString(cfg))
	if err != nil {
		return tracerr.Wrap(err)
	}
	defer c.Close()

	records, err := migrate.GetMigrationRecords(c, "postgres")
	if err != nil {
		return tracerr.Wrap(err)
	}

	expected := len(migrations.Migrations)
	if len(records) < expected {
		return fmt.Errorf("%d migrations applied, expected %d; run migrations before starting", len(records), expected)
	}

	log.Infof("successfully checked %d migrations for %s", expected, WalletMigrationName)
	return nil
}

func runMigrations(cfg Config, direction migrate.MigrationDirection) error {
	c, err := sql.Open("pgx", connString(cfg))
	if err != nil {
		return tracerr.Wrap(err)
	}
	defer c.Close()

	nMigrations, err := migrate.Exec(c, "postgres", migrations, direction)
	if err != nil {
		return tracerr.Wrap(err)
	}

	log.Infof("successfully ran %d migrations for %s", nMigrations, WalletMigrationName)
	return nil
}

func connString(cfg Config) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)
}
