package storage

import (
	"context"
	"fmt"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/matrixise/wallet-activity/internal/wallet"
	"github.com/samber/lo"
)

const selectColumns = `id, coin, chain_id, status, tx_type, from_address, to_address,
	contract_address, value, gas_limit, gas_price, message, created_at`

// Store manages PostgreSQL operations
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new PostgreSQL store with connection pooling
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 1 * time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.AfterConnect = func(_ context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close closes the connection pool
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies the connection is alive
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// AllTransactions returns every transaction sent or received by an account of the
// keyrings, oldest first
func (s *Store) AllTransactions(ctx context.Context, keyrings []wallet.Keyring) ([]wallet.TransactionRecord, error) {
	keyrings = lo.Filter(keyrings, func(k wallet.Keyring, _ int) bool { return len(k.Accounts) > 0 })
	if len(keyrings) == 0 {
		return nil, nil
	}

	batch := &pgx.Batch{}
	for _, k := range keyrings {
		addresses := lo.Map(k.Accounts, func(a wallet.AccountInfo, _ int) string {
			return normalizeAddress(k.Coin, a.Address)
		})
		batch.Queue(`SELECT `+selectColumns+`
			FROM wallet_transactions
			WHERE coin = $1 AND (from_address = ANY($2) OR to_address = ANY($2))
			ORDER BY created_at, id`,
			int32(k.Coin), addresses,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	var records []wallet.TransactionRecord
	for _, k := range keyrings {
		rows, err := br.Query()
		if err != nil {
			return nil, fmt.Errorf("query %s transactions: %w", k.Coin, err)
		}
		got, err := collectRecords(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s transactions: %w", k.Coin, err)
		}
		records = append(records, got...)
	}
	return records, nil
}

// TransactionMessages returns the serialized messages of the given transactions, skipping
// records without one
func (s *Store) TransactionMessages(ctx context.Context, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, message FROM wallet_transactions WHERE id = ANY($1) AND message <> ''`, ids)
	if err != nil {
		return nil, fmt.Errorf("query transaction messages: %w", err)
	}
	defer rows.Close()

	messages := make(map[string]string, len(ids))
	for rows.Next() {
		var id, message string
		if err := rows.Scan(&id, &message); err != nil {
			return nil, fmt.Errorf("scan transaction message: %w", err)
		}
		messages[id] = message
	}
	return messages, rows.Err()
}

// UpsertTransactions inserts records or updates existing ones by id using pgx.Batch
func (s *Store) UpsertTransactions(ctx context.Context, records []wallet.TransactionRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		row := rowFromRecord(r)
		batch.Queue(`
			INSERT INTO wallet_transactions
			(id, coin, chain_id, status, tx_type, from_address, to_address, contract_address,
			 value, gas_limit, gas_price, message, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (id) DO UPDATE SET
				status = EXCLUDED.status,
				gas_limit = EXCLUDED.gas_limit,
				gas_price = EXCLUDED.gas_price,
				message = EXCLUDED.message,
				updated_at = now()`,
			row.ID, row.Coin, row.ChainID, row.Status, row.Type, row.From, row.To,
			row.ContractAddress, row.Value, row.GasLimit, row.GasPrice, row.Message, row.CreatedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for _, r := range records {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert transaction %s: %w", r.ID, err)
		}
	}
	return nil
}

func collectRecords(rows pgx.Rows) ([]wallet.TransactionRecord, error) {
	defer rows.Close()
	var records []wallet.TransactionRecord
	for rows.Next() {
		var row transactionRow
		if err := rows.Scan(
			&row.ID, &row.Coin, &row.ChainID, &row.Status, &row.Type, &row.From, &row.To,
			&row.ContractAddress, &row.Value, &row.GasLimit, &row.GasPrice, &row.Message, &row.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, row.record())
	}
	return records, rows.Err()
}
