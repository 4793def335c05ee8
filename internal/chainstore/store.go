package chainstore

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rillcoin/rill/internal/rillcore"
)

// Store is the durable side of chain state: headers, bodies, utxos,
// cluster balances, the undo log, wallet state and the chain tip, each
// in their own table (playing the role of a column family). Connect and
// Disconnect on ChainState are the in-memory source of truth. Store
// offers write methods only (SaveBlock, SaveTip, SaveClusterBalance);
// ChainState does not call them and nothing reads the tables back, so a
// restarted node does not resume from them.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens the connection pool to PostgreSQL.
func Connect(connStr string) (*Store, error) {
	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("chainstore: unable to connect to database: %w", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("chainstore: ping failed: %w", err)
	}
	log.Println("chainstore: connected to PostgreSQL")
	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema loads and executes schema.sql.
func (s *Store) InitSchema() error {
	schemaBytes, err := os.ReadFile("internal/chainstore/schema.sql")
	if err != nil {
		return fmt.Errorf("chainstore: failed to read schema file: %w", err)
	}
	if _, err := s.pool.Exec(context.Background(), string(schemaBytes)); err != nil {
		return fmt.Errorf("chainstore: failed to execute schema migrations: %w", err)
	}
	log.Println("chainstore: schema initialized")
	return nil
}

// SaveBlock persists a connected block's header, body and resulting
// UTXO deltas in a single transaction, mirroring ChainState.Connect's
// in-memory application.
func (s *Store) SaveBlock(ctx context.Context, height uint64, hash rillcore.Hash, b *rillcore.Block, spent []rillcore.OutPoint, created map[rillcore.OutPoint]rillcore.UtxoEntry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO headers (height, hash, prev_hash, merkle_root, timestamp, difficulty_target, nonce)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (height) DO UPDATE SET hash = EXCLUDED.hash`,
		height, hash[:], b.Header.PrevHash[:], b.Header.MerkleRoot[:], b.Header.Timestamp, b.Header.DifficultyTarget, b.Header.Nonce,
	)
	if err != nil {
		return fmt.Errorf("chainstore: failed to insert header: %w", err)
	}

	var body []byte
	for i := range b.Transactions {
		body = append(body, b.Transactions[i].CanonicalBytes()...)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO bodies (height, transactions) VALUES ($1, $2)
		ON CONFLICT (height) DO UPDATE SET transactions = EXCLUDED.transactions`,
		height, body,
	)
	if err != nil {
		return fmt.Errorf("chainstore: failed to insert body: %w", err)
	}

	for _, op := range spent {
		if _, err := tx.Exec(ctx, `DELETE FROM utxos WHERE txid = $1 AND output_index = $2`, op.TxID[:], op.Index); err != nil {
			return fmt.Errorf("chainstore: failed to delete spent utxo: %w", err)
		}
	}
	for op, entry := range created {
		_, err := tx.Exec(ctx, `
			INSERT INTO utxos (txid, output_index, value, pubkey_hash, block_height, is_coinbase, cluster_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (txid, output_index) DO NOTHING`,
			op.TxID[:], op.Index, entry.Output.Value, entry.Output.PubkeyHash[:], entry.BlockHeight, entry.IsCoinbase, entry.ClusterID[:],
		)
		if err != nil {
			return fmt.Errorf("chainstore: failed to insert utxo: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// SaveTip persists the chain tip summary row used to resume on restart.
func (s *Store) SaveTip(ctx context.Context, height uint64, tipHash rillcore.Hash, supply, poolBalance uint64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO chain_tip (id, height, tip_hash, supply, pool_balance)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET height = EXCLUDED.height, tip_hash = EXCLUDED.tip_hash, supply = EXCLUDED.supply, pool_balance = EXCLUDED.pool_balance`,
		height, tipHash[:], supply, poolBalance,
	)
	return err
}

// SaveClusterBalance upserts a cluster's tracked balance, deleting the
// cluster's row when balance is zero.
func (s *Store) SaveClusterBalance(ctx context.Context, clusterID rillcore.Hash, balance uint64) error {
	if balance == 0 {
		_, err := s.pool.Exec(ctx, `DELETE FROM clusters WHERE cluster_id = $1`, clusterID[:])
		return err
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO clusters (cluster_id, balance) VALUES ($1, $2)
		ON CONFLICT (cluster_id) DO UPDATE SET balance = EXCLUDED.balance`,
		clusterID[:], balance,
	)
	return err
}

// GetPool exposes the underlying connection pool for components that
// need raw access (e.g. an RPC handler answering getblockchaininfo from
// durable state rather than the in-memory ChainState).
func (s *Store) GetPool() *pgxpool.Pool {
	return s.pool
}
