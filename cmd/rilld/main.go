// Command rilld runs a Rill full node: chain-state validation, mempool,
// block-template assembly and the RPC surface. When DATABASE_URL is set
// it connects to Postgres and initialises the schema, but the chain
// state itself lives in memory only: no block, UTXO or tip is written to
// the store, and a restart begins again from genesis.
package main

import (
	"log"
	"os"

	"github.com/rillcoin/rill/internal/api"
	"github.com/rillcoin/rill/internal/chainstore"
	"github.com/rillcoin/rill/internal/consensus"
	"github.com/rillcoin/rill/internal/mempool"
)

func main() {
	log.Println("Starting rilld...")

	dbURL := os.Getenv("DATABASE_URL")
	var store *chainstore.Store
	if dbURL == "" {
		log.Println("WARNING: DATABASE_URL not set — running with in-memory chain state only, nothing will survive a restart")
	} else {
		var err error
		store, err = chainstore.Connect(dbURL)
		if err != nil {
			log.Printf("Warning: failed to connect to PostgreSQL, continuing without durable persistence. Error: %v", err)
			store = nil
		} else {
			defer store.Close()
			if err := store.InitSchema(); err != nil {
				log.Printf("Warning: chain store schema init failed: %v", err)
			}
		}
	}

	hasher := selectHasher(getEnvOrDefault("RILL_POW_ALGO", "blake3"))

	chain := chainstore.NewChainState(hasher)
	pool := mempool.New()

	wsHub := api.NewHub()
	go wsHub.Run()

	r := api.SetupRouter(chain, pool, hasher, wsHub)

	port := getEnvOrDefault("PORT", "5340")
	log.Printf("rilld listening on :%s (height=%d, tip=%s)", port, chain.Height(), chain.TipHash())
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// selectHasher resolves the RILL_POW_ALGO environment variable to a
// consensus.PowHasher. "randomx" is accepted but not functional — see
// DESIGN.md's Open Question decision on RandomX — so a node configured
// for it fails fast at startup instead of mining blocks that would
// later be rejected by peers running the default hasher.
func selectHasher(algo string) consensus.PowHasher {
	switch algo {
	case "blake3":
		return consensus.Blake3Hasher{}
	case "randomx":
		log.Fatal("FATAL: RILL_POW_ALGO=randomx requested but no RandomX binding is linked into this build")
		return nil
	default:
		log.Fatalf("FATAL: unknown RILL_POW_ALGO %q (expected \"blake3\" or \"randomx\")", algo)
		return nil
	}
}

func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
