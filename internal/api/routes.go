package api

import (
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rillcoin/rill/internal/blockproducer"
	"github.com/rillcoin/rill/internal/chainstore"
	"github.com/rillcoin/rill/internal/consensus"
	"github.com/rillcoin/rill/internal/mempool"
	"github.com/rillcoin/rill/internal/rillcore"
	"github.com/rillcoin/rill/internal/rilladdr"
)

// APIHandler wires the RPC surface to the node's chain state, mempool
// and PoW hasher. It holds no mutable state of its own.
type APIHandler struct {
	chain  *chainstore.ChainState
	pool   *mempool.Pool
	hasher consensus.PowHasher
	wsHub  *Hub
}

// SetupRouter builds the Gin engine exposing Rill's RPC surface (spec.md
// section 6) under /api/v1, mirroring the CORS and auth/rate-limit
// layering the rest of the stack already uses.
func SetupRouter(chain *chainstore.ChainState, pool *mempool.Pool, hasher consensus.PowHasher, wsHub *Hub) *gin.Engine {
	r := gin.Default()

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	handler := &APIHandler{chain: chain, pool: pool, hasher: hasher, wsHub: wsHub}

	pub := r.Group("/api/v1")
	{
		pub.GET("/health", handler.handleHealth)
		pub.GET("/stream", wsHub.Subscribe)
		pub.GET("/getinfo", handler.handleGetInfo)
		pub.GET("/getblockcount", handler.handleGetBlockCount)
		pub.GET("/getblockchaininfo", handler.handleGetBlockChainInfo)
		pub.GET("/getmempoolinfo", handler.handleGetMempoolInfo)
		pub.GET("/getclusterbalance/:clusterId", handler.handleGetClusterBalance)
		pub.GET("/getutxosbyaddress/:address", handler.handleGetUtxosByAddress)
	}

	// Mutating and template-assembly endpoints sit behind the bearer
	// token (when configured) and a per-IP rate limit, matching the
	// layering the rest of the stack uses for anything that does real
	// work on every call.
	auth := r.Group("/api/v1")
	auth.Use(AuthMiddleware())
	auth.Use(NewRateLimiter(60, 10).Middleware())
	{
		auth.GET("/getblockhash/:height", handler.handleGetBlockHash)
		auth.GET("/getblock/:hash", handler.handleGetBlock)
		auth.GET("/gettransaction/:txid", handler.handleGetTransaction)
		auth.POST("/sendrawtransaction", handler.handleSendRawTransaction)
		auth.GET("/getblocktemplate", handler.handleGetBlockTemplate)
		auth.POST("/submitblock", handler.handleSubmitBlock)
	}

	return r
}

func (h *APIHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "operational"})
}

func (h *APIHandler) handleGetInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"blocks":             h.chain.Height(),
		"network":            "rill-mainnet",
		"circulating_supply": h.chain.CirculatingSupply(),
	})
}

func (h *APIHandler) handleGetBlockCount(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"height": h.chain.Height()})
}

func (h *APIHandler) handleGetBlockChainInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"height":             h.chain.Height(),
		"best_hash":          h.chain.TipHash().String(),
		"circulating_supply": h.chain.CirculatingSupply(),
		"decay_pool_balance": h.chain.DecayPoolBalance(),
		"utxo_count":         h.chain.Utxos().Count(),
	})
}

func (h *APIHandler) handleGetMempoolInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"size":        h.pool.Count(),
		"total_fees":  h.pool.TotalFees(),
	})
}

func (h *APIHandler) handleGetClusterBalance(c *gin.Context) {
	clusterID, err := rillcore.HashFromHex(c.Param("clusterId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cluster id"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cluster_id": clusterID.String(), "balance": h.chain.ClusterBalance(clusterID)})
}

func (h *APIHandler) handleGetUtxosByAddress(c *gin.Context) {
	_, pubkeyHash, err := rilladdr.Decode(c.Param("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address"})
		return
	}
	utxos := h.chain.Utxos().UtxosByPubkeyHash(pubkeyHash)
	c.JSON(http.StatusOK, gin.H{"utxos": utxos})
}

// handleGetBlockHash resolves a height to a block hash. The in-memory
// ChainState tracks only the current tip and its recent LWMA window, so
// this endpoint only resolves the current tip height; any other height
// gets 404, and the node keeps no index of earlier heights.
func (h *APIHandler) handleGetBlockHash(c *gin.Context) {
	height, err := strconv.ParseUint(c.Param("height"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid height"})
		return
	}
	if height != h.chain.Height() {
		c.JSON(http.StatusNotFound, gin.H{"error": "only the current tip height is resolvable from in-memory state"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"hash": h.chain.TipHash().String()})
}

// handleGetBlock resolves the current tip's header by hash; any other
// hash gets 404, since the node keeps no archive of earlier blocks.
func (h *APIHandler) handleGetBlock(c *gin.Context) {
	hash, err := rillcore.HashFromHex(c.Param("hash"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid block hash"})
		return
	}
	if hash != h.chain.TipHash() {
		c.JSON(http.StatusNotFound, gin.H{"error": "block not found; only the current tip is resolvable from in-memory state"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"hash":      hash.String(),
		"height":    h.chain.Height(),
		"timestamp": h.chain.TipTimestamp(),
	})
}

func (h *APIHandler) handleGetTransaction(c *gin.Context) {
	txid, err := rillcore.HashFromHex(c.Param("txid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid txid"})
		return
	}
	tx, ok := h.pool.Get(txid)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found in mempool"})
		return
	}
	c.JSON(http.StatusOK, tx)
}

func (h *APIHandler) handleSendRawTransaction(c *gin.Context) {
	var req struct {
		Raw string `json:"raw" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expected {\"raw\": \"<hex>\"}"})
		return
	}
	raw, err := decodeHex(req.Raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "raw field must be hex"})
		return
	}
	tx, err := rillcore.DecodeTransaction(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.pool.Accept(*tx, h.chain.Utxos(), h.chain.Height()); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"txid": tx.TxID().String()})
}

func (h *APIHandler) handleGetBlockTemplate(c *gin.Context) {
	addr := c.Query("mining_address")
	if addr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mining_address query parameter required"})
		return
	}
	_, pubkeyHash, err := rilladdr.Decode(addr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mining_address"})
		return
	}

	chainView := chainViewAdapter{h.chain}
	tmpl := blockproducer.BuildTemplate(chainView, h.pool, pubkeyHash, nowUnix())

	txBytes := make([][]byte, len(tmpl.Block.Transactions))
	for i := range tmpl.Block.Transactions {
		txBytes[i] = tmpl.Block.Transactions[i].CanonicalBytes()
	}

	c.JSON(http.StatusOK, gin.H{
		"height":            tmpl.Height,
		"prev_hash":         tmpl.Block.Header.PrevHash.String(),
		"merkle_root":       tmpl.Block.Header.MerkleRoot.String(),
		"timestamp":         tmpl.Block.Header.Timestamp,
		"difficulty_target": tmpl.Block.Header.DifficultyTarget,
		"fees":              tmpl.Fees,
		"transactions":      encodeHexAll(txBytes),
	})
}

func (h *APIHandler) handleSubmitBlock(c *gin.Context) {
	var req struct {
		Raw string `json:"raw" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expected {\"raw\": \"<hex>\"}"})
		return
	}
	raw, err := decodeHex(req.Raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "raw field must be hex"})
		return
	}
	block, err := rillcore.DecodeBlock(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.chain.Connect(block, nowUnix()); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.pool.OnBlockConnected(block, h.chain.Utxos(), h.chain.Height())

	hash, err := h.hasher.Hash(&block.Header)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"hash": hash.String()})
}

// chainViewAdapter adapts *chainstore.ChainState to blockproducer.ChainView.
type chainViewAdapter struct{ c *chainstore.ChainState }

func (a chainViewAdapter) Height() uint64              { return a.c.Height() }
func (a chainViewAdapter) TipHash() rillcore.Hash       { return a.c.TipHash() }
func (a chainViewAdapter) TipTimestamp() uint64         { return a.c.TipTimestamp() }
func (a chainViewAdapter) ExpectedDifficulty() uint64   { return a.c.ExpectedDifficulty() }
func (a chainViewAdapter) BlockReward() uint64          { return a.c.BlockReward() }
func (a chainViewAdapter) PoolRelease() uint64          { return a.c.PoolRelease() }
