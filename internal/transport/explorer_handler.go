// Package transport exposes the indexer's HTTP API.
package transport

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/model"
	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/store"
)

const (
	defaultPageLimit = 25
	maxPageLimit     = 100
)

// ExplorerHandler serves read-only queries against the local index.
type ExplorerHandler struct {
	index store.Reader
	log   *zap.Logger
}

// NewExplorerHandler returns an ExplorerHandler instance.
func NewExplorerHandler(index store.Reader, logger *zap.Logger) *ExplorerHandler {
	return &ExplorerHandler{index: index, log: logger}
}

// Register mounts the explorer routes on the given router group.
func (h *ExplorerHandler) Register(r gin.IRouter) {
	r.GET("/blocks", h.listBlocks)
	r.GET("/blocks/:id", h.getBlock)
	r.GET("/blocks/:id/transactions", h.listBlockTransactions)
	r.GET("/transactions", h.listTransactions)
	r.GET("/transactions/:txid", h.getTransaction)
	r.GET("/addresses/:address", h.getAddress)
	r.GET("/mempool", h.listMempool)
	r.GET("/search", h.search)
}

func (h *ExplorerHandler) listBlocks(c *gin.Context) {
	limit, offset, ok := pageParams(c)
	if !ok {
		return
	}
	blocks, err := h.index.LatestBlocks(c.Request.Context(), limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	total, err := h.index.BlockCount(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"blocks": blocks, "total": total})
}

func (h *ExplorerHandler) getBlock(c *gin.Context) {
	ctx := c.Request.Context()
	blk, err := h.blockByID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	txs, err := h.index.TransactionsByBlockHash(ctx, blk.Hash)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"block": blk, "transactions": txs})
}

func (h *ExplorerHandler) listBlockTransactions(c *gin.Context) {
	blk, err := h.blockByID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	txs, err := h.index.TransactionsByBlockHash(c.Request.Context(), blk.Hash)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"block_hash": blk.Hash, "transactions": txs, "count": len(txs)})
}

// blockByID resolves the :id path segment as a block hash first and as a
// height when it is numeric.
func (h *ExplorerHandler) blockByID(c *gin.Context) (*model.Block, error) {
	ctx := c.Request.Context()
	id := c.Param("id")

	blk, err := h.index.BlockByHash(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		if height, parseErr := strconv.ParseUint(id, 10, 64); parseErr == nil {
			return h.index.BlockByHeight(ctx, height)
		}
	}
	return blk, err
}

func (h *ExplorerHandler) listTransactions(c *gin.Context) {
	limit, offset, ok := pageParams(c)
	if !ok {
		return
	}
	txs, err := h.index.LatestTransactions(c.Request.Context(), limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	total, err := h.index.TransactionCount(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs, "total": total})
}

func (h *ExplorerHandler) getTransaction(c *gin.Context) {
	ctx := c.Request.Context()
	tx, err := h.index.TransactionByTxID(ctx, c.Param("txid"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	inputs, err := h.index.InputsByTransactionID(ctx, tx.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	outputs, err := h.index.OutputsByTransactionID(ctx, tx.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": tx, "inputs": inputs, "outputs": outputs})
}

func (h *ExplorerHandler) getAddress(c *gin.Context) {
	limit, offset, ok := pageParams(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	addr, err := h.index.AddressByAddr(ctx, c.Param("address"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	outputs, err := h.index.OutputsByAddress(ctx, addr.Address, limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": addr, "outputs": outputs})
}

func (h *ExplorerHandler) listMempool(c *gin.Context) {
	txids, err := h.index.UnconfirmedTxIDs(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"txids": txids, "count": len(txids)})
}

// search dispatches one query string across heights, block hashes, txids and
// addresses, in that order.
func (h *ExplorerHandler) search(c *gin.Context) {
	ctx := c.Request.Context()
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query"})
		return
	}

	if height, err := strconv.ParseUint(q, 10, 64); err == nil {
		blk, err := h.index.BlockByHeight(ctx, height)
		if err == nil {
			c.JSON(http.StatusOK, gin.H{"type": "block", "block": blk})
			return
		}
		if !errors.Is(err, store.ErrNotFound) {
			h.respondError(c, err)
			return
		}
	}

	blk, err := h.index.BlockByHash(ctx, q)
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"type": "block", "block": blk})
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		h.respondError(c, err)
		return
	}

	tx, err := h.index.TransactionByTxID(ctx, q)
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"type": "transaction", "transaction": tx})
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		h.respondError(c, err)
		return
	}

	addr, err := h.index.AddressByAddr(ctx, q)
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"type": "address", "address": addr})
		return
	}
	h.respondError(c, err)
}

func (h *ExplorerHandler) respondError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	h.log.Error("request failed",
		zap.String("path", c.FullPath()),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// pageParams parses limit and offset, writing a 400 response itself when
// either is malformed.
func pageParams(c *gin.Context) (limit, offset int, ok bool) {
	limit = defaultPageLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return 0, 0, false
		}
		if parsed > maxPageLimit {
			parsed = maxPageLimit
		}
		limit = parsed
	}
	if raw := c.Query("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})
			return 0, 0, false
		}
		offset = parsed
	}
	return limit, offset, true
}
