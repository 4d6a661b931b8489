package transport

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/engine"
)

const defaultFullSyncBatch = 100

// SyncHandler exposes operator control over the sync pipeline.
type SyncHandler struct {
	sync Syncer
	log  *zap.Logger
}

// NewSyncHandler returns a SyncHandler instance.
func NewSyncHandler(sync Syncer, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{sync: sync, log: logger}
}

// Register mounts the sync control routes on the given router group.
func (h *SyncHandler) Register(r gin.IRouter) {
	r.GET("/sync/status", h.status)
	r.POST("/sync/start", h.start)
	r.POST("/sync/full", h.startFull)
	r.POST("/sync/mempool", h.reconcileMempool)
	r.GET("/sync/integrity", h.integrity)
	r.GET("/sync/stats", h.stats)
}

func (h *SyncHandler) status(c *gin.Context) {
	status, err := h.sync.Status(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// start kicks off a manual sync cycle in the background. A halted engine is
// cleared by this call, which is the recovery path after a fatal error.
func (h *SyncHandler) start(c *gin.Context) {
	maxBlocks := uint64(0)
	if raw := c.Query("max_blocks"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid max_blocks"})
			return
		}
		maxBlocks = parsed
	}

	status, err := h.sync.Status(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	if status.InProgress {
		c.JSON(http.StatusConflict, gin.H{"error": "sync already running"})
		return
	}

	go func() {
		if err := h.sync.SyncOnce(context.Background(), maxBlocks); err != nil &&
			!errors.Is(err, engine.ErrAlreadyRunning) {
			h.log.Error("manual sync failed", zap.Error(err))
		}
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "max_blocks": maxBlocks})
}

// startFull launches a catch-up to the remote tip in batches, releasing the
// writer flag between batches so reads never starve during a long rebuild.
func (h *SyncHandler) startFull(c *gin.Context) {
	batchSize := uint64(defaultFullSyncBatch)
	if raw := c.Query("batch_size"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch_size"})
			return
		}
		batchSize = parsed
	}

	status, err := h.sync.Status(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	if status.InProgress {
		c.JSON(http.StatusConflict, gin.H{"error": "sync already running"})
		return
	}

	go func() {
		if err := h.sync.SyncFull(context.Background(), batchSize); err != nil &&
			!errors.Is(err, engine.ErrAlreadyRunning) {
			h.log.Error("full sync failed", zap.Error(err))
		}
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "batch_size": batchSize})
}

func (h *SyncHandler) reconcileMempool(c *gin.Context) {
	err := h.sync.ReconcileMempool(c.Request.Context())
	if errors.Is(err, engine.ErrAlreadyRunning) {
		c.JSON(http.StatusConflict, gin.H{"error": "sync already running"})
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *SyncHandler) integrity(c *gin.Context) {
	report, err := h.sync.ValidateIntegrity(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *SyncHandler) stats(c *gin.Context) {
	stats, err := h.sync.Stats(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *SyncHandler) respondError(c *gin.Context, err error) {
	h.log.Error("sync request failed",
		zap.String("path", c.FullPath()),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
