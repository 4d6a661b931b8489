package transport

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/store"
)

// NewRouter assembles the HTTP API: explorer reads under /api/v1, sync
// control under /api/v1/sync, and a liveness probe at /healthz.
func NewRouter(index store.Reader, syncer Syncer, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET("/healthz", health)

	api := r.Group("/api/v1")
	NewExplorerHandler(index, logger.Named("explorer")).Register(api)
	NewSyncHandler(syncer, logger.Named("sync")).Register(api)
	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(started)))
	}
}

// health reports server liveness.
func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
