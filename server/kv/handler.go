// Package kv exposes the local key-value entries over HTTP.
package kv

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/andydunstall/epidemic/pkg/gossip"
	"github.com/andydunstall/epidemic/pkg/kv"
	"github.com/andydunstall/epidemic/pkg/log"
)

const (
	maxValueSize = 1 << 20
)

// Handler reads and writes entries in the local store. Writes are
// replicated to the rest of the cluster by gossip.
type Handler struct {
	store *gossip.Store[kv.Value]

	logger log.Logger
}

func NewHandler(store *gossip.Store[kv.Value], logger log.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger.WithSubsystem("kv"),
	}
}

func (h *Handler) Register(group *gin.RouterGroup) {
	group.GET("/:key", h.getRoute)
	group.PUT("/:key", h.putRoute)
}

func (h *Handler) getRoute(c *gin.Context) {
	v, ok := h.store.Get(c.Param("key"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) putRoute(c *gin.Context) {
	key := c.Param("key")

	b, err := io.ReadAll(io.LimitReader(c.Request.Body, maxValueSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read body"})
		return
	}
	if len(b) > maxValueSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "value too large"})
		return
	}

	v := kv.Put(h.store, key, string(b))

	h.logger.Debug(
		"put",
		zap.String("key", key),
		zap.Int64("revision", v.Revision),
	)

	c.JSON(http.StatusOK, v)
}
