package gossip

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andydunstall/epidemic/pkg/gossip"
	"github.com/andydunstall/epidemic/pkg/kv"
	"github.com/andydunstall/epidemic/server/status"
)

// Status exposes the known nodes and local entries of the gossip engine.
type Status[V gossip.Versioned[V]] struct {
	engine *gossip.Engine[V]
}

func NewStatus[V gossip.Versioned[V]](engine *gossip.Engine[V]) *Status[V] {
	return &Status[V]{
		engine: engine,
	}
}

func (s *Status[V]) Register(group *gin.RouterGroup) {
	group.GET("/nodes", s.listNodesRoute)
	group.GET("/entries", s.listEntriesRoute)
	group.GET("/entries/:key", s.getEntryRoute)
}

func (s *Status[V]) listNodesRoute(c *gin.Context) {
	local := s.engine.LocalNode()
	nodes := []gossip.Node{local}
	for _, node := range s.engine.Nodes() {
		// Seeds may include the local node.
		if node.Equal(local) {
			continue
		}
		nodes = append(nodes, node)
	}
	c.JSON(http.StatusOK, nodes)
}

func (s *Status[V]) listEntriesRoute(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Store().Entries())
}

func (s *Status[V]) getEntryRoute(c *gin.Context) {
	key := c.Param("key")
	v, ok := s.engine.Store().Get(key)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gossip.Update[V]{
		Key:   key,
		Value: v,
	})
}

var _ status.Handler = &Status[kv.Value]{}
