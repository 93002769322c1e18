package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andydunstall/epidemic/pkg/gossip"
	"github.com/andydunstall/epidemic/pkg/kv"
	"github.com/andydunstall/epidemic/pkg/log"
	"github.com/andydunstall/epidemic/server/config"
)

func testConfig(seeds ...string) *config.Config {
	conf := config.Default()
	conf.Gossip.BindAddr = "127.0.0.1:0"
	conf.Gossip.Interval = time.Millisecond * 10
	conf.Gossip.Timeout = time.Second
	conf.Admin.BindAddr = "127.0.0.1:0"
	conf.Cluster.Seeds = seeds
	conf.GracePeriod = time.Second
	return conf
}

func runServer(t *testing.T, conf *config.Config) *Server {
	t.Helper()

	s, err := NewServer(conf, prometheus.NewRegistry(), log.NewNopLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})

	return s
}

func TestServer(t *testing.T) {
	t.Run("converge", func(t *testing.T) {
		a := runServer(t, testConfig())
		b := runServer(t, testConfig(a.GossipAddr()))

		kv.Put(a.Engine().Store(), "from-a", "foo")
		kv.Put(b.Engine().Store(), "from-b", "bar")

		assert.Eventually(t, func() bool {
			v, ok := b.Engine().Store().Get("from-a")
			return ok && v == kv.Value{Data: "foo", Revision: 1}
		}, time.Second*5, time.Millisecond*10)
		assert.Eventually(t, func() bool {
			v, ok := a.Engine().Store().Get("from-b")
			return ok && v == kv.Value{Data: "bar", Revision: 1}
		}, time.Second*5, time.Millisecond*10)
	})

	t.Run("admin", func(t *testing.T) {
		s := runServer(t, testConfig())

		req, err := http.NewRequest(
			http.MethodPut,
			fmt.Sprintf("http://%s/kv/foo", s.AdminAddr()),
			strings.NewReader("bar"),
		)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		resp, err = http.Get(fmt.Sprintf("http://%s/status/gossip/entries", s.AdminAddr()))
		require.NoError(t, err)
		defer resp.Body.Close()

		var entries []gossip.Update[kv.Value]
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
		assert.Equal(t, []gossip.Update[kv.Value]{
			{Key: "foo", Value: kv.Value{Data: "bar", Revision: 1}},
		}, entries)
	})

	t.Run("node id", func(t *testing.T) {
		conf := testConfig()
		s := runServer(t, conf)
		assert.Equal(t, s.GossipAddr(), conf.Gossip.AdvertiseAddr)
		assert.Equal(t, s.GossipAddr(), conf.Cluster.NodeID)
		assert.Equal(t, s.GossipAddr(), s.Engine().LocalNode().ID)

		conf = testConfig()
		conf.Cluster.NodeIDPrefix = "node-"
		s = runServer(t, conf)
		assert.True(t, strings.HasPrefix(s.Engine().LocalNode().ID, "node-"))
		assert.Greater(t, len(s.Engine().LocalNode().ID), len("node-"))
	})

	t.Run("listen failed", func(t *testing.T) {
		conf := testConfig()
		conf.Gossip.BindAddr = "invalid"
		_, err := NewServer(conf, prometheus.NewRegistry(), log.NewNopLogger())
		assert.Error(t, err)
	})
}

func TestSeedNodes(t *testing.T) {
	local := gossip.Node{ID: "node-1", Addr: "10.0.0.1:8003"}
	assert.Equal(t, []gossip.Node{
		{ID: "10.0.0.2:8003", Addr: "10.0.0.2:8003"},
		{ID: "10.0.0.3:8003", Addr: "10.0.0.3:8003"},
	}, seedNodes([]string{
		"10.0.0.1:8003",
		"10.0.0.2:8003",
		"10.0.0.3:8003",
		"10.0.0.2:8003",
	}, local))

	assert.Empty(t, seedNodes(nil, local))
}

func TestAdvertiseAddrFromBindAddr(t *testing.T) {
	addr, err := advertiseAddrFromBindAddr("10.0.0.1:8003")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1:8003", addr)

	_, err = advertiseAddrFromBindAddr("invalid")
	assert.Error(t, err)
}
