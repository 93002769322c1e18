package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConfig struct {
	NodeID string         `yaml:"node_id"`
	Seeds  []string       `yaml:"seeds"`
	Gossip fakeGossipConf `yaml:"gossip"`
}

type fakeGossipConf struct {
	Fanout int `yaml:"fanout"`
}

func writeConfig(t *testing.T, s string) string {
	f, err := os.CreateTemp(t.TempDir(), "epidemic")
	require.NoError(t, err)
	defer f.Close()

	_, err = f.WriteString(s)
	require.NoError(t, err)
	return f.Name()
}

func TestLoad(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		path := writeConfig(t, `node_id: node-1
seeds:
  - 10.0.0.1:8003
  - 10.0.0.2:8003
gossip:
  fanout: 2`)

		var conf fakeConfig
		require.NoError(t, Load(&conf, path, false))

		assert.Equal(t, "node-1", conf.NodeID)
		assert.Equal(t, []string{"10.0.0.1:8003", "10.0.0.2:8003"}, conf.Seeds)
		assert.Equal(t, 2, conf.Gossip.Fanout)
	})

	t.Run("expand env", func(t *testing.T) {
		t.Setenv("EPIDEMIC_NODE_ID", "node-2")
		t.Setenv("EPIDEMIC_SEED", "10.0.0.1:8003")

		path := writeConfig(t, `node_id: $EPIDEMIC_NODE_ID
seeds:
  - ${EPIDEMIC_SEED}
gossip:
  fanout: ${EPIDEMIC_FANOUT:3}`)

		var conf fakeConfig
		require.NoError(t, Load(&conf, path, true))

		assert.Equal(t, "node-2", conf.NodeID)
		assert.Equal(t, []string{"10.0.0.1:8003"}, conf.Seeds)
		assert.Equal(t, 3, conf.Gossip.Fanout)
	})

	t.Run("expand env disabled", func(t *testing.T) {
		t.Setenv("EPIDEMIC_NODE_ID", "node-2")

		path := writeConfig(t, `node_id: $EPIDEMIC_NODE_ID`)

		var conf fakeConfig
		require.NoError(t, Load(&conf, path, false))

		assert.Equal(t, "$EPIDEMIC_NODE_ID", conf.NodeID)
	})

	t.Run("unknown key", func(t *testing.T) {
		path := writeConfig(t, `unknown: xyz`)

		var conf fakeConfig
		assert.Error(t, Load(&conf, path, false))
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeConfig(t, `invalid yaml...`)

		var conf fakeConfig
		assert.Error(t, Load(&conf, path, false))
	})

	t.Run("not found", func(t *testing.T) {
		var conf fakeConfig
		assert.Error(t, Load(&conf, "/a/b/c/notfound", false))
	})
}
