package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/andydunstall/epidemic/pkg/log"
)

type GossipConfig struct {
	// BindAddr is the address to bind to listen for gossip traffic.
	BindAddr string `json:"bind_addr" yaml:"bind_addr"`

	// AdvertiseAddr is the address to advertise to other nodes.
	AdvertiseAddr string `json:"advertise_addr" yaml:"advertise_addr"`

	// Interval is the rate to initiate a gossip round.
	Interval time.Duration `json:"interval" yaml:"interval"`

	// Fanout is the number of peers to gossip with each round.
	Fanout int `json:"fanout" yaml:"fanout"`

	// Timeout is the maximum duration of a SYN or ACK exchange with a peer.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// DialRetries is the number of times to retry a failed connection to a
	// peer within a round.
	DialRetries int `json:"dial_retries" yaml:"dial_retries"`
}

func (c *GossipConfig) Validate() error {
	if c.BindAddr == "" {
		return fmt.Errorf("missing bind addr")
	}
	if c.Interval == 0 {
		return fmt.Errorf("missing interval")
	}
	if c.Interval < 0 {
		return fmt.Errorf("interval must be positive")
	}
	if c.Fanout < 1 {
		return fmt.Errorf("fanout must be at least 1")
	}
	if c.Timeout == 0 {
		return fmt.Errorf("missing timeout")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.DialRetries < 0 {
		return fmt.Errorf("dial retries cannot be negative")
	}
	return nil
}

func (c *GossipConfig) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVar(
		&c.BindAddr,
		"gossip.bind-addr",
		c.BindAddr,
		`
The host/port to listen for inter-node gossip traffic.

If the host is unspecified it defaults to all listeners, such as
a bind address ':8003' will listen on '0.0.0.0:8003'`,
	)
	fs.StringVar(
		&c.AdvertiseAddr,
		"gossip.advertise-addr",
		c.AdvertiseAddr,
		`
Gossip listen address to advertise to other nodes in the cluster. This is the
address other nodes will used to gossip with the node.

Such as if the listen address is ':8003', the advertised address may be
'10.26.104.45:8003' or 'node1.cluster:8003'.

By default, if the bind address includes an IP to bind to that will be used.
If the bind address does not include an IP (such as ':8003') the nodes
private IP will be used, such as a bind address of ':8003' may have an
advertise address of '10.26.104.14:8003'.`,
	)
	fs.DurationVar(
		&c.Interval,
		"gossip.interval",
		c.Interval,
		`
The interval to initiate rounds of gossip.

Each round selects random peers and exchanges versions of every key with
them, so lowering the interval speeds up convergence at the cost of more
traffic.`,
	)
	fs.IntVar(
		&c.Fanout,
		"gossip.fanout",
		c.Fanout,
		`
The number of peers to gossip with each round.`,
	)
	fs.DurationVar(
		&c.Timeout,
		"gossip.timeout",
		c.Timeout,
		`
Timeout for each SYN or ACK exchange with a peer, including connecting.

If the exchange times out the round fails and is retried on the next
interval.`,
	)
	fs.IntVar(
		&c.DialRetries,
		"gossip.dial-retries",
		c.DialRetries,
		`
The number of times to retry connecting to a peer before failing the round.`,
	)
}

type AdminConfig struct {
	// BindAddr is the address to bind to listen for incoming HTTP connections.
	BindAddr string `json:"bind_addr" yaml:"bind_addr"`

	// TLS configures the admin server to listen on TLS.
	TLS TLSConfig `json:"tls" yaml:"tls"`
}

func (c *AdminConfig) Validate() error {
	if c.BindAddr == "" {
		return fmt.Errorf("missing bind addr")
	}
	if err := c.TLS.Validate(); err != nil {
		return fmt.Errorf("tls: %w", err)
	}
	return nil
}

func (c *AdminConfig) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVar(
		&c.BindAddr,
		"admin.bind-addr",
		c.BindAddr,
		`
The host/port to listen for incoming admin connections.

If the host is unspecified it defaults to all listeners, such as
'--admin.bind-addr :8002' will listen on '0.0.0.0:8002'`,
	)

	c.TLS.RegisterFlags(fs, "admin")
}

type ClusterConfig struct {
	// NodeID is a unique identifier for this node in the cluster.
	NodeID string `json:"node_id" yaml:"node_id"`

	// NodeIDPrefix is a node ID prefix, where the rest of the node ID is
	// generated to ensure uniqueness.
	NodeIDPrefix string `json:"node_id_prefix" yaml:"node_id_prefix"`

	// Seeds contains the gossip addresses of nodes in the cluster.
	Seeds []string `json:"seeds" yaml:"seeds"`
}

func (c *ClusterConfig) Validate() error {
	if c.NodeID != "" && c.NodeIDPrefix != "" {
		return fmt.Errorf("cannot specify both node ID and node ID prefix")
	}
	for _, seed := range c.Seeds {
		if seed == "" {
			return fmt.Errorf("empty seed")
		}
	}
	return nil
}

func (c *ClusterConfig) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVar(
		&c.NodeID,
		"cluster.node-id",
		c.NodeID,
		`
A unique identifier for the node in the cluster.

By default the gossip advertise address is used as the node ID.`,
	)
	fs.StringVar(
		&c.NodeIDPrefix,
		"cluster.node-id-prefix",
		c.NodeIDPrefix,
		`
A prefix for the node ID.

A unique random identifier will be generated for the node and appended to
the given prefix.

Such as you could use the node or pod name as a prefix, then add a unique
identifier to ensure the node ID is unique across restarts.`,
	)
	fs.StringSliceVar(
		&c.Seeds,
		"cluster.seeds",
		c.Seeds,
		`
A list of gossip addresses of nodes in the cluster, such as
'--cluster.seeds 10.26.104.14:8003,10.26.104.75:8003'.

The node gossips with a random subset of the seeds each round. The node's own
advertise address may be included, in which case it is ignored.`,
	)
}

type Config struct {
	Cluster ClusterConfig `json:"cluster" yaml:"cluster"`
	Gossip  GossipConfig  `json:"gossip" yaml:"gossip"`
	Admin   AdminConfig   `json:"admin" yaml:"admin"`
	Log     log.Config    `json:"log" yaml:"log"`

	// GracePeriod is the duration to gracefully shutdown the node. During
	// the grace period, the node stops initiating rounds and waits for
	// in-flight gossip and admin requests to complete.
	GracePeriod time.Duration `json:"grace_period" yaml:"grace_period"`
}

func Default() *Config {
	return &Config{
		Gossip: GossipConfig{
			BindAddr:    ":8003",
			Interval:    time.Second,
			Fanout:      1,
			Timeout:     time.Second * 10,
			DialRetries: 2,
		},
		Admin: AdminConfig{
			BindAddr: ":8002",
		},
		Log: log.Config{
			Level:  "info",
			Format: "json",
		},
		GracePeriod: time.Minute,
	}
}

func (c *Config) Validate() error {
	if err := c.Cluster.Validate(); err != nil {
		return fmt.Errorf("cluster: %w", err)
	}
	if err := c.Gossip.Validate(); err != nil {
		return fmt.Errorf("gossip: %w", err)
	}
	if err := c.Admin.Validate(); err != nil {
		return fmt.Errorf("admin: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}

	if c.GracePeriod == 0 {
		return fmt.Errorf("missing grace period")
	}

	return nil
}

// RegisterFlags registers the flags for each field, using the current field
// values as defaults.
func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	c.Cluster.RegisterFlags(fs)
	c.Gossip.RegisterFlags(fs)
	c.Admin.RegisterFlags(fs)
	c.Log.RegisterFlags(fs)

	fs.DurationVar(
		&c.GracePeriod,
		"grace-period",
		c.GracePeriod,
		`
Maximum duration after a shutdown signal is received (SIGTERM or
SIGINT) to gracefully shutdown the node before terminating.
This includes waiting for in-progress gossip rounds and admin requests to
complete.`,
	)
}
