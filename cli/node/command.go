package node

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/andydunstall/epidemic/pkg/config"
	"github.com/andydunstall/epidemic/pkg/log"
	"github.com/andydunstall/epidemic/server"
	serverconfig "github.com/andydunstall/epidemic/server/config"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "start a node",
		Long: `Start a node.

Each node holds a replica of the key-value store. On each gossip interval the
node sends a summary of the versions it holds to a random sample of its seeds,
receives the entries it is missing or holds an older version of, and returns
the entries the peer requested.

Nodes accept gossip traffic on the gossip port and serve the admin API
(status, metrics and key-value reads and writes) on the admin port.

Examples:
  # Start a node.
  epidemic node

  # Start a node listening for gossip traffic on :7003 and admin connections
  # on :7002.
  epidemic node --gossip.bind-addr :7003 --admin.bind-addr :7002

  # Start a node that gossips with two seeds, sampling two peers each round.
  epidemic node --cluster.seeds 10.26.104.14:8003,10.26.104.75:8003 --gossip.fanout 2

  # Start a node using a YAML config file.
  epidemic node --config.path ./node.yaml
`,
	}

	conf := serverconfig.Default()

	var configPath string
	cmd.Flags().StringVar(
		&configPath,
		"config.path",
		"",
		`
YAML config file path.`,
	)

	var configExpandEnv bool
	cmd.Flags().BoolVar(
		&configExpandEnv,
		"config.expand-env",
		false,
		`
Whether to expand environment variables in the config file.

This will replaces references to ${VAR} or $VAR with the corresponding
environment variable. The replacement is case-sensitive.

References to undefined variables will be replaced with an empty string. A
default value can be given using form ${VAR:default}.`,
	)

	// Register flags and set default values.
	conf.RegisterFlags(cmd.Flags())

	cmd.Run = func(cmd *cobra.Command, args []string) {
		if configPath != "" {
			if err := config.Load(conf, configPath, configExpandEnv); err != nil {
				fmt.Printf("load config: %s\n", err.Error())
				os.Exit(1)
			}
		}

		if err := conf.Validate(); err != nil {
			fmt.Printf("invalid config: %s\n", err.Error())
			os.Exit(1)
		}

		logger, err := log.NewLogger(conf.Log)
		if err != nil {
			fmt.Printf("failed to setup logger: %s\n", err.Error())
			os.Exit(1)
		}
		defer logger.Sync()

		if err := run(conf, logger); err != nil {
			logger.Error("failed to run node", zap.Error(err))
			logger.Sync()
			os.Exit(1)
		}
	}

	return cmd
}

func run(conf *serverconfig.Config, logger log.Logger) error {
	registry := prometheus.NewRegistry()

	s, err := server.NewServer(conf, registry, logger)
	if err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return s.Run(context.Background())
}
