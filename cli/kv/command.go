package kv

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	yaml "github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/andydunstall/epidemic/status/client"
	"github.com/andydunstall/epidemic/status/config"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kv",
		Short: "read and write entries",
		Long: `Read and write entries.

Writes are applied to the node's local store with the next revision of the
key, then replicated to the rest of the cluster by gossip. Reads return the
node's local view, which may lag behind writes to other nodes.

Examples:
  # Write 'bar' to key 'foo'.
  epidemic kv put foo bar

  # Read key 'foo' from node 10.26.104.56:8002.
  epidemic kv get foo --server.url http://10.26.104.56:8002
`,
	}

	cmd.AddCommand(newGetCommand())
	cmd.AddCommand(newPutCommand())

	return cmd
}

func newGetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Args:  cobra.ExactArgs(1),
		Short: "read an entry",
		Long: `Read an entry.

Examples:
  epidemic kv get foo
`,
	}

	var conf config.Config
	conf.RegisterFlags(cmd.Flags())

	cmd.Run = func(cmd *cobra.Command, args []string) {
		if err := conf.Validate(); err != nil {
			fmt.Printf("invalid config: %s\n", err.Error())
			os.Exit(1)
		}

		// The URL has already been validated in conf.
		url, _ := url.Parse(conf.Server.URL)
		c := client.NewClient(url)
		defer c.Close()

		v, err := c.KVGet(args[0])
		if errors.Is(err, client.ErrNotFound) {
			fmt.Printf("key not found: %s\n", args[0])
			os.Exit(1)
		}
		if err != nil {
			fmt.Printf("failed to get key: %s: %s\n", args[0], err.Error())
			os.Exit(1)
		}

		b, _ := yaml.Marshal(v)
		fmt.Println(string(b))
	}

	return cmd
}

func newPutCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put",
		Args:  cobra.ExactArgs(2),
		Short: "write an entry",
		Long: `Write an entry.

Outputs the stored value, including the revision assigned by the node.

Examples:
  epidemic kv put foo bar
`,
	}

	var conf config.Config
	conf.RegisterFlags(cmd.Flags())

	cmd.Run = func(cmd *cobra.Command, args []string) {
		if err := conf.Validate(); err != nil {
			fmt.Printf("invalid config: %s\n", err.Error())
			os.Exit(1)
		}

		// The URL has already been validated in conf.
		url, _ := url.Parse(conf.Server.URL)
		c := client.NewClient(url)
		defer c.Close()

		v, err := c.KVPut(args[0], args[1])
		if err != nil {
			fmt.Printf("failed to put key: %s: %s\n", args[0], err.Error())
			os.Exit(1)
		}

		b, _ := yaml.Marshal(v)
		fmt.Println(string(b))
	}

	return cmd
}
