package status

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	yaml "github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/andydunstall/epidemic/pkg/gossip"
	"github.com/andydunstall/epidemic/pkg/kv"
	"github.com/andydunstall/epidemic/status/client"
	"github.com/andydunstall/epidemic/status/config"
)

func newNodesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nodes",
		Short: "inspect known nodes",
		Long: `Inspect known nodes.

Queries the node for the nodes it knows about, starting with itself, then each
seed and discovered node.

Examples:
  epidemic status nodes
`,
	}

	var conf config.Config
	conf.RegisterFlags(cmd.Flags())

	cmd.Run = func(cmd *cobra.Command, args []string) {
		if err := conf.Validate(); err != nil {
			fmt.Printf("invalid config: %s\n", err.Error())
			os.Exit(1)
		}

		showNodes(&conf)
	}

	return cmd
}

type nodesOutput struct {
	Nodes []gossip.Node `json:"nodes"`
}

func showNodes(conf *config.Config) {
	// The URL has already been validated in conf.
	url, _ := url.Parse(conf.Server.URL)
	client := client.NewClient(url)
	defer client.Close()

	nodes, err := client.GossipNodes()
	if err != nil {
		fmt.Printf("failed to get nodes: %s\n", err.Error())
		os.Exit(1)
	}

	output := nodesOutput{
		Nodes: nodes,
	}
	b, _ := yaml.Marshal(output)
	fmt.Println(string(b))
}

func newEntriesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entries",
		Short: "inspect entries",
		Long: `Inspect entries.

Queries the node for every entry in its store, sorted by key.

Examples:
  epidemic status entries
`,
	}

	var conf config.Config
	conf.RegisterFlags(cmd.Flags())

	cmd.Run = func(cmd *cobra.Command, args []string) {
		if err := conf.Validate(); err != nil {
			fmt.Printf("invalid config: %s\n", err.Error())
			os.Exit(1)
		}

		showEntries(&conf)
	}

	return cmd
}

type entriesOutput struct {
	Entries []gossip.Update[kv.Value] `json:"entries"`
}

func showEntries(conf *config.Config) {
	// The URL has already been validated in conf.
	url, _ := url.Parse(conf.Server.URL)
	client := client.NewClient(url)
	defer client.Close()

	entries, err := client.GossipEntries()
	if err != nil {
		fmt.Printf("failed to get entries: %s\n", err.Error())
		os.Exit(1)
	}

	output := entriesOutput{
		Entries: entries,
	}
	b, _ := yaml.Marshal(output)
	fmt.Println(string(b))
}

func newEntryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entry",
		Args:  cobra.ExactArgs(1),
		Short: "inspect an entry",
		Long: `Inspect an entry.

Queries the node for the entry with the given key.

Examples:
  epidemic status entry foo
`,
	}

	var conf config.Config
	conf.RegisterFlags(cmd.Flags())

	cmd.Run = func(cmd *cobra.Command, args []string) {
		if err := conf.Validate(); err != nil {
			fmt.Printf("invalid config: %s\n", err.Error())
			os.Exit(1)
		}

		showEntry(args[0], &conf)
	}

	return cmd
}

func showEntry(key string, conf *config.Config) {
	// The URL has already been validated in conf.
	url, _ := url.Parse(conf.Server.URL)
	c := client.NewClient(url)
	defer c.Close()

	entry, err := c.GossipEntry(key)
	if errors.Is(err, client.ErrNotFound) {
		fmt.Printf("entry not found: %s\n", key)
		os.Exit(1)
	}
	if err != nil {
		fmt.Printf("failed to get entry: %s: %s\n", key, err.Error())
		os.Exit(1)
	}

	b, _ := yaml.Marshal(entry)
	fmt.Println(string(b))
}
