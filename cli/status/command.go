package status

import "github.com/spf13/cobra"

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "inspect node status",
		Long: `Inspect node status.

Each node exposes a status API to inspect the state of the node, this can be
used to answer questions such as:
* What nodes does this node gossip with?
* What entries does this node hold, and at what version?

See 'status --help' for the availale commands.

Examples:
  # Inspect the nodes known by the node.
  epidemic status nodes

  # Inspect the entries held by the node.
  epidemic status entries

  # Inspect entry 'foo' on node 10.26.104.56:8002.
  epidemic status entry foo --server.url http://10.26.104.56:8002
`,
	}

	cmd.AddCommand(newNodesCommand())
	cmd.AddCommand(newEntriesCommand())
	cmd.AddCommand(newEntryCommand())

	return cmd
}
