package cli

import (
	"github.com/spf13/cobra"

	"github.com/andydunstall/epidemic/cli/kv"
	"github.com/andydunstall/epidemic/cli/node"
	"github.com/andydunstall/epidemic/cli/status"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "epidemic [command] (flags)",
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Long: `Epidemic is a replicated key-value store that converges using gossip.

Each node holds a full replica of the store. Nodes periodically reconcile with
a random sample of peers using a three-way exchange: the initiator sends a
summary of the versions it holds, the peer responds with the entries the
initiator is missing along with the keys it needs itself, then the initiator
sends the needed entries. Conflicts are resolved by keeping the entry with
the highest version.

Start a node with:

  $ epidemic node

Read and write entries using:

  $ epidemic kv put foo bar
  $ epidemic kv get foo

You can also inspect the status of a node using:

  $ epidemic status
`,
	}

	cmd.AddCommand(node.NewCommand())
	cmd.AddCommand(kv.NewCommand())
	cmd.AddCommand(status.NewCommand())

	return cmd
}

func init() {
	cobra.EnableCommandSorting = false
}
