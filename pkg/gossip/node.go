package gossip

// NodeState is the known liveness of a node.
type NodeState string

const (
	NodeStateOn  NodeState = "on"
	NodeStateOff NodeState = "off"
)

// Node is a member of the cluster that can be gossiped with.
//
// Nodes are identified by ID only, the remaining fields are metadata.
type Node struct {
	// ID is a unique identifier for the node.
	ID string `json:"id" codec:"id"`

	// Addr is the gossip address of the node. Transports that carry traffic
	// over the network fall back to ID if empty.
	Addr string `json:"addr,omitempty" codec:"addr"`

	// State is the known liveness of the node.
	State NodeState `json:"state" codec:"state"`

	// Seed indicates whether the node was configured as a bootstrap peer
	// rather than discovered.
	Seed bool `json:"seed" codec:"seed"`
}

// Equal returns whether n and o are the same node.
func (n Node) Equal(o Node) bool {
	return n.ID == o.ID
}

// Address returns the address to reach the node on.
func (n Node) Address() string {
	if n.Addr != "" {
		return n.Addr
	}
	return n.ID
}

// NewNodes returns the node registry for the given seeds. Each node is
// marked as an active seed.
func NewNodes(seeds ...Node) []Node {
	nodes := make([]Node, 0, len(seeds))
	for _, seed := range seeds {
		seed.Seed = true
		seed.State = NodeStateOn
		nodes = append(nodes, seed)
	}
	return nodes
}

func nodeIDs(nodes []Node) []string {
	ids := make([]string, 0, len(nodes))
	for _, node := range nodes {
		ids = append(ids, node.ID)
	}
	return ids
}
