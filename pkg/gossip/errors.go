package gossip

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoPeersAvailable is returned when there are no known nodes to gossip
// with other than the local node. The round should be skipped.
var ErrNoPeersAvailable = errors.New("no peers available")

// Phase is a phase of a gossip round that can fail.
type Phase string

const (
	PhaseSyn Phase = "syn"
	PhaseAck Phase = "ack"
)

// GossipError is returned when the Handler fails to exchange a SYN or ACK
// with the selected peers. The next round will retry the exchange.
type GossipError struct {
	Phase Phase
	Peers []string
	Err   error
}

func (e *GossipError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Phase, strings.Join(e.Peers, ","), e.Err)
}

func (e *GossipError) Unwrap() error {
	return e.Err
}
