package gossip

import (
	"context"
	"errors"
	"fmt"
)

type testValue struct {
	Data string
	Tags []string
	Ver  int64
}

func (v testValue) Version() int64 {
	return v.Ver
}

func (v testValue) Copy() testValue {
	c := v
	if v.Tags != nil {
		c.Tags = append([]string(nil), v.Tags...)
	}
	return c
}

func val(data string, version int64) testValue {
	return testValue{Data: data, Ver: version}
}

var _ Receiver[testValue] = &Engine[testValue]{}

// loopbackHandler bridges SYN and ACK to engines in the same process.
type loopbackHandler struct {
	receivers map[string]Receiver[testValue]

	synErr error
	ackErr error

	acked [][]Update[testValue]
}

func newLoopbackHandler() *loopbackHandler {
	return &loopbackHandler{
		receivers: make(map[string]Receiver[testValue]),
	}
}

func (h *loopbackHandler) Register(id string, r Receiver[testValue]) {
	h.receivers[id] = r
}

func (h *loopbackHandler) Syn(
	_ context.Context,
	peers []Node,
	summary VersionSummary,
) (Diff[testValue], error) {
	if h.synErr != nil {
		return Diff[testValue]{}, h.synErr
	}

	var diffs []Diff[testValue]
	for _, peer := range peers {
		r, ok := h.receivers[peer.ID]
		if !ok {
			return Diff[testValue]{}, fmt.Errorf("unknown peer: %s", peer.ID)
		}
		diffs = append(diffs, r.ReceiveSyn(summary.Copy()))
	}
	return CombineDiffs(diffs...), nil
}

func (h *loopbackHandler) Ack(
	_ context.Context,
	peers []Node,
	updates []Update[testValue],
) error {
	h.acked = append(h.acked, updates)
	if h.ackErr != nil {
		return h.ackErr
	}

	for _, peer := range peers {
		r, ok := h.receivers[peer.ID]
		if !ok {
			return fmt.Errorf("unknown peer: %s", peer.ID)
		}
		copied := make([]Update[testValue], 0, len(updates))
		for _, u := range updates {
			copied = append(copied, Update[testValue]{Key: u.Key, Value: u.Value.Copy()})
		}
		r.ReceiveAck(copied)
	}
	return nil
}

var _ Handler[testValue] = &loopbackHandler{}

// fakeReceiver returns a fixed diff and records acks.
type fakeReceiver struct {
	diff  Diff[testValue]
	acked []Update[testValue]
}

func (r *fakeReceiver) ReceiveSyn(_ VersionSummary) Diff[testValue] {
	return r.diff
}

func (r *fakeReceiver) ReceiveAck(updates []Update[testValue]) {
	r.acked = append(r.acked, updates...)
}

var errTransport = errors.New("transport failed")
