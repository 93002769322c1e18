package tcp

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/andydunstall/epidemic/pkg/backoff"
	"github.com/andydunstall/epidemic/pkg/gossip"
	"github.com/andydunstall/epidemic/pkg/log"
)

const (
	minDialBackoff = time.Millisecond * 50
	maxDialBackoff = time.Second
)

// Client sends SYN and ACK requests to peers over TCP.
//
// Each request opens a new connection to the peer. Requests to multiple peers
// are sent concurrently.
type Client[V gossip.Versioned[V]] struct {
	localID string

	dialer *net.Dialer

	timeout time.Duration

	// retries is the number of times to retry a failed dial.
	retries int

	metrics *Metrics

	logger log.Logger
}

func NewClient[V gossip.Versioned[V]](
	localID string,
	timeout time.Duration,
	retries int,
	metrics *Metrics,
	logger log.Logger,
) *Client[V] {
	return &Client[V]{
		localID: localID,
		dialer: &net.Dialer{
			Timeout: timeout,
		},
		timeout: timeout,
		retries: retries,
		metrics: metrics,
		logger:  logger.WithSubsystem("transport.tcp"),
	}
}

// Syn sends the summary to each peer and returns the combined diff. Fails if
// any peer fails.
func (c *Client[V]) Syn(
	ctx context.Context,
	peers []gossip.Node,
	summary gossip.VersionSummary,
) (gossip.Diff[V], error) {
	diffs := make([]gossip.Diff[V], len(peers))

	g, ctx := errgroup.WithContext(ctx)
	for i, peer := range peers {
		i, peer := i, peer
		g.Go(func() error {
			diff, err := c.syn(ctx, peer, summary)
			if err != nil {
				return fmt.Errorf("%s: %w", peer.ID, err)
			}
			diffs[i] = diff
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return gossip.Diff[V]{}, err
	}

	return gossip.CombineDiffs(diffs...), nil
}

// Ack sends the updates to each peer. Fails if any peer fails.
func (c *Client[V]) Ack(
	ctx context.Context,
	peers []gossip.Node,
	updates []gossip.Update[V],
) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, peer := range peers {
		peer := peer
		g.Go(func() error {
			if err := c.ack(ctx, peer, updates); err != nil {
				return fmt.Errorf("%s: %w", peer.ID, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (c *Client[V]) syn(
	ctx context.Context,
	peer gossip.Node,
	summary gossip.VersionSummary,
) (gossip.Diff[V], error) {
	var diff gossip.Diff[V]
	err := c.request(ctx, peer, messageTypeSyn, summary, &diff)
	return diff, err
}

func (c *Client[V]) ack(
	ctx context.Context,
	peer gossip.Node,
	updates []gossip.Update[V],
) error {
	if updates == nil {
		updates = []gossip.Update[V]{}
	}
	var header requestHeader
	if err := c.request(ctx, peer, messageTypeAck, updates, &header); err != nil {
		return err
	}

	c.logger.Debug(
		"sent ack",
		zap.String("node-id", header.NodeID),
		zap.Int("updates", len(updates)),
	)
	return nil
}

// request sends the request body to the peer then decodes the response.
func (c *Client[V]) request(
	ctx context.Context,
	peer gossip.Node,
	messageType messageType,
	body interface{},
	resp interface{},
) error {
	if err := c.requestOnce(ctx, peer, messageType, body, resp); err != nil {
		c.metrics.RequestErrors.WithLabelValues(
			messageType.String(), "outbound",
		).Inc()
		return fmt.Errorf("%s: %w", messageType, err)
	}
	return nil
}

func (c *Client[V]) requestOnce(
	ctx context.Context,
	peer gossip.Node,
	messageType messageType,
	body interface{},
	resp interface{},
) error {
	conn, err := c.dial(ctx, peer.Address())
	if err != nil {
		return err
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	// Unblock reads and writes if the context is cancelled.
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	trackedReader := newTrackedReader(conn)
	defer func() {
		c.metrics.BytesInbound.Add(float64(trackedReader.NumBytesRead()))
	}()

	trackedWriter := newTrackedWriter(conn)
	defer func() {
		c.metrics.BytesOutbound.Add(float64(trackedWriter.NumBytesWritten()))
	}()

	w := bufio.NewWriter(trackedWriter)
	if err := writeRequest(
		w, messageType, requestHeader{NodeID: c.localID}, body,
	); err != nil {
		return err
	}

	decoder := newDecoder(bufio.NewReader(trackedReader))
	if err := decoder.Decode(resp); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// dial connects to the address, retrying with backoff on failure.
func (c *Client[V]) dial(ctx context.Context, addr string) (net.Conn, error) {
	b := backoff.New(c.retries, minDialBackoff, maxDialBackoff)
	for {
		conn, err := c.dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			c.metrics.ConnectionsOutbound.Inc()
			return conn, nil
		}

		c.logger.Debug(
			"failed to dial",
			zap.String("addr", addr),
			zap.Int("attempts", b.Attempts()),
			zap.Error(err),
		)

		if c.retries == 0 || !b.Wait(ctx) {
			return nil, fmt.Errorf("dial: %s: %w", addr, err)
		}
	}
}

