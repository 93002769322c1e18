package tcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/andydunstall/epidemic/pkg/backoff"
	"github.com/andydunstall/epidemic/pkg/gossip"
	"github.com/andydunstall/epidemic/pkg/log"
)

const (
	minAcceptBackoff = time.Millisecond * 5
	maxAcceptBackoff = time.Second
)

// Server accepts SYN and ACK requests from peers and passes them to the
// local Receiver.
type Server[V gossip.Versioned[V]] struct {
	localID string

	ln net.Listener

	receiver gossip.Receiver[V]

	timeout time.Duration

	// wg waits for in-flight connections to complete.
	wg sync.WaitGroup

	closed *atomic.Bool

	// closeCtx is cancelled on close to interrupt accept backoff.
	closeCtx    context.Context
	closeCancel context.CancelFunc

	metrics *Metrics

	logger log.Logger
}

func NewServer[V gossip.Versioned[V]](
	localID string,
	ln net.Listener,
	receiver gossip.Receiver[V],
	timeout time.Duration,
	metrics *Metrics,
	logger log.Logger,
) *Server[V] {
	closeCtx, closeCancel := context.WithCancel(context.Background())
	return &Server[V]{
		localID:     localID,
		ln:          ln,
		receiver:    receiver,
		timeout:     timeout,
		closed:      atomic.NewBool(false),
		closeCtx:    closeCtx,
		closeCancel: closeCancel,
		metrics:     metrics,
		logger:      logger.WithSubsystem("transport.tcp"),
	}
}

// Serve will accept connections until the server is closed.
//
// Accept errors, such as running out of file descriptors, are retried with
// backoff.
func (s *Server[V]) Serve() error {
	b := backoff.New(0, minAcceptBackoff, maxAcceptBackoff)
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || s.closed.Load() {
				return nil
			}
			s.logger.Warn(
				"failed to accept connection",
				zap.Int("attempts", b.Attempts()),
				zap.Error(err),
			)
			if !b.Wait(s.closeCtx) {
				return nil
			}
			continue
		}
		b.Reset()

		s.logger.Debug(
			"accepted conn",
			zap.String("addr", conn.RemoteAddr().String()),
		)

		s.metrics.ConnectionsInbound.Inc()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()

			if err := s.handleConn(conn); err != nil {
				s.logger.Warn(
					"failed to handle connection",
					zap.String("addr", conn.RemoteAddr().String()),
					zap.Error(err),
				)
			}
		}()
	}
}

// Close stops accepting connections and waits for in-flight requests to
// complete. Each request is bounded by the server timeout.
func (s *Server[V]) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.closeCancel()
	err := s.ln.Close()
	s.wg.Wait()
	return err
}

func (s *Server[V]) handleConn(conn net.Conn) error {
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(s.timeout))

	trackedReader := newTrackedReader(conn)
	defer func() {
		s.metrics.BytesInbound.Add(float64(trackedReader.NumBytesRead()))
	}()

	trackedWriter := newTrackedWriter(conn)
	defer func() {
		s.metrics.BytesOutbound.Add(float64(trackedWriter.NumBytesWritten()))
	}()

	r := bufio.NewReader(trackedReader)
	w := bufio.NewWriter(trackedWriter)

	messageType, err := readFixedHeader(r)
	if err != nil {
		return err
	}

	switch messageType {
	case messageTypeSyn:
		err = s.syn(r, w)
	case messageTypeAck:
		err = s.ack(r, w)
	default:
		return fmt.Errorf("unsupported message type: %d", messageType)
	}
	if err != nil {
		s.metrics.RequestErrors.WithLabelValues(
			messageType.String(), "inbound",
		).Inc()
		return fmt.Errorf("%s: %w", messageType, err)
	}
	return nil
}

func (s *Server[V]) syn(r *bufio.Reader, w *bufio.Writer) error {
	decoder := newDecoder(r)
	var header requestHeader
	if err := decoder.Decode(&header); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	var summary gossip.VersionSummary
	if err := decoder.Decode(&summary); err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	diff := s.receiver.ReceiveSyn(summary)

	s.logger.Debug(
		"received syn",
		zap.String("node-id", header.NodeID),
		zap.Int("summary", len(summary)),
		zap.Int("needs", len(diff.Needs)),
		zap.Int("changes", len(diff.Changes)),
	)

	encoder := newEncoder(w)
	if err := encoder.Encode(&diff); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

func (s *Server[V]) ack(r *bufio.Reader, w *bufio.Writer) error {
	decoder := newDecoder(r)
	var header requestHeader
	if err := decoder.Decode(&header); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	var updates []gossip.Update[V]
	if err := decoder.Decode(&updates); err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	s.receiver.ReceiveAck(updates)

	// Send our own header as an acknowledgement.
	encoder := newEncoder(w)
	if err := encoder.Encode(&requestHeader{
		NodeID: s.localID,
	}); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}
