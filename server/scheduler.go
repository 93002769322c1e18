package server

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/andydunstall/epidemic/pkg/gossip"
	"github.com/andydunstall/epidemic/pkg/log"
)

// Scheduler runs gossip rounds on an interval.
type Scheduler struct {
	round    func(ctx context.Context) error
	interval time.Duration

	// jitter returns the delay to add to each interval.
	jitter func() time.Duration

	clock clockwork.Clock

	logger log.Logger
}

func NewScheduler(
	round func(ctx context.Context) error,
	interval time.Duration,
	clock clockwork.Clock,
	logger log.Logger,
) *Scheduler {
	return &Scheduler{
		round:    round,
		interval: interval,
		jitter: func() time.Duration {
			// Add up to 10% jitter to avoid nodes synchronising.
			return time.Duration(rand.Int63n(int64(interval)/10 + 1))
		},
		clock:  clock,
		logger: logger.WithSubsystem("scheduler"),
	}
}

// Run runs a round every interval until the context is cancelled. A failed
// round is logged and retried on the next interval.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		timer := s.clock.NewTimer(s.interval + s.jitter())
		select {
		case <-timer.Chan():
		case <-ctx.Done():
			timer.Stop()
			return
		}

		if err := s.round(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logRoundError(err)
		}
	}
}

func (s *Scheduler) logRoundError(err error) {
	if errors.Is(err, gossip.ErrNoPeersAvailable) {
		s.logger.Debug("skipped round", zap.Error(err))
		return
	}

	var gossipErr *gossip.GossipError
	if errors.As(err, &gossipErr) {
		s.logger.Warn(
			"round failed",
			zap.String("phase", string(gossipErr.Phase)),
			zap.Strings("peers", gossipErr.Peers),
			zap.Error(gossipErr.Err),
		)
		return
	}

	s.logger.Warn("round failed", zap.Error(err))
}
