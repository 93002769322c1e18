package gossip

import (
	"math/rand"

	"github.com/andydunstall/epidemic/pkg/log"
)

type options struct {
	selector PeerSelector
	fanout   int
	rng      *rand.Rand
	logger   log.Logger
}

type Option interface {
	apply(*options)
}

type selectorOption struct {
	Selector PeerSelector
}

func (o selectorOption) apply(opts *options) {
	opts.selector = o.Selector
}

// WithSelector configures how peers are selected each round. Overrides
// WithFanout and WithRand.
func WithSelector(selector PeerSelector) Option {
	return selectorOption{Selector: selector}
}

type fanoutOption int

func (o fanoutOption) apply(opts *options) {
	opts.fanout = int(o)
}

// WithFanout configures the number of peers to gossip with each round.
// Defaults to 1.
func WithFanout(fanout int) Option {
	return fanoutOption(fanout)
}

type randOption struct {
	Rand *rand.Rand
}

func (o randOption) apply(opts *options) {
	opts.rng = o.Rand
}

// WithRand configures the random source used to select peers. Useful to
// make peer selection deterministic in tests.
func WithRand(rng *rand.Rand) Option {
	return randOption{Rand: rng}
}

type loggerOption struct {
	Logger log.Logger
}

func (o loggerOption) apply(opts *options) {
	opts.logger = o.Logger
}

// WithLogger configures the logger. Defaults to no output.
func WithLogger(logger log.Logger) Option {
	return loggerOption{Logger: logger}
}
