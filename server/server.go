package server

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/hashicorp/go-sockaddr"
	"github.com/jonboulle/clockwork"
	rungroup "github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/andydunstall/epidemic/pkg/gossip"
	"github.com/andydunstall/epidemic/pkg/kv"
	"github.com/andydunstall/epidemic/pkg/log"
	"github.com/andydunstall/epidemic/pkg/transport/tcp"
	"github.com/andydunstall/epidemic/server/admin"
	"github.com/andydunstall/epidemic/server/config"
	gossipstatus "github.com/andydunstall/epidemic/server/gossip"
	kvhandler "github.com/andydunstall/epidemic/server/kv"
)

// Server runs a node, which gossips its key-value store with the seeds on an
// interval and serves the admin API.
type Server struct {
	conf *config.Config

	gossipLn net.Listener
	adminLn  net.Listener

	engine      *gossip.Engine[kv.Value]
	transport   *tcp.Server[kv.Value]
	scheduler   *Scheduler
	adminServer *admin.Server

	logger log.Logger
}

// NewServer binds the gossip and admin listeners and wires the node.
//
// If the gossip advertise address or node ID are unset they are resolved
// from the bound gossip listener.
func NewServer(
	conf *config.Config,
	registry *prometheus.Registry,
	logger log.Logger,
) (*Server, error) {
	gossipLn, err := net.Listen("tcp", conf.Gossip.BindAddr)
	if err != nil {
		return nil, fmt.Errorf("gossip listen: %s: %w", conf.Gossip.BindAddr, err)
	}

	if conf.Gossip.AdvertiseAddr == "" {
		advertiseAddr, err := advertiseAddrFromBindAddr(gossipLn.Addr().String())
		if err != nil {
			gossipLn.Close()
			return nil, fmt.Errorf("gossip advertise addr: %w", err)
		}
		conf.Gossip.AdvertiseAddr = advertiseAddr
	}
	if conf.Cluster.NodeID == "" {
		if conf.Cluster.NodeIDPrefix != "" {
			conf.Cluster.NodeID = conf.Cluster.NodeIDPrefix + uuid.New().String()
		} else {
			conf.Cluster.NodeID = conf.Gossip.AdvertiseAddr
		}
	}

	adminLn, err := net.Listen("tcp", conf.Admin.BindAddr)
	if err != nil {
		gossipLn.Close()
		return nil, fmt.Errorf("admin listen: %s: %w", conf.Admin.BindAddr, err)
	}

	tlsConfig, err := conf.Admin.TLS.Load()
	if err != nil {
		gossipLn.Close()
		adminLn.Close()
		return nil, fmt.Errorf("admin tls: %w", err)
	}

	transportMetrics := tcp.NewMetrics()
	client := tcp.NewClient[kv.Value](
		conf.Cluster.NodeID,
		conf.Gossip.Timeout,
		conf.Gossip.DialRetries,
		transportMetrics,
		logger,
	)

	local := gossip.Node{
		ID:   conf.Cluster.NodeID,
		Addr: conf.Gossip.AdvertiseAddr,
	}
	engine := gossip.NewEngine[kv.Value](
		local,
		seedNodes(conf.Cluster.Seeds, local),
		client,
		gossip.WithFanout(conf.Gossip.Fanout),
		gossip.WithLogger(logger),
	)

	transport := tcp.NewServer[kv.Value](
		conf.Cluster.NodeID,
		gossipLn,
		engine,
		conf.Gossip.Timeout,
		transportMetrics,
		logger,
	)

	adminServer := admin.NewServer(registry, tlsConfig, logger)
	adminServer.AddStatus("/gossip", gossipstatus.NewStatus(engine))
	adminServer.AddHandler("/kv", kvhandler.NewHandler(engine.Store(), logger))

	if registry != nil {
		engine.Metrics().Register(registry)
		transportMetrics.Register(registry)
	}

	return &Server{
		conf:        conf,
		gossipLn:    gossipLn,
		adminLn:     adminLn,
		engine:      engine,
		transport:   transport,
		scheduler:   NewScheduler(engine.Round, conf.Gossip.Interval, clockwork.NewRealClock(), logger),
		adminServer: adminServer,
		logger:      logger,
	}, nil
}

// Engine returns the node's gossip engine.
func (s *Server) Engine() *gossip.Engine[kv.Value] {
	return s.engine
}

func (s *Server) GossipAddr() string {
	return s.gossipLn.Addr().String()
}

func (s *Server) AdminAddr() string {
	return s.adminLn.Addr().String()
}

// Run runs the node until the context is cancelled or a shutdown signal is
// received.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info(
		"starting node",
		zap.String("node-id", s.conf.Cluster.NodeID),
		zap.Any("conf", s.conf),
	)

	var group rungroup.Group

	// Termination handler.
	signalCtx, signalCancel := context.WithCancel(ctx)
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	group.Add(func() error {
		select {
		case sig := <-signalCh:
			s.logger.Info(
				"received shutdown signal",
				zap.String("signal", sig.String()),
			)
			return nil
		case <-signalCtx.Done():
			return nil
		}
	}, func(error) {
		signal.Stop(signalCh)
		signalCancel()
	})

	// Gossip scheduler.
	schedulerCtx, schedulerCancel := context.WithCancel(context.Background())
	group.Add(func() error {
		s.scheduler.Run(schedulerCtx)
		return nil
	}, func(error) {
		schedulerCancel()
	})

	// Gossip server.
	group.Add(func() error {
		if err := s.transport.Serve(); err != nil {
			return fmt.Errorf("gossip server serve: %w", err)
		}
		return nil
	}, func(error) {
		if err := s.transport.Close(); err != nil {
			s.logger.Warn("failed to close gossip server", zap.Error(err))
		}

		s.logger.Info("gossip server shut down")
	})

	// Admin server.
	group.Add(func() error {
		if err := s.adminServer.Serve(s.adminLn); err != nil {
			return fmt.Errorf("admin server serve: %w", err)
		}
		return nil
	}, func(error) {
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			s.conf.GracePeriod,
		)
		defer cancel()

		if err := s.adminServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("failed to gracefully shutdown admin server", zap.Error(err))
		}

		s.logger.Info("admin server shut down")
	})

	if err := group.Run(); err != nil {
		return err
	}

	s.logger.Info("shutdown complete")

	return nil
}

// seedNodes maps the seed addresses to nodes, excluding the local node.
func seedNodes(seeds []string, local gossip.Node) []gossip.Node {
	var nodes []gossip.Node
	seen := make(map[string]struct{})
	for _, addr := range seeds {
		if addr == local.Addr || addr == local.ID {
			continue
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		nodes = append(nodes, gossip.Node{ID: addr, Addr: addr})
	}
	return nodes
}

func advertiseAddrFromBindAddr(bindAddr string) (string, error) {
	if strings.HasPrefix(bindAddr, ":") {
		bindAddr = "0.0.0.0" + bindAddr
	}

	host, port, err := net.SplitHostPort(bindAddr)
	if err != nil {
		return "", fmt.Errorf("invalid bind addr: %s: %w", bindAddr, err)
	}

	if host == "0.0.0.0" || host == "::" {
		ip, err := sockaddr.GetPrivateIP()
		if err != nil {
			return "", fmt.Errorf("get interface addr: %w", err)
		}
		if ip == "" {
			return "", fmt.Errorf("no private ip found")
		}
		return net.JoinHostPort(ip, port), nil
	}
	return bindAddr, nil
}
