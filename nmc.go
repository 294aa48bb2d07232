// Package nmc assembles the server from its components: configuration, the
// logger, the dispatcher, the runtime engine and the TCP transport. It is
// the embedding surface for the nmcd command and for tests that want a whole
// server in-process.
package nmc

import (
	"github.com/pkg/errors"

	"github.com/UlusTech/nmc/config"
	"github.com/UlusTech/nmc/event"
	"github.com/UlusTech/nmc/log"
	"github.com/UlusTech/nmc/metrics"
	"github.com/UlusTech/nmc/network/dispatcher"
	"github.com/UlusTech/nmc/network/transport"
	"github.com/UlusTech/nmc/network/transport/tcp"
	"github.com/UlusTech/nmc/plugin"
	"github.com/UlusTech/nmc/runtime"
)

// Server is the assembled process: one TCP listener feeding one engine.
type Server struct {
	cfg           *config.Config
	logger        *log.ServerLogger
	pluginManager *plugin.Manager
	publisher     *event.Publisher
	dispatcher    *dispatcher.Dispatcher
	engine        *runtime.Engine
	transport     *tcp.TCPTransport
	reporter      *metrics.PromReporter
}

// NewServer wires a server from the given configuration. Nothing listens
// until Start.
func NewServer(cfg *config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	logger := log.NewLogger(&cfg.Log)
	log.SetDefaultLogger(logger)

	pub := event.NewPublisher()

	dp, err := dispatcher.NewDispatcher(&cfg.Dispatcher, cfg.Status.Document())
	if err != nil {
		return nil, err
	}
	engine := runtime.NewEngine(dp, pub)

	tr, err := tcp.NewTCPTransport(&cfg.Listener)
	if err != nil {
		return nil, err
	}

	pm := plugin.NewManager()
	pm.RegisterFactory(tcp.NewFactory())
	pm.RegisterFactory(metrics.NewPromFactory())
	if len(cfg.Plugins) > 0 {
		if err := pm.SetupPlugins(cfg.Plugins); err != nil {
			return nil, errors.Wrap(err, "setup plugins")
		}
	}

	s := &Server{
		cfg:           cfg,
		logger:        logger,
		pluginManager: pm,
		publisher:     pub,
		dispatcher:    dp,
		engine:        engine,
		transport:     tr,
	}
	if cfg.Metrics.Enabled {
		s.reporter = metrics.NewPromReporter(&metrics.PromReporterCfg{
			Addr:      cfg.Metrics.Addr,
			Namespace: cfg.Metrics.Namespace,
		})
	}

	log.Info().Str("listener", cfg.Listener.Addr).Msg("Server assembled")
	return s, nil
}

// Start brings the server online: the metrics endpoint first, then the
// listener.
func (s *Server) Start() error {
	if s.reporter != nil {
		if err := s.reporter.Start(); err != nil {
			return errors.Wrap(err, "start metrics reporter")
		}
		metrics.AddReporter(s.reporter)
	}
	if err := s.transport.Start(transport.Option{Receiver: s.engine}); err != nil {
		return errors.Wrap(err, "start transport")
	}
	log.Info().Str("listener", s.ListenAddr()).Msg("Server started")
	return nil
}

// Stop tears the server down: listener and connections first, then the
// metrics endpoint and plugins, the logger last.
func (s *Server) Stop() {
	log.Info().Msg("Server shutting down")
	_ = s.transport.Stop()
	if s.reporter != nil {
		s.reporter.Stop()
	}
	s.pluginManager.DestroyAll()
	s.logger.Close()
}

// ListenAddr returns the bound listener address.
func (s *Server) ListenAddr() string {
	return s.transport.ListenAddr()
}

// Engine exposes the runtime engine, mainly for tests and introspection.
func (s *Server) Engine() *runtime.Engine {
	return s.engine
}

// Publisher exposes the event bus for lifecycle subscribers.
func (s *Server) Publisher() *event.Publisher {
	return s.publisher
}

// Reload re-applies the reloadable configuration sections: dispatcher
// limits and filters, the status document and the log level.
func (s *Server) Reload(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	if err := s.dispatcher.Reload(&cfg.Dispatcher); err != nil {
		return err
	}
	if err := s.dispatcher.SetStatus(cfg.Status.Document()); err != nil {
		return err
	}
	s.logger.SetLevel(cfg.Log.LogLevel)
	s.cfg = cfg
	_ = s.publisher.Publish(event.ReloadConfig, cfg)
	log.Info().Msg("Configuration reloaded")
	return nil
}
