package tcp

import (
	"github.com/pkg/errors"

	"github.com/UlusTech/nmc/plugin"
)

type factory struct{}

var _ plugin.Factory = (*factory)(nil)

// NewFactory creates the TCP transport plugin factory.
func NewFactory() plugin.Factory {
	return &factory{}
}

// Type returns the plugin type.
func (f *factory) Type() plugin.Type {
	return plugin.CSTransport
}

// Name returns the factory name used by plugin config.
func (f *factory) Name() string {
	return "tcp_transport"
}

// ConfigType returns the config type for mapstructure decoding.
func (f *factory) ConfigType() any {
	return &TCPTransportCfg{}
}

// Setup initializes a TCP transport plugin instance.
func (f *factory) Setup(cfgAny any) (plugin.Plugin, error) {
	cfg, ok := cfgAny.(*TCPTransportCfg)
	if !ok {
		return nil, errors.New("tcp setup failed: invalid config type")
	}
	ins, err := NewTCPTransport(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "tcp setup failed")
	}
	return ins, nil
}

// Destroy gracefully shuts down the TCP transport plugin.
func (f *factory) Destroy(p plugin.Plugin) {
	if tp, ok := p.(*TCPTransport); ok && tp != nil {
		_ = tp.Stop()
	}
}
