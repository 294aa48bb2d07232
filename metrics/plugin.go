package metrics

import (
	"errors"

	"github.com/UlusTech/nmc/plugin"
)

// FactoryName reports the plugin factory that builds this reporter.
func (p *PromReporter) FactoryName() string { return "prometheus" }

type promFactory struct{}

var _ plugin.Factory = (*promFactory)(nil)

// NewPromFactory creates the prometheus reporter plugin factory.
func NewPromFactory() plugin.Factory {
	return &promFactory{}
}

// Type returns the plugin type.
func (f *promFactory) Type() plugin.Type {
	return plugin.Metrics
}

// Name returns the factory name used by plugin config.
func (f *promFactory) Name() string {
	return "prometheus"
}

// ConfigType returns the config type for mapstructure decoding.
func (f *promFactory) ConfigType() any {
	return &PromReporterCfg{}
}

// Setup builds and starts a prometheus reporter, registering it with the
// metrics facade.
func (f *promFactory) Setup(cfgAny any) (plugin.Plugin, error) {
	cfg, ok := cfgAny.(*PromReporterCfg)
	if !ok {
		return nil, errors.New("prometheus setup failed: invalid config type")
	}
	rep := NewPromReporter(cfg)
	if err := rep.Start(); err != nil {
		return nil, err
	}
	AddReporter(rep)
	return rep, nil
}

// Destroy stops the reporter.
func (f *promFactory) Destroy(p plugin.Plugin) {
	if rep, ok := p.(*PromReporter); ok && rep != nil {
		rep.Stop()
	}
}
