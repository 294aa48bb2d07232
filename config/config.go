// Package config loads the process configuration: one YAML document whose
// sections map onto the component configs (log, listener, dispatcher, status
// document, metrics, plugins). Components keep their own Validate methods;
// this package only assembles and cross-checks them.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/UlusTech/nmc/log"
	"github.com/UlusTech/nmc/network/dispatcher"
	"github.com/UlusTech/nmc/network/transport/tcp"
	"github.com/UlusTech/nmc/protocol"
)

// StatusCfg describes the server-list status document.
type StatusCfg struct {
	// VersionName is the human-readable server version string.
	VersionName string `mapstructure:"versionName" yaml:"versionName"`
	// Protocol is the protocol number advertised to clients.
	Protocol int `mapstructure:"protocol" yaml:"protocol"`
	// MaxPlayers is the advertised capacity.
	MaxPlayers int `mapstructure:"maxPlayers" yaml:"maxPlayers"`
	// MOTD is the description line shown in the client's server list.
	MOTD string `mapstructure:"motd" yaml:"motd"`
}

// Document builds the status document served to clients.
func (c StatusCfg) Document() protocol.StatusDocument {
	return protocol.StatusDocument{
		Version:     protocol.StatusVersion{Name: c.VersionName, Protocol: c.Protocol},
		Players:     protocol.StatusPlayers{Max: c.MaxPlayers},
		Description: protocol.StatusDescription{Text: c.MOTD},
	}
}

// Validate checks the status section.
func (c StatusCfg) Validate() error {
	if c.VersionName == "" {
		return errors.New("status.versionName cannot be empty")
	}
	if c.Protocol <= 0 {
		return errors.New("status.protocol must be positive")
	}
	if c.MaxPlayers < 0 {
		return errors.New("status.maxPlayers cannot be negative")
	}
	return nil
}

// MetricsCfg configures the optional prometheus endpoint.
type MetricsCfg struct {
	// Enabled turns the prometheus reporter on.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Addr is the /metrics listen address.
	Addr string `mapstructure:"addr" yaml:"addr"`
	// Namespace prefixes every exported metric name.
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
}

// Config is the complete process configuration.
type Config struct {
	Log        log.LogCfg          `yaml:"log"`
	Listener   tcp.TCPTransportCfg `yaml:"listener"`
	Dispatcher dispatcher.Config   `yaml:"dispatcher"`
	Status     StatusCfg           `yaml:"status"`
	Metrics    MetricsCfg          `yaml:"metrics"`
	// Plugins holds raw per-plugin config decoded later by the plugin
	// manager, keyed "type.name" or "type.name.tag".
	Plugins map[string]any `yaml:"plugins"`
}

// Default returns a runnable configuration: a local listener on the
// standard port, console logging and no metrics endpoint.
func Default() *Config {
	return &Config{
		Log:        *log.DefaultCfg(),
		Listener:   *tcp.DefaultCfg(),
		Dispatcher: *dispatcher.DefaultConfig(),
		Status: StatusCfg{
			VersionName: "1.21",
			Protocol:    767,
			MaxPlayers:  20,
			MOTD:        "An nmc server",
		},
		Metrics: MetricsCfg{Addr: ":9100", Namespace: "nmc"},
	}
}

// Validate cross-checks every section.
func (c *Config) Validate() error {
	if err := c.Log.Validate(); err != nil {
		return errors.Wrap(err, "log")
	}
	if err := c.Listener.Validate(); err != nil {
		return errors.Wrap(err, "listener")
	}
	if err := c.Dispatcher.Validate(); err != nil {
		return errors.Wrap(err, "dispatcher")
	}
	if err := c.Status.Validate(); err != nil {
		return errors.Wrap(err, "status")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return errors.New("metrics.addr cannot be empty when metrics are enabled")
	}
	return nil
}

// Load reads a YAML file over the defaults. Sections absent from the file
// keep their default values.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %q", path)
	}
	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %q", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "validate config %q", path)
	}
	return cfg, nil
}
