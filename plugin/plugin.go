// Package plugin implements the factory registry through which optional
// components (transports, metrics reporters) are declared in configuration
// and instantiated at startup.
package plugin

// Type partitions plugins by the role they fill.
type Type string

const (
	// CSTransport is a client-facing transport implementation.
	CSTransport Type = "cstransport"
	// Metrics is a metrics reporter implementation.
	Metrics Type = "metrics"
)

// Factory builds plugin instances of one named implementation.
type Factory interface {
	// Type returns the plugin role this factory serves.
	Type() Type
	// Name returns the implementation name used in config files.
	Name() string
	// ConfigType returns a zero config struct the manager decodes into.
	ConfigType() any
	// Setup builds an instance from its decoded configuration.
	Setup(cfg any) (Plugin, error)
	// Destroy releases an instance created by Setup.
	Destroy(p Plugin)
}

// Plugin is a live instance created by a Factory.
type Plugin interface {
	// FactoryName reports which factory built the instance.
	FactoryName() string
}
