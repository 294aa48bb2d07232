package plugin

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mitchellh/mapstructure"
)

// DefaultInsName is the tag under which the default instance of each plugin
// type is registered.
const DefaultInsName = "default"

var (
	ErrPluginNotFound      = errors.New("plugin not found")
	ErrDuplicatePlugin     = errors.New("duplicate plugin")
	ErrInvalidConfigFormat = errors.New("invalid config format")
	ErrConfigDecode        = errors.New("config decode error")
	ErrFactorySetup        = errors.New("factory setup error")
)

// Manager owns all registered factories and the plugin instances built from
// configuration.
type Manager struct {
	factories map[Type]map[string]Factory
	plugins   map[Type]map[string]Plugin
	lock      sync.RWMutex
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{
		factories: make(map[Type]map[string]Factory),
		plugins:   make(map[Type]map[string]Plugin),
	}
}

// RegisterFactory makes a factory available to SetupPlugins.
func (m *Manager) RegisterFactory(f Factory) {
	m.lock.Lock()
	defer m.lock.Unlock()

	factories, ok := m.factories[f.Type()]
	if !ok {
		factories = make(map[string]Factory)
		m.factories[f.Type()] = factories
	}
	factories[f.Name()] = f
}

// SetupPlugins instantiates every plugin declared in the config section.
// The section shape is type -> implementation name -> config map; each config
// map is decoded into the factory's ConfigType with mapstructure. Instances
// are keyed by their "tag" config field when present, otherwise by the
// implementation name.
func (m *Manager) SetupPlugins(pluginConf map[string]any) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	for typeName, section := range pluginConf {
		pluginType := Type(typeName)
		factories, ok := m.factories[pluginType]
		if !ok {
			continue // Unregistered types in config are ignored.
		}

		sectionMap, ok := section.(map[string]any)
		if !ok {
			return fmt.Errorf("%w for plugin type %q", ErrInvalidConfigFormat, pluginType)
		}

		for name, rawCfg := range sectionMap {
			factory, ok := factories[name]
			if !ok {
				return fmt.Errorf("%w: no factory for %q/%q", ErrPluginNotFound, pluginType, name)
			}

			cfgMap, ok := rawCfg.(map[string]any)
			if !ok {
				return fmt.Errorf("%w for plugin %q/%q", ErrInvalidConfigFormat, pluginType, name)
			}

			target := factory.ConfigType()
			if target == nil {
				return fmt.Errorf("%w: factory %q/%q has no config type", ErrInvalidConfigFormat, pluginType, name)
			}

			decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
				WeaklyTypedInput: false,
				Result:           target,
			})
			if err != nil {
				return fmt.Errorf("%w: decoder for %q/%q: %v", ErrConfigDecode, pluginType, name, err)
			}
			if err := decoder.Decode(cfgMap); err != nil {
				return fmt.Errorf("%w: config for %q/%q: %v", ErrConfigDecode, pluginType, name, err)
			}

			ins, err := factory.Setup(target)
			if err != nil {
				return fmt.Errorf("%w: %q/%q: %v", ErrFactorySetup, pluginType, name, err)
			}

			if _, ok := m.plugins[pluginType]; !ok {
				m.plugins[pluginType] = make(map[string]Plugin)
			}

			key := name
			if tag, ok := cfgMap["tag"].(string); ok && tag != "" {
				key = tag
			}
			if _, exists := m.plugins[pluginType][key]; exists {
				return fmt.Errorf("%w: tag %q for type %q", ErrDuplicatePlugin, key, pluginType)
			}
			m.plugins[pluginType][key] = ins
		}
	}
	return nil
}

// GetPlugin returns the instance registered under the given tag or name.
func (m *Manager) GetPlugin(typ Type, name string) (any, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	plugins, ok := m.plugins[typ]
	if !ok {
		return nil, fmt.Errorf("%w: no plugins of type %q", ErrPluginNotFound, typ)
	}
	p, ok := plugins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q of type %q", ErrPluginNotFound, name, typ)
	}
	return p, nil
}

// GetDefaultPlugin returns the instance tagged DefaultInsName.
func (m *Manager) GetDefaultPlugin(typ Type) (any, error) {
	return m.GetPlugin(typ, DefaultInsName)
}

// RangePlugins invokes fn for every instance of the given type.
func (m *Manager) RangePlugins(typ Type, fn func(name string, p Plugin)) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	for name, p := range m.plugins[typ] {
		fn(name, p)
	}
}

// DestroyAll tears down every plugin instance through its factory.
func (m *Manager) DestroyAll() {
	m.lock.Lock()
	defer m.lock.Unlock()

	for typ, plugins := range m.plugins {
		factories := m.factories[typ]
		for _, p := range plugins {
			if f, ok := factories[p.FactoryName()]; ok {
				f.Destroy(p)
			}
		}
	}
	m.plugins = make(map[Type]map[string]Plugin)
}
