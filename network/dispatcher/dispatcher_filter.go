// Package dispatcher packet filters. The filter chain is a middleware
// pipeline run before dispatch; a filter may drop the delivery by returning
// without calling next.
package dispatcher

import (
	"github.com/UlusTech/nmc/metrics"
)

// HandleFunc is the final handler called after the filter chain.
type HandleFunc func(d *Delivery) error

// Filter intercepts a delivery before dispatch. Calling next continues the
// chain; returning without calling it drops the packet.
type Filter func(d *Delivery, next HandleFunc) error

// FilterChain is the ordered filter pipeline.
type FilterChain []Filter

// Handle runs the delivery through the chain and finally f.
func (fc FilterChain) Handle(d *Delivery, f HandleFunc) error {
	if len(fc) == 0 {
		return f(d)
	}
	return fc[0](d, func(d *Delivery) error {
		return fc[1:].Handle(d, f)
	})
}

// reloadFilterCfg rebuilds the packet filter set. Caller holds the write lock
// (or is the constructor).
func (dp *Dispatcher) reloadFilterCfg(cfg *Config) {
	newFilterMap := make(map[string]struct{}, len(cfg.PacketFilter))
	for _, name := range cfg.PacketFilter {
		newFilterMap[name] = struct{}{}
	}
	dp.filterMap = newFilterMap
}

// packetFilter drops packets whose name is configured in PacketFilter. The
// snapshot is left unchanged; the connection simply gets no reaction.
func (dp *Dispatcher) packetFilter(d *Delivery, next HandleFunc) error {
	dp.lock.RLock()
	_, filtered := dp.filterMap[d.Packet.Name()]
	dp.lock.RUnlock()

	if filtered {
		metrics.IncrCounterWithDim("proto", "packets_filtered_total", 1,
			map[string]string{"packet": d.Packet.Name()})
		return nil
	}
	return next(d)
}
