// Package metrics provides the process-wide counter/gauge facade. Callers
// record observations by group and name; registered reporters forward them
// to a backend (see the prometheus reporter in this package).
package metrics

import "sync"

var (
	_counters    = map[string]Counter{}
	_lockCounter = sync.RWMutex{}
	_gauges      = map[string]Gauge{}
	_lockGauge   = sync.RWMutex{}
)

// IncrCounter increments the counter identified by group and name.
func IncrCounter(group, name string, value Value) {
	getCounter(group, name).Incr(value)
}

// IncrCounterWithDim increments a counter with per-observation labels.
func IncrCounterWithDim(group, name string, value Value, dimensions Dimension) {
	getCounter(group, name).IncrWithDim(value, dimensions)
}

// UpdateGauge sets the gauge identified by group and name.
func UpdateGauge(group, name string, value Value) {
	getGauge(group, name).Update(value)
}

// UpdateGaugeWithDim sets a gauge with per-observation labels.
func UpdateGaugeWithDim(group, name string, value Value, dimensions Dimension) {
	getGauge(group, name).UpdateWithDim(value, dimensions)
}

func getCounter(group, name string) Counter {
	key := group + "." + name
	_lockCounter.RLock()
	c, ok := _counters[key]
	_lockCounter.RUnlock()
	if ok {
		return c
	}

	_lockCounter.Lock()
	defer _lockCounter.Unlock()
	if c, ok = _counters[key]; ok {
		return c
	}
	c = &counter{name: name, group: group}
	_counters[key] = c
	return c
}

func getGauge(group, name string) Gauge {
	key := group + "." + name
	_lockGauge.RLock()
	g, ok := _gauges[key]
	_lockGauge.RUnlock()
	if ok {
		return g
	}

	_lockGauge.Lock()
	defer _lockGauge.Unlock()
	if g, ok = _gauges[key]; ok {
		return g
	}
	g = &gauge{name: name, group: group}
	_gauges[key] = g
	return g
}
