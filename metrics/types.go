package metrics

// Value is the numeric type carried by all metrics.
type Value float64

// Dimension is an optional set of labels attached to a single observation.
type Dimension map[string]string

// Policy describes how observations of a metric aggregate over time.
type Policy int

const (
	// PolicySum accumulates observations; counters.
	PolicySum Policy = iota + 1
	// PolicySet replaces the previous observation; gauges.
	PolicySet
)

// Metric is the base contract all metric kinds share.
type Metric interface {
	// Name returns the metric name within its group.
	Name() string
	// Group returns the subsystem the metric belongs to, e.g. "net".
	Group() string
	// Policy returns the aggregation policy.
	Policy() Policy
}
