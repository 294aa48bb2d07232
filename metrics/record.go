package metrics

// Record is one observation handed to reporters: the metric identity, the
// observed value and any per-observation labels.
type Record struct {
	metric     Metric
	value      Value
	dimensions Dimension
}

// Metric returns the metric the observation belongs to.
func (r Record) Metric() Metric { return r.metric }

// Value returns the observed value.
func (r Record) Value() Value { return r.value }

// Dimensions returns the labels of this observation; may be nil.
func (r Record) Dimensions() Dimension { return r.dimensions }
