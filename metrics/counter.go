package metrics

// Counter accumulates values that only grow: frames decoded, bytes read,
// connections opened.
type Counter interface {
	Metric
	// Incr adds delta to the counter.
	Incr(delta Value)
	// IncrWithDim adds delta with per-observation labels.
	IncrWithDim(delta Value, dimensions Dimension)
}

type counter struct {
	name  string
	group string
}

func (c *counter) Name() string   { return c.name }
func (c *counter) Group() string  { return c.group }
func (c *counter) Policy() Policy { return PolicySum }

func (c *counter) Incr(v Value) {
	c.IncrWithDim(v, nil)
}

func (c *counter) IncrWithDim(v Value, dimensions Dimension) {
	report(Record{metric: c, value: v, dimensions: dimensions})
}
