package metrics

// Gauge tracks a point-in-time value that moves both ways, e.g. the number
// of live connections.
type Gauge interface {
	Metric
	// Update sets the gauge to v.
	Update(v Value)
	// UpdateWithDim sets the gauge to v with per-observation labels.
	UpdateWithDim(v Value, dimensions Dimension)
}

type gauge struct {
	name  string
	group string
}

func (g *gauge) Name() string   { return g.name }
func (g *gauge) Group() string  { return g.group }
func (g *gauge) Policy() Policy { return PolicySet }

func (g *gauge) Update(v Value) {
	g.UpdateWithDim(v, nil)
}

func (g *gauge) UpdateWithDim(v Value, dimensions Dimension) {
	report(Record{metric: g, value: v, dimensions: dimensions})
}
