// Package pool wraps sync.Pool with creation metrics so buffer churn on the
// encode/write paths shows up in monitoring.
package pool

import (
	"sync"

	"github.com/UlusTech/nmc/metrics"
)

// Pool is an instrumented sync.Pool.
type Pool struct {
	Name string
	pool *sync.Pool
}

// NewPool creates a pool; newFunc builds an item when the pool is empty, and
// each such miss increments pool.create_total{pool=name}.
func NewPool(name string, newFunc func() any) *Pool {
	p := &Pool{Name: name}
	p.pool = &sync.Pool{
		New: func() any {
			metrics.IncrCounterWithDim("pool", "create_total", 1, metrics.Dimension{"pool": name})
			return newFunc()
		},
	}
	return p
}

// Get retrieves an item, creating one on a miss.
func (p *Pool) Get() any {
	return p.pool.Get()
}

// Put returns an item for reuse.
func (p *Pool) Put(x any) {
	p.pool.Put(x)
}
