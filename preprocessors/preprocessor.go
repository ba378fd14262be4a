// Package preprocessors provides composable signal preprocessing chains that
// are applied automatically when a trial's signal data is loaded.
//
// A chain is a doubly-linked structure of nodes. Each node wraps a Transform
// and may have a parent chain (run before the node's own transform) and a
// child chain (run after it). All nodes invoked during a single call share a
// mutable context map, which transforms may use to publish diagnostic values
// to later nodes and to the caller.
package preprocessors

import (
	"gonum.org/v1/gonum/mat"
)

// Context carries arbitrary key/value state through one chain invocation.
// It is shared by reference across every node resolved during the call, and
// all mutations are merged back into the caller's context when the call
// returns.
type Context map[string]any

// merge copies every entry of src into c, overwriting existing keys.
func (c Context) merge(src Context) {
	for k, v := range src {
		c[k] = v
	}
}

// Transform is a single signal transformation step. Implementations must be
// pure with respect to the signal (return a new or modified matrix, never
// retain it) but may read and write the shared Context.
//
// Signals are (1+N)xM matrices: row 0 holds per-sample timestamps, rows 1..N
// hold channel samples.
type Transform interface {
	// Name identifies the transform in resolved chain listings.
	Name() string

	// Apply transforms the signal. Errors propagate to the caller of
	// Chain.Invoke unmodified; there is no retry and no partial result.
	Apply(signal *mat.Dense, ctx Context) (*mat.Dense, error)
}

// Chain is one node of a preprocessor chain. The zero value is not usable;
// construct nodes with NewChain.
type Chain struct {
	parent  *Chain
	child   *Chain
	context Context
	t       Transform
}

// ChainOption configures a Chain node at construction time.
type ChainOption func(*Chain)

// WithParent links a chain to run before this node's transform.
func WithParent(parent *Chain) ChainOption {
	return func(c *Chain) { c.parent = parent }
}

// WithChild links a chain to run after this node's transform.
func WithChild(child *Chain) ChainOption {
	return func(c *Chain) { c.child = child }
}

// NewChain creates a chain node around the given transform. Parameter
// validation beyond what the transform's own constructor performs is not
// required.
func NewChain(t Transform, opts ...ChainOption) *Chain {
	c := &Chain{
		t:       t,
		context: Context{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Invoke runs the chain on signal: the parent chain fully resolves first,
// then this node's transform, then the child chain. ctx may be nil; if
// supplied, its entries seed the shared context and every mutation made by
// any node is merged back into it before Invoke returns.
func (c *Chain) Invoke(signal *mat.Dense, ctx Context) (*mat.Dense, error) {
	if ctx == nil {
		ctx = Context{}
	}
	c.context.merge(ctx)

	result := signal
	var err error
	if c.parent != nil {
		result, err = c.parent.Invoke(result, c.context)
		if err != nil {
			return nil, err
		}
	}

	result, err = c.t.Apply(result, c.context)
	if err != nil {
		return nil, err
	}

	if c.child != nil {
		result, err = c.child.Invoke(result, c.context)
		if err != nil {
			return nil, err
		}
	}

	ctx.merge(c.context)
	return result, nil
}

// Resolve appends this chain's transform names to chain in execution order:
// the fully expanded parent chain first (root to leaf), then this node, then
// the fully expanded child chain. The returned order matches what Invoke
// actually runs.
func (c *Chain) Resolve(chain []string) []string {
	if chain == nil {
		chain = []string{}
	}

	if c.parent != nil {
		chain = c.parent.Resolve(chain)
	}
	chain = append(chain, c.t.Name())
	if c.child != nil {
		chain = c.child.Resolve(chain)
	}

	return chain
}
