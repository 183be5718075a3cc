package main

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// graphBuilder assembles one expression graph for one batch. Parameters are
// bound lazily so the graph only references what the forward pass touches;
// those are exactly the nodes that can receive gradients.
type graphBuilder struct {
	g       *gorgonia.ExprGraph
	nodes   map[*Param]*gorgonia.Node
	order   []*Param
	train   bool
	dropout float64
	seq     int
}

func newGraphBuilder(train bool, dropout float64) *graphBuilder {
	return &graphBuilder{
		g:       gorgonia.NewGraph(),
		nodes:   make(map[*Param]*gorgonia.Node),
		train:   train,
		dropout: dropout,
	}
}

func (b *graphBuilder) param(p *Param) *gorgonia.Node {
	if n, ok := b.nodes[p]; ok {
		return n
	}
	n := gorgonia.NewMatrix(b.g, tensor.Float64,
		gorgonia.WithShape(p.Value.Shape()...),
		gorgonia.WithName(p.Name),
		gorgonia.WithValue(p.Value),
	)
	b.nodes[p] = n
	b.order = append(b.order, p)
	return n
}

// learnables returns the bound nodes whose owning component is trainable,
// aligned with their parameters.
func (b *graphBuilder) learnables() ([]*gorgonia.Node, []*Param) {
	var nodes []*gorgonia.Node
	var params []*Param
	for _, p := range b.order {
		if !p.owner.Trainable() {
			continue
		}
		nodes = append(nodes, b.nodes[p])
		params = append(params, p)
	}
	return nodes, params
}

func (b *graphBuilder) input(prefix string, rows, cols int, data []float64) *gorgonia.Node {
	b.seq++
	t := tensor.New(tensor.WithShape(rows, cols), tensor.WithBacking(data))
	return gorgonia.NewMatrix(b.g, tensor.Float64,
		gorgonia.WithShape(rows, cols),
		gorgonia.WithName(fmt.Sprintf("%s_%d", prefix, b.seq)),
		gorgonia.WithValue(t),
	)
}

func (b *graphBuilder) zeros(prefix string, rows, cols int) *gorgonia.Node {
	return b.input(prefix, rows, cols, make([]float64, rows*cols))
}

func (b *graphBuilder) scalar(prefix string, v float64) *gorgonia.Node {
	b.seq++
	return gorgonia.NewScalar(b.g, tensor.Float64,
		gorgonia.WithName(fmt.Sprintf("%s_%d", prefix, b.seq)),
		gorgonia.WithValue(v),
	)
}

// oneHot encodes ids as a (len(ids) x size) matrix. Rows whose id equals
// skip stay all-zero.
func (b *graphBuilder) oneHot(prefix string, ids []int, size, skip int) *gorgonia.Node {
	data := make([]float64, len(ids)*size)
	for i, id := range ids {
		if id == skip {
			continue
		}
		data[i*size+id] = 1
	}
	return b.input(prefix, len(ids), size, data)
}

// linear computes x·W (+ bias broadcast over rows).
func (b *graphBuilder) linear(x *gorgonia.Node, w, bias *Param) (*gorgonia.Node, error) {
	xw, err := gorgonia.Mul(x, b.param(w))
	if err != nil {
		return nil, errors.Wrapf(err, "x·%s", w.Name)
	}
	if bias == nil {
		return xw, nil
	}
	out, err := gorgonia.BroadcastAdd(xw, b.param(bias), nil, []byte{0})
	if err != nil {
		return nil, errors.Wrapf(err, "+%s", bias.Name)
	}
	return out, nil
}

func (b *graphBuilder) drop(x *gorgonia.Node) (*gorgonia.Node, error) {
	if !b.train || b.dropout <= 0 {
		return x, nil
	}
	return gorgonia.Dropout(x, b.dropout)
}

// masked keeps prev on rows where mask (B x 1) is zero and next elsewhere.
func masked(prev, next, mask *gorgonia.Node) (*gorgonia.Node, error) {
	diff, err := gorgonia.Sub(next, prev)
	if err != nil {
		return nil, err
	}
	gated, err := gorgonia.BroadcastHadamardProd(diff, mask, nil, []byte{1})
	if err != nil {
		return nil, err
	}
	return gorgonia.Add(prev, gated)
}

// column extracts column t of a padded id matrix.
func column(rows [][]int, t int) []int {
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = r[t]
	}
	return out
}

func scalarValue(n *gorgonia.Node) (float64, error) {
	if n.Value() == nil {
		return 0, errors.Errorf("%s has no value", n.Name())
	}
	switch v := n.Value().Data().(type) {
	case float64:
		return v, nil
	case []float64:
		if len(v) == 1 {
			return v[0], nil
		}
	}
	return 0, errors.Errorf("%s is not a scalar: %v", n.Name(), n.Shape())
}

func matrixValue(n *gorgonia.Node) ([]float64, error) {
	if n.Value() == nil {
		return nil, errors.Errorf("%s has no value", n.Name())
	}
	data, ok := n.Value().Data().([]float64)
	if !ok {
		return nil, errors.Errorf("%s holds %T", n.Name(), n.Value().Data())
	}
	return data, nil
}
