package main

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Attention variants.
const (
	AttBahdanau = "bahdanau"
	AttGeneral  = "general"
	AttDot      = "dot"
)

const maskedScore = -1e9

func normalizeAttention(name string) (string, error) {
	switch strings.ToLower(name) {
	case AttBahdanau:
		return AttBahdanau, nil
	case AttGeneral, "global":
		return AttGeneral, nil
	case AttDot:
		return AttDot, nil
	}
	return "", fmt.Errorf("unknown attention type %q (want Bahdanau, General or Dot)", name)
}

// attention scores every encoder output against the decoder state and
// returns their weighted sum.
type attention struct {
	kind string

	wq, wk, v *Param // bahdanau
	wa        *Param // general
}

func newAttention(c *Component, kind string, hid, encDim, attDim int) *attention {
	a := &attention{kind: kind}
	switch kind {
	case AttBahdanau:
		a.wq = c.newParam("att.W_q", KindLinear, hid, attDim)
		a.wk = c.newParam("att.W_k", KindLinear, encDim, attDim)
		a.v = c.newParam("att.v", KindLinear, 1, attDim)
	case AttGeneral:
		a.wa = c.newParam("att.W_a", KindLinear, hid, encDim)
	}
	return a
}

// keys precomputes the per-position projections that do not depend on the
// decoder state.
func (a *attention) keys(b *graphBuilder, encOuts []*gorgonia.Node) ([]*gorgonia.Node, error) {
	if a.kind != AttBahdanau {
		return encOuts, nil
	}
	keys := make([]*gorgonia.Node, len(encOuts))
	for s, e := range encOuts {
		k, err := b.linear(e, a.wk, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "attention key %d", s)
		}
		keys[s] = k
	}
	return keys, nil
}

// maskBias is a (B x S) matrix with 0 on real source positions and a large
// negative value on padding.
func maskBias(b *graphBuilder, src [][]int, pad int) *gorgonia.Node {
	rows, cols := len(src), len(src[0])
	data := make([]float64, rows*cols)
	for i, r := range src {
		for s, id := range r {
			if id == pad {
				data[i*cols+s] = maskedScore
			}
		}
	}
	return b.input("att_mask", rows, cols, data)
}

func (a *attention) score(b *graphBuilder, query, key *gorgonia.Node) (*gorgonia.Node, error) {
	batch := query.Shape()[0]
	var prod *gorgonia.Node
	var err error
	if a.kind == AttBahdanau {
		var sum, act *gorgonia.Node
		sum, err = gorgonia.Add(key, query)
		if err != nil {
			return nil, err
		}
		act, err = gorgonia.Tanh(sum)
		if err != nil {
			return nil, err
		}
		if prod, err = gorgonia.BroadcastHadamardProd(act, b.param(a.v), nil, []byte{0}); err != nil {
			return nil, err
		}
	} else if prod, err = gorgonia.HadamardProd(query, key); err != nil {
		return nil, err
	}
	dot, err := gorgonia.Sum(prod, 1)
	if err != nil {
		return nil, err
	}
	return gorgonia.Reshape(dot, tensor.Shape{batch, 1})
}

// attend returns the context vector (B x encDim) and the attention weights
// (B x S) for decoder state h.
func (a *attention) attend(b *graphBuilder, h *gorgonia.Node, keys, values []*gorgonia.Node, mask *gorgonia.Node) (*gorgonia.Node, *gorgonia.Node, error) {
	batch := h.Shape()[0]

	query := h
	var err error
	switch a.kind {
	case AttBahdanau:
		query, err = b.linear(h, a.wq, nil)
	case AttGeneral:
		query, err = b.linear(h, a.wa, nil)
	}
	if err != nil {
		return nil, nil, err
	}

	scores := make([]*gorgonia.Node, len(keys))
	for s, k := range keys {
		if scores[s], err = a.score(b, query, k); err != nil {
			return nil, nil, errors.Wrapf(err, "score %d", s)
		}
	}
	all := scores[0]
	if len(scores) > 1 {
		if all, err = gorgonia.Concat(1, scores...); err != nil {
			return nil, nil, err
		}
	}
	if all, err = gorgonia.Add(all, mask); err != nil {
		return nil, nil, err
	}
	alpha, err := gorgonia.SoftMax(all)
	if err != nil {
		return nil, nil, err
	}

	var ctx *gorgonia.Node
	for s, v := range values {
		col, err := gorgonia.Slice(alpha, nil, gorgonia.S(s))
		if err != nil {
			return nil, nil, err
		}
		if col, err = gorgonia.Reshape(col, tensor.Shape{batch, 1}); err != nil {
			return nil, nil, err
		}
		weighted, err := gorgonia.BroadcastHadamardProd(v, col, nil, []byte{1})
		if err != nil {
			return nil, nil, err
		}
		if ctx == nil {
			ctx = weighted
			continue
		}
		if ctx, err = gorgonia.Add(ctx, weighted); err != nil {
			return nil, nil, err
		}
	}
	return ctx, alpha, nil
}
