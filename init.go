package main

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// InitSpec names an initialization scheme and its arguments.
type InitSpec struct {
	Type string  `yaml:"type"`
	Gain float64 `yaml:"gain"`
	Low  float64 `yaml:"low"`
	High float64 `yaml:"high"`
	Mean float64 `yaml:"mean"`
	Std  float64 `yaml:"std"`
	Val  float64 `yaml:"val"`
}

// Initializer assigns fresh values to parameters according to their kind.
type Initializer struct {
	specs map[ParamKind]InitSpec
	rng   *rand.Rand
}

type InitOpt func(*Initializer)

func WithKindInit(kind ParamKind, spec InitSpec) InitOpt {
	return func(in *Initializer) { in.specs[kind] = spec }
}

// WithRecurrentInit sets the scheme for recurrent (hidden-to-hidden) weights.
func WithRecurrentInit(spec InitSpec) InitOpt {
	return WithKindInit(KindRecurrent, spec)
}

// MakeInitializer returns an initializer with uniform(-0.05, 0.05) linear
// weights, zero biases, standard normal embeddings and glorot uniform
// recurrent weights unless overridden.
func MakeInitializer(rng *rand.Rand, opts ...InitOpt) *Initializer {
	in := &Initializer{
		rng: rng,
		specs: map[ParamKind]InitSpec{
			KindLinear:    {Type: "uniform", Low: -0.05, High: 0.05},
			KindRecurrent: {Type: "glorot_uniform", Gain: 1},
			KindBias:      {Type: "constant", Val: 0},
			KindEmbedding: {Type: "normal", Mean: 0, Std: 1},
		},
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

func (in *Initializer) Init(p *Param) error {
	spec := in.specs[p.Kind]
	shape := p.Value.Shape()
	rows, cols := shape[0], shape[1]
	data := p.Data()

	switch spec.Type {
	case "orthogonal":
		copy(data, orthogonal(in.rng, rows, cols, spec.Gain))
	case "glorot_uniform":
		limit := spec.Gain * math.Sqrt(6/float64(rows+cols))
		for i := range data {
			data[i] = (2*in.rng.Float64() - 1) * limit
		}
	case "uniform":
		for i := range data {
			data[i] = spec.Low + in.rng.Float64()*(spec.High-spec.Low)
		}
	case "normal":
		for i := range data {
			data[i] = spec.Mean + in.rng.NormFloat64()*spec.Std
		}
	case "constant":
		for i := range data {
			data[i] = spec.Val
		}
	default:
		return fmt.Errorf("unknown init type %q for %s", spec.Type, p.Name)
	}
	return nil
}

// orthogonal draws a (rows x cols) matrix with orthonormal rows or columns,
// whichever is fewer, scaled by gain.
func orthogonal(rng *rand.Rand, rows, cols int, gain float64) []float64 {
	n, k := rows, cols
	if rows < cols {
		n, k = cols, rows
	}
	flat := make([]float64, n*k)
	for i := range flat {
		flat[i] = rng.NormFloat64()
	}

	var qr mat.QR
	qr.Factorize(mat.NewDense(n, k, flat))
	var q, r mat.Dense
	qr.QTo(&q)
	qr.RTo(&r)

	out := make([]float64, rows*cols)
	for j := 0; j < k; j++ {
		sign := 1.0
		if r.At(j, j) < 0 {
			sign = -1
		}
		for i := 0; i < n; i++ {
			v := gain * sign * q.At(i, j)
			if rows < cols {
				out[j*cols+i] = v
			} else {
				out[i*cols+j] = v
			}
		}
	}
	return out
}

// frobenius is the L2 norm of a flattened parameter.
func frobenius(data []float64) float64 {
	var s float64
	for _, v := range data {
		s += v * v
	}
	return math.Sqrt(s)
}
