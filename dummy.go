package main

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"unicode"
)

// Transform is a deterministic structural rewrite of a symbol sequence.
type Transform interface {
	Generate(src []string) []string
	// Bounds reports the output length range for inputs whose length lies
	// in [minLen, maxLen].
	Bounds(minLen, maxLen int) (lo, hi int)
}

// Pair is one (source, target) training example.
type Pair struct {
	Src []string
	Trg []string
}

// Sampler turns a random source string into a training pair.
type Sampler func(src []string) Pair

type transformFunc struct {
	fn     func([]string) []string
	bounds func(minLen, maxLen int) (int, int)
}

func (t transformFunc) Generate(src []string) []string { return t.fn(src) }

func (t transformFunc) Bounds(minLen, maxLen int) (int, int) {
	if t.bounds == nil {
		return minLen, maxLen
	}
	return t.bounds(minLen, maxLen)
}

var transforms = map[string]Transform{
	"identity": transformFunc{fn: identity},
	"reverse":  transformFunc{fn: reverse},
	"redrum":   transformFunc{fn: redrum},
	"double": transformFunc{
		fn:     double,
		bounds: func(lo, hi int) (int, int) { return 2 * lo, 2 * hi },
	},
	"skipchar": transformFunc{
		fn:     skipchar,
		bounds: func(lo, hi int) (int, int) { return (lo + 1) / 2, (hi + 1) / 2 },
	},
	"sort":     transformFunc{fn: sortSymbols},
	"rot13":    transformFunc{fn: rot13},
	"swapcase": transformFunc{fn: swapcase},
}

// TransformNames lists the registered transformations in sorted order.
func TransformNames() []string {
	names := make([]string, 0, len(transforms))
	for name := range transforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupTransforms resolves every name up front so a misspelled target is a
// configuration error before any data is generated.
func LookupTransforms(names []string) (map[string]Transform, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("no targets given (available: %s)", strings.Join(TransformNames(), ", "))
	}
	out := make(map[string]Transform, len(names))
	for _, name := range names {
		t, ok := transforms[name]
		if !ok {
			return nil, fmt.Errorf("unknown target %q (available: %s)", name, strings.Join(TransformNames(), ", "))
		}
		out[name] = t
	}
	return out, nil
}

func SamplerFor(t Transform) Sampler {
	return func(src []string) Pair {
		return Pair{Src: src, Trg: t.Generate(src)}
	}
}

// Autoencode makes both sides of every pair equal to the wrapped sampler's
// target, which trains the encoder as an autoencoder of target strings.
func Autoencode(s Sampler) Sampler {
	return func(src []string) Pair {
		p := s(src)
		return Pair{Src: p.Trg, Trg: append([]string(nil), p.Trg...)}
	}
}

// GenerateSet samples n random strings with lengths in [minLen, maxLen] over
// symbols and maps each through sampler.
func GenerateSet(rng *rand.Rand, n int, symbols []string, minLen, maxLen int, sampler Sampler) []Pair {
	pairs := make([]Pair, n)
	for i := range pairs {
		length := minLen + rng.Intn(maxLen-minLen+1)
		src := make([]string, length)
		for j := range src {
			src[j] = symbols[rng.Intn(len(symbols))]
		}
		pairs[i] = sampler(src)
	}
	return pairs
}

// Unzip splits pairs into parallel source and target collections.
func Unzip(pairs []Pair) (src, trg [][]string) {
	src = make([][]string, len(pairs))
	trg = make([][]string, len(pairs))
	for i, p := range pairs {
		src[i], trg[i] = p.Src, p.Trg
	}
	return src, trg
}

// Symbolize splits a string into single-character symbols.
func Symbolize(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

func identity(src []string) []string {
	return append([]string(nil), src...)
}

func reverse(src []string) []string {
	out := make([]string, len(src))
	for i, s := range src {
		out[len(src)-1-i] = s
	}
	return out
}

func redrum(src []string) []string {
	return swapcase(reverse(src))
}

func double(src []string) []string {
	out := make([]string, 0, 2*len(src))
	for _, s := range src {
		out = append(out, s, s)
	}
	return out
}

func skipchar(src []string) []string {
	out := make([]string, 0, (len(src)+1)/2)
	for i := 0; i < len(src); i += 2 {
		out = append(out, src[i])
	}
	return out
}

func sortSymbols(src []string) []string {
	out := identity(src)
	sort.Strings(out)
	return out
}

func mapRunes(src []string, f func(rune) rune) []string {
	out := make([]string, len(src))
	for i, s := range src {
		out[i] = strings.Map(f, s)
	}
	return out
}

func rot13(src []string) []string {
	return mapRunes(src, func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return 'a' + (r-'a'+13)%26
		case r >= 'A' && r <= 'Z':
			return 'A' + (r-'A'+13)%26
		}
		return r
	})
}

func swapcase(src []string) []string {
	return mapRunes(src, func(r rune) rune {
		if unicode.IsUpper(r) {
			return unicode.ToLower(r)
		}
		return unicode.ToUpper(r)
	})
}
