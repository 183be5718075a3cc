package main

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"
)

// HookConfig controls what MakeEncDecHook prints.
type HookConfig struct {
	Target    string    // always translated
	Transform Transform // computes the expected output, may be nil
	Samples   int       // extra random strings per firing
	MinLen    int
	MaxLen    int
	Beam      int
	Out       io.Writer
}

// MakeEncDecHook returns a hook that translates Target and a few fresh
// random strings, printing source, expected output and the model's best
// hypotheses.
func MakeEncDecHook(cfg HookConfig, rng *rand.Rand) Hook {
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Beam < 1 {
		cfg.Beam = 1
	}
	return func(t *Trainer, ev Event) error {
		vocab := t.Model.Vocab()
		inputs := []string{cfg.Target}
		if syms := vocab.Symbols(); len(syms) > 0 && cfg.Samples > 0 {
			for _, p := range GenerateSet(rng, cfg.Samples, syms, cfg.MinLen, cfg.MaxLen, SamplerFor(transforms["identity"])) {
				inputs = append(inputs, strings.Join(p.Src, ""))
			}
		}

		fmt.Fprintf(cfg.Out, " * Translations at epoch %d, batch %d/%d\n", ev.Epoch, ev.Batch, ev.Batches)
		for _, in := range inputs {
			src := Symbolize(in)
			maxLen := 2*len(src) + 2
			if cfg.Transform != nil {
				_, hi := cfg.Transform.Bounds(len(src), len(src))
				maxLen = hi + 2
			}
			hyps, err := t.Model.Translate(vocab.Encode(src, true, true), maxLen, cfg.Beam)
			if err != nil {
				return fmt.Errorf("translating %q: %w", in, err)
			}
			fmt.Fprintf(cfg.Out, "   source: %q\n", in)
			if cfg.Transform != nil {
				fmt.Fprintf(cfg.Out, "   target: %q\n", strings.Join(cfg.Transform.Generate(src), ""))
			}
			for i, h := range hyps {
				fmt.Fprintf(cfg.Out, "   hyp %d:  %q (%.3f)\n", i+1, strings.Join(vocab.Decode(h.IDs), ""), h.Score)
			}
		}
		return nil
	}
}
