package main

import (
	"math"
	"math/rand"
	"path/filepath"
	"testing"
)

func smallModel(t *testing.T, cfg ModelConfig) (*EncoderDecoder, *PairedDataset) {
	t.Helper()
	d, v := makeDataset(t, 12, 4)
	m, err := NewEncoderDecoder([2]int{1, 1}, 4, [2]int{6, 6}, 5, v, cfg)
	if err != nil {
		t.Fatalf("NewEncoderDecoder: %v", err)
	}
	if err := m.Apply(rnnInitializer(rand.New(rand.NewSource(5)))); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	return m, d
}

func snapshot(c *Component) map[string][]float64 {
	out := make(map[string][]float64)
	for _, p := range c.Params() {
		out[p.Name] = append([]float64(nil), p.Data()...)
	}
	return out
}

func sameValues(a, b map[string][]float64) bool {
	for name, va := range a {
		vb := b[name]
		for i := range va {
			if math.Float64bits(va[i]) != math.Float64bits(vb[i]) {
				return false
			}
		}
	}
	return true
}

func TestNewEncoderDecoderValidation(t *testing.T) {
	_, v := makeDataset(t, 5, 2)
	tests := []struct {
		name   string
		layers [2]int
		hid    [2]int
		cfg    ModelConfig
		ok     bool
	}{
		{"defaults", [2]int{1, 1}, [2]int{8, 8}, ModelConfig{AttType: "Bahdanau", Cell: "LSTM"}, true},
		{"gru general", [2]int{2, 2}, [2]int{8, 8}, ModelConfig{AttType: "General", Cell: "gru"}, true},
		{"unknown cell", [2]int{1, 1}, [2]int{8, 8}, ModelConfig{AttType: "Bahdanau", Cell: "TCN"}, false},
		{"unknown attention", [2]int{1, 1}, [2]int{8, 8}, ModelConfig{AttType: "Luong", Cell: "LSTM"}, false},
		{"odd bidi", [2]int{1, 1}, [2]int{7, 7}, ModelConfig{AttType: "Bahdanau", Cell: "LSTM", Bidi: true}, false},
		{"dot size mismatch", [2]int{1, 1}, [2]int{8, 6}, ModelConfig{AttType: "Dot", Cell: "LSTM", ProjectInit: true}, false},
		{"layers mismatch", [2]int{2, 1}, [2]int{8, 8}, ModelConfig{AttType: "Bahdanau", Cell: "LSTM"}, false},
		{"layers mismatch projected", [2]int{2, 1}, [2]int{8, 8}, ModelConfig{AttType: "Bahdanau", Cell: "LSTM", ProjectInit: true}, true},
		{"bad dropout", [2]int{1, 1}, [2]int{8, 8}, ModelConfig{AttType: "Bahdanau", Cell: "LSTM", Dropout: 1}, false},
		{"maxout one", [2]int{1, 1}, [2]int{8, 8}, ModelConfig{AttType: "Bahdanau", Cell: "LSTM", Maxout: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEncoderDecoder(tt.layers, 4, tt.hid, 8, v, tt.cfg)
			if (err == nil) != tt.ok {
				t.Errorf("Expected ok=%v, got err=%v", tt.ok, err)
			}
		})
	}
}

func TestNParamsExcludesFrozen(t *testing.T) {
	m, _ := smallModel(t, ModelConfig{AttType: "Bahdanau", Cell: "LSTM"})
	total := m.NParams()
	m.Freeze(m.Encoder)
	m.Freeze(m.Embeddings)
	want := total - m.Encoder.NParams() - m.Embeddings.NParams()
	if got := m.NParams(); got != want {
		t.Errorf("Expected %d trainable params after freezing, got %d", want, got)
	}
}

func TestFrozenComponentsStayBitIdentical(t *testing.T) {
	m, d := smallModel(t, ModelConfig{AttType: "Bahdanau", Cell: "LSTM"})
	m.Freeze(m.Encoder)
	m.Freeze(m.Embeddings)

	enc, emb, dec := snapshot(m.Encoder), snapshot(m.Embeddings), snapshot(m.Decoder)
	optim, err := NewOptimizer("Adam", 0.01, 5)
	if err != nil {
		t.Fatal(err)
	}
	crit := MakeCriterion(m.Vocab().Len(), m.Vocab().Pad())

	step, err := m.Run(d.Batch(0), crit, true)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	defer step.Close()
	if _, err := optim.Step(step); err != nil {
		t.Fatalf("Step: %v", err)
	}

	if !sameValues(enc, snapshot(m.Encoder)) {
		t.Error("Encoder changed while frozen")
	}
	if !sameValues(emb, snapshot(m.Embeddings)) {
		t.Error("Embeddings changed while frozen")
	}
	if sameValues(dec, snapshot(m.Decoder)) {
		t.Error("Decoder did not change after a training step")
	}
}

func TestRunAllFrozenFails(t *testing.T) {
	m, d := smallModel(t, ModelConfig{AttType: "Dot", Cell: "RNN"})
	for _, c := range m.Components() {
		c.Freeze()
	}
	crit := MakeCriterion(m.Vocab().Len(), m.Vocab().Pad())
	if _, err := m.Run(d.Batch(0), crit, true); err == nil {
		t.Error("Expected error when every component is frozen")
	}
}

func TestRunVariants(t *testing.T) {
	configs := map[string]ModelConfig{
		"lstm bahdanau":   {AttType: "Bahdanau", Cell: "LSTM"},
		"gru general":     {AttType: "General", Cell: "GRU", Bidi: true},
		"rnn dot maxout":  {AttType: "Dot", Cell: "RNN", Maxout: 2},
		"tied projected":  {AttType: "Bahdanau", Cell: "LSTM", TieWeights: true, ProjectInit: true},
		"dropout trained": {AttType: "General", Cell: "LSTM", Dropout: 0.2},
	}
	for name, cfg := range configs {
		t.Run(name, func(t *testing.T) {
			m, d := smallModel(t, cfg)
			crit := MakeCriterion(m.Vocab().Len(), m.Vocab().Pad())
			b := d.Batch(0)
			step, err := m.Run(b, crit, true)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			defer step.Close()
			if math.IsNaN(step.Loss) || math.IsInf(step.Loss, 0) || step.Loss <= 0 {
				t.Errorf("Expected finite positive loss, got %v", step.Loss)
			}
			if step.Tokens != b.NumTokens() {
				t.Errorf("Expected %d tokens, got %d", b.NumTokens(), step.Tokens)
			}
		})
	}
}

func TestBahdanauScoreVectorTrains(t *testing.T) {
	for _, cell := range []string{"LSTM", "GRU", "RNN"} {
		t.Run(cell, func(t *testing.T) {
			m, d := smallModel(t, ModelConfig{AttType: "Bahdanau", Cell: cell})
			if got := m.att.v.Value.Shape(); got[0] != 1 || got[1] != 5 {
				t.Fatalf("Expected att.v shape (1, 5), got %v", got)
			}
			before := append([]float64(nil), m.att.v.Data()...)

			optim, err := NewOptimizer("SGD", 0.5, 5)
			if err != nil {
				t.Fatal(err)
			}
			crit := MakeCriterion(m.Vocab().Len(), m.Vocab().Pad())
			step, err := m.Run(d.Batch(0), crit, true)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			defer step.Close()
			if math.IsNaN(step.Loss) || math.IsInf(step.Loss, 0) {
				t.Fatalf("Expected finite loss, got %v", step.Loss)
			}
			if _, err := optim.Step(step); err != nil {
				t.Fatalf("Step: %v", err)
			}
			if sameValues(map[string][]float64{"v": before}, map[string][]float64{"v": m.att.v.Data()}) {
				t.Error("att.v did not change after a training step")
			}
		})
	}
}

func TestTranslate(t *testing.T) {
	m, _ := smallModel(t, ModelConfig{AttType: "Bahdanau", Cell: "LSTM"})
	src := m.Vocab().Encode(Symbolize("abc"), true, true)
	for _, width := range []int{1, 3} {
		hyps, err := m.Translate(src, 6, width)
		if err != nil {
			t.Fatalf("Translate(beam=%d): %v", width, err)
		}
		if len(hyps) == 0 || len(hyps) > width {
			t.Fatalf("Expected 1..%d hypotheses, got %d", width, len(hyps))
		}
		for _, h := range hyps {
			if len(h.IDs) > 6 {
				t.Errorf("Hypothesis longer than max length: %v", h.IDs)
			}
			for _, id := range h.IDs {
				if id == m.Vocab().Pad() || id == m.Vocab().BOS() {
					t.Errorf("Hypothesis contains reserved id %d", id)
				}
			}
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cfg := ModelConfig{AttType: "Bahdanau", Cell: "GRU"}
	m, _ := smallModel(t, cfg)
	path := filepath.Join(t.TempDir(), "model.gob")
	if err := m.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	fresh, err := NewEncoderDecoder([2]int{1, 1}, 4, [2]int{6, 6}, 5, m.Vocab(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := fresh.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	for i, c := range m.Components() {
		if !sameValues(snapshot(c), snapshot(fresh.Components()[i])) {
			t.Errorf("Component %s differs after load", c.Name())
		}
	}

	other, err := NewEncoderDecoder([2]int{1, 1}, 4, [2]int{8, 8}, 5, m.Vocab(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := other.Load(path); err == nil {
		t.Error("Expected shape mismatch error")
	}
}
