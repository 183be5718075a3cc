package main

import (
	"math/rand"
	"testing"
)

func makeDataset(t *testing.T, n, batchSize int) (*PairedDataset, *Vocab) {
	t.Helper()
	rng := rand.New(rand.NewSource(11))
	pairs := GenerateSet(rng, n, Symbolize("abcdef"), 1, 7, SamplerFor(transforms["reverse"]))
	src, trg := Unzip(pairs)
	v := NewVocab()
	if err := v.Fit(src, trg); err != nil {
		t.Fatal(err)
	}
	d, err := NewPairedDataset(src, trg, v, batchSize)
	if err != nil {
		t.Fatal(err)
	}
	return d, v
}

func TestSplitsDevFraction(t *testing.T) {
	d, _ := makeDataset(t, 105, 8)
	rng := rand.New(rand.NewSource(1))
	s, err := d.Splits(SplitOpts{Dev: 0.1, Shuffle: true, SortKey: SourceLen}, rng)
	if err != nil {
		t.Fatalf("Splits: %v", err)
	}
	if s.Valid.NumExamples() != 11 {
		t.Errorf("Expected round(0.1*105)=11 valid examples, got %d", s.Valid.NumExamples())
	}
	if s.Train.NumExamples() != 94 {
		t.Errorf("Expected 94 train examples, got %d", s.Train.NumExamples())
	}
	if s.Test != nil {
		t.Error("Expected no test split")
	}

	// Every example ends up in exactly one split. Slices are shared with
	// the parent, so identity is the address of the first element.
	seen := make(map[*int]int)
	for _, part := range []*PairedDataset{s.Train, s.Valid} {
		for i := 0; i < part.NumExamples(); i++ {
			src, _ := part.Example(i)
			seen[&src[0]]++
		}
	}
	if len(seen) != 105 {
		t.Errorf("Expected 105 distinct examples across splits, got %d", len(seen))
	}
	for _, c := range seen {
		if c != 1 {
			t.Fatal("Example shared between train and valid")
		}
	}

	prev := 0
	for i := 0; i < s.Train.NumExamples(); i++ {
		src, _ := s.Train.Example(i)
		if len(src) < prev {
			t.Fatal("Train split is not sorted by source length")
		}
		prev = len(src)
	}
}

func TestConcatDatasetsRejectsForeignVocab(t *testing.T) {
	a, _ := makeDataset(t, 10, 4)
	b, _ := makeDataset(t, 10, 4)
	if _, err := ConcatDatasets(4, a, b); err == nil {
		t.Error("Expected error when concatenating datasets with different vocabularies")
	}
	c, err := ConcatDatasets(4, a, a)
	if err != nil {
		t.Fatalf("ConcatDatasets: %v", err)
	}
	if c.NumExamples() != 20 || c.Len() != 5 {
		t.Errorf("Expected 20 examples in 5 batches, got %d in %d", c.NumExamples(), c.Len())
	}
}

func TestBatchPadding(t *testing.T) {
	v := NewVocab()
	src := [][]string{Symbolize("a"), Symbolize("abc"), Symbolize("ab")}
	if err := v.Fit(src); err != nil {
		t.Fatal(err)
	}
	d, err := NewPairedDataset(src, src, v, 2)
	if err != nil {
		t.Fatal(err)
	}
	if d.Len() != 2 {
		t.Fatalf("Expected 2 batches, got %d", d.Len())
	}
	b := d.Batch(0)
	if b.Size() != 2 {
		t.Fatalf("Expected batch of 2, got %d", b.Size())
	}
	// bos a eos pad pad / bos a b c eos
	if len(b.Src[0]) != 5 || b.Src[0][3] != v.Pad() || b.Src[0][4] != v.Pad() {
		t.Errorf("Expected padded row of length 5, got %v", b.Src[0])
	}
	if b.SrcLens[0] != 3 || b.SrcLens[1] != 5 {
		t.Errorf("Expected lengths [3 5], got %v", b.SrcLens)
	}
	if b.NumTokens() != 2+4 {
		t.Errorf("Expected 6 target tokens, got %d", b.NumTokens())
	}
	if last := d.Batch(1); last.Size() != 1 {
		t.Errorf("Expected final batch of 1, got %d", last.Size())
	}
}

func TestNewPairedDatasetNeedsFittedVocab(t *testing.T) {
	src := [][]string{Symbolize("ab")}
	if _, err := NewPairedDataset(src, src, NewVocab(), 1); err == nil {
		t.Error("Expected error for unfitted vocabulary")
	}
}
