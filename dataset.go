package main

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Batch is a group of examples padded to a common length. Every source and
// target row is framed by bos ... eos.
type Batch struct {
	Src     [][]int
	Trg     [][]int
	SrcLens []int
	TrgLens []int
}

func (b Batch) Size() int { return len(b.Src) }

// NumTokens counts the decoder outputs that contribute to the loss.
func (b Batch) NumTokens() int {
	n := 0
	for _, l := range b.TrgLens {
		n += l - 1
	}
	return n
}

// PairedDataset holds parallel encoded sequences indexed by one vocabulary.
type PairedDataset struct {
	src, trg  [][]int
	vocab     *Vocab
	batchSize int
	order     []int // batch visiting order
}

// NewPairedDataset encodes raw symbol sequences with an already fitted
// vocabulary.
func NewPairedDataset(src, trg [][]string, vocab *Vocab, batchSize int) (*PairedDataset, error) {
	if !vocab.Fitted() {
		return nil, fmt.Errorf("dataset needs a fitted vocabulary")
	}
	if len(src) != len(trg) {
		return nil, fmt.Errorf("source and target differ in length: %d vs %d", len(src), len(trg))
	}
	srcIDs := make([][]int, len(src))
	trgIDs := make([][]int, len(trg))
	for i := range src {
		srcIDs[i] = vocab.Encode(src[i], true, true)
		trgIDs[i] = vocab.Encode(trg[i], true, true)
	}
	return NewFittedDataset(srcIDs, trgIDs, vocab, batchSize)
}

// NewFittedDataset wraps sequences that were already encoded with vocab.
func NewFittedDataset(src, trg [][]int, vocab *Vocab, batchSize int) (*PairedDataset, error) {
	if len(src) != len(trg) {
		return nil, fmt.Errorf("source and target differ in length: %d vs %d", len(src), len(trg))
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	d := &PairedDataset{src: src, trg: trg, vocab: vocab, batchSize: batchSize}
	d.resetOrder()
	return d, nil
}

// ConcatDatasets pools several datasets into one. All parts must share the
// same vocabulary instance.
func ConcatDatasets(batchSize int, parts ...*PairedDataset) (*PairedDataset, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("nothing to concatenate")
	}
	vocab := parts[0].vocab
	var src, trg [][]int
	for i, p := range parts {
		if p.vocab != vocab {
			return nil, fmt.Errorf("dataset %d is indexed with a different vocabulary", i)
		}
		src = append(src, p.src...)
		trg = append(trg, p.trg...)
	}
	return NewFittedDataset(src, trg, vocab, batchSize)
}

func (d *PairedDataset) resetOrder() {
	d.order = make([]int, d.Len())
	for i := range d.order {
		d.order[i] = i
	}
}

func (d *PairedDataset) Vocab() *Vocab { return d.vocab }

func (d *PairedDataset) NumExamples() int { return len(d.src) }

// Len is the number of batches.
func (d *PairedDataset) Len() int {
	return (len(d.src) + d.batchSize - 1) / d.batchSize
}

// Example returns the i-th encoded pair.
func (d *PairedDataset) Example(i int) (src, trg []int) {
	return d.src[i], d.trg[i]
}

// SplitOpts controls Splits. SortKey orders the examples of each split after
// shuffling so that batches group similar lengths.
type SplitOpts struct {
	Dev     float64
	Test    float64
	Shuffle bool
	SortKey func(src, trg []int) int
}

// Splits are the named partitions a trainer consumes. Test may be nil.
type Splits struct {
	Train *PairedDataset
	Valid *PairedDataset
	Test  *PairedDataset
}

// Splits partitions the dataset by fraction. The valid split holds
// round(Dev*N) examples, the test split round(Test*N), train the rest.
func (d *PairedDataset) Splits(opts SplitOpts, rng *rand.Rand) (Splits, error) {
	n := len(d.src)
	if opts.Dev < 0 || opts.Test < 0 || opts.Dev+opts.Test >= 1 {
		return Splits{}, fmt.Errorf("invalid split fractions dev=%g test=%g", opts.Dev, opts.Test)
	}
	nDev := int(math.Round(opts.Dev * float64(n)))
	nTest := int(math.Round(opts.Test * float64(n)))

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	if opts.Shuffle {
		rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	}

	subset := func(ids []int) (*PairedDataset, error) {
		ids = append([]int(nil), ids...)
		if opts.SortKey != nil {
			sort.SliceStable(ids, func(a, b int) bool {
				return opts.SortKey(d.src[ids[a]], d.trg[ids[a]]) < opts.SortKey(d.src[ids[b]], d.trg[ids[b]])
			})
		}
		src := make([][]int, len(ids))
		trg := make([][]int, len(ids))
		for i, id := range ids {
			src[i], trg[i] = d.src[id], d.trg[id]
		}
		return NewFittedDataset(src, trg, d.vocab, d.batchSize)
	}

	var out Splits
	var err error
	nTrain := n - nDev - nTest
	if out.Train, err = subset(idx[:nTrain]); err != nil {
		return Splits{}, err
	}
	if out.Valid, err = subset(idx[nTrain : nTrain+nDev]); err != nil {
		return Splits{}, err
	}
	if nTest > 0 {
		if out.Test, err = subset(idx[nTrain+nDev:]); err != nil {
			return Splits{}, err
		}
	}
	return out, nil
}

// SourceLen is the usual sort key.
func SourceLen(src, _ []int) int { return len(src) }

// ShuffleBatches changes the order in which batches are visited without
// touching their content, so length grouping survives.
func (d *PairedDataset) ShuffleBatches(rng *rand.Rand) {
	rng.Shuffle(len(d.order), func(i, j int) { d.order[i], d.order[j] = d.order[j], d.order[i] })
}

// Batch returns the i-th batch in visiting order.
func (d *PairedDataset) Batch(i int) Batch {
	b := d.order[i]
	lo := b * d.batchSize
	hi := lo + d.batchSize
	if hi > len(d.src) {
		hi = len(d.src)
	}
	return d.pad(d.src[lo:hi], d.trg[lo:hi])
}

func (d *PairedDataset) Batches() []Batch {
	out := make([]Batch, d.Len())
	for i := range out {
		out[i] = d.Batch(i)
	}
	return out
}

func (d *PairedDataset) pad(src, trg [][]int) Batch {
	var b Batch
	b.Src, b.SrcLens = padRows(src, d.vocab.Pad())
	b.Trg, b.TrgLens = padRows(trg, d.vocab.Pad())
	return b
}

func padRows(rows [][]int, pad int) ([][]int, []int) {
	maxLen := 0
	for _, r := range rows {
		if len(r) > maxLen {
			maxLen = len(r)
		}
	}
	out := make([][]int, len(rows))
	lens := make([]int, len(rows))
	for i, r := range rows {
		out[i] = make([]int, maxLen)
		copy(out[i], r)
		for j := len(r); j < maxLen; j++ {
			out[i][j] = pad
		}
		lens[i] = len(r)
	}
	return out, lens
}
