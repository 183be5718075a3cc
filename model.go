package main

import (
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// ParamKind selects the initialization scheme of a parameter.
type ParamKind int

const (
	KindLinear ParamKind = iota
	KindRecurrent
	KindBias
	KindEmbedding
)

// Param is a named weight matrix. Values live outside any expression graph
// so that a fresh graph can be built for every batch.
type Param struct {
	Name  string
	Kind  ParamKind
	Value *tensor.Dense
	owner *Component
}

func (p *Param) Data() []float64 { return p.Value.Data().([]float64) }

func (p *Param) Size() int { return p.Value.Shape().TotalSize() }

// Component is a named group of parameters that is frozen or reinitialized
// as a unit.
type Component struct {
	name      string
	params    []*Param
	trainable bool
}

func newComponent(name string) *Component {
	return &Component{name: name, trainable: true}
}

func (c *Component) newParam(name string, kind ParamKind, rows, cols int) *Param {
	p := &Param{
		Name:  c.name + "." + name,
		Kind:  kind,
		Value: tensor.New(tensor.WithShape(rows, cols), tensor.Of(tensor.Float64)),
		owner: c,
	}
	c.params = append(c.params, p)
	return p
}

func (c *Component) Name() string     { return c.name }
func (c *Component) Params() []*Param { return c.params }
func (c *Component) Trainable() bool  { return c.trainable }
func (c *Component) Freeze()          { c.trainable = false }
func (c *Component) Unfreeze()        { c.trainable = true }

func (c *Component) NParams() int {
	n := 0
	for _, p := range c.params {
		n += p.Size()
	}
	return n
}

// ModelConfig carries the architectural switches of EncoderDecoder.
type ModelConfig struct {
	AttType              string
	Dropout              float64
	Bidi                 bool
	Cell                 string
	ProjectInit          bool
	Maxout               int
	TieWeights           bool
	ProjectOnTiedWeights bool
}

// EncoderDecoder is a recurrent encoder-decoder with attention. Embeddings
// and Encoder are meant to be shared across targets; Decoder and Projection
// are specialized per target.
type EncoderDecoder struct {
	cfg       ModelConfig
	vocab     *Vocab
	encLayers int
	decLayers int
	embDim    int
	encHid    int
	decHid    int
	attDim    int

	Embeddings *Component
	Encoder    *Component
	Decoder    *Component
	Projection *Component

	embed    *Param
	encCells [][]*cell // [layer][direction]
	decCells []*cell
	initH    []gate // decoder initial state projection, per layer
	initC    []gate
	att      *attention
	combine  []gate // one piece, or Maxout pieces
	tiedProj gate
	out      gate
}

// NewEncoderDecoder builds the model. layers and hidDim are given as
// (encoder, decoder) pairs. Parameters are allocated but zero; call Apply
// with an Initializer before training.
func NewEncoderDecoder(layers [2]int, embDim int, hidDim [2]int, attDim int, vocab *Vocab, cfg ModelConfig) (*EncoderDecoder, error) {
	var err error
	if cfg.Cell, err = normalizeCell(cfg.Cell); err != nil {
		return nil, err
	}
	if cfg.AttType, err = normalizeAttention(cfg.AttType); err != nil {
		return nil, err
	}

	m := &EncoderDecoder{
		cfg:       cfg,
		vocab:     vocab,
		encLayers: layers[0],
		decLayers: layers[1],
		embDim:    embDim,
		encHid:    hidDim[0],
		decHid:    hidDim[1],
		attDim:    attDim,
	}
	if err := m.validate(); err != nil {
		return nil, err
	}

	m.Embeddings = newComponent("src_embeddings")
	m.Encoder = newComponent("encoder")
	m.Decoder = newComponent("decoder")
	m.Projection = newComponent("project")

	m.embed = m.Embeddings.newParam("weight", KindEmbedding, vocab.Len(), embDim)

	dirs := []string{"fwd"}
	if cfg.Bidi {
		dirs = append(dirs, "bwd")
	}
	dirHid := m.encHid / len(dirs)
	in := embDim
	for l := 0; l < m.encLayers; l++ {
		var cells []*cell
		for _, d := range dirs {
			cells = append(cells, newCell(m.Encoder, fmt.Sprintf("l%d.%s", l, d), cfg.Cell, in, dirHid))
		}
		m.encCells = append(m.encCells, cells)
		in = m.encHid
	}

	in = embDim
	for l := 0; l < m.decLayers; l++ {
		m.decCells = append(m.decCells, newCell(m.Decoder, fmt.Sprintf("l%d", l), cfg.Cell, in, m.decHid))
		in = m.decHid
		if cfg.ProjectInit {
			m.initH = append(m.initH, gate{
				w: m.Decoder.newParam(fmt.Sprintf("init%d.W_h", l), KindLinear, m.encHid, m.decHid),
				b: m.Decoder.newParam(fmt.Sprintf("init%d.b_h", l), KindBias, 1, m.decHid),
			})
			if cfg.Cell == CellLSTM {
				m.initC = append(m.initC, gate{
					w: m.Decoder.newParam(fmt.Sprintf("init%d.W_c", l), KindLinear, m.encHid, m.decHid),
					b: m.Decoder.newParam(fmt.Sprintf("init%d.b_c", l), KindBias, 1, m.decHid),
				})
			}
		}
	}

	m.att = newAttention(m.Decoder, cfg.AttType, m.decHid, m.encHid, attDim)

	pieces := 1
	if cfg.Maxout > 0 {
		pieces = cfg.Maxout
	}
	for k := 0; k < pieces; k++ {
		m.combine = append(m.combine, gate{
			w: m.Decoder.newParam(fmt.Sprintf("combine%d.W", k), KindLinear, m.decHid+m.encHid, m.decHid),
			b: m.Decoder.newParam(fmt.Sprintf("combine%d.b", k), KindBias, 1, m.decHid),
		})
	}

	if cfg.TieWeights {
		if m.projectsOnTied() {
			m.tiedProj = gate{
				w: m.Projection.newParam("tied.W", KindLinear, m.decHid, embDim),
				b: m.Projection.newParam("tied.b", KindBias, 1, embDim),
			}
		}
		m.out = gate{b: m.Projection.newParam("b", KindBias, 1, vocab.Len())}
	} else {
		m.out = gate{
			w: m.Projection.newParam("W", KindLinear, m.decHid, vocab.Len()),
			b: m.Projection.newParam("b", KindBias, 1, vocab.Len()),
		}
	}
	return m, nil
}

func (m *EncoderDecoder) validate() error {
	switch {
	case m.encLayers < 1 || m.decLayers < 1:
		return fmt.Errorf("need at least one encoder and decoder layer, got %d/%d", m.encLayers, m.decLayers)
	case m.embDim < 1 || m.encHid < 1 || m.decHid < 1 || m.attDim < 1:
		return fmt.Errorf("dimensions must be positive (emb %d, hid %d/%d, att %d)", m.embDim, m.encHid, m.decHid, m.attDim)
	case m.cfg.Bidi && m.encHid%2 != 0:
		return fmt.Errorf("bidirectional encoder needs an even hidden size, got %d", m.encHid)
	case m.cfg.Dropout < 0 || m.cfg.Dropout >= 1:
		return fmt.Errorf("dropout must be in [0, 1), got %g", m.cfg.Dropout)
	case m.cfg.Maxout < 0 || m.cfg.Maxout == 1:
		return fmt.Errorf("maxout must be 0 or at least 2, got %d", m.cfg.Maxout)
	case m.cfg.AttType == AttDot && m.encHid != m.decHid:
		return fmt.Errorf("dot attention needs equal encoder and decoder sizes, got %d/%d", m.encHid, m.decHid)
	case !m.cfg.ProjectInit && (m.encLayers != m.decLayers || m.encHid != m.decHid):
		return fmt.Errorf("decoder initialized from encoder state needs matching layers and sizes; use project_init")
	case m.vocab == nil || !m.vocab.Fitted():
		return fmt.Errorf("model needs a fitted vocabulary")
	}
	return nil
}

func (m *EncoderDecoder) projectsOnTied() bool {
	return m.cfg.ProjectOnTiedWeights || m.decHid != m.embDim
}

func (m *EncoderDecoder) Vocab() *Vocab { return m.vocab }

func (m *EncoderDecoder) Components() []*Component {
	return []*Component{m.Embeddings, m.Encoder, m.Decoder, m.Projection}
}

// NParams counts trainable parameters.
func (m *EncoderDecoder) NParams() int {
	n := 0
	for _, c := range m.Components() {
		if c.Trainable() {
			n += c.NParams()
		}
	}
	return n
}

// Freeze stops updates to c while it keeps taking part in forward passes.
func (m *EncoderDecoder) Freeze(c *Component) { c.Freeze() }

// Apply initializes every parameter of the given components, or of the
// whole model when none are given.
func (m *EncoderDecoder) Apply(init *Initializer, comps ...*Component) error {
	if len(comps) == 0 {
		comps = m.Components()
	}
	for _, c := range comps {
		for _, p := range c.params {
			if err := init.Init(p); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *EncoderDecoder) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "EncoderDecoder(cell=%s, att=%s, bidi=%t, dropout=%g, maxout=%d, tie=%t)\n",
		m.cfg.Cell, m.cfg.AttType, m.cfg.Bidi, m.cfg.Dropout, m.cfg.Maxout, m.cfg.TieWeights)
	for _, c := range m.Components() {
		state := "trainable"
		if !c.Trainable() {
			state = "frozen"
		}
		fmt.Fprintf(&sb, "  (%s) %s, %d params\n", c.name, state, c.NParams())
		for _, p := range c.params {
			fmt.Fprintf(&sb, "    %-28s %v |w|=%.3f\n", p.Name, p.Value.Shape(), frobenius(p.Data()))
		}
	}
	return sb.String()
}

// encode embeds and runs the encoder stack. It returns the top-layer outputs
// per source position and the final state of every layer.
func (m *EncoderDecoder) encode(b *graphBuilder, src [][]int) ([]*gorgonia.Node, []cellState, error) {
	batch, steps := len(src), len(src[0])
	pad := m.vocab.Pad()
	emb := b.param(m.embed)

	xs := make([]*gorgonia.Node, steps)
	masks := make([]*gorgonia.Node, steps)
	for t := 0; t < steps; t++ {
		ids := column(src, t)
		x, err := gorgonia.Mul(b.oneHot("src", ids, m.vocab.Len(), -1), emb)
		if err != nil {
			return nil, nil, errors.Wrap(err, "source embedding")
		}
		if xs[t], err = b.drop(x); err != nil {
			return nil, nil, err
		}
		mask := make([]float64, batch)
		for i, id := range ids {
			if id != pad {
				mask[i] = 1
			}
		}
		masks[t] = b.input("src_mask", batch, 1, mask)
	}

	finals := make([]cellState, m.encLayers)
	for l, cells := range m.encCells {
		fwd, fst, err := cells[0].run(b, xs, masks, false)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "encoder layer %d", l)
		}
		outs, final := fwd, fst
		if m.cfg.Bidi {
			bwd, bst, err := cells[1].run(b, xs, masks, true)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "encoder layer %d backward", l)
			}
			outs = make([]*gorgonia.Node, steps)
			for t := range outs {
				if outs[t], err = gorgonia.Concat(1, fwd[t], bwd[t]); err != nil {
					return nil, nil, err
				}
			}
			if final, err = concatStates(fst, bst); err != nil {
				return nil, nil, err
			}
		}
		finals[l] = final
		if l < m.encLayers-1 {
			for t := range outs {
				var err error
				if outs[t], err = b.drop(outs[t]); err != nil {
					return nil, nil, err
				}
			}
		}
		xs = outs
	}
	return xs, finals, nil
}

func (m *EncoderDecoder) initDecoder(b *graphBuilder, finals []cellState) ([]cellState, error) {
	states := make([]cellState, m.decLayers)
	for l := range states {
		src := finals[len(finals)-1]
		if l < len(finals) {
			src = finals[l]
		}
		if !m.cfg.ProjectInit {
			states[l] = src
			continue
		}
		h, err := b.linear(src.h, m.initH[l].w, m.initH[l].b)
		if err != nil {
			return nil, err
		}
		if states[l].h, err = gorgonia.Tanh(h); err != nil {
			return nil, err
		}
		if m.cfg.Cell == CellLSTM {
			if states[l].c, err = b.linear(src.c, m.initC[l].w, m.initC[l].b); err != nil {
				return nil, err
			}
		}
	}
	return states, nil
}

// combineContext merges the decoder output with the attention context,
// through tanh or a maxout over several linear pieces.
func (m *EncoderDecoder) combineContext(b *graphBuilder, h, ctx *gorgonia.Node) (*gorgonia.Node, error) {
	joint, err := gorgonia.Concat(1, h, ctx)
	if err != nil {
		return nil, err
	}
	if len(m.combine) == 1 {
		out, err := b.linear(joint, m.combine[0].w, m.combine[0].b)
		if err != nil {
			return nil, err
		}
		return gorgonia.Tanh(out)
	}
	batch := h.Shape()[0]
	pieces := make([]*gorgonia.Node, len(m.combine))
	for k, g := range m.combine {
		out, err := b.linear(joint, g.w, g.b)
		if err != nil {
			return nil, err
		}
		if pieces[k], err = gorgonia.Reshape(out, tensor.Shape{batch, m.decHid, 1}); err != nil {
			return nil, err
		}
	}
	stacked, err := gorgonia.Concat(2, pieces...)
	if err != nil {
		return nil, err
	}
	return gorgonia.Max(stacked, 2)
}

func (m *EncoderDecoder) project(b *graphBuilder, out *gorgonia.Node) (*gorgonia.Node, error) {
	if !m.cfg.TieWeights {
		return b.linear(out, m.out.w, m.out.b)
	}
	var err error
	if m.projectsOnTied() {
		if out, err = b.linear(out, m.tiedProj.w, m.tiedProj.b); err != nil {
			return nil, err
		}
	}
	embT, err := gorgonia.Transpose(b.param(m.embed))
	if err != nil {
		return nil, err
	}
	logits, err := gorgonia.Mul(out, embT)
	if err != nil {
		return nil, errors.Wrap(err, "tied projection")
	}
	return gorgonia.BroadcastAdd(logits, b.param(m.out.b), nil, []byte{0})
}

// forward feeds the gold target prefixes and returns one (B x V) token
// distribution per decoder input position.
func (m *EncoderDecoder) forward(b *graphBuilder, src, trgIn [][]int) ([]*gorgonia.Node, error) {
	encOuts, finals, err := m.encode(b, src)
	if err != nil {
		return nil, err
	}
	keys, err := m.att.keys(b, encOuts)
	if err != nil {
		return nil, err
	}
	mask := maskBias(b, src, m.vocab.Pad())
	states, err := m.initDecoder(b, finals)
	if err != nil {
		return nil, errors.Wrap(err, "decoder init")
	}

	emb := b.param(m.embed)
	probs := make([]*gorgonia.Node, len(trgIn[0]))
	for t := range probs {
		x, err := gorgonia.Mul(b.oneHot("trg", column(trgIn, t), m.vocab.Len(), -1), emb)
		if err != nil {
			return nil, errors.Wrap(err, "target embedding")
		}
		if x, err = b.drop(x); err != nil {
			return nil, err
		}
		for l, cl := range m.decCells {
			if states[l], err = cl.step(b, x, states[l]); err != nil {
				return nil, errors.Wrapf(err, "decoder layer %d step %d", l, t)
			}
			x = states[l].h
			if l < m.decLayers-1 {
				if x, err = b.drop(x); err != nil {
					return nil, err
				}
			}
		}
		ctx, _, err := m.att.attend(b, x, keys, encOuts, mask)
		if err != nil {
			return nil, errors.Wrapf(err, "attention step %d", t)
		}
		out, err := m.combineContext(b, x, ctx)
		if err != nil {
			return nil, err
		}
		if out, err = b.drop(out); err != nil {
			return nil, err
		}
		logits, err := m.project(b, out)
		if err != nil {
			return nil, err
		}
		if probs[t], err = gorgonia.SoftMax(logits); err != nil {
			return nil, err
		}
	}
	return probs, nil
}

// Criterion is the masked negative log-likelihood over target tokens.
// Padding never contributes to the loss.
type Criterion struct {
	vocabSize int
	pad       int
}

func MakeCriterion(vocabSize, pad int) *Criterion {
	return &Criterion{vocabSize: vocabSize, pad: pad}
}

// build returns the mean loss per target token and the token count.
func (c *Criterion) build(b *graphBuilder, probs []*gorgonia.Node, trgOut [][]int) (*gorgonia.Node, int, error) {
	var total *gorgonia.Node
	tokens := 0
	for t, p := range probs {
		ids := column(trgOut, t)
		for _, id := range ids {
			if id != c.pad {
				tokens++
			}
		}
		logp, err := gorgonia.Log(p)
		if err != nil {
			return nil, 0, err
		}
		picked, err := gorgonia.HadamardProd(logp, b.oneHot("gold", ids, c.vocabSize, c.pad))
		if err != nil {
			return nil, 0, err
		}
		s, err := gorgonia.Sum(picked)
		if err != nil {
			return nil, 0, err
		}
		if total == nil {
			total = s
			continue
		}
		if total, err = gorgonia.Add(total, s); err != nil {
			return nil, 0, err
		}
	}
	if tokens == 0 {
		return nil, 0, errors.New("batch has no target tokens")
	}
	mean, err := gorgonia.Div(total, b.scalar("ntokens", float64(tokens)))
	if err != nil {
		return nil, 0, err
	}
	loss, err := gorgonia.Neg(mean)
	if err != nil {
		return nil, 0, err
	}
	return loss, tokens, nil
}

// shiftTargets splits bos..eos rows into decoder inputs and expected outputs.
func shiftTargets(trg [][]int) (in, out [][]int) {
	in = make([][]int, len(trg))
	out = make([][]int, len(trg))
	for i, r := range trg {
		in[i] = r[:len(r)-1]
		out[i] = r[1:]
	}
	return in, out
}

// Step is one executed batch graph. When it was built for training, the
// gradients of the trainable parameters are available until Close.
type Step struct {
	Loss    float64
	Correct int
	Tokens  int

	vm         gorgonia.VM
	learnables []*gorgonia.Node
	params     []*Param
}

func (s *Step) Close() error {
	if s.vm == nil {
		return nil
	}
	return s.vm.Close()
}

// Run builds the graph for batch, executes it and, when train is set,
// computes gradients for every parameter of a trainable component.
func (m *EncoderDecoder) Run(batch Batch, crit *Criterion, train bool) (*Step, error) {
	b := newGraphBuilder(train, m.cfg.Dropout)
	trgIn, trgOut := shiftTargets(batch.Trg)
	probs, err := m.forward(b, batch.Src, trgIn)
	if err != nil {
		return nil, err
	}
	loss, tokens, err := crit.build(b, probs, trgOut)
	if err != nil {
		return nil, err
	}

	step := &Step{Tokens: tokens}
	if train {
		step.learnables, step.params = b.learnables()
		if len(step.learnables) == 0 {
			return nil, errors.New("every component is frozen")
		}
		if _, err := gorgonia.Grad(loss, step.learnables...); err != nil {
			return nil, errors.Wrap(err, "symbolic gradient")
		}
		step.vm = gorgonia.NewTapeMachine(b.g, gorgonia.BindDualValues(step.learnables...))
	} else {
		step.vm = gorgonia.NewTapeMachine(b.g)
	}

	if err := step.vm.RunAll(); err != nil {
		step.Close()
		return nil, errors.Wrap(err, "running batch graph")
	}
	if step.Loss, err = scalarValue(loss); err != nil {
		step.Close()
		return nil, err
	}
	if step.Correct, err = countCorrect(probs, trgOut, m.vocab.Pad(), m.vocab.Len()); err != nil {
		step.Close()
		return nil, err
	}
	return step, nil
}

func countCorrect(probs []*gorgonia.Node, trgOut [][]int, pad, size int) (int, error) {
	correct := 0
	for t, p := range probs {
		data, err := matrixValue(p)
		if err != nil {
			return 0, err
		}
		for i, row := range trgOut {
			if row[t] == pad {
				continue
			}
			if argmax(data[i*size:(i+1)*size]) == row[t] {
				correct++
			}
		}
	}
	return correct, nil
}

func argmax(v []float64) int {
	best := 0
	for i := range v {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// Hypothesis is one decoded output with its log-probability.
type Hypothesis struct {
	IDs   []int
	Score float64
}

// nextLogProbs returns log p(next | prefix, src) for every prefix. All
// prefixes must have the same length.
func (m *EncoderDecoder) nextLogProbs(src []int, prefixes [][]int) ([][]float64, error) {
	srcRows := make([][]int, len(prefixes))
	for i := range srcRows {
		srcRows[i] = src
	}
	b := newGraphBuilder(false, 0)
	probs, err := m.forward(b, srcRows, prefixes)
	if err != nil {
		return nil, err
	}
	vm := gorgonia.NewTapeMachine(b.g)
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		return nil, errors.Wrap(err, "decoding step")
	}
	last, err := matrixValue(probs[len(probs)-1])
	if err != nil {
		return nil, err
	}
	size := m.vocab.Len()
	out := make([][]float64, len(prefixes))
	for i := range out {
		out[i] = make([]float64, size)
		for j, p := range last[i*size : (i+1)*size] {
			out[i][j] = math.Log(math.Max(p, 1e-300))
		}
	}
	return out, nil
}

// Translate decodes src (bos..eos framed ids) with a beam of the given width;
// width 1 is greedy decoding. Hypotheses come back best first, without the
// leading bos.
func (m *EncoderDecoder) Translate(src []int, maxLen, width int) ([]Hypothesis, error) {
	if width < 1 {
		width = 1
	}
	live := []Hypothesis{{IDs: []int{m.vocab.BOS()}}}
	var done []Hypothesis

	for step := 0; step < maxLen && len(live) > 0 && len(done) < width; step++ {
		prefixes := make([][]int, len(live))
		for i, h := range live {
			prefixes[i] = h.IDs
		}
		logp, err := m.nextLogProbs(src, prefixes)
		if err != nil {
			return nil, err
		}

		var cands []Hypothesis
		for i, h := range live {
			for id, lp := range logp[i] {
				if id == m.vocab.Pad() || id == m.vocab.BOS() {
					continue
				}
				ids := append(append([]int(nil), h.IDs...), id)
				cands = append(cands, Hypothesis{IDs: ids, Score: h.Score + lp})
			}
		}
		sort.SliceStable(cands, func(i, j int) bool { return cands[i].Score > cands[j].Score })

		live = live[:0]
		for _, c := range cands {
			if len(live)+len(done) >= width {
				break
			}
			if c.IDs[len(c.IDs)-1] == m.vocab.EOS() {
				done = append(done, c)
			} else {
				live = append(live, c)
			}
		}
	}

	done = append(done, live...)
	for i := range done {
		done[i].IDs = done[i].IDs[1:]
	}
	sort.SliceStable(done, func(i, j int) bool {
		return done[i].Score/float64(len(done[i].IDs)+1) > done[j].Score/float64(len(done[j].IDs)+1)
	})
	if len(done) > width {
		done = done[:width]
	}
	return done, nil
}

type savedParam struct {
	Shape []int
	Data  []float64
}

// Save writes every parameter value with gob.
func (m *EncoderDecoder) Save(path string) error {
	saved := make(map[string]savedParam)
	for _, c := range m.Components() {
		for _, p := range c.params {
			saved[p.Name] = savedParam{Shape: p.Value.Shape().Clone(), Data: p.Data()}
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(saved)
}

// Load restores parameter values written by Save into a model of the same
// architecture.
func (m *EncoderDecoder) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	var saved map[string]savedParam
	if err := gob.NewDecoder(f).Decode(&saved); err != nil {
		return err
	}
	for _, c := range m.Components() {
		for _, p := range c.params {
			s, ok := saved[p.Name]
			if !ok {
				return fmt.Errorf("%s: missing parameter %s", path, p.Name)
			}
			if !tensor.Shape(s.Shape).Eq(p.Value.Shape()) {
				return fmt.Errorf("%s: %s has shape %v, model wants %v", path, p.Name, s.Shape, p.Value.Shape())
			}
			copy(p.Data(), s.Data)
		}
	}
	return nil
}
